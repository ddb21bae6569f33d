// Command syslua is the minimal entrypoint wiring internal/engine's
// evaluate → resolve → apply pipeline to a process invocation. It is
// deliberately thin: no flag-parsing library, no colored output, no help
// completion — just enough dispatch to exercise the core end to end.
package main

import (
	"context"
	"fmt"
	"os"

	"syslua/internal/syserr"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	handler, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "syslua: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}

	if err := handler(context.Background(), args); err != nil {
		fmt.Fprintf(os.Stderr, "syslua: %v\n", err)
		os.Exit(syserr.ExitCodeFor(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: syslua <command> [args]")
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %s\n", name)
	}
}

type commandFunc func(ctx context.Context, args []string) error

var commandOrder = []string{"apply", "plan", "update", "gc", "snapshots", "verify"}

var commands = map[string]commandFunc{
	"apply":     cmdApply,
	"plan":      cmdPlan,
	"update":    cmdUpdate,
	"gc":        cmdGC,
	"snapshots": cmdSnapshots,
	"verify":    cmdVerify,
}
