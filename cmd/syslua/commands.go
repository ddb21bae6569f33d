package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"syslua/internal/engine"
)

// commonFlags are shared by every command that evaluates an entry
// script: the script path, store root override, and lock timeout.
type commonFlags struct {
	script      *string
	storeRoot   *string
	lockTimeout *time.Duration
	concurrency *int
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		script:      fs.String("script", "main.lua", "entry script to evaluate"),
		storeRoot:   fs.String("store", "", "override the store root (default: SYSLUA_STORE or platform default)"),
		lockTimeout: fs.Duration("lock-timeout", 30*time.Second, "store lock acquisition timeout"),
		concurrency: fs.Int("concurrency", 4, "max concurrent actions per wave"),
	}
}

func (c commonFlags) options() engine.Options {
	return engine.Options{
		ScriptPath:  *c.script,
		StoreRoot:   *c.storeRoot,
		LockTimeout: *c.lockTimeout,
		Concurrency: *c.concurrency,
	}
}

func cmdApply(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	common := addCommonFlags(fs)
	dryRun := fs.Bool("dry-run", false, "compute the plan without mutating anything")
	force := fs.Bool("force", false, "re-apply a drifted bind instead of failing")
	strict := fs.Bool("strict-drift", false, "fail the apply if a kept bind has drifted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := common.options()
	opts.DryRun = *dryRun
	opts.Force = *force
	opts.StrictDrift = *strict

	e, err := engine.New(opts)
	if err != nil {
		return err
	}
	result, err := e.Apply(ctx)
	if err != nil {
		return err
	}
	if result.DryRun {
		fmt.Println(result.Plan.Describe())
		return nil
	}
	fmt.Printf("applied: snapshot %s\n%s\n", result.SnapshotID, result.Plan.Describe())
	return nil
}

func cmdPlan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := engine.New(common.options())
	if err != nil {
		return err
	}
	plan, err := e.Plan(ctx)
	if err != nil {
		return err
	}
	fmt.Print(plan.Describe())
	return nil
}

func cmdUpdate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := common.options()
	opts.UpdateInputs = true
	opts.UpdateOnly = fs.Args()
	opts.DryRun = true

	e, err := engine.New(opts)
	if err != nil {
		return err
	}
	if _, err := e.Apply(ctx); err != nil {
		return err
	}
	fmt.Println("syslua.lock updated")
	return nil
}

func cmdGC(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gc", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := engine.New(common.options())
	if err != nil {
		return err
	}
	result, err := e.Snapshots.GC(ctx, e.Store, *common.lockTimeout)
	if err != nil {
		return err
	}
	fmt.Printf("gc: removed %d object(s), %d bind(s), freed %d byte(s)\n",
		result.ObjectsRemoved, result.BindsRemoved, result.BytesFreed)
	return nil
}

func cmdSnapshots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snapshots", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := engine.New(common.options())
	if err != nil {
		return err
	}
	list, err := e.Snapshots.List()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

func cmdVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := engine.New(common.options())
	if err != nil {
		return err
	}
	hashes, err := e.Store.ListObjHashes()
	if err != nil {
		return err
	}
	failures := 0
	for _, h := range hashes {
		if err := e.Store.Verify(h); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "verify: %s: %v\n", h, err)
		}
	}
	if failures > 0 {
		return fmt.Errorf("verify: %d object(s) failed integrity check", failures)
	}
	fmt.Printf("verify: %d object(s) ok\n", len(hashes))
	return nil
}
