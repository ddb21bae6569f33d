//go:build !windows

package action

import (
	"os"
	"syscall"
)

// terminateSignal returns the signal used to cooperatively cancel a running
// action: SIGTERM, with cmd.WaitDelay escalating to SIGKILL if the child
// does not exit in time (spec.md §5 "Cancellation").
func terminateSignal() os.Signal {
	return syscall.SIGTERM
}
