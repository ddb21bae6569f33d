//go:build windows

package action

import "os"

// terminateSignal on Windows: os/exec maps os.Kill to TerminateProcess;
// there is no graceful SIGTERM equivalent for a plain exec.Cmd, so the
// grace window (WaitDelay) has nothing cooperative to wait for here. Job
// objects would give us that, but plumbing them is future work.
func terminateSignal() os.Signal {
	return os.Kill
}
