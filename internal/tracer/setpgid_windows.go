//go:build windows

package tracer

import "os/exec"

// Windows has no process-group signal to send; the os/exec Cancel/
// WaitDelay machinery handles the immediate child, and the tracer never
// spawns further children on this platform.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) {}
