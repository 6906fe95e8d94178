//go:build windows

package transport

import "os/exec"

// prepareSysProcAttr is a no-op on Windows; killProcess kills only the
// direct child via cmd.Process.Kill() instead of group signaling.
func prepareSysProcAttr(cmd *exec.Cmd) {}

// killProcess kills the direct child. Unlike the unix backing this does
// not pursue a process-group signal, matching go-winio's own scope
// (pipe I/O, not process trees); taskkill-style tree kills are left to
// the caller if the embedded editor spawns its own children.
func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	cmd.Process.Kill()
}
