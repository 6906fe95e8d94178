//go:build !windows

package transport

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// prepareSysProcAttr puts the child in its own process group so
// killProcess can signal the whole tree instead of just the direct
// child.
func prepareSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcess sends SIGKILL to the child's whole process group, so that
// nvim's own children (if any) are reaped along with it rather than
// orphaned when the direct child ignores a plain kill.
func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		cmd.Process.Kill()
		return
	}
	unix.Kill(-pgid, syscall.SIGKILL)
}
