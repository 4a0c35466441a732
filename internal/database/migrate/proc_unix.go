//go:build unix

package migrate

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// isolate places the child in its own process group and makes cancellation
// kill the whole group, so helpers the child forked cannot outlive it.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}

func brokenPipe(state *os.ProcessState) bool {
	if state == nil {
		return false
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal() == syscall.SIGPIPE
	}
	return state.ExitCode() == 128+int(syscall.SIGPIPE)
}
