//go:build !unix

package migrate

import (
	"os"
	"os/exec"
)

// isolate relies on the default exec cancellation (Process.Kill) where
// process groups are unavailable.
func isolate(cmd *exec.Cmd) {}

func brokenPipe(state *os.ProcessState) bool {
	return state != nil && state.ExitCode() == 141
}
