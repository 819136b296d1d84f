// Package companion with the one-shot launcher of the auth-replace helper
// script.
// The helper is a long-running process outside this plugin that swaps the
// pending auth record into place when the validity marker is present. The
// launcher is idempotent and fire-and-forget: the core never depends on the
// helper's completion or output.
package companion

import (
	"fmt"
	"os"
	"os/exec"
	"path"

	"github.com/sirupsen/logrus"
)

// EnsureRunning starts the helper script unless a process running it already
// exists. Intended to be invoked once at plugin startup.
func EnsureRunning(scriptPath string) error {
	if scriptPath == "" {
		logrus.Infof("Companion.EnsureRunning: no helper script configured")
		return nil
	}
	if _, err := os.Stat(scriptPath); err != nil {
		err = fmt.Errorf("Companion.EnsureRunning: helper script '%s' not found", scriptPath)
		logrus.Error(err)
		return err
	}
	if IsRunning(scriptPath) {
		logrus.Infof("Companion.EnsureRunning: helper script '%s' already running", scriptPath)
		return nil
	}
	return Start(scriptPath)
}

// IsRunning checks for a live process whose commandline matches the script
func IsRunning(scriptPath string) bool {
	err := exec.Command("pgrep", "-f", path.Base(scriptPath)).Run()
	return err == nil
}

// Start launches the helper script detached from this process.
// There is no result channel back; failures after launch are the helper's
// own to log.
func Start(scriptPath string) error {
	cmd := exec.Command("nohup", "bash", scriptPath)
	cmd.Stdout = nil
	cmd.Stderr = nil
	err := cmd.Start()
	if err != nil {
		logrus.Errorf("Companion.Start: cannot launch helper script '%s': %s", scriptPath, err)
		return err
	}
	logrus.Infof("Companion.Start: launched helper script '%s' (pid %d)", scriptPath, cmd.Process.Pid)
	// detach; the helper outlives this process
	return cmd.Process.Release()
}
