// Package hostexec implements the Runner interface for privileged host
// commands (systemctl, nginx), plus a recording test double.
package hostexec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
)

// ExecRunner runs host commands via os/exec. Commands are logged before
// execution; stderr is captured into the returned error on failure.
type ExecRunner struct {
	log *slog.Logger
}

// NewExecRunner creates a Runner that executes commands on the real host.
func NewExecRunner(log *slog.Logger) *ExecRunner {
	return &ExecRunner{log: log}
}

// Run executes the command and waits for it to complete.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmdStr := shellquote.Join(append([]string{name}, args...)...)
	r.log.Info("Running host command", "cmd", cmdStr)

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return fmt.Errorf("%s failed: %s: %w", cmdStr, msg, err)
	}
	return nil
}
