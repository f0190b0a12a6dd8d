package hostexec

import (
	"context"
	"sync"

	shellquote "github.com/kballard/go-shellquote"
)

// RecordingRunner is a Runner test double. It records every command as a
// single shell-quoted string instead of executing it. An optional FailOn
// callback can inject failures for specific commands.
type RecordingRunner struct {
	mu sync.Mutex

	// Calls holds the recorded commands in invocation order.
	Calls []string

	// FailOn, when non-nil, is consulted for each command; a non-nil
	// return is surfaced as that command's failure.
	FailOn func(cmd string) error
}

// Run records the command and returns the injected failure, if any.
func (r *RecordingRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := shellquote.Join(append([]string{name}, args...)...)

	r.mu.Lock()
	r.Calls = append(r.Calls, cmd)
	r.mu.Unlock()

	if r.FailOn != nil {
		return r.FailOn(cmd)
	}
	return nil
}

// Recorded returns a copy of the commands recorded so far.
func (r *RecordingRunner) Recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Calls))
	copy(out, r.Calls)
	return out
}
