package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/p-arndt/kastell/internal/incus"
)

type CommandOpts struct {
	Dir     string
	Env     map[string]string
	User    string
	Timeout time.Duration // default 30s, capped by config
	Stdin   string
}

type CommandResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// RunCommand runs a shell command inside a running sandbox. A non-zero exit
// code is returned as data, never as an error. A timeout returns ErrTimeout
// and the in-flight guest process is killed, not abandoned.
func (m *Manager) RunCommand(ctx context.Context, name, command string, opts CommandOpts) (*CommandResult, error) {
	if _, err := m.requireRunning(ctx, name); err != nil {
		return nil, err
	}

	timeout := m.clampTimeout(opts.Timeout)

	start := time.Now()
	res, err := m.gw.Exec(ctx, name, []string{"sh", "-c", command}, incus.ExecOpts{
		Dir:     opts.Dir,
		Env:     opts.Env,
		User:    opts.User,
		Timeout: timeout,
		Stdin:   opts.Stdin,
	})
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			m.killGuestCommand(ctx, name, command)
			return nil, fmt.Errorf("%w: command exceeded %s", ErrTimeout, timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrCommandFailed, err)
	}

	return &CommandResult{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
		Duration: duration,
	}, nil
}

// killGuestCommand signals a timed-out guest process. Best effort: the exec
// session is already torn down, this only catches a detached survivor.
func (m *Manager) killGuestCommand(ctx context.Context, name, command string) {
	killCtx := context.WithoutCancel(ctx)
	_, err := m.gw.Exec(killCtx, name, []string{"pkill", "-f", command}, incus.ExecOpts{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		m.logger.Warn("kill timed-out command", "sandbox", name, "error", err)
	}
}
