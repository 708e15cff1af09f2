package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type CodeOpts struct {
	Language string
	Timeout  time.Duration
	Env      map[string]string
}

type CodeResult struct {
	Output   string        `json:"output"` // stdout followed by stderr
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

type interpreter struct {
	ext string
	cmd string
}

// The supported language set is closed; unsupported tags fail before
// anything touches the guest.
var interpreters = map[string]interpreter{
	"python":     {ext: ".py", cmd: "python3"},
	"bash":       {ext: ".sh", cmd: "bash"},
	"javascript": {ext: ".js", cmd: "node"},
}

// RunCode stages source into the guest, runs the language's interpreter
// over it and cleans the temp file up afterwards. Cleanup is best effort
// and never masks the primary result or error.
func (m *Manager) RunCode(ctx context.Context, name, source string, opts CodeOpts) (*CodeResult, error) {
	interp, ok := interpreters[strings.ToLower(opts.Language)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, opts.Language)
	}

	path := "/tmp/kastell-" + uuid.New().String()[:8] + interp.ext
	if err := m.WriteFile(ctx, name, path, []byte(source)); err != nil {
		return nil, fmt.Errorf("stage source: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := m.RemoveFile(cleanupCtx, name, path, RemoveOpts{Force: true}); err != nil {
			m.logger.Warn("remove staged source", "sandbox", name, "path", path, "error", err)
		}
	}()

	res, err := m.RunCommand(ctx, name, interp.cmd+" "+path, CommandOpts{
		Timeout: opts.Timeout,
		Env:     opts.Env,
	})
	if err != nil {
		return nil, err
	}

	return &CodeResult{
		Output:   res.Stdout + res.Stderr,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
	}, nil
}
