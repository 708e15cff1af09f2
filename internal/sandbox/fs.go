package sandbox

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/p-arndt/kastell/internal/incus"
)

// FileSystem is the thin file proxy owned by a Sandbox. Reads and writes
// round-trip through the runtime's file transfer; everything else is a
// guest command.
type FileSystem struct {
	name string
	mgr  *Manager
}

func (f *FileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	return f.mgr.WriteFile(ctx, f.name, path, data)
}

func (f *FileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return f.mgr.ReadFile(ctx, f.name, path)
}

func (f *FileSystem) Remove(ctx context.Context, path string, opts RemoveOpts) error {
	return f.mgr.RemoveFile(ctx, f.name, path, opts)
}

func (f *FileSystem) Mkdir(ctx context.Context, path string) error {
	return f.mgr.MkdirGuest(ctx, f.name, path)
}

func (f *FileSystem) Exists(ctx context.Context, path string) (bool, error) {
	return f.mgr.GuestPathExists(ctx, f.name, path)
}

type RemoveOpts struct {
	Force     bool // no error when the path does not exist
	Recursive bool
}

func (m *Manager) WriteFile(ctx context.Context, name, path string, data []byte) error {
	tmp, err := os.CreateTemp("", "kastell-push-*")
	if err != nil {
		return fmt.Errorf("stage local file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("stage local file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stage local file: %w", err)
	}

	if err := m.gw.PushFile(ctx, name, tmp.Name(), path); err != nil {
		return fmt.Errorf("push %s: %w", path, err)
	}
	return nil
}

func (m *Manager) ReadFile(ctx context.Context, name, path string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "kastell-pull-*")
	if err != nil {
		return nil, fmt.Errorf("stage local file: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := m.gw.PullFile(ctx, name, path, tmp.Name()); err != nil {
		return nil, fmt.Errorf("pull %s: %w", path, err)
	}
	return os.ReadFile(tmp.Name())
}

func (m *Manager) RemoveFile(ctx context.Context, name, path string, opts RemoveOpts) error {
	args := []string{"rm"}
	if opts.Force {
		args = append(args, "-f")
	}
	if opts.Recursive {
		args = append(args, "-r")
	}
	args = append(args, path)
	return m.guestOp(ctx, name, args)
}

func (m *Manager) MkdirGuest(ctx context.Context, name, path string) error {
	return m.guestOp(ctx, name, []string{"mkdir", "-p", path})
}

func (m *Manager) GuestPathExists(ctx context.Context, name, path string) (bool, error) {
	res, err := m.gw.Exec(ctx, name, []string{"test", "-e", path}, incus.ExecOpts{
		Timeout: m.defaultCommandTimeout(),
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCommandFailed, err)
	}
	return res.ExitCode == 0, nil
}

// guestOp runs a short guest command where a non-zero exit is a failure.
func (m *Manager) guestOp(ctx context.Context, name string, argv []string) error {
	res, err := m.gw.Exec(ctx, name, argv, incus.ExecOpts{
		Timeout: m.defaultCommandTimeout(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommandFailed, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: %s: %s", ErrCommandFailed, strings.Join(argv, " "), strings.TrimSpace(res.Stderr))
	}
	return nil
}
