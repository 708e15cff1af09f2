package sandbox

import (
	"context"
	"time"
)

// Sandbox is a capability handle over one remote instance. It carries no
// state of its own beyond name and type; everything else is re-derived from
// the runtime per call.
type Sandbox struct {
	name string
	typ  string
	mgr  *Manager
	fs   *FileSystem
}

func (s *Sandbox) Name() string { return s.name }

func (s *Sandbox) Type() string { return s.typ }

// FS returns the sandbox's file proxy, owned for the sandbox's lifetime.
func (s *Sandbox) FS() *FileSystem { return s.fs }

func (s *Sandbox) State(ctx context.Context) (State, error) {
	return s.mgr.State(ctx, s.name)
}

func (s *Sandbox) Start(ctx context.Context) error {
	return s.mgr.Start(ctx, s.name)
}

func (s *Sandbox) Stop(ctx context.Context, force bool) error {
	return s.mgr.Stop(ctx, s.name, force)
}

func (s *Sandbox) Restart(ctx context.Context) error {
	return s.mgr.Restart(ctx, s.name)
}

func (s *Sandbox) Destroy(ctx context.Context, opts DestroyOpts) error {
	return s.mgr.Destroy(ctx, s.name, opts)
}

func (s *Sandbox) RunCommand(ctx context.Context, command string, opts CommandOpts) (*CommandResult, error) {
	return s.mgr.RunCommand(ctx, s.name, command, opts)
}

func (s *Sandbox) RunCode(ctx context.Context, source string, opts CodeOpts) (*CodeResult, error) {
	return s.mgr.RunCode(ctx, s.name, source, opts)
}

func (s *Sandbox) Mount(ctx context.Context, opts MountOpts) (*Mount, error) {
	return s.mgr.Mount(ctx, s.name, opts)
}

func (s *Sandbox) Unmount(ctx context.Context, target string) error {
	return s.mgr.Unmount(ctx, s.name, target)
}

func (s *Sandbox) ListMounts(ctx context.Context) ([]Mount, error) {
	return s.mgr.ListMounts(ctx, s.name)
}

func (s *Sandbox) Snapshot(ctx context.Context, snap string, stateful bool) error {
	return s.mgr.Snapshot(ctx, s.name, snap, stateful)
}

func (s *Sandbox) RestoreSnapshot(ctx context.Context, snap string) error {
	return s.mgr.RestoreSnapshot(ctx, s.name, snap)
}

func (s *Sandbox) DeleteSnapshot(ctx context.Context, snap string) error {
	return s.mgr.DeleteSnapshot(ctx, s.name, snap)
}

func (s *Sandbox) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	return s.mgr.ListSnapshots(ctx, s.name)
}

// CreatedAt reports the managed creation timestamp, zero when unknown.
func (s *Sandbox) CreatedAt(ctx context.Context) (time.Time, error) {
	info, err := s.mgr.Describe(ctx, s.name)
	if err != nil {
		return time.Time{}, err
	}
	return info.CreatedAt, nil
}
