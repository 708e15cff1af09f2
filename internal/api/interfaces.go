package api

import (
	"context"

	"github.com/p-arndt/kastell/internal/sandbox"
)

// SandboxService is the facade surface the HTTP layer depends on,
// implemented by *sandbox.Manager.
type SandboxService interface {
	Create(ctx context.Context, opts sandbox.CreateOpts) (*sandbox.Sandbox, error)
	Describe(ctx context.Context, name string) (*sandbox.Info, error)
	List(ctx context.Context, filter sandbox.Filter) ([]sandbox.Info, error)
	Destroy(ctx context.Context, name string, opts sandbox.DestroyOpts) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string, force bool) error
	Restart(ctx context.Context, name string) error
	RunCommand(ctx context.Context, name, command string, opts sandbox.CommandOpts) (*sandbox.CommandResult, error)
	RunCode(ctx context.Context, name, source string, opts sandbox.CodeOpts) (*sandbox.CodeResult, error)
	Mount(ctx context.Context, name string, opts sandbox.MountOpts) (*sandbox.Mount, error)
	Unmount(ctx context.Context, name, target string) error
	ListMounts(ctx context.Context, name string) ([]sandbox.Mount, error)
	Snapshot(ctx context.Context, name, snap string, stateful bool) error
	RestoreSnapshot(ctx context.Context, name, snap string) error
	DeleteSnapshot(ctx context.Context, name, snap string) error
	ListSnapshots(ctx context.Context, name string) ([]sandbox.Snapshot, error)
	WriteFile(ctx context.Context, name, path string, data []byte) error
	ReadFile(ctx context.Context, name, path string) ([]byte, error)
}
