package sandbox

import (
	"context"

	"github.com/p-arndt/kastell/internal/incus"
)

// Gateway is the remote-operation boundary to the instance runtime. The
// concrete implementation lives in internal/incus; tests mock it.
type Gateway interface {
	Launch(ctx context.Context, opts incus.LaunchOpts) error
	GetInstance(ctx context.Context, name string) (*incus.Instance, error)
	ListInstances(ctx context.Context, namePrefix string) ([]incus.Instance, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string, force bool) error
	Restart(ctx context.Context, name string) error
	Delete(ctx context.Context, name string, force bool) error
	Exec(ctx context.Context, name string, argv []string, opts incus.ExecOpts) (*incus.ExecResult, error)
	PushFile(ctx context.Context, name, local, remote string) error
	PullFile(ctx context.Context, name, remote, local string) error
	SnapshotCreate(ctx context.Context, name, snap string, stateful bool) error
	SnapshotRestore(ctx context.Context, name, snap string) error
	SnapshotDelete(ctx context.Context, name, snap string) error
	SnapshotList(ctx context.Context, name string) ([]incus.Snapshot, error)
	DeviceAdd(ctx context.Context, name, device, kind string, props map[string]string) error
	DeviceRemove(ctx context.Context, name, device string) error
	ListDevices(ctx context.Context, name string) (map[string]incus.Device, error)
	ConfigGet(ctx context.Context, name, key string) (string, error)
	ConfigSet(ctx context.Context, name, key, value string) error
}
