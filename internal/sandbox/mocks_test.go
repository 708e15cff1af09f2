package sandbox

import (
	"context"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/kastell/internal/config"
	"github.com/p-arndt/kastell/internal/incus"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Launch(ctx context.Context, opts incus.LaunchOpts) error {
	args := m.Called(ctx, opts)
	return args.Error(0)
}

func (m *MockGateway) GetInstance(ctx context.Context, name string) (*incus.Instance, error) {
	args := m.Called(ctx, name)
	if inst := args.Get(0); inst != nil {
		return inst.(*incus.Instance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) ListInstances(ctx context.Context, namePrefix string) ([]incus.Instance, error) {
	args := m.Called(ctx, namePrefix)
	if instances := args.Get(0); instances != nil {
		return instances.([]incus.Instance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) Start(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockGateway) Stop(ctx context.Context, name string, force bool) error {
	args := m.Called(ctx, name, force)
	return args.Error(0)
}

func (m *MockGateway) Restart(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockGateway) Delete(ctx context.Context, name string, force bool) error {
	args := m.Called(ctx, name, force)
	return args.Error(0)
}

func (m *MockGateway) Exec(ctx context.Context, name string, argv []string, opts incus.ExecOpts) (*incus.ExecResult, error) {
	args := m.Called(ctx, name, argv, opts)
	if res := args.Get(0); res != nil {
		return res.(*incus.ExecResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) PushFile(ctx context.Context, name, local, remote string) error {
	args := m.Called(ctx, name, local, remote)
	return args.Error(0)
}

func (m *MockGateway) PullFile(ctx context.Context, name, remote, local string) error {
	args := m.Called(ctx, name, remote, local)
	return args.Error(0)
}

func (m *MockGateway) SnapshotCreate(ctx context.Context, name, snap string, stateful bool) error {
	args := m.Called(ctx, name, snap, stateful)
	return args.Error(0)
}

func (m *MockGateway) SnapshotRestore(ctx context.Context, name, snap string) error {
	args := m.Called(ctx, name, snap)
	return args.Error(0)
}

func (m *MockGateway) SnapshotDelete(ctx context.Context, name, snap string) error {
	args := m.Called(ctx, name, snap)
	return args.Error(0)
}

func (m *MockGateway) SnapshotList(ctx context.Context, name string) ([]incus.Snapshot, error) {
	args := m.Called(ctx, name)
	if snaps := args.Get(0); snaps != nil {
		return snaps.([]incus.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) DeviceAdd(ctx context.Context, name, device, kind string, props map[string]string) error {
	args := m.Called(ctx, name, device, kind, props)
	return args.Error(0)
}

func (m *MockGateway) DeviceRemove(ctx context.Context, name, device string) error {
	args := m.Called(ctx, name, device)
	return args.Error(0)
}

func (m *MockGateway) ListDevices(ctx context.Context, name string) (map[string]incus.Device, error) {
	args := m.Called(ctx, name)
	if devices := args.Get(0); devices != nil {
		return devices.(map[string]incus.Device), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) ConfigGet(ctx context.Context, name, key string) (string, error) {
	args := m.Called(ctx, name, key)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) ConfigSet(ctx context.Context, name, key, value string) error {
	args := m.Called(ctx, name, key, value)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		Remote: "images",
		Defaults: config.Defaults{
			Image:               "alpine/3.21",
			Type:                "container",
			CPULimit:            1,
			MemLimit:            "512MiB",
			CommandTimeoutMs:    30000,
			MaxCommandTimeoutMs: 120000,
			ReadyTimeoutMs:      2000,
			PollIntervalMs:      10,
		},
	}
}

func newTestManager() (*Manager, *MockGateway) {
	gw := &MockGateway{}
	logger := slog.New(slog.DiscardHandler)
	return NewManager(testConfig(), gw, logger), gw
}

func runningInstance(name string) *incus.Instance {
	return &incus.Instance{
		Name:   name,
		Type:   incus.TypeContainer,
		Status: "Running",
		Config: map[string]string{managedKey: "true"},
	}
}

func stoppedInstance(name string) *incus.Instance {
	return &incus.Instance{
		Name:   name,
		Type:   incus.TypeContainer,
		Status: "Stopped",
		Config: map[string]string{managedKey: "true"},
	}
}

func vmInstance(name string) *incus.Instance {
	return &incus.Instance{
		Name:   name,
		Type:   incus.TypeVM,
		Status: "Running",
		Config: map[string]string{managedKey: "true"},
	}
}
