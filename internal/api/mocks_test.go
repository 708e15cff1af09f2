package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/kastell/internal/config"
	"github.com/p-arndt/kastell/internal/sandbox"
)

type MockSandboxService struct {
	mock.Mock
}

func (m *MockSandboxService) Create(ctx context.Context, opts sandbox.CreateOpts) (*sandbox.Sandbox, error) {
	args := m.Called(ctx, opts)
	if sb := args.Get(0); sb != nil {
		return sb.(*sandbox.Sandbox), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSandboxService) Describe(ctx context.Context, name string) (*sandbox.Info, error) {
	args := m.Called(ctx, name)
	if info := args.Get(0); info != nil {
		return info.(*sandbox.Info), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSandboxService) List(ctx context.Context, filter sandbox.Filter) ([]sandbox.Info, error) {
	args := m.Called(ctx, filter)
	if infos := args.Get(0); infos != nil {
		return infos.([]sandbox.Info), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSandboxService) Destroy(ctx context.Context, name string, opts sandbox.DestroyOpts) error {
	args := m.Called(ctx, name, opts)
	return args.Error(0)
}

func (m *MockSandboxService) Start(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockSandboxService) Stop(ctx context.Context, name string, force bool) error {
	args := m.Called(ctx, name, force)
	return args.Error(0)
}

func (m *MockSandboxService) Restart(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockSandboxService) RunCommand(ctx context.Context, name, command string, opts sandbox.CommandOpts) (*sandbox.CommandResult, error) {
	args := m.Called(ctx, name, command, opts)
	if res := args.Get(0); res != nil {
		return res.(*sandbox.CommandResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSandboxService) RunCode(ctx context.Context, name, source string, opts sandbox.CodeOpts) (*sandbox.CodeResult, error) {
	args := m.Called(ctx, name, source, opts)
	if res := args.Get(0); res != nil {
		return res.(*sandbox.CodeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSandboxService) Mount(ctx context.Context, name string, opts sandbox.MountOpts) (*sandbox.Mount, error) {
	args := m.Called(ctx, name, opts)
	if mnt := args.Get(0); mnt != nil {
		return mnt.(*sandbox.Mount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSandboxService) Unmount(ctx context.Context, name, target string) error {
	args := m.Called(ctx, name, target)
	return args.Error(0)
}

func (m *MockSandboxService) ListMounts(ctx context.Context, name string) ([]sandbox.Mount, error) {
	args := m.Called(ctx, name)
	if mounts := args.Get(0); mounts != nil {
		return mounts.([]sandbox.Mount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSandboxService) Snapshot(ctx context.Context, name, snap string, stateful bool) error {
	args := m.Called(ctx, name, snap, stateful)
	return args.Error(0)
}

func (m *MockSandboxService) RestoreSnapshot(ctx context.Context, name, snap string) error {
	args := m.Called(ctx, name, snap)
	return args.Error(0)
}

func (m *MockSandboxService) DeleteSnapshot(ctx context.Context, name, snap string) error {
	args := m.Called(ctx, name, snap)
	return args.Error(0)
}

func (m *MockSandboxService) ListSnapshots(ctx context.Context, name string) ([]sandbox.Snapshot, error) {
	args := m.Called(ctx, name)
	if snaps := args.Get(0); snaps != nil {
		return snaps.([]sandbox.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSandboxService) WriteFile(ctx context.Context, name, path string, data []byte) error {
	args := m.Called(ctx, name, path, data)
	return args.Error(0)
}

func (m *MockSandboxService) ReadFile(ctx context.Context, name, path string) ([]byte, error) {
	args := m.Called(ctx, name, path)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestServer(apiKey string) (http.Handler, *MockSandboxService) {
	svc := &MockSandboxService{}
	cfg := &config.Config{APIKey: apiKey}
	srv := NewServer(cfg, svc, slog.New(slog.DiscardHandler))
	return srv.Handler(), svc
}
