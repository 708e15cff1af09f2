// Package sandbox is the control layer over ephemeral compute sandboxes.
// All state is derived from the runtime at query time; the Manager holds no
// per-instance bookkeeping, so concurrent operations on different sandboxes
// are independent. Concurrent operations on the same sandbox are not
// coordinated here; callers must serialize them per name.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/p-arndt/kastell/internal/config"
	"github.com/p-arndt/kastell/internal/incus"
)

// Instance config keys marking sandboxes managed by this layer.
const (
	managedKey   = "user.kastell.managed"
	createdAtKey = "user.kastell.created_at"
)

type Manager struct {
	cfg    *config.Config
	gw     Gateway
	logger *slog.Logger
}

func NewManager(cfg *config.Config, gw Gateway, logger *slog.Logger) *Manager {
	return &Manager{cfg: cfg, gw: gw, logger: logger}
}

func (m *Manager) handle(name, typ string) *Sandbox {
	s := &Sandbox{name: name, typ: typ, mgr: m}
	s.fs = &FileSystem{name: name, mgr: m}
	return s
}

// State re-queries the runtime; the result is never cached.
func (m *Manager) State(ctx context.Context, name string) (State, error) {
	inst, err := m.instance(ctx, name)
	if err != nil {
		return StateError, err
	}
	return ParseState(inst.Status), nil
}

func (m *Manager) instance(ctx context.Context, name string) (*incus.Instance, error) {
	inst, err := m.gw.GetInstance(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("query instance %s: %w", name, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %s", ErrSandboxNotFound, name)
	}
	return inst, nil
}

// requireRunning performs the fresh state check preceding every
// state-dependent operation.
func (m *Manager) requireRunning(ctx context.Context, name string) (*incus.Instance, error) {
	inst, err := m.instance(ctx, name)
	if err != nil {
		return nil, err
	}
	if state := ParseState(inst.Status); state != StateRunning {
		return nil, fmt.Errorf("%w: %s (state=%s)", ErrNotRunning, name, state)
	}
	return inst, nil
}

func (m *Manager) awaitRunning(ctx context.Context, name string) error {
	return waitUntil(ctx, m.readyTimeout(), m.pollInterval(), func(ctx context.Context) (bool, error) {
		inst, err := m.gw.GetInstance(ctx, name)
		if err != nil {
			return false, fmt.Errorf("query instance %s: %w", name, err)
		}
		if inst == nil {
			return false, fmt.Errorf("%w: %s", ErrSandboxNotFound, name)
		}
		return ParseState(inst.Status) == StateRunning, nil
	})
}

func (m *Manager) readyTimeout() time.Duration {
	return time.Duration(m.cfg.Defaults.ReadyTimeoutMs) * time.Millisecond
}

func (m *Manager) pollInterval() time.Duration {
	return time.Duration(m.cfg.Defaults.PollIntervalMs) * time.Millisecond
}

func (m *Manager) defaultCommandTimeout() time.Duration {
	return time.Duration(m.cfg.Defaults.CommandTimeoutMs) * time.Millisecond
}

// clampTimeout applies the default and the configured ceiling.
func (m *Manager) clampTimeout(timeout time.Duration) time.Duration {
	max := time.Duration(m.cfg.Defaults.MaxCommandTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = m.defaultCommandTimeout()
	}
	if max > 0 && timeout > max {
		timeout = max
	}
	return timeout
}

func (m *Manager) launchConfig() map[string]string {
	return map[string]string{
		"limits.cpu":    strconv.Itoa(m.cfg.Defaults.CPULimit),
		"limits.memory": m.cfg.Defaults.MemLimit,
		managedKey:      "true",
		createdAtKey:    time.Now().UTC().Format(time.RFC3339),
	}
}
