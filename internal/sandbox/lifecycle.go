package sandbox

import (
	"context"
	"fmt"
)

func (m *Manager) Start(ctx context.Context, name string) error {
	if _, err := m.instance(ctx, name); err != nil {
		return err
	}
	if err := m.gw.Start(ctx, name); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	return m.awaitRunning(ctx, name)
}

func (m *Manager) Stop(ctx context.Context, name string, force bool) error {
	if _, err := m.instance(ctx, name); err != nil {
		return err
	}
	if err := m.gw.Stop(ctx, name, force); err != nil {
		return fmt.Errorf("stop %s: %w", name, err)
	}
	return nil
}

func (m *Manager) Restart(ctx context.Context, name string) error {
	if _, err := m.instance(ctx, name); err != nil {
		return err
	}
	if err := m.gw.Restart(ctx, name); err != nil {
		return fmt.Errorf("restart %s: %w", name, err)
	}
	return m.awaitRunning(ctx, name)
}

type DestroyOpts struct {
	// KeepSnapshots skips the snapshot cascade. By default all snapshots
	// are deleted before the instance.
	KeepSnapshots bool
	Force         bool
}

// Destroy deletes the instance, cascading over its snapshots first. A
// failed snapshot deletion aborts the destroy: the instance is never
// deleted while snapshots linger, force or not.
func (m *Manager) Destroy(ctx context.Context, name string, opts DestroyOpts) error {
	if _, err := m.instance(ctx, name); err != nil {
		return err
	}

	if !opts.KeepSnapshots {
		snaps, err := m.gw.SnapshotList(ctx, name)
		if err != nil {
			return fmt.Errorf("list snapshots of %s: %w", name, err)
		}
		for _, snap := range snaps {
			if err := m.gw.SnapshotDelete(ctx, name, snap.Name); err != nil {
				return fmt.Errorf("delete snapshot %s/%s: %w", name, snap.Name, err)
			}
		}
	}

	if err := m.gw.Delete(ctx, name, opts.Force); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	m.logger.Info("sandbox destroyed", "name", name)
	return nil
}
