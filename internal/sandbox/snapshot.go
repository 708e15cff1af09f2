package sandbox

import (
	"context"
	"fmt"
	"time"
)

type Snapshot struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Stateful  bool      `json:"stateful"`
}

func (m *Manager) Snapshot(ctx context.Context, name, snap string, stateful bool) error {
	if snap == "" {
		return fmt.Errorf("snapshot name must not be empty")
	}
	if _, err := m.instance(ctx, name); err != nil {
		return err
	}
	if err := m.gw.SnapshotCreate(ctx, name, snap, stateful); err != nil {
		return fmt.Errorf("snapshot %s/%s: %w", name, snap, err)
	}
	return nil
}

func (m *Manager) RestoreSnapshot(ctx context.Context, name, snap string) error {
	if _, err := m.instance(ctx, name); err != nil {
		return err
	}
	if err := m.gw.SnapshotRestore(ctx, name, snap); err != nil {
		return fmt.Errorf("restore %s/%s: %w", name, snap, err)
	}
	return nil
}

func (m *Manager) DeleteSnapshot(ctx context.Context, name, snap string) error {
	if _, err := m.instance(ctx, name); err != nil {
		return err
	}
	if err := m.gw.SnapshotDelete(ctx, name, snap); err != nil {
		return fmt.Errorf("delete snapshot %s/%s: %w", name, snap, err)
	}
	return nil
}

// ListSnapshots re-queries the runtime; snapshots are facts about the
// instance, not local records.
func (m *Manager) ListSnapshots(ctx context.Context, name string) ([]Snapshot, error) {
	if _, err := m.instance(ctx, name); err != nil {
		return nil, err
	}
	snaps, err := m.gw.SnapshotList(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list snapshots of %s: %w", name, err)
	}
	result := make([]Snapshot, len(snaps))
	for i, s := range snaps {
		result[i] = Snapshot{Name: s.Name, CreatedAt: s.CreatedAt, Stateful: s.Stateful}
	}
	return result, nil
}
