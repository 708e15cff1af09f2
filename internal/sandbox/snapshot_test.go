package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/kastell/internal/incus"
)

func TestSnapshotCreate(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "s1").Return(runningInstance("s1"), nil)
	gw.On("SnapshotCreate", mock.Anything, "s1", "clean", true).Return(nil)

	require.NoError(t, mgr.Snapshot(context.Background(), "s1", "clean", true))
}

func TestSnapshotEmptyName(t *testing.T) {
	mgr, gw := newTestManager()

	err := mgr.Snapshot(context.Background(), "s1", "", false)
	require.Error(t, err)
	gw.AssertNotCalled(t, "SnapshotCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSnapshotSandboxMissing(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "missing").Return(nil, nil)

	err := mgr.Snapshot(context.Background(), "missing", "clean", false)
	assert.ErrorIs(t, err, ErrSandboxNotFound)
}

func TestRestoreSnapshot(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "s1").Return(runningInstance("s1"), nil)
	gw.On("SnapshotRestore", mock.Anything, "s1", "clean").Return(nil)

	require.NoError(t, mgr.RestoreSnapshot(context.Background(), "s1", "clean"))
}

func TestListSnapshots(t *testing.T) {
	mgr, gw := newTestManager()
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	gw.On("GetInstance", mock.Anything, "s1").Return(runningInstance("s1"), nil)
	gw.On("SnapshotList", mock.Anything, "s1").Return([]incus.Snapshot{
		{Name: "clean", CreatedAt: created, Stateful: true},
	}, nil)

	snaps, err := mgr.ListSnapshots(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "clean", snaps[0].Name)
	assert.Equal(t, created, snaps[0].CreatedAt)
	assert.True(t, snaps[0].Stateful)
}

func TestDeleteSnapshotFailure(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "s1").Return(runningInstance("s1"), nil)
	gw.On("SnapshotDelete", mock.Anything, "s1", "clean").Return(assert.AnError)

	err := mgr.DeleteSnapshot(context.Background(), "s1", "clean")
	assert.Error(t, err)
}
