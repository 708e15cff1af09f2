package sandbox

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/kastell/internal/incus"
)

func TestCreateSuccess(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "t1").Return(nil, nil).Once()
	gw.On("Launch", mock.Anything, mock.MatchedBy(func(opts incus.LaunchOpts) bool {
		return opts.Name == "t1" &&
			opts.Image == "images:alpine/3.21" &&
			!opts.VM &&
			opts.Config[managedKey] == "true" &&
			opts.Config["limits.memory"] == "512MiB"
	})).Return(nil)
	gw.On("GetInstance", mock.Anything, "t1").Return(runningInstance("t1"), nil)

	sb, err := mgr.Create(context.Background(), CreateOpts{Name: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "t1", sb.Name())
	assert.Equal(t, TypeContainer, sb.Type())

	state, err := sb.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)
}

func TestCreateNameConflict(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "taken").Return(runningInstance("taken"), nil)

	_, err := mgr.Create(context.Background(), CreateOpts{Name: "taken"})
	assert.ErrorIs(t, err, ErrNameConflict)
	gw.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
}

func TestCreateGeneratesName(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, mock.Anything).Return(nil, nil).Once()
	gw.On("Launch", mock.Anything, mock.Anything).Return(nil)
	gw.On("GetInstance", mock.Anything, mock.Anything).Return(runningInstance("generated"), nil)

	sb, err := mgr.Create(context.Background(), CreateOpts{})
	require.NoError(t, err)
	assert.Contains(t, sb.Name(), "kastell-")
}

func TestCreateImageNotFound(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "t1").Return(nil, nil)
	gw.On("Launch", mock.Anything, mock.Anything).
		Return(fmt.Errorf("incus launch: exit status 1: Image not found"))

	_, err := mgr.Create(context.Background(), CreateOpts{Name: "t1"})
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestCreateResourceLimit(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "t1").Return(nil, nil)
	gw.On("Launch", mock.Anything, mock.Anything).
		Return(fmt.Errorf("incus launch: exit status 1: Reached maximum number of instances, quota exceeded"))

	_, err := mgr.Create(context.Background(), CreateOpts{Name: "t1"})
	assert.ErrorIs(t, err, ErrResourceLimit)
}

func TestCreateReadinessTimeoutCleansUp(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "t1").Return(nil, nil).Once()
	gw.On("Launch", mock.Anything, mock.Anything).Return(nil)
	// Instance launches but never leaves Stopped.
	gw.On("GetInstance", mock.Anything, "t1").Return(stoppedInstance("t1"), nil)
	gw.On("Delete", mock.Anything, "t1", true).Return(nil)

	_, err := mgr.Create(context.Background(), CreateOpts{Name: "t1"})
	assert.ErrorIs(t, err, ErrTimeout)
	gw.AssertCalled(t, "Delete", mock.Anything, "t1", true)
}

func TestCreateInvalidType(t *testing.T) {
	mgr, _ := newTestManager()

	_, err := mgr.Create(context.Background(), CreateOpts{Name: "t1", Type: "zone"})
	assert.Error(t, err)
}

func TestCreateVM(t *testing.T) {
	mgr, gw := newTestManager()

	gw.On("GetInstance", mock.Anything, "v1").Return(nil, nil).Once()
	gw.On("Launch", mock.Anything, mock.MatchedBy(func(opts incus.LaunchOpts) bool {
		return opts.VM
	})).Return(nil)
	gw.On("GetInstance", mock.Anything, "v1").Return(vmInstance("v1"), nil)

	sb, err := mgr.Create(context.Background(), CreateOpts{Name: "v1", Type: TypeVM})
	require.NoError(t, err)
	assert.Equal(t, TypeVM, sb.Type())
}

func TestClassifyLaunchError(t *testing.T) {
	mgr, _ := newTestManager()

	tests := []struct {
		name string
		msg  string
		want error
	}{
		{"image missing", "Image not found", ErrImageNotFound},
		{"image alias missing", "the image alias doesn't exist", ErrImageNotFound},
		{"quota", "quota exceeded for project", ErrResourceLimit},
		{"limit", "instance limit reached", ErrResourceLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mgr.classifyLaunchError(errors.New(tt.msg))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("generic", func(t *testing.T) {
		err := mgr.classifyLaunchError(errors.New("connection refused"))
		assert.NotErrorIs(t, err, ErrImageNotFound)
		assert.NotErrorIs(t, err, ErrResourceLimit)
		assert.Error(t, err)
	})
}
