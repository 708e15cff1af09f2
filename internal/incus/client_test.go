package incus

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testClient(bin string) *Client {
	return New(bin, "", time.Second, slog.New(slog.DiscardHandler))
}

func TestNewDefaults(t *testing.T) {
	c := New("", "", 0, slog.New(slog.DiscardHandler))
	assert.Equal(t, "incus", c.bin)
	assert.Equal(t, 60*time.Second, c.timeout)
}

func TestProjectArgs(t *testing.T) {
	c := testClient("incus")
	assert.Equal(t, []string{"list"}, c.projectArgs([]string{"list"}))

	c.project = "sandboxes"
	assert.Equal(t, []string{"--project", "sandboxes", "list"},
		c.projectArgs([]string{"list"}))
}

func TestSortedKeys(t *testing.T) {
	keys := sortedKeys(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Empty(t, sortedKeys(nil))
}

func TestInstanceDecoding(t *testing.T) {
	raw := `[{
		"name": "kastell-ab12cd34",
		"type": "container",
		"status": "Running",
		"created_at": "2026-08-01T12:00:00Z",
		"config": {"user.kastell.managed": "true"}
	}]`

	var instances []Instance
	require.NoError(t, json.Unmarshal([]byte(raw), &instances))
	require.Len(t, instances, 1)
	assert.Equal(t, "kastell-ab12cd34", instances[0].Name)
	assert.Equal(t, TypeContainer, instances[0].Type)
	assert.Equal(t, "Running", instances[0].Status)
	assert.Equal(t, "true", instances[0].Config["user.kastell.managed"])
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), instances[0].CreatedAt)
}

func TestSnapshotDecoding(t *testing.T) {
	raw := `[{"name": "clean", "created_at": "2026-08-01T12:00:00Z", "stateful": true}]`

	var snaps []Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "clean", snaps[0].Name)
	assert.True(t, snaps[0].Stateful)
}

func TestDeviceMapDecoding(t *testing.T) {
	raw := `kastell-ab12cd34:
  type: disk
  source: /host/data
  path: /mnt/data
  readonly: "true"
eth0:
  type: nic
  network: incusbr0
`

	devices := map[string]Device{}
	require.NoError(t, yaml.Unmarshal([]byte(raw), &devices))
	require.Len(t, devices, 2)
	assert.Equal(t, "disk", devices["kastell-ab12cd34"]["type"])
	assert.Equal(t, "true", devices["kastell-ab12cd34"]["readonly"])
	assert.Equal(t, "nic", devices["eth0"]["type"])
}

func TestExecCapturesExitCode(t *testing.T) {
	// `sh exec <name> -- ...` is nonsense to sh, which exits non-zero. The
	// failure must surface as an exit code, not an error.
	c := testClient("sh")

	res, err := c.Exec(context.Background(), "s1", []string{"-c", "true"}, ExecOpts{})
	require.NoError(t, err)
	assert.NotEqual(t, 0, res.ExitCode)
}

func TestExecDeadline(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "slow")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nsleep 5\n"), 0o755))
	c := testClient(bin)

	_, err := c.Exec(context.Background(), "s1", []string{"true"}, ExecOpts{Timeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunMissingBinary(t *testing.T) {
	c := testClient("/no/such/binary")

	err := c.Ping(context.Background())
	assert.Error(t, err)
}
