package incus

import "time"

// Instance type strings as reported by the runtime.
const (
	TypeContainer = "container"
	TypeVM        = "virtual-machine"
)

type Instance struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Config    map[string]string `json:"config"`
}

// Device is the property map of a single attached device
// (type, source, path, readonly, shift, ...).
type Device map[string]string

type Snapshot struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Stateful  bool      `json:"stateful"`
}

type LaunchOpts struct {
	Name     string
	Image    string
	VM       bool
	Config   map[string]string
	Profiles []string
}

type ExecOpts struct {
	Dir     string
	Env     map[string]string
	User    string
	Timeout time.Duration
	Stdin   string
}

// ExecResult carries the guest command outcome. A non-zero exit code is
// data, not an error.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}
