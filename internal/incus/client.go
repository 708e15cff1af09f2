// Package incus wraps the incus command-line client. Every method shells
// out to the binary with a bounded context and returns either decoded JSON
// or trimmed raw output. The runtime is the single source of truth; nothing
// here caches instance state.
package incus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Client struct {
	bin     string
	project string
	timeout time.Duration // per-call bound for non-exec operations
	logger  *slog.Logger
}

func New(bin, project string, timeout time.Duration, logger *slog.Logger) *Client {
	if bin == "" {
		bin = "incus"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{bin: bin, project: project, timeout: timeout, logger: logger}
}

// Ping verifies the incus client and daemon are reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.run(ctx, c.timeout, "version")
	return err
}

func (c *Client) Launch(ctx context.Context, opts LaunchOpts) error {
	args := []string{"launch", opts.Image, opts.Name}
	if opts.VM {
		args = append(args, "--vm")
	}
	for _, k := range sortedKeys(opts.Config) {
		args = append(args, "-c", k+"="+opts.Config[k])
	}
	for _, p := range opts.Profiles {
		args = append(args, "--profile", p)
	}
	_, _, err := c.run(ctx, c.timeout, args...)
	return err
}

// GetInstance returns the named instance, or nil when it does not exist.
func (c *Client) GetInstance(ctx context.Context, name string) (*Instance, error) {
	instances, err := c.listJSON(ctx, name)
	if err != nil {
		return nil, err
	}
	for i := range instances {
		if instances[i].Name == name {
			return &instances[i], nil
		}
	}
	return nil, nil
}

func (c *Client) ListInstances(ctx context.Context, namePrefix string) ([]Instance, error) {
	instances, err := c.listJSON(ctx, namePrefix)
	if err != nil {
		return nil, err
	}
	if namePrefix == "" {
		return instances, nil
	}
	filtered := instances[:0]
	for _, inst := range instances {
		if strings.HasPrefix(inst.Name, namePrefix) {
			filtered = append(filtered, inst)
		}
	}
	return filtered, nil
}

func (c *Client) listJSON(ctx context.Context, pattern string) ([]Instance, error) {
	args := []string{"list", "--format", "json"}
	if pattern != "" {
		args = []string{"list", pattern, "--format", "json"}
	}
	stdout, _, err := c.run(ctx, c.timeout, args...)
	if err != nil {
		return nil, err
	}
	var instances []Instance
	if err := json.Unmarshal([]byte(stdout), &instances); err != nil {
		return nil, fmt.Errorf("decode instance list: %w", err)
	}
	return instances, nil
}

func (c *Client) Start(ctx context.Context, name string) error {
	_, _, err := c.run(ctx, c.timeout, "start", name)
	return err
}

func (c *Client) Stop(ctx context.Context, name string, force bool) error {
	args := []string{"stop", name}
	if force {
		args = append(args, "--force")
	}
	_, _, err := c.run(ctx, c.timeout, args...)
	return err
}

func (c *Client) Restart(ctx context.Context, name string) error {
	_, _, err := c.run(ctx, c.timeout, "restart", name)
	return err
}

func (c *Client) Delete(ctx context.Context, name string, force bool) error {
	args := []string{"delete", name}
	if force {
		args = append(args, "--force")
	}
	_, _, err := c.run(ctx, c.timeout, args...)
	return err
}

// Exec runs argv inside the guest. The guest exit code is returned as data;
// an error is returned only when the call itself fails (client error,
// deadline). On deadline the client process is killed, which tears down the
// remote exec session.
func (c *Client) Exec(ctx context.Context, name string, argv []string, opts ExecOpts) (*ExecResult, error) {
	args := []string{"exec", name}
	if opts.Dir != "" {
		args = append(args, "--cwd", opts.Dir)
	}
	for _, k := range sortedKeys(opts.Env) {
		args = append(args, "--env", k+"="+opts.Env[k])
	}
	if opts.User != "" {
		args = append(args, "--user", opts.User)
	}
	args = append(args, "--")
	args = append(args, argv...)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.bin, c.projectArgs(args)...)
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("exec in %s: %w", name, context.DeadlineExceeded)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExecResult{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitCode(),
			}, nil
		}
		return nil, fmt.Errorf("exec in %s: %w", name, err)
	}

	return &ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: 0}, nil
}

func (c *Client) PushFile(ctx context.Context, name, local, remote string) error {
	_, _, err := c.run(ctx, c.timeout, "file", "push", "--create-dirs", local, name+remote)
	return err
}

func (c *Client) PullFile(ctx context.Context, name, remote, local string) error {
	_, _, err := c.run(ctx, c.timeout, "file", "pull", name+remote, local)
	return err
}

func (c *Client) SnapshotCreate(ctx context.Context, name, snap string, stateful bool) error {
	args := []string{"snapshot", "create", name, snap}
	if stateful {
		args = append(args, "--stateful")
	}
	_, _, err := c.run(ctx, c.timeout, args...)
	return err
}

func (c *Client) SnapshotRestore(ctx context.Context, name, snap string) error {
	_, _, err := c.run(ctx, c.timeout, "snapshot", "restore", name, snap)
	return err
}

func (c *Client) SnapshotDelete(ctx context.Context, name, snap string) error {
	_, _, err := c.run(ctx, c.timeout, "snapshot", "delete", name, snap)
	return err
}

func (c *Client) SnapshotList(ctx context.Context, name string) ([]Snapshot, error) {
	stdout, _, err := c.run(ctx, c.timeout, "snapshot", "list", name, "--format", "json")
	if err != nil {
		return nil, err
	}
	var snaps []Snapshot
	if err := json.Unmarshal([]byte(stdout), &snaps); err != nil {
		return nil, fmt.Errorf("decode snapshot list: %w", err)
	}
	return snaps, nil
}

func (c *Client) DeviceAdd(ctx context.Context, name, device, kind string, props map[string]string) error {
	args := []string{"config", "device", "add", name, device, kind}
	for _, k := range sortedKeys(props) {
		args = append(args, k+"="+props[k])
	}
	_, _, err := c.run(ctx, c.timeout, args...)
	return err
}

func (c *Client) DeviceRemove(ctx context.Context, name, device string) error {
	_, _, err := c.run(ctx, c.timeout, "config", "device", "remove", name, device)
	return err
}

// ListDevices returns the instance's device map as shown by the runtime
// (device name -> property map).
func (c *Client) ListDevices(ctx context.Context, name string) (map[string]Device, error) {
	stdout, _, err := c.run(ctx, c.timeout, "config", "device", "show", name)
	if err != nil {
		return nil, err
	}
	devices := map[string]Device{}
	if strings.TrimSpace(stdout) == "" {
		return devices, nil
	}
	if err := yaml.Unmarshal([]byte(stdout), &devices); err != nil {
		return nil, fmt.Errorf("decode device map: %w", err)
	}
	return devices, nil
}

func (c *Client) ConfigGet(ctx context.Context, name, key string) (string, error) {
	stdout, _, err := c.run(ctx, c.timeout, "config", "get", name, key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}

func (c *Client) ConfigSet(ctx context.Context, name, key, value string) error {
	_, _, err := c.run(ctx, c.timeout, "config", "set", name, key+"="+value)
	return err
}

// run executes one incus invocation bounded by timeout and returns trimmed
// stdout/stderr. Failures keep the raw remote diagnostic in the error.
func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) (string, string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c.logger.Debug("incus call", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, c.bin, c.projectArgs(args)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return stdout.String(), stderr.String(),
				fmt.Errorf("%s %s: %w", c.bin, args[0], context.DeadlineExceeded)
		}
		return stdout.String(), stderr.String(),
			fmt.Errorf("%s %s: %w: %s", c.bin, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), stderr.String(), nil
}

func (c *Client) projectArgs(args []string) []string {
	if c.project == "" {
		return args
	}
	return append([]string{"--project", c.project}, args...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
