package sandbox

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-arndt/kastell/internal/incus"
)

type MountMode string

const (
	MountReadOnly  MountMode = "readonly"
	MountReadWrite MountMode = "readwrite"
	MountOverlay   MountMode = "overlay"
)

// devicePrefix filters our devices from anything else attached to the
// instance. overlayRoot is the hidden guest namespace holding the base
// bind, upper and work directories of overlay devices.
const (
	devicePrefix = "kastell-"
	overlayRoot  = "/var/lib/kastell"
)

// Instance config keys for the syscall-interception capability. Enabling it
// requires a restart and is sticky, so it is checked before being set.
const (
	interceptKey        = "security.syscalls.intercept.mount"
	interceptAllowedKey = "security.syscalls.intercept.mount.allowed"
)

type MountOpts struct {
	Source string // absolute host path, must exist
	Target string // guest path
	Mode   MountMode
	Shift  bool // ownership-id shifting on the device
}

// Mount is a derived record: it has no backing store and is reconstructed
// from device configuration (plus the live mount table for overlays) on
// every query.
type Mount struct {
	Source string    `json:"source"`
	Target string    `json:"target"`
	Mode   MountMode `json:"mode"`
	Device string    `json:"device"`
}

// Mount binds a host path into a running sandbox under one of three
// isolation contracts.
func (m *Manager) Mount(ctx context.Context, name string, opts MountOpts) (*Mount, error) {
	if _, err := os.Stat(opts.Source); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, opts.Source)
	}
	inst, err := m.requireRunning(ctx, name)
	if err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = MountReadWrite
	}
	device := devicePrefix + uuid.New().String()[:8]

	switch mode {
	case MountReadOnly, MountReadWrite:
		props := map[string]string{
			"source": opts.Source,
			"path":   opts.Target,
		}
		if mode == MountReadOnly {
			props["readonly"] = "true"
		}
		if opts.Shift || m.cfg.Defaults.ShiftOwnership {
			props["shift"] = "true"
		}
		if err := m.gw.DeviceAdd(ctx, name, device, "disk", props); err != nil {
			return nil, fmt.Errorf("%w: add device: %v", ErrMount, err)
		}

	case MountOverlay:
		// Overlay needs in-guest mount syscall interception, a kernel
		// feature only containers expose.
		if inst.Type == incus.TypeVM {
			return nil, fmt.Errorf("%w: overlay mounts are not supported on vm sandboxes", ErrMount)
		}
		if err := m.mountOverlay(ctx, name, device, opts); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrMount, opts.Mode)
	}

	m.logger.Info("mounted", "sandbox", name, "device", device, "mode", mode,
		"source", opts.Source, "target", opts.Target)
	return &Mount{Source: opts.Source, Target: opts.Target, Mode: mode, Device: device}, nil
}

// mountOverlay builds the union filesystem: read-only base bind at a hidden
// path, guest-side upper/work directories, then the overlay mount at the
// requested target. Any failure after the base bind removes it again before
// the error propagates.
func (m *Manager) mountOverlay(ctx context.Context, name, device string, opts MountOpts) error {
	base := path.Join(overlayRoot, device, "base")
	upper := path.Join(overlayRoot, device, "upper")
	work := path.Join(overlayRoot, device, "work")

	props := map[string]string{
		"source":   opts.Source,
		"path":     base,
		"readonly": "true",
	}
	if opts.Shift || m.cfg.Defaults.ShiftOwnership {
		props["shift"] = "true"
	}
	if err := m.gw.DeviceAdd(ctx, name, device, "disk", props); err != nil {
		return fmt.Errorf("%w: add base device: %v", ErrMount, err)
	}

	if err := m.ensureMountIntercept(ctx, name); err != nil {
		m.rollbackDevice(ctx, name, device)
		return err
	}

	if err := m.guestMountStep(ctx, name,
		fmt.Sprintf("mkdir -p %s %s %s", upper, work, opts.Target)); err != nil {
		m.rollbackDevice(ctx, name, device)
		return err
	}

	overlayCmd := fmt.Sprintf("mount -t overlay overlay -o lowerdir=%s,upperdir=%s,workdir=%s %s",
		base, upper, work, opts.Target)
	if err := m.guestMountStep(ctx, name, overlayCmd); err != nil {
		m.rollbackDevice(ctx, name, device)
		return err
	}

	return nil
}

// ensureMountIntercept enables the instance's mount-interception capability
// when it is not already on. The flag is externally persisted shared state:
// read-check-then-write avoids a redundant restart.
func (m *Manager) ensureMountIntercept(ctx context.Context, name string) error {
	val, err := m.gw.ConfigGet(ctx, name, interceptKey)
	if err != nil {
		return fmt.Errorf("%w: read intercept flag: %v", ErrMount, err)
	}
	if val == "true" {
		return nil
	}

	if err := m.gw.ConfigSet(ctx, name, interceptKey, "true"); err != nil {
		return fmt.Errorf("%w: enable intercept flag: %v", ErrMount, err)
	}
	if err := m.gw.ConfigSet(ctx, name, interceptAllowedKey, "overlay"); err != nil {
		return fmt.Errorf("%w: restrict intercept filesystems: %v", ErrMount, err)
	}

	m.logger.Info("restarting to enable mount interception", "sandbox", name)
	if err := m.gw.Restart(ctx, name); err != nil {
		return fmt.Errorf("%w: restart: %v", ErrMount, err)
	}
	if err := m.awaitRunning(ctx, name); err != nil {
		return fmt.Errorf("%w: not ready after intercept restart: %v", ErrMount, err)
	}
	return nil
}

func (m *Manager) guestMountStep(ctx context.Context, name, command string) error {
	res, err := m.gw.Exec(ctx, name, []string{"sh", "-c", command}, incus.ExecOpts{
		Timeout: m.defaultCommandTimeout(),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMount, command, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: %s: %s", ErrMount, command, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// rollbackDevice undoes a partially constructed mount. The attempt is
// mandatory; its failure is logged, the original error still propagates.
func (m *Manager) rollbackDevice(ctx context.Context, name, device string) {
	if err := m.gw.DeviceRemove(context.WithoutCancel(ctx), name, device); err != nil {
		m.logger.Warn("mount rollback failed", "sandbox", name, "device", device, "error", err)
	}
}

// Unmount removes the mount whose target matches. For overlays the guest
// unmount and directory cleanup are advisory; removing the device binding
// is the authoritative teardown and always happens.
func (m *Manager) Unmount(ctx context.Context, name, target string) error {
	mounts, err := m.ListMounts(ctx, name)
	if err != nil {
		return err
	}

	var found *Mount
	for i := range mounts {
		if mounts[i].Target == target {
			found = &mounts[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("%w: %s", ErrMountNotFound, target)
	}

	if found.Mode == MountOverlay {
		m.advisoryGuestCleanup(ctx, name, "umount "+target)
		m.advisoryGuestCleanup(ctx, name, "rm -rf "+path.Join(overlayRoot, found.Device))
	}

	if err := m.gw.DeviceRemove(ctx, name, found.Device); err != nil {
		return fmt.Errorf("%w: remove device %s: %v", ErrMount, found.Device, err)
	}

	m.logger.Info("unmounted", "sandbox", name, "device", found.Device, "target", target)
	return nil
}

func (m *Manager) advisoryGuestCleanup(ctx context.Context, name, command string) {
	res, err := m.gw.Exec(ctx, name, []string{"sh", "-c", command}, incus.ExecOpts{
		Timeout: 10 * time.Second,
	})
	if err != nil {
		m.logger.Warn("unmount cleanup", "sandbox", name, "cmd", command, "error", err)
		return
	}
	if res.ExitCode != 0 {
		m.logger.Warn("unmount cleanup", "sandbox", name, "cmd", command,
			"exit_code", res.ExitCode, "stderr", strings.TrimSpace(res.Stderr))
	}
}

// ListMounts reconstructs the mount inventory from two external truths: the
// instance's device configuration and, for overlays, the live guest mount
// table. Devices without a resolvable source or target are dropped
// silently; an overlay unmounted out-of-band simply disappears from the
// inventory.
func (m *Manager) ListMounts(ctx context.Context, name string) ([]Mount, error) {
	devices, err := m.gw.ListDevices(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list devices of %s: %w", name, err)
	}

	var mountTable string
	tableLoaded := false

	var mounts []Mount
	for _, dev := range sortedDeviceNames(devices) {
		props := devices[dev]
		if !strings.HasPrefix(dev, devicePrefix) || props["type"] != "disk" {
			continue
		}
		source := props["source"]
		guestPath := props["path"]
		if source == "" || guestPath == "" {
			continue
		}

		if isOverlayBasePath(guestPath) {
			if !tableLoaded {
				res, err := m.gw.Exec(ctx, name, []string{"mount"}, incus.ExecOpts{
					Timeout: m.defaultCommandTimeout(),
				})
				if err != nil {
					return nil, fmt.Errorf("read guest mount table: %w", err)
				}
				mountTable = res.Stdout
				tableLoaded = true
			}
			upper := path.Join(path.Dir(guestPath), "upper")
			target, ok := resolveOverlayTarget(upper, mountTable)
			if !ok {
				continue
			}
			mounts = append(mounts, Mount{Source: source, Target: target, Mode: MountOverlay, Device: dev})
			continue
		}

		mode := MountReadWrite
		if props["readonly"] == "true" {
			mode = MountReadOnly
		}
		mounts = append(mounts, Mount{Source: source, Target: guestPath, Mode: mode, Device: dev})
	}
	return mounts, nil
}

func isOverlayBasePath(guestPath string) bool {
	return strings.HasPrefix(guestPath, overlayRoot+"/") && path.Base(guestPath) == "base"
}

func sortedDeviceNames(devices map[string]incus.Device) []string {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	// stable inventory order across queries
	sort.Strings(names)
	return names
}
