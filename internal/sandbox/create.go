package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/p-arndt/kastell/internal/incus"
)

// Sandbox type strings accepted by CreateOpts.
const (
	TypeContainer = "container"
	TypeVM        = "vm"
)

type CreateOpts struct {
	Name     string
	Image    string // remote-qualified or bare (default remote is prefixed)
	Type     string // "container" (default) or "vm"
	Profiles []string
}

// Create launches an instance and blocks until it is ready. On readiness
// failure the instance is force-deleted so no half-created sandbox is left
// behind.
func (m *Manager) Create(ctx context.Context, opts CreateOpts) (*Sandbox, error) {
	name := opts.Name
	if name == "" {
		name = "kastell-" + uuid.New().String()[:8]
	}
	typ := m.resolveType(opts.Type)
	if typ != TypeContainer && typ != TypeVM {
		return nil, fmt.Errorf("invalid sandbox type %q", opts.Type)
	}
	image := m.resolveImage(opts.Image)

	existing, err := m.gw.GetInstance(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("query instance %s: %w", name, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrNameConflict, name)
	}

	err = m.gw.Launch(ctx, incus.LaunchOpts{
		Name:     name,
		Image:    image,
		VM:       typ == TypeVM,
		Config:   m.launchConfig(),
		Profiles: opts.Profiles,
	})
	if err != nil {
		return nil, m.classifyLaunchError(err)
	}

	if err := m.awaitRunning(ctx, name); err != nil {
		if delErr := m.gw.Delete(context.WithoutCancel(ctx), name, true); delErr != nil {
			m.logger.Warn("cleanup after failed readiness", "sandbox", name, "error", delErr)
		}
		return nil, fmt.Errorf("sandbox %s never became ready: %w", name, err)
	}

	m.logger.Info("sandbox created", "name", name, "image", image, "type", typ)
	return m.handle(name, typ), nil
}

func (m *Manager) resolveImage(image string) string {
	if image == "" {
		image = m.cfg.Defaults.Image
	}
	if !strings.Contains(image, ":") && m.cfg.Remote != "" {
		image = m.cfg.Remote + ":" + image
	}
	return image
}

func (m *Manager) resolveType(typ string) string {
	if typ == "" {
		return m.cfg.Defaults.Type
	}
	return typ
}

// classifyLaunchError turns the raw remote rejection into a typed error,
// keeping the original diagnostic.
func (m *Manager) classifyLaunchError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "image") &&
		(strings.Contains(msg, "not found") || strings.Contains(msg, "couldn't find") || strings.Contains(msg, "doesn't exist")):
		return fmt.Errorf("%w: %v", ErrImageNotFound, err)
	case strings.Contains(msg, "quota") || strings.Contains(msg, "limit reached") || strings.Contains(msg, "exceeds"):
		return fmt.Errorf("%w: %v", ErrResourceLimit, err)
	default:
		return fmt.Errorf("launch: %w", err)
	}
}
