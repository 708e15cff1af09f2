package sandbox

import (
	"context"
	"time"

	"github.com/p-arndt/kastell/internal/incus"
)

type Info struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

type Filter struct {
	Type       string // "container" or "vm"; empty matches both
	NamePrefix string
}

// Get returns a handle for an existing sandbox.
func (m *Manager) Get(ctx context.Context, name string) (*Sandbox, error) {
	inst, err := m.instance(ctx, name)
	if err != nil {
		return nil, err
	}
	return m.handle(inst.Name, sandboxType(inst.Type)), nil
}

// Describe returns the current view of one sandbox.
func (m *Manager) Describe(ctx context.Context, name string) (*Info, error) {
	inst, err := m.instance(ctx, name)
	if err != nil {
		return nil, err
	}
	info := infoFromInstance(inst)
	return &info, nil
}

// List enumerates managed sandboxes. Instances without the managed marker
// are not ours and are excluded.
func (m *Manager) List(ctx context.Context, filter Filter) ([]Info, error) {
	instances, err := m.gw.ListInstances(ctx, filter.NamePrefix)
	if err != nil {
		return nil, err
	}

	var result []Info
	for i := range instances {
		inst := &instances[i]
		if inst.Config[managedKey] != "true" {
			continue
		}
		if filter.Type != "" && sandboxType(inst.Type) != filter.Type {
			continue
		}
		result = append(result, infoFromInstance(inst))
	}
	return result, nil
}

func infoFromInstance(inst *incus.Instance) Info {
	createdAt := inst.CreatedAt
	if v, err := time.Parse(time.RFC3339, inst.Config[createdAtKey]); err == nil {
		createdAt = v
	}
	return Info{
		Name:      inst.Name,
		Type:      sandboxType(inst.Type),
		State:     ParseState(inst.Status),
		CreatedAt: createdAt,
	}
}

func sandboxType(instanceType string) string {
	if instanceType == incus.TypeVM {
		return TypeVM
	}
	return TypeContainer
}
