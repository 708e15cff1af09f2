// Package reaper destroys sandboxes that outlived the configured maximum
// age. Ages come from the runtime's instance metadata, not a local store.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/p-arndt/kastell/internal/sandbox"
)

type SandboxService interface {
	List(ctx context.Context, filter sandbox.Filter) ([]sandbox.Info, error)
	Destroy(ctx context.Context, name string, opts sandbox.DestroyOpts) error
}

type Reaper struct {
	svc      SandboxService
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func New(svc SandboxService, maxAge, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{svc: svc, maxAge: maxAge, interval: interval, logger: logger}
}

func (r *Reaper) Run(ctx context.Context) {
	if r.maxAge <= 0 {
		r.logger.Info("reaper disabled")
		return
	}
	r.logger.Info("reaper started", "max_age", r.maxAge, "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.reapExpired(ctx)
		}
	}
}

func (r *Reaper) reapExpired(ctx context.Context) {
	infos, err := r.svc.List(ctx, sandbox.Filter{})
	if err != nil {
		r.logger.Error("reaper: list sandboxes", "error", err)
		return
	}

	cutoff := time.Now().Add(-r.maxAge)
	reaped := 0
	for _, info := range infos {
		if info.CreatedAt.IsZero() || info.CreatedAt.After(cutoff) {
			continue
		}
		r.logger.Info("reaping over-age sandbox", "name", info.Name, "created_at", info.CreatedAt)
		if err := r.svc.Destroy(ctx, info.Name, sandbox.DestroyOpts{Force: true}); err != nil {
			r.logger.Error("reaper: destroy sandbox", "name", info.Name, "error", err)
			continue
		}
		reaped++
	}

	if reaped > 0 {
		r.logger.Info("reaper: destroyed sandboxes", "count", reaped)
	}
}
