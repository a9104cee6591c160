package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultPurgeSchedule = "@hourly"

type RevokedPurger interface {
	PurgeRevoked(ctx context.Context, now time.Time) (int64, error)
}

// Purger deletes denylist rows whose tokens have expired anyway.
type Purger struct {
	Store    RevokedPurger
	Schedule cron.Schedule
	Now      func() time.Time
}

// NewPurger accepts standard five field expressions and @descriptors.
func NewPurger(store RevokedPurger, expr string) (*Purger, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("purge schedule %q: %w", expr, err)
	}
	return &Purger{Store: store, Schedule: sched, Now: time.Now}, nil
}

func (p *Purger) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *Purger) PurgeOnce(ctx context.Context) (int64, error) {
	return p.Store.PurgeRevoked(ctx, p.now())
}

// Run blocks until ctx is done.
func (p *Purger) Run(ctx context.Context, l *slog.Logger) {
	for {
		now := p.now()
		timer := time.NewTimer(p.Schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		n, err := p.PurgeOnce(ctx)
		if err != nil {
			l.Error("revoked_purge_failed", "error", err)
			continue
		}
		if n > 0 {
			l.Info("revoked_purged", "rows", n)
		}
	}
}
