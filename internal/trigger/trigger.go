// Package trigger runs scheduled batch executions over every active
// investment, so a deployment can operate without an external operator
// submitting batch calls by hand.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stackvest/dca-engine/internal/invest"
	"github.com/stackvest/dca-engine/internal/store"
)

// Trigger owns the cron schedule for automated batch runs.
type Trigger struct {
	cron  *cron.Cron
	svc   *invest.Service
	store store.Store
}

// New creates a trigger over the service and store.
func New(svc *invest.Service, st store.Store) *Trigger {
	return &Trigger{
		cron:  cron.New(cron.WithSeconds()),
		svc:   svc,
		store: st,
	}
}

// Register schedules batch runs at the given cron spec.
func (t *Trigger) Register(spec string) error {
	if _, err := t.cron.AddFunc(spec, t.runBatch); err != nil {
		return fmt.Errorf("register batch trigger: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (t *Trigger) Start() {
	t.cron.Start()
	slog.Info("batch trigger started")
}

// Stop stops the cron scheduler gracefully.
func (t *Trigger) Stop() {
	t.cron.Stop()
	slog.Info("batch trigger stopped")
}

// RunNow executes a batch over all active users immediately.
func (t *Trigger) RunNow() {
	t.runBatch()
}

func (t *Trigger) runBatch() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	users, err := t.store.ListActiveUsers(ctx)
	if err != nil {
		slog.Error("list active users", "err", err)
		return
	}
	if len(users) == 0 {
		return
	}

	events, err := t.svc.ExecuteBatch(ctx, users, time.Now().UTC())
	if err != nil {
		// The batch aborted atomically; the next tick retries.
		slog.Error("scheduled batch failed", "err", err, "users", len(users))
		return
	}
	slog.Info("scheduled batch completed", "users", len(users), "events", len(events))
}
