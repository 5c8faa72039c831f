package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"snooptrade/observability"
)

// Task is extra housekeeping run on the janitor's schedule
type Task func(ctx context.Context)

// Janitor periodically purges expired sessions
type Janitor struct {
	cron  *cron.Cron
	store Store
	tasks []Task
	ctx   context.Context
}

// NewJanitor registers the sweep on spec (standard cron or @every syntax)
func NewJanitor(ctx context.Context, spec string, store Store, tasks ...Task) (*Janitor, error) {
	j := &Janitor{
		cron:  cron.New(),
		store: store,
		tasks: tasks,
		ctx:   ctx,
	}
	if _, err := j.cron.AddFunc(spec, j.Sweep); err != nil {
		return nil, fmt.Errorf("register session sweep: %w", err)
	}
	return j, nil
}

// Start starts the schedule
func (j *Janitor) Start() {
	j.cron.Start()
	observability.Info("session janitor started")
}

// Stop stops the schedule and waits for a running sweep
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	observability.Info("session janitor stopped")
}

// Sweep deletes expired sessions and runs the extra tasks once
func (j *Janitor) Sweep() {
	ctx, cancel := context.WithTimeout(j.ctx, time.Minute)
	defer cancel()

	n, err := j.store.DeleteExpired(ctx)
	if err != nil {
		observability.WithError(err).Error("session sweep failed")
	} else if n > 0 {
		observability.Info("expired sessions removed", "count", n)
	}

	for _, task := range j.tasks {
		task(ctx)
	}
}
