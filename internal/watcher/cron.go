package watcher

import (
	"context"

	"github.com/mickyco94/minuteur/internal/config"
	internal "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Cron is a decorator of the cron lib
// this allows the `HandleFunc(config.Cron)` pattern to be established
// widely throughout the architecture
type Cron struct {
	inner *internal.Cron
}

// NewCron constructs a new cron schedule watcher, schedules include seconds
func NewCron(logger logrus.FieldLogger) *Cron {
	return &Cron{
		inner: internal.New(
			internal.WithSeconds(),
			internal.WithLogger(internal.PrintfLogger(logger)),
		),
	}
}

// HandleFunc registers a function to be executed when the provided schedule fires.
func (cron *Cron) HandleFunc(condition *config.Cron, handler func()) error {
	_, err := cron.inner.AddFunc(condition.Schedule, handler)
	return err
}

// Start runs the scheduler in its own goroutine. The scheduler counts as
// running once Start returns, so a following Stop always takes effect.
func (cron *Cron) Start() { cron.inner.Start() }

// Stop shuts down the cron watcher and attempts to wait for any currently
// running functions attached to the scheduler to exit before the provided
// context is done.
func (cron *Cron) Stop(ctx context.Context) error {
	runningJobsCtx := cron.inner.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-runningJobsCtx.Done():
		return nil
	}
}
