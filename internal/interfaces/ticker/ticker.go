// Package ticker drives the internal jobs in-process for deployments that run
// without an external job queue.
package ticker

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

// Runner is the subset of the job orchestrator the ticker drives.
type Runner interface {
	RunStatusTick(ctx context.Context, input usecase.JobRunInput) (usecase.JobRunResult, error)
	RunLiveSync(ctx context.Context, input usecase.JobRunInput) (usecase.JobRunResult, error)
	RunScheduleSync(ctx context.Context, input usecase.JobRunInput) (usecase.JobRunResult, error)
}

type Config struct {
	StatusInterval   time.Duration
	LiveInterval     time.Duration
	ScheduleInterval time.Duration
}

type Ticker struct {
	runner Runner
	cfg    Config
	logger *logging.Logger
}

func New(runner Runner, cfg Config, logger *logging.Logger) *Ticker {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 2 * time.Minute
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 30 * time.Second
	}
	if cfg.ScheduleInterval <= 0 {
		cfg.ScheduleInterval = 15 * time.Minute
	}
	return &Ticker{runner: runner, cfg: cfg, logger: logger.Named("ticker")}
}

// Run blocks until ctx is cancelled. Each job runs once immediately and then
// on its own interval; a slow run delays only its own next tick.
func (t *Ticker) Run(ctx context.Context) {
	var wg conc.WaitGroup
	wg.Go(func() { t.loop(ctx, "status-tick", t.cfg.StatusInterval, t.runner.RunStatusTick) })
	wg.Go(func() { t.loop(ctx, "sync-live", t.cfg.LiveInterval, t.runner.RunLiveSync) })
	wg.Go(func() { t.loop(ctx, "sync-schedule", t.cfg.ScheduleInterval, t.runner.RunScheduleSync) })
	wg.Wait()
}

type jobFunc func(ctx context.Context, input usecase.JobRunInput) (usecase.JobRunResult, error)

func (t *Ticker) loop(ctx context.Context, name string, interval time.Duration, run jobFunc) {
	t.logger.InfoContext(ctx, "ticker started", "job", name, "interval", interval.String())
	timer := time.NewTicker(interval)
	defer timer.Stop()

	for {
		t.runOnce(ctx, name, run)
		select {
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "ticker stopped", "job", name)
			return
		case <-timer.C:
		}
	}
}

func (t *Ticker) runOnce(ctx context.Context, name string, run jobFunc) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	result, err := run(ctx, usecase.JobRunInput{Direct: true})
	if err != nil {
		t.logger.WarnContext(ctx, "ticker job failed", "job", name, "error", err)
		return
	}
	t.logger.DebugContext(ctx, "ticker job done", "job", name, "mode", result.Mode, "duration_ms", time.Since(started).Milliseconds())
}
