package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/jobscheduler"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/trace"
)

const (
	JobPathStatusTick   = "/v1/internal/jobs/status-tick"
	JobPathSyncLive     = "/v1/internal/jobs/sync-live"
	JobPathSyncSchedule = "/v1/internal/jobs/sync-schedule"
)

type JobOrchestratorConfig struct {
	StatusInterval   time.Duration
	LiveInterval     time.Duration
	ScheduleInterval time.Duration
}

type JobRunInput struct {
	Provider string
	MatchID  string
	// Direct runs the job without self-scheduling the next one, as the
	// in-process ticker does.
	Direct bool
}

type JobRunResult struct {
	Mode             string               `json:"mode"`
	Tick             *StatusTickResult    `json:"tick,omitempty"`
	Live             *LiveSyncResult      `json:"live,omitempty"`
	Providers        []ProviderSyncResult `json:"providers,omitempty"`
	QueuedCount      int                  `json:"queued_count"`
	QueuedOperations []string             `json:"queued_operations"`
}

// JobOrchestratorService runs the internal jobs and chains the next run
// through the job queue.
type JobOrchestratorService struct {
	statusSvc  *MatchStatusService
	syncSvc    *MatchSyncService
	queue      JobQueue
	dispatches dispatchRecorder
	cfg        JobOrchestratorConfig
	logger     *logging.Logger
	now        func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewJobOrchestratorService(
	statusSvc *MatchStatusService,
	syncSvc *MatchSyncService,
	queue JobQueue,
	dispatchRepo jobscheduler.Repository,
	cfg JobOrchestratorConfig,
	logger *logging.Logger,
) *JobOrchestratorService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
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

	return &JobOrchestratorService{
		statusSvc:  statusSvc,
		syncSvc:    syncSvc,
		queue:      queue,
		dispatches: dispatchRecorder{repo: dispatchRepo, logger: logger},
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *JobOrchestratorService) RunStatusTick(ctx context.Context, input JobRunInput) (JobRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.RunStatusTick")
	defer span.End()

	tick, err := s.statusSvc.RunTick(ctx)
	if err != nil {
		recordSpanError(span, err)
		return JobRunResult{}, err
	}
	result := JobRunResult{Mode: "status-tick", Tick: &tick, QueuedOperations: make([]string, 0, 2)}
	if input.Direct {
		return result, nil
	}

	now := s.now().UTC()
	if err := s.schedule(ctx, &result, "status-tick", JobPathStatusTick, s.cfg.StatusInterval, s.cfg.StatusInterval, now); err != nil {
		return JobRunResult{}, err
	}
	if tick.LiveMatches > 0 {
		if err := s.schedule(ctx, &result, "sync-live", JobPathSyncLive, s.cfg.LiveInterval, s.cfg.LiveInterval, now); err != nil {
			return JobRunResult{}, err
		}
	}
	return result, nil
}

// RunLiveSync refreshes one match when MatchID is set, otherwise every live
// match, and keeps polling while anything is still live.
func (s *JobOrchestratorService) RunLiveSync(ctx context.Context, input JobRunInput) (JobRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.RunLiveSync")
	defer span.End()

	result := JobRunResult{Mode: "sync-live", QueuedOperations: make([]string, 0, 1)}
	if strings.TrimSpace(input.MatchID) != "" {
		provider, err := match.ParseProvider(input.Provider)
		if err != nil {
			return JobRunResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		synced, err := s.syncSvc.SyncMatch(ctx, provider, input.MatchID)
		if err != nil {
			recordSpanError(span, err)
			return JobRunResult{}, err
		}
		live := LiveSyncResult{Checked: 1, Updated: 1}
		if synced.Phase == match.PhaseLive {
			live.LiveMatches = 1
		}
		result.Live = &live
		return result, nil
	}

	live, err := s.syncSvc.SyncLive(ctx)
	if err != nil {
		recordSpanError(span, err)
		return JobRunResult{}, fmt.Errorf("sync live matches: %w", err)
	}
	result.Live = &live
	if input.Direct || live.LiveMatches == 0 {
		return result, nil
	}

	if err := s.schedule(ctx, &result, "sync-live", JobPathSyncLive, s.cfg.LiveInterval, s.cfg.LiveInterval, s.now().UTC()); err != nil {
		return JobRunResult{}, err
	}
	return result, nil
}

func (s *JobOrchestratorService) RunScheduleSync(ctx context.Context, input JobRunInput) (JobRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.RunScheduleSync")
	defer span.End()

	result := JobRunResult{
		Mode:             "sync-schedule",
		Providers:        s.syncSvc.SyncSchedule(ctx),
		QueuedOperations: make([]string, 0, 1),
	}
	if input.Direct {
		return result, nil
	}

	if err := s.schedule(ctx, &result, "sync-schedule", JobPathSyncSchedule, s.cfg.ScheduleInterval, s.cfg.ScheduleInterval, s.now().UTC()); err != nil {
		return JobRunResult{}, err
	}
	return result, nil
}

// Bootstrap seeds the self-scheduling chains.
func (s *JobOrchestratorService) Bootstrap(ctx context.Context) (JobRunResult, error) {
	now := s.now().UTC()
	result := JobRunResult{Mode: "bootstrap", QueuedOperations: make([]string, 0, 2)}

	if err := s.schedule(ctx, &result, "sync-schedule", JobPathSyncSchedule, 0, s.cfg.ScheduleInterval, now); err != nil {
		return JobRunResult{}, err
	}
	if err := s.schedule(ctx, &result, "status-tick", JobPathStatusTick, 0, s.cfg.StatusInterval, now); err != nil {
		return JobRunResult{}, err
	}
	return result, nil
}

// schedule enqueues the next run of job and records it on result. With the
// no-op queue nothing is sent, so nothing is recorded.
func (s *JobOrchestratorService) schedule(ctx context.Context, result *JobRunResult, job, path string, delay, bucket time.Duration, now time.Time) error {
	if !queueEnabled(s.queue) {
		return nil
	}
	dedupID := dedupKey(job, "all", now.Add(delay), bucket)
	payload := map[string]any{"dispatch_id": dedupID}
	event := jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    job,
		JobPath:    path,
		Payload:    payload,
		OccurredAt: now,
	}
	if err := s.queue.Enqueue(ctx, path, payload, delay, dedupID); err != nil {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
		s.dispatches.record(ctx, event)
		return fmt.Errorf("enqueue %s: %w", job, err)
	}
	event.Status = jobscheduler.StatusSent
	s.dispatches.record(ctx, event)
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, job)
	return nil
}

const inlineLiveSyncTimeout = time.Minute

type matchSyncer interface {
	SyncMatch(ctx context.Context, provider match.Provider, externalID string) (match.Match, error)
}

// LiveSyncDispatcher enqueues single-match live syncs, at most once per
// match within the dedup window. Without a job queue the sync runs
// in-process on a background goroutine.
type LiveSyncDispatcher struct {
	queue      JobQueue
	syncer     matchSyncer
	deduper    LiveSyncDeduper
	dispatches dispatchRecorder
	ttl        time.Duration
	inline     conc.WaitGroup
	logger     *logging.Logger
	now        func() time.Time
}

func NewLiveSyncDispatcher(queue JobQueue, syncer matchSyncer, deduper LiveSyncDeduper, dispatchRepo jobscheduler.Repository, ttl time.Duration, logger *logging.Logger) *LiveSyncDispatcher {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LiveSyncDispatcher{
		queue:      queue,
		syncer:     syncer,
		deduper:    deduper,
		dispatches: dispatchRecorder{repo: dispatchRepo, logger: logger},
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

func (d *LiveSyncDispatcher) TriggerLiveSync(ctx context.Context, provider match.Provider, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if !provider.Valid() || externalID == "" {
		return fmt.Errorf("%w: provider and match id are required", ErrInvalidInput)
	}

	inline := !queueEnabled(d.queue)
	if inline && d.syncer == nil {
		return fmt.Errorf("%w: no job queue or in-process syncer for live sync", ErrDependencyUnavailable)
	}

	key := "live-sync:" + string(provider) + ":" + externalID
	held := false
	if d.deduper != nil {
		acquired, err := d.deduper.Acquire(ctx, key, d.ttl)
		switch {
		case err != nil:
			// Fall through and enqueue; the queue dedup id still applies.
			d.logger.WarnContext(ctx, "live sync dedup unavailable", "provider", provider, "match_id", externalID, "error", err)
		case !acquired:
			d.logger.DebugContext(ctx, "live sync already triggered", "provider", provider, "match_id", externalID)
			return nil
		default:
			held = true
		}
	}

	if inline {
		d.runInline(ctx, provider, externalID, key, held)
		return nil
	}

	now := d.now().UTC()
	dedupID := dedupKey("sync-live", string(provider)+"-"+externalID, now, d.ttl)
	payload := map[string]any{
		"provider":    string(provider),
		"match_id":    externalID,
		"dispatch_id": dedupID,
	}
	event := jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    "sync-live",
		JobPath:    JobPathSyncLive,
		Provider:   string(provider),
		MatchID:    externalID,
		Payload:    payload,
		OccurredAt: now,
	}
	if err := d.queue.Enqueue(ctx, JobPathSyncLive, payload, 0, dedupID); err != nil {
		if held {
			d.release(ctx, key)
		}
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
		d.dispatches.record(ctx, event)
		return fmt.Errorf("enqueue sync-live match=%s:%s: %w", provider, externalID, err)
	}
	event.Status = jobscheduler.StatusSent
	d.dispatches.record(ctx, event)
	return nil
}

func (d *LiveSyncDispatcher) runInline(ctx context.Context, provider match.Provider, externalID, key string, held bool) {
	base := context.WithoutCancel(ctx)
	d.inline.Go(func() {
		runCtx, cancel := context.WithTimeout(base, inlineLiveSyncTimeout)
		defer cancel()
		if _, err := d.syncer.SyncMatch(runCtx, provider, externalID); err != nil {
			d.logger.WarnContext(runCtx, "in-process live sync failed", "provider", provider, "match_id", externalID, "error", err)
			if held {
				d.release(runCtx, key)
			}
		}
	})
}

func (d *LiveSyncDispatcher) release(ctx context.Context, key string) {
	if err := d.deduper.Release(ctx, key); err != nil {
		d.logger.WarnContext(ctx, "release live sync dedup key failed", "key", key, "error", err)
	}
}

// Wait blocks until every in-process live sync has returned.
func (d *LiveSyncDispatcher) Wait() {
	d.inline.Wait()
}

func dedupKey(prefix, scope string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	scope = sanitizeDedupSegment(scope)
	return prefix + "-" + scope + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

type dispatchRecorder struct {
	repo   jobscheduler.Repository
	logger *logging.Logger
}

func (r dispatchRecorder) record(ctx context.Context, event jobscheduler.DispatchEvent) {
	if r.repo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := r.repo.UpsertEvent(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
