package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/jobscheduler"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/esports-fantasy/internal/platform/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupKey_UsesQStashSafeFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	got := dedupKey("sync-live", "pandascore:match/1 2025", at, 5*time.Minute)

	if strings.Contains(got, ":") {
		t.Fatalf("dedup key must not contain colon, got=%q", got)
	}

	want := "sync-live-pandascore-match-1-2025-20260225T042500Z"
	if got != want {
		t.Fatalf("unexpected dedup key: got=%q want=%q", got, want)
	}
}

func TestSanitizeDedupSegment_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment(" \t "); got != "unknown" {
		t.Fatalf("unexpected sanitize fallback: got=%q want=%q", got, "unknown")
	}
}

func TestLiveSyncDispatcher_DeduplicatesPerMatch(t *testing.T) {
	t.Parallel()

	queue := &recordingQueue{}
	dispatches := memory.NewJobDispatchRepository()
	d := NewLiveSyncDispatcher(queue, nil, &fakeDeduper{}, dispatches, time.Minute, nil)
	d.now = func() time.Time { return tickNow }

	ctx := context.Background()
	require.NoError(t, d.TriggerLiveSync(ctx, match.ProviderFaceit, "fc-1"))
	require.NoError(t, d.TriggerLiveSync(ctx, match.ProviderFaceit, "fc-1"))
	require.NoError(t, d.TriggerLiveSync(ctx, match.ProviderPandaScore, "fc-1"))

	require.Len(t, queue.jobs, 2)
	assert.Equal(t, JobPathSyncLive, queue.jobs[0].Path)
	payload, ok := queue.jobs[0].Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "faceit", payload["provider"])
	assert.Equal(t, "fc-1", payload["match_id"])

	events := dispatches.Events()
	require.Len(t, events, 2)
	for _, event := range events {
		assert.Equal(t, jobscheduler.StatusSent, event.Status)
		assert.Equal(t, "fc-1", event.MatchID)
	}
}

func TestLiveSyncDispatcher_DedupOutageStillEnqueues(t *testing.T) {
	t.Parallel()

	queue := &recordingQueue{}
	d := NewLiveSyncDispatcher(queue, nil, &fakeDeduper{err: errors.New("redis: connection refused")}, nil, time.Minute, nil)

	require.NoError(t, d.TriggerLiveSync(context.Background(), match.ProviderSportDevs, "sd-9"))
	assert.Len(t, queue.jobs, 1)
}

func TestLiveSyncDispatcher_EnqueueFailureIsRecorded(t *testing.T) {
	t.Parallel()

	queue := &recordingQueue{err: errors.New("qstash 500")}
	dispatches := memory.NewJobDispatchRepository()
	d := NewLiveSyncDispatcher(queue, nil, nil, dispatches, time.Minute, nil)

	err := d.TriggerLiveSync(context.Background(), match.ProviderFaceit, "fc-1")
	require.Error(t, err)

	events := dispatches.Events()
	require.Len(t, events, 1)
	assert.Equal(t, jobscheduler.StatusFailed, events[0].Status)
	assert.Equal(t, "qstash 500", events[0].ErrorMessage)
}

func TestLiveSyncDispatcher_EnqueueFailureReleasesDedupKey(t *testing.T) {
	t.Parallel()

	queue := &recordingQueue{err: errors.New("qstash 500")}
	d := NewLiveSyncDispatcher(queue, nil, &fakeDeduper{}, nil, time.Minute, nil)
	d.now = func() time.Time { return tickNow }
	ctx := context.Background()

	require.Error(t, d.TriggerLiveSync(ctx, match.ProviderFaceit, "fc-1"))

	queue.err = nil
	require.NoError(t, d.TriggerLiveSync(ctx, match.ProviderFaceit, "fc-1"))
	require.Len(t, queue.jobs, 1, "the retry within the dedup window still reaches the queue")

	require.NoError(t, d.TriggerLiveSync(ctx, match.ProviderFaceit, "fc-1"))
	assert.Len(t, queue.jobs, 1)
}

func TestLiveSyncDispatcher_WithoutQueueSyncsInProcess(t *testing.T) {
	t.Parallel()

	matches := memory.NewMatchRepository([]match.Match{{
		Provider:    match.ProviderFaceit,
		ExternalID:  "fc-1",
		Phase:       match.PhaseUpcoming,
		RawStatus:   "READY",
		ScheduledAt: tickNow.Add(-time.Minute),
	}})
	logs := memory.NewSyncLogRepository()
	dispatches := memory.NewJobDispatchRepository()
	feed := &fakeFaceit{byID: map[string]match.Match{
		"fc-1": {Provider: match.ProviderFaceit, ExternalID: "fc-1", RawStatus: "ONGOING", ScheduledAt: tickNow.Add(-time.Minute)},
	}}
	syncSvc := NewMatchSyncService(feed, nil, nil, matches, nil, nil, logs, id.NewSequence("sync"), nil, MatchSyncConfig{}, nil)
	syncSvc.now = func() time.Time { return tickNow }

	d := NewLiveSyncDispatcher(NewNoopJobQueue(), syncSvc, &fakeDeduper{}, dispatches, time.Minute, nil)
	got, err := newTickService(t, matches, logs, d).RunTick(context.Background())
	require.NoError(t, err)
	d.Wait()

	assert.Equal(t, []string{"faceit:fc-1"}, got.Triggered)
	assert.Equal(t, []string{"fc-1"}, feed.fetched)
	assert.Empty(t, dispatches.Events(), "nothing is reported as sent without a queue")

	synced, ok, err := matches.GetByExternalID(context.Background(), match.ProviderFaceit, "fc-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, match.PhaseLive, synced.Phase)
}

func TestLiveSyncDispatcher_WithoutQueueOrSyncerFails(t *testing.T) {
	t.Parallel()

	d := NewLiveSyncDispatcher(nil, nil, nil, nil, time.Minute, nil)
	err := d.TriggerLiveSync(context.Background(), match.ProviderFaceit, "fc-1")
	require.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestJobOrchestratorService_NoopQueueRecordsNothing(t *testing.T) {
	t.Parallel()

	matches := memory.NewMatchRepository(nil)
	logs := memory.NewSyncLogRepository()
	dispatches := memory.NewJobDispatchRepository()
	statusSvc := NewMatchStatusService(matches, logs, nil, id.NewSequence("log"), nil, nil)
	syncSvc := NewMatchSyncService(&fakeFaceit{}, nil, nil, matches, nil, nil, logs, id.NewSequence("log"), nil, MatchSyncConfig{}, nil)
	svc := NewJobOrchestratorService(statusSvc, syncSvc, NewNoopJobQueue(), dispatches, JobOrchestratorConfig{}, nil)

	got, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Zero(t, got.QueuedCount)
	assert.Empty(t, got.QueuedOperations)

	tick, err := svc.RunStatusTick(context.Background(), JobRunInput{})
	require.NoError(t, err)
	assert.Zero(t, tick.QueuedCount)
	assert.Empty(t, dispatches.Events())
}

func newOrchestratorFixture(t *testing.T, stored ...match.Match) (*JobOrchestratorService, *recordingQueue) {
	t.Helper()

	matches := memory.NewMatchRepository(stored)
	logs := memory.NewSyncLogRepository()
	statusSvc := NewMatchStatusService(matches, logs, nil, id.NewSequence("log"), nil, nil)
	statusSvc.now = func() time.Time { return tickNow }
	syncSvc := NewMatchSyncService(&fakeFaceit{}, nil, nil, matches, nil, nil, logs, id.NewSequence("log"), nil, MatchSyncConfig{}, nil)

	queue := &recordingQueue{}
	svc := NewJobOrchestratorService(statusSvc, syncSvc, queue, memory.NewJobDispatchRepository(), JobOrchestratorConfig{}, nil)
	svc.now = func() time.Time { return tickNow }
	return svc, queue
}

func TestJobOrchestratorService_RunStatusTick_SchedulesLivePollWhileLive(t *testing.T) {
	t.Parallel()

	svc, queue := newOrchestratorFixture(t, match.Match{
		Provider:    match.ProviderFaceit,
		ExternalID:  "fc-1",
		Phase:       match.PhaseUpcoming,
		ScheduledAt: tickNow.Add(-time.Minute),
	})

	got, err := svc.RunStatusTick(context.Background(), JobRunInput{})
	require.NoError(t, err)
	require.NotNil(t, got.Tick)
	assert.Equal(t, 1, got.Tick.Started)
	assert.Equal(t, []string{"status-tick", "sync-live"}, got.QueuedOperations)

	require.Len(t, queue.jobs, 2)
	assert.Equal(t, JobPathStatusTick, queue.jobs[0].Path)
	assert.Equal(t, 2*time.Minute, queue.jobs[0].Delay)
	assert.Equal(t, JobPathSyncLive, queue.jobs[1].Path)
	assert.Equal(t, 30*time.Second, queue.jobs[1].Delay)
}

func TestJobOrchestratorService_RunStatusTick_DirectDoesNotEnqueue(t *testing.T) {
	t.Parallel()

	svc, queue := newOrchestratorFixture(t)

	got, err := svc.RunStatusTick(context.Background(), JobRunInput{Direct: true})
	require.NoError(t, err)
	assert.Zero(t, got.QueuedCount)
	assert.Empty(t, queue.jobs)
}

func TestJobOrchestratorService_RunLiveSync_InvalidProvider(t *testing.T) {
	t.Parallel()

	svc, _ := newOrchestratorFixture(t)

	_, err := svc.RunLiveSync(context.Background(), JobRunInput{Provider: "hltv", MatchID: "1"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestJobOrchestratorService_Bootstrap(t *testing.T) {
	t.Parallel()

	svc, queue := newOrchestratorFixture(t)

	got, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got.QueuedCount)
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, JobPathSyncSchedule, queue.jobs[0].Path)
	assert.Zero(t, queue.jobs[0].Delay)
}
