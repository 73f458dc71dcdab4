package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/jobscheduler"
	"github.com/riskibarqy/esports-fantasy/internal/domain/synclog"
)

type SyncLogRepository struct {
	mu      sync.RWMutex
	entries []synclog.Entry
}

func NewSyncLogRepository() *SyncLogRepository {
	return &SyncLogRepository{}
}

func (r *SyncLogRepository) Insert(_ context.Context, entry synclog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	return nil
}

func (r *SyncLogRepository) ListRecent(_ context.Context, job synclog.Job, limit int) ([]synclog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]synclog.Entry, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].Job != job {
			continue
		}
		out = append(out, r.entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *SyncLogRepository) ListSince(_ context.Context, since time.Time) ([]synclog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]synclog.Entry, 0)
	for _, entry := range r.entries {
		if !entry.StartedAt.Before(since) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// JobDispatchRepository keeps the latest event per dispatch id.
type JobDispatchRepository struct {
	mu     sync.RWMutex
	events map[string]jobscheduler.DispatchEvent
}

func NewJobDispatchRepository() *JobDispatchRepository {
	return &JobDispatchRepository{events: make(map[string]jobscheduler.DispatchEvent)}
}

// UpsertEvent keeps the latest event per dispatch id; completed is final.
func (r *JobDispatchRepository) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.events[event.DispatchID]; ok && prev.Status == jobscheduler.StatusCompleted && event.Status != jobscheduler.StatusCompleted {
		return nil
	}
	r.events[event.DispatchID] = event
	return nil
}

func (r *JobDispatchRepository) Events() []jobscheduler.DispatchEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]jobscheduler.DispatchEvent, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DispatchID < out[j].DispatchID })
	return out
}
