package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
)

type matchKey struct {
	provider   match.Provider
	externalID string
}

type MatchRepository struct {
	mu    sync.RWMutex
	items map[matchKey]match.Match
}

func NewMatchRepository(items []match.Match) *MatchRepository {
	byKey := make(map[matchKey]match.Match, len(items))
	for _, item := range items {
		byKey[matchKey{item.Provider, item.ExternalID}] = item
	}
	return &MatchRepository{items: byKey}
}

func (r *MatchRepository) GetByExternalID(_ context.Context, provider match.Provider, externalID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[matchKey{provider, externalID}]
	return item, ok, nil
}

func (r *MatchRepository) ListByPhases(_ context.Context, provider match.Provider, phases ...match.Phase) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0)
	for key, item := range r.items {
		if key.provider != provider {
			continue
		}
		if len(phases) > 0 && !containsPhase(phases, item.Phase) {
			continue
		}
		out = append(out, item)
	}
	sortMatches(out)
	return out, nil
}

func (r *MatchRepository) ListFinishedBetween(_ context.Context, from, to time.Time) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0)
	for _, item := range r.items {
		if item.Phase != match.PhaseFinished {
			continue
		}
		if item.ScheduledAt.Before(from) || item.ScheduledAt.After(to) {
			continue
		}
		out = append(out, item)
	}
	sortMatches(out)
	return out, nil
}

func (r *MatchRepository) Upsert(_ context.Context, item match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[matchKey{item.Provider, item.ExternalID}] = item
	return nil
}

func containsPhase(phases []match.Phase, phase match.Phase) bool {
	for _, p := range phases {
		if p == phase {
			return true
		}
	}
	return false
}

func sortMatches(items []match.Match) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].ScheduledAt.Equal(items[j].ScheduledAt) {
			return items[i].ScheduledAt.Before(items[j].ScheduledAt)
		}
		return items[i].ExternalID < items[j].ExternalID
	})
}
