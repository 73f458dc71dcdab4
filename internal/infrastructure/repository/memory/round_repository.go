package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
)

type RoundRepository struct {
	mu     sync.RWMutex
	rounds map[string]fantasy.Round
	picks  map[string][]fantasy.Pick
	stars  map[string]fantasy.StarTeam
}

func NewRoundRepository(rounds []fantasy.Round) *RoundRepository {
	r := &RoundRepository{
		rounds: make(map[string]fantasy.Round, len(rounds)),
		picks:  make(map[string][]fantasy.Pick),
		stars:  make(map[string]fantasy.StarTeam),
	}
	for _, item := range rounds {
		r.rounds[item.ID] = item
	}
	return r
}

func lineupKey(roundID, userID string) string {
	return roundID + "|" + userID
}

func (r *RoundRepository) GetRound(_ context.Context, roundID string) (fantasy.Round, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.rounds[roundID]
	return item, ok, nil
}

func (r *RoundRepository) ListRounds(_ context.Context, statuses ...fantasy.RoundStatus) ([]fantasy.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fantasy.Round, 0, len(r.rounds))
	for _, item := range r.rounds {
		if len(statuses) > 0 && !containsStatus(statuses, item.Status) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *RoundRepository) ListPicks(_ context.Context, roundID, userID string) ([]fantasy.Pick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	picks := r.picks[lineupKey(roundID, userID)]
	out := make([]fantasy.Pick, 0, len(picks))
	out = append(out, picks...)
	return out, nil
}

func (r *RoundRepository) ListRoundPicks(_ context.Context, roundID string) ([]fantasy.Pick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fantasy.Pick, 0)
	for _, picks := range r.picks {
		for _, pick := range picks {
			if pick.RoundID == roundID {
				out = append(out, pick)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RoundRepository) GetStarTeam(_ context.Context, roundID, userID string) (fantasy.StarTeam, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.stars[lineupKey(roundID, userID)]
	return item, ok, nil
}

func (r *RoundRepository) ListRoundStarTeams(_ context.Context, roundID string) ([]fantasy.StarTeam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fantasy.StarTeam, 0)
	for _, item := range r.stars {
		if item.RoundID == roundID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *RoundRepository) ReplacePicks(_ context.Context, roundID, userID string, picks []fantasy.Pick, star *fantasy.StarTeam) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lineupKey(roundID, userID)
	r.picks[key] = append([]fantasy.Pick(nil), picks...)
	if star == nil {
		delete(r.stars, key)
	} else {
		r.stars[key] = *star
	}
	return nil
}

func containsStatus(statuses []fantasy.RoundStatus, status fantasy.RoundStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
