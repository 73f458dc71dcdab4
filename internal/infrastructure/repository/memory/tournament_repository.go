package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/tournament"
)

type TournamentRepository struct {
	mu    sync.RWMutex
	items map[string]tournament.Tournament
}

func NewTournamentRepository() *TournamentRepository {
	return &TournamentRepository{items: make(map[string]tournament.Tournament)}
}

func (r *TournamentRepository) GetByExternalID(_ context.Context, provider match.Provider, externalID string) (tournament.Tournament, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[string(provider)+":"+externalID]
	return item, ok, nil
}

func (r *TournamentRepository) Upsert(_ context.Context, item tournament.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[string(item.Provider)+":"+item.ExternalID] = item
	return nil
}
