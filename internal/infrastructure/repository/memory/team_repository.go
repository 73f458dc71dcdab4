package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/team"
)

type TeamRepository struct {
	mu              sync.RWMutex
	teamsByProvider map[match.Provider]map[string]team.Team
}

func NewTeamRepository(teams []team.Team) *TeamRepository {
	r := &TeamRepository{teamsByProvider: make(map[match.Provider]map[string]team.Team)}
	for _, item := range teams {
		r.put(item)
	}
	return r
}

func (r *TeamRepository) ListByProvider(_ context.Context, provider match.Provider) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	teams := r.teamsByProvider[provider]
	out := make([]team.Team, 0, len(teams))
	for _, item := range teams {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (r *TeamRepository) GetByExternalID(_ context.Context, provider match.Provider, externalID string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.teamsByProvider[provider][externalID]
	return item, ok, nil
}

func (r *TeamRepository) Upsert(_ context.Context, item team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(item)
	return nil
}

func (r *TeamRepository) put(item team.Team) {
	externalID := strings.TrimSpace(item.ExternalID)
	if externalID == "" {
		return
	}
	rows, ok := r.teamsByProvider[item.Provider]
	if !ok {
		rows = make(map[string]team.Team)
		r.teamsByProvider[item.Provider] = rows
	}
	rows[externalID] = item
}
