package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
)

type MatchService struct {
	repo match.Repository
}

func NewMatchService(repo match.Repository) *MatchService {
	return &MatchService{repo: repo}
}

// List returns matches of one provider, or of all providers when provider
// is empty, optionally narrowed to one phase.
func (s *MatchService) List(ctx context.Context, rawProvider, rawPhase string) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.List")
	defer span.End()

	providers := match.Providers()
	if strings.TrimSpace(rawProvider) != "" {
		provider, err := match.ParseProvider(rawProvider)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		providers = []match.Provider{provider}
	}

	phases := []match.Phase{match.PhaseUpcoming, match.PhaseLive, match.PhaseFinished}
	if strings.TrimSpace(rawPhase) != "" {
		phase, err := match.ParsePhase(rawPhase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		phases = []match.Phase{phase}
	}

	out := make([]match.Match, 0)
	for _, provider := range providers {
		items, err := s.repo.ListByPhases(ctx, provider, phases...)
		if err != nil {
			return nil, fmt.Errorf("list %s matches: %w", provider, err)
		}
		out = append(out, items...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}
