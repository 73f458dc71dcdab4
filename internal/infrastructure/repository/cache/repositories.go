package cache

import (
	"context"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/team"
	"github.com/riskibarqy/esports-fantasy/internal/domain/tournament"
	basecache "github.com/riskibarqy/esports-fantasy/internal/platform/cache"
)

type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

var _ team.Repository = (*TeamRepository)(nil)

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) ListByProvider(ctx context.Context, provider match.Provider) ([]team.Team, error) {
	key := "team:list:" + string(provider)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByProvider(ctx, provider)
		if err != nil {
			return nil, err
		}
		return append([]team.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]team.Team)
	return append([]team.Team(nil), items...), nil
}

func (r *TeamRepository) GetByExternalID(ctx context.Context, provider match.Provider, externalID string) (team.Team, bool, error) {
	key := teamKey(provider, externalID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByExternalID(ctx, provider, externalID)
		if err != nil {
			return nil, err
		}
		return cachedTeam{value: item, exists: exists}, nil
	})
	if err != nil {
		return team.Team{}, false, err
	}

	cached, _ := v.(cachedTeam)
	return cached.value, cached.exists, nil
}

func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, teamKey(item.Provider, item.ExternalID))
	r.cache.Delete(ctx, "team:list:"+string(item.Provider))
	return nil
}

type cachedTeam struct {
	value  team.Team
	exists bool
}

func teamKey(provider match.Provider, externalID string) string {
	return "team:id:" + string(provider) + ":" + externalID
}

type TournamentRepository struct {
	next  tournament.Repository
	cache *basecache.Store
}

var _ tournament.Repository = (*TournamentRepository)(nil)

func NewTournamentRepository(next tournament.Repository, cache *basecache.Store) *TournamentRepository {
	return &TournamentRepository{next: next, cache: cache}
}

func (r *TournamentRepository) GetByExternalID(ctx context.Context, provider match.Provider, externalID string) (tournament.Tournament, bool, error) {
	key := tournamentKey(provider, externalID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByExternalID(ctx, provider, externalID)
		if err != nil {
			return nil, err
		}
		return cachedTournament{value: item, exists: exists}, nil
	})
	if err != nil {
		return tournament.Tournament{}, false, err
	}

	cached, _ := v.(cachedTournament)
	return cached.value, cached.exists, nil
}

func (r *TournamentRepository) Upsert(ctx context.Context, item tournament.Tournament) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, tournamentKey(item.Provider, item.ExternalID))
	return nil
}

type cachedTournament struct {
	value  tournament.Tournament
	exists bool
}

func tournamentKey(provider match.Provider, externalID string) string {
	return "tournament:id:" + string(provider) + ":" + externalID
}

// RoundRepository caches round reads. Lineups go straight through since they
// change on every pick submission.
type RoundRepository struct {
	next  fantasy.Repository
	cache *basecache.Store
}

var _ fantasy.Repository = (*RoundRepository)(nil)

func NewRoundRepository(next fantasy.Repository, cache *basecache.Store) *RoundRepository {
	return &RoundRepository{next: next, cache: cache}
}

func (r *RoundRepository) GetRound(ctx context.Context, roundID string) (fantasy.Round, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, "round:id:"+roundID, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetRound(ctx, roundID)
		if err != nil {
			return nil, err
		}
		return cachedRound{value: item, exists: exists}, nil
	})
	if err != nil {
		return fantasy.Round{}, false, err
	}

	cached, _ := v.(cachedRound)
	return cached.value, cached.exists, nil
}

func (r *RoundRepository) ListRounds(ctx context.Context, statuses ...fantasy.RoundStatus) ([]fantasy.Round, error) {
	key := "round:list:"
	for _, s := range statuses {
		key += string(s) + ","
	}
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListRounds(ctx, statuses...)
		if err != nil {
			return nil, err
		}
		return append([]fantasy.Round(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]fantasy.Round)
	return append([]fantasy.Round(nil), items...), nil
}

func (r *RoundRepository) ListPicks(ctx context.Context, roundID, userID string) ([]fantasy.Pick, error) {
	return r.next.ListPicks(ctx, roundID, userID)
}

func (r *RoundRepository) ListRoundPicks(ctx context.Context, roundID string) ([]fantasy.Pick, error) {
	return r.next.ListRoundPicks(ctx, roundID)
}

func (r *RoundRepository) GetStarTeam(ctx context.Context, roundID, userID string) (fantasy.StarTeam, bool, error) {
	return r.next.GetStarTeam(ctx, roundID, userID)
}

func (r *RoundRepository) ListRoundStarTeams(ctx context.Context, roundID string) ([]fantasy.StarTeam, error) {
	return r.next.ListRoundStarTeams(ctx, roundID)
}

func (r *RoundRepository) ReplacePicks(ctx context.Context, roundID, userID string, picks []fantasy.Pick, star *fantasy.StarTeam) error {
	return r.next.ReplacePicks(ctx, roundID, userID, picks, star)
}

type cachedRound struct {
	value  fantasy.Round
	exists bool
}
