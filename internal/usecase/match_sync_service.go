package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/synclog"
	"github.com/riskibarqy/esports-fantasy/internal/domain/team"
	"github.com/riskibarqy/esports-fantasy/internal/domain/tournament"
	"github.com/riskibarqy/esports-fantasy/internal/platform/id"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

var errProviderDisabled = stderrors.New("provider is not configured")

type MatchSyncConfig struct {
	FaceitHubIDs []string
	// PastWindow bounds how far back finished matches are re-fetched.
	PastWindow time.Duration
	// TeamPageLimit caps the pages walked by one team sync run.
	TeamPageLimit int
}

type ProviderSyncResult struct {
	Job       synclog.Job `json:"job"`
	Operation string      `json:"operation"`
	Fetched   int         `json:"fetched"`
	Upserted  int         `json:"upserted"`
	Failed    int         `json:"failed"`
	Unmapped  int         `json:"unmapped"`
	Error     string      `json:"error,omitempty"`
}

type LiveSyncResult struct {
	Checked     int `json:"checked"`
	Updated     int `json:"updated"`
	Failed      int `json:"failed"`
	LiveMatches int `json:"live_matches"`
}

// MatchSyncService pulls provider data into the canonical match tables.
type MatchSyncService struct {
	faceit         FaceitFeed
	pandascore     PandaScoreFeed
	sportdevs      SportDevsFeed
	matchRepo      match.Repository
	teamRepo       team.Repository
	tournamentRepo tournament.Repository
	logs           syncLogWriter
	cfg            MatchSyncConfig
	logger         *logging.Logger
	now            func() time.Time
}

func NewMatchSyncService(
	faceit FaceitFeed,
	pandascore PandaScoreFeed,
	sportdevs SportDevsFeed,
	matchRepo match.Repository,
	teamRepo team.Repository,
	tournamentRepo tournament.Repository,
	syncLogRepo synclog.Repository,
	ids id.Generator,
	metrics Metrics,
	cfg MatchSyncConfig,
	logger *logging.Logger,
) *MatchSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PastWindow <= 0 {
		cfg.PastWindow = 48 * time.Hour
	}
	if cfg.TeamPageLimit <= 0 {
		cfg.TeamPageLimit = 20
	}
	return &MatchSyncService{
		faceit:         faceit,
		pandascore:     pandascore,
		sportdevs:      sportdevs,
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		logs:           syncLogWriter{repo: syncLogRepo, ids: ids, metrics: metricsOrNoop(metrics), logger: logger},
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
	}
}

// SyncSchedule runs the three provider syncs concurrently, one goroutine each.
// Rows within a provider are written sequentially.
func (s *MatchSyncService) SyncSchedule(ctx context.Context) []ProviderSyncResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncSchedule")
	defer span.End()

	p := pool.NewWithResults[ProviderSyncResult]().WithMaxGoroutines(3)
	if s.faceit != nil {
		p.Go(func() ProviderSyncResult { return s.SyncFaceit(ctx) })
	}
	if s.pandascore != nil {
		p.Go(func() ProviderSyncResult { return s.SyncPandaScore(ctx) })
	}
	if s.sportdevs != nil {
		p.Go(func() ProviderSyncResult { return s.SyncSportDevs(ctx) })
	}
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Job < results[j].Job })
	return results
}

func (s *MatchSyncService) SyncFaceit(ctx context.Context) ProviderSyncResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncFaceit")
	defer span.End()

	startedAt := s.now().UTC()
	result := ProviderSyncResult{Job: synclog.JobFaceit, Operation: "sync-faceit-live"}
	if s.faceit == nil {
		return s.finish(ctx, result, startedAt, errProviderDisabled)
	}

	var hubErrs []error
	for _, hubID := range s.cfg.FaceitHubIDs {
		hubID = strings.TrimSpace(hubID)
		if hubID == "" {
			continue
		}
		items, err := s.faceit.FetchHubMatches(ctx, hubID)
		if err != nil {
			hubErrs = append(hubErrs, fmt.Errorf("fetch faceit hub=%s: %w", hubID, err))
			continue
		}
		result.Fetched += len(items)
		s.upsertMatches(ctx, items, &result)
	}

	return s.finish(ctx, result, startedAt, stderrors.Join(hubErrs...))
}

// SyncPandaScore refreshes teams page by page, then running, upcoming and
// recently finished matches with their tournaments.
func (s *MatchSyncService) SyncPandaScore(ctx context.Context) ProviderSyncResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncPandaScore")
	defer span.End()

	startedAt := s.now().UTC()
	result := ProviderSyncResult{Job: synclog.JobPandaScore, Operation: "sync-pandascore"}
	if s.pandascore == nil {
		return s.finish(ctx, result, startedAt, errProviderDisabled)
	}

	if err := s.syncPandaScoreTeams(ctx, &result); err != nil {
		return s.finish(ctx, result, startedAt, err)
	}

	items, tournaments, err := s.pandascore.FetchMatches(ctx, startedAt.Add(-s.cfg.PastWindow))
	if err != nil {
		return s.finish(ctx, result, startedAt, fmt.Errorf("fetch pandascore matches: %w", err))
	}
	result.Fetched += len(items)
	s.upsertTournaments(ctx, tournaments, &result)
	s.upsertMatches(ctx, items, &result)

	return s.finish(ctx, result, startedAt, nil)
}

func (s *MatchSyncService) syncPandaScoreTeams(ctx context.Context, result *ProviderSyncResult) error {
	if s.teamRepo == nil {
		return nil
	}
	for page := 1; page <= s.cfg.TeamPageLimit; page++ {
		items, hasMore, err := s.pandascore.FetchTeams(ctx, page)
		if err != nil {
			return fmt.Errorf("fetch pandascore teams page=%d: %w", page, err)
		}
		result.Fetched += len(items)
		for _, item := range items {
			item.UpdatedAt = s.now().UTC()
			if err := item.Validate(); err != nil {
				result.Failed++
				s.logger.WarnContext(ctx, "skip invalid team", "provider", item.Provider, "team_id", item.ExternalID, "error", err)
				continue
			}
			if err := s.teamRepo.Upsert(ctx, item); err != nil {
				result.Failed++
				s.logger.WarnContext(ctx, "upsert team failed", "provider", item.Provider, "team_id", item.ExternalID, "error", err)
				continue
			}
			result.Upserted++
		}
		if !hasMore {
			break
		}
	}
	return nil
}

func (s *MatchSyncService) SyncSportDevs(ctx context.Context) ProviderSyncResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncSportDevs")
	defer span.End()

	startedAt := s.now().UTC()
	result := ProviderSyncResult{Job: synclog.JobSportDevs, Operation: "sync-sportdevs-matches"}
	if s.sportdevs == nil {
		return s.finish(ctx, result, startedAt, errProviderDisabled)
	}

	items, err := s.sportdevs.FetchMatches(ctx, startedAt.Add(-s.cfg.PastWindow))
	if err != nil {
		return s.finish(ctx, result, startedAt, fmt.Errorf("fetch sportdevs matches: %w", err))
	}
	result.Fetched += len(items)

	tournamentIDs := uniqueTournamentIDs(items)
	if len(tournamentIDs) > 0 {
		tournaments, err := s.sportdevs.FetchTournaments(ctx, tournamentIDs)
		if err != nil {
			// Matches still carry the tournament name, so keep going.
			s.logger.WarnContext(ctx, "fetch sportdevs tournaments failed", "count", len(tournamentIDs), "error", err)
		} else {
			s.upsertTournaments(ctx, tournaments, &result)
		}
	}
	s.upsertMatches(ctx, items, &result)

	return s.finish(ctx, result, startedAt, nil)
}

// SyncMatch refreshes a single match from its provider.
func (s *MatchSyncService) SyncMatch(ctx context.Context, provider match.Provider, externalID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncMatch")
	defer span.End()

	externalID = strings.TrimSpace(externalID)
	if !provider.Valid() || externalID == "" {
		return match.Match{}, fmt.Errorf("%w: provider and match id are required", ErrInvalidInput)
	}

	var (
		item match.Match
		err  error
	)
	switch provider {
	case match.ProviderFaceit:
		if s.faceit == nil {
			return match.Match{}, fmt.Errorf("%w: faceit: %v", ErrDependencyUnavailable, errProviderDisabled)
		}
		item, err = s.faceit.FetchMatch(ctx, externalID)
	case match.ProviderPandaScore:
		if s.pandascore == nil {
			return match.Match{}, fmt.Errorf("%w: pandascore: %v", ErrDependencyUnavailable, errProviderDisabled)
		}
		item, err = s.pandascore.FetchMatch(ctx, externalID)
	case match.ProviderSportDevs:
		if s.sportdevs == nil {
			return match.Match{}, fmt.Errorf("%w: sportdevs: %v", ErrDependencyUnavailable, errProviderDisabled)
		}
		item, err = s.sportdevs.FetchMatch(ctx, externalID)
	}
	if err != nil {
		return match.Match{}, fmt.Errorf("%w: fetch %s match=%s: %v", ErrDependencyUnavailable, provider, externalID, err)
	}

	merged, err := s.upsertMatch(ctx, item)
	if err != nil {
		return match.Match{}, err
	}
	return merged, nil
}

// SyncLive refreshes every stored live match. Per-match failures are counted.
func (s *MatchSyncService) SyncLive(ctx context.Context) (LiveSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncLive")
	defer span.End()

	var result LiveSyncResult
	for _, provider := range match.Providers() {
		if !s.providerEnabled(provider) {
			continue
		}
		items, err := s.matchRepo.ListByPhases(ctx, provider, match.PhaseLive)
		if err != nil {
			return result, fmt.Errorf("list live %s matches: %w", provider, err)
		}
		for _, item := range items {
			result.Checked++
			synced, err := s.SyncMatch(ctx, provider, item.ExternalID)
			if err != nil {
				result.Failed++
				result.LiveMatches++
				s.logger.WarnContext(ctx, "live match sync failed", "provider", provider, "match_id", item.ExternalID, "error", err)
				continue
			}
			result.Updated++
			if synced.Phase == match.PhaseLive {
				result.LiveMatches++
			}
		}
	}
	return result, nil
}

func (s *MatchSyncService) providerEnabled(provider match.Provider) bool {
	switch provider {
	case match.ProviderFaceit:
		return s.faceit != nil
	case match.ProviderPandaScore:
		return s.pandascore != nil
	case match.ProviderSportDevs:
		return s.sportdevs != nil
	default:
		return false
	}
}

func (s *MatchSyncService) upsertMatches(ctx context.Context, items []match.Match, result *ProviderSyncResult) {
	for _, item := range items {
		if !classifyMapped(item, s.now().UTC()) {
			result.Unmapped++
			s.logger.WarnContext(ctx, "unmapped provider status",
				"provider", item.Provider,
				"match_id", item.ExternalID,
				"raw_status", item.RawStatus,
			)
		}
		if _, err := s.upsertMatch(ctx, item); err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "upsert synced match failed",
				"provider", item.Provider,
				"match_id", item.ExternalID,
				"error", err,
			)
			continue
		}
		result.Upserted++
	}
}

// upsertMatch classifies the provider status and merges it over the stored
// row so a stored phase never moves backwards.
func (s *MatchSyncService) upsertMatch(ctx context.Context, item match.Match) (match.Match, error) {
	if !item.Provider.Valid() || strings.TrimSpace(item.ExternalID) == "" {
		return match.Match{}, fmt.Errorf("%w: synced match is missing provider or id", ErrInvalidInput)
	}

	now := s.now().UTC()
	item.Phase = match.Classify(item.Provider, item.RawStatus, item.ScheduledAt, now).Phase

	stored, exists, err := s.matchRepo.GetByExternalID(ctx, item.Provider, item.ExternalID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get stored match %s:%s: %w", item.Provider, item.ExternalID, err)
	}
	merged := match.MergeSynced(stored, exists, item, now)
	if err := s.matchRepo.Upsert(ctx, merged); err != nil {
		return match.Match{}, fmt.Errorf("upsert match %s:%s: %w", item.Provider, item.ExternalID, err)
	}
	return merged, nil
}

func (s *MatchSyncService) upsertTournaments(ctx context.Context, items []tournament.Tournament, result *ProviderSyncResult) {
	if s.tournamentRepo == nil {
		return
	}
	for _, item := range items {
		item.UpdatedAt = s.now().UTC()
		if err := s.tournamentRepo.Upsert(ctx, item); err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "upsert tournament failed",
				"provider", item.Provider,
				"tournament_id", item.ExternalID,
				"error", err,
			)
		}
	}
}

func (s *MatchSyncService) finish(ctx context.Context, result ProviderSyncResult, startedAt time.Time, runErr error) ProviderSyncResult {
	if runErr != nil {
		result.Error = runErr.Error()
		s.logger.WarnContext(ctx, "provider sync failed", "job", result.Job, "error", runErr)
	}
	s.logs.write(ctx, synclog.Entry{
		Job:       result.Job,
		Operation: result.Operation,
		StartedAt: startedAt,
		Duration:  s.now().UTC().Sub(startedAt),
		Fetched:   result.Fetched,
		Upserted:  result.Upserted,
		Failed:    result.Failed,
	}, runErr)
	return result
}

func classifyMapped(item match.Match, now time.Time) bool {
	return match.Classify(item.Provider, item.RawStatus, item.ScheduledAt, now).Mapped
}

func uniqueTournamentIDs(items []match.Match) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		tid := strings.TrimSpace(item.TournamentID)
		if tid == "" {
			continue
		}
		if _, ok := seen[tid]; ok {
			continue
		}
		seen[tid] = struct{}{}
		out = append(out, tid)
	}
	return out
}
