package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/scoring"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
)

// ScoringEvent is one pick scored against one finished match. It is derived
// on read and never stored.
type ScoringEvent struct {
	Provider       match.Provider    `json:"provider"`
	MatchID        string            `json:"match_id"`
	TournamentName string            `json:"tournament_name"`
	ScheduledAt    time.Time         `json:"scheduled_at"`
	TeamExternalID string            `json:"team_external_id"`
	TeamName       string            `json:"team_name"`
	TeamType       fantasy.TeamType  `json:"team_type"`
	Star           bool              `json:"star"`
	Breakdown      scoring.Breakdown `json:"breakdown"`
}

type RoundBreakdown struct {
	RoundID     string         `json:"round_id"`
	UserID      string         `json:"user_id"`
	Events      []ScoringEvent `json:"events"`
	TotalPoints int            `json:"total_points"`
}

type RecalculateResult struct {
	RoundID string `json:"round_id"`
	Entries int    `json:"entries"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
}

type ScoringService struct {
	roundRepo fantasy.Repository
	entryRepo fantasy.EntryRepository
	matchRepo match.Repository
	rules     scoring.Rules
	workers   int
	logger    *logging.Logger
}

func NewScoringService(
	roundRepo fantasy.Repository,
	entryRepo fantasy.EntryRepository,
	matchRepo match.Repository,
	rules scoring.Rules,
	workers int,
	logger *logging.Logger,
) *ScoringService {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 8
	}
	return &ScoringService{
		roundRepo: roundRepo,
		entryRepo: entryRepo,
		matchRepo: matchRepo,
		rules:     rules,
		workers:   workers,
		logger:    logger,
	}
}

// TeamMatchBreakdown scores a user's picks against every finished match in
// the round window.
func (s *ScoringService) TeamMatchBreakdown(ctx context.Context, roundID, userID string) (RoundBreakdown, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.TeamMatchBreakdown")
	defer span.End()

	roundID = strings.TrimSpace(roundID)
	userID = strings.TrimSpace(userID)
	if roundID == "" || userID == "" {
		return RoundBreakdown{}, fmt.Errorf("%w: round id and user id are required", ErrInvalidInput)
	}

	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return RoundBreakdown{}, err
	}
	picks, err := s.roundRepo.ListPicks(ctx, roundID, userID)
	if err != nil {
		return RoundBreakdown{}, fmt.Errorf("list picks round=%s user=%s: %w", roundID, userID, err)
	}
	star, hasStar, err := s.roundRepo.GetStarTeam(ctx, roundID, userID)
	if err != nil {
		return RoundBreakdown{}, fmt.Errorf("get star team round=%s user=%s: %w", roundID, userID, err)
	}
	matches, err := s.matchRepo.ListFinishedBetween(ctx, round.StartsAt, round.EndsAt)
	if err != nil {
		return RoundBreakdown{}, fmt.Errorf("list finished matches round=%s: %w", roundID, err)
	}

	var starPtr *fantasy.StarTeam
	if hasStar {
		starPtr = &star
	}
	events, total := scorePicks(s.rules, picks, starPtr, matches)
	return RoundBreakdown{
		RoundID:     roundID,
		UserID:      userID,
		Events:      events,
		TotalPoints: total,
	}, nil
}

// RecalculateRound rescores every paid entry and stores the totals. Entries
// are scored on a bounded worker pool; a failed write is counted, not fatal.
func (s *ScoringService) RecalculateRound(ctx context.Context, roundID string) (RecalculateResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.RecalculateRound")
	defer span.End()

	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return RecalculateResult{}, fmt.Errorf("%w: round id is required", ErrInvalidInput)
	}
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return RecalculateResult{}, err
	}

	entries, err := s.entryRepo.ListEntries(ctx, roundID)
	if err != nil {
		return RecalculateResult{}, fmt.Errorf("list entries round=%s: %w", roundID, err)
	}
	picks, err := s.roundRepo.ListRoundPicks(ctx, roundID)
	if err != nil {
		return RecalculateResult{}, fmt.Errorf("list round picks round=%s: %w", roundID, err)
	}
	stars, err := s.roundRepo.ListRoundStarTeams(ctx, roundID)
	if err != nil {
		return RecalculateResult{}, fmt.Errorf("list star teams round=%s: %w", roundID, err)
	}
	matches, err := s.matchRepo.ListFinishedBetween(ctx, round.StartsAt, round.EndsAt)
	if err != nil {
		recordSpanError(span, err)
		return RecalculateResult{}, fmt.Errorf("list finished matches round=%s: %w", roundID, err)
	}

	picksByUser := make(map[string][]fantasy.Pick)
	for _, pick := range picks {
		picksByUser[pick.UserID] = append(picksByUser[pick.UserID], pick)
	}
	starByUser := make(map[string]fantasy.StarTeam, len(stars))
	for _, star := range stars {
		starByUser[star.UserID] = star
	}

	workerPool, err := ants.NewPool(s.workers)
	if err != nil {
		return RecalculateResult{}, fmt.Errorf("create scoring pool: %w", err)
	}
	defer workerPool.Release()

	result := RecalculateResult{RoundID: roundID}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(err error, userID string) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "store entry points failed", "round_id", roundID, "user_id", userID, "error", err)
			return
		}
		result.Updated++
	}

	for _, entry := range entries {
		if entry.Status != fantasy.EntryPaid {
			continue
		}
		result.Entries++

		userID := entry.UserID
		var star *fantasy.StarTeam
		if st, ok := starByUser[userID]; ok {
			star = &st
		}
		userPicks := picksByUser[userID]

		wg.Add(1)
		task := func() {
			defer wg.Done()
			_, total := scorePicks(s.rules, userPicks, star, matches)
			record(s.entryRepo.UpdateEntryPoints(ctx, roundID, userID, total), userID)
		}
		if err := workerPool.Submit(task); err != nil {
			wg.Done()
			record(fmt.Errorf("submit scoring task: %w", err), userID)
		}
	}
	wg.Wait()

	s.logger.InfoContext(ctx, "round recalculated",
		"round_id", roundID,
		"entries", result.Entries,
		"updated", result.Updated,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *ScoringService) getRound(ctx context.Context, roundID string) (fantasy.Round, error) {
	round, exists, err := s.roundRepo.GetRound(ctx, roundID)
	if err != nil {
		return fantasy.Round{}, fmt.Errorf("get round=%s: %w", roundID, err)
	}
	if !exists {
		return fantasy.Round{}, fmt.Errorf("%w: round=%s", ErrNotFound, roundID)
	}
	return round, nil
}

func scorePicks(rules scoring.Rules, picks []fantasy.Pick, star *fantasy.StarTeam, matches []match.Match) ([]ScoringEvent, int) {
	events := make([]ScoringEvent, 0)
	total := 0
	for _, pick := range picks {
		isStar := star != nil && star.Matches(pick)
		opts := scoring.Options{
			Amateur: pick.TeamType == fantasy.TeamAmateur,
			Star:    isStar,
		}
		for _, m := range matches {
			if m.Provider != pick.Provider || !m.HasTeam(pick.TeamExternalID) {
				continue
			}
			breakdown := scoring.Score(rules, scoring.OutcomeFromMatch(m), pick.TeamExternalID, opts)
			events = append(events, ScoringEvent{
				Provider:       m.Provider,
				MatchID:        m.ExternalID,
				TournamentName: m.TournamentName,
				ScheduledAt:    m.ScheduledAt,
				TeamExternalID: pick.TeamExternalID,
				TeamName:       pick.TeamName,
				TeamType:       pick.TeamType,
				Star:           isStar,
				Breakdown:      breakdown,
			})
			total += breakdown.Points
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ScheduledAt.Before(events[j].ScheduledAt)
	})
	return events, total
}
