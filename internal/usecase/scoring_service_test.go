package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/scoring"
	"github.com/riskibarqy/esports-fantasy/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scoringRound = fantasy.Round{
	ID:       "r1",
	Name:     "Weekly Open",
	Status:   fantasy.RoundLocked,
	StartsAt: tickNow.Add(-7 * 24 * time.Hour),
	LocksAt:  tickNow.Add(-6 * 24 * time.Hour),
	EndsAt:   tickNow.Add(24 * time.Hour),
}

func scoringMatches() []match.Match {
	return []match.Match{
		{
			Provider:       match.ProviderPandaScore,
			ExternalID:     "m1",
			Phase:          match.PhaseFinished,
			TournamentName: "BLAST Premier World Final",
			TeamAID:        "vit",
			TeamBID:        "navi",
			ScheduledAt:    tickNow.Add(-2 * 24 * time.Hour),
			Result:         match.Result{TeamAMaps: 2, TeamBMaps: 0, WinnerTeamID: "vit"},
		},
		{
			Provider:       match.ProviderFaceit,
			ExternalID:     "f1",
			Phase:          match.PhaseFinished,
			TournamentName: "Weekly Hub",
			TeamAID:        "aur",
			TeamBID:        "emb",
			ScheduledAt:    tickNow.Add(-3 * 24 * time.Hour),
			Result:         match.Result{TeamAMaps: 2, TeamBMaps: 1, WinnerTeamID: "aur"},
		},
		{
			Provider:    match.ProviderPandaScore,
			ExternalID:  "m-old",
			Phase:       match.PhaseFinished,
			TeamAID:     "vit",
			TeamBID:     "g2",
			ScheduledAt: tickNow.Add(-30 * 24 * time.Hour),
			Result:      match.Result{TeamAMaps: 2, WinnerTeamID: "vit"},
		},
		{
			Provider:    match.ProviderPandaScore,
			ExternalID:  "m-live",
			Phase:       match.PhaseLive,
			TeamAID:     "vit",
			TeamBID:     "faze",
			ScheduledAt: tickNow.Add(-time.Hour),
		},
	}
}

func seedScoringRound(t *testing.T) (*memory.RoundRepository, *memory.EntryRepository) {
	t.Helper()
	ctx := context.Background()

	rounds := memory.NewRoundRepository([]fantasy.Round{scoringRound})
	require.NoError(t, rounds.ReplacePicks(ctx, "r1", "u1", []fantasy.Pick{
		{ID: "p1", RoundID: "r1", UserID: "u1", Provider: match.ProviderPandaScore, TeamExternalID: "vit", TeamType: fantasy.TeamPro},
		{ID: "p2", RoundID: "r1", UserID: "u1", Provider: match.ProviderFaceit, TeamExternalID: "aur", TeamType: fantasy.TeamAmateur},
	}, &fantasy.StarTeam{RoundID: "r1", UserID: "u1", Provider: match.ProviderPandaScore, TeamExternalID: "vit"}))
	require.NoError(t, rounds.ReplacePicks(ctx, "r1", "u2", []fantasy.Pick{
		{ID: "p3", RoundID: "r1", UserID: "u2", Provider: match.ProviderPandaScore, TeamExternalID: "navi", TeamType: fantasy.TeamPro},
	}, nil))

	entries := memory.NewEntryRepository(nil)
	for _, e := range []fantasy.Entry{
		{ID: "e1", RoundID: "r1", UserID: "u1", Status: fantasy.EntryPaid},
		{ID: "e2", RoundID: "r1", UserID: "u2", Status: fantasy.EntryPaid, TotalPoints: 99},
		{ID: "e3", RoundID: "r1", UserID: "u3", Status: fantasy.EntryPending},
	} {
		require.NoError(t, entries.UpsertEntry(ctx, e))
	}
	return rounds, entries
}

func TestScoringService_TeamMatchBreakdown(t *testing.T) {
	t.Parallel()

	rounds, entries := seedScoringRound(t)
	svc := NewScoringService(rounds, entries, memory.NewMatchRepository(scoringMatches()), scoring.DefaultRules(), 2, nil)

	got, err := svc.TeamMatchBreakdown(context.Background(), "r1", "u1")
	require.NoError(t, err)
	require.Len(t, got.Events, 2)

	// Ordered by match time: the faceit match came first.
	amateur := got.Events[0]
	assert.Equal(t, "f1", amateur.MatchID)
	assert.False(t, amateur.Star)
	assert.Equal(t, 16, amateur.Breakdown.BasePoints)
	assert.Equal(t, 20, amateur.Breakdown.Points)

	star := got.Events[1]
	assert.Equal(t, "m1", star.MatchID)
	assert.True(t, star.Star)
	assert.True(t, star.Breakdown.TournamentBonusHeuristic)
	assert.Equal(t, 46, star.Breakdown.BasePoints)
	assert.Equal(t, 92, star.Breakdown.Points)

	assert.Equal(t, 112, got.TotalPoints)
}

func TestScoringService_TeamMatchBreakdown_Validation(t *testing.T) {
	t.Parallel()

	rounds, entries := seedScoringRound(t)
	svc := NewScoringService(rounds, entries, memory.NewMatchRepository(nil), scoring.DefaultRules(), 2, nil)

	_, err := svc.TeamMatchBreakdown(context.Background(), "r1", "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.TeamMatchBreakdown(context.Background(), "missing", "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestScoringService_RecalculateRound(t *testing.T) {
	t.Parallel()

	rounds, entries := seedScoringRound(t)
	svc := NewScoringService(rounds, entries, memory.NewMatchRepository(scoringMatches()), scoring.DefaultRules(), 2, nil)

	got, err := svc.RecalculateRound(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, RecalculateResult{RoundID: "r1", Entries: 2, Updated: 2}, got)

	u1, _, err := entries.GetEntry(context.Background(), "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 112, u1.TotalPoints)

	// NAVI lost 0-2, so the stale total is replaced by zero.
	u2, _, err := entries.GetEntry(context.Background(), "r1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, u2.TotalPoints)

	u3, _, err := entries.GetEntry(context.Background(), "r1", "u3")
	require.NoError(t, err)
	assert.Equal(t, 0, u3.TotalPoints)
}
