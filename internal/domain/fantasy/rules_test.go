package fantasy

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
)

func TestValidatePicks(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	round := Round{
		ID:       "r1",
		Status:   RoundOpen,
		LocksAt:  now.Add(time.Hour),
		MaxPicks: 3,
	}
	validPicks := []Pick{
		{TeamExternalID: "t1", Provider: match.ProviderPandaScore, TeamType: TeamPro},
		{TeamExternalID: "t2", Provider: match.ProviderPandaScore, TeamType: TeamPro},
		{TeamExternalID: "f1", Provider: match.ProviderFaceit, TeamType: TeamAmateur},
	}

	tests := []struct {
		name      string
		mutate    func([]Pick, *Round, **StarTeam)
		targetErr error
	}{
		{
			name:   "valid picks",
			mutate: func(_ []Pick, _ *Round, _ **StarTeam) {},
		},
		{
			name: "valid star",
			mutate: func(_ []Pick, _ *Round, star **StarTeam) {
				*star = &StarTeam{TeamExternalID: "f1", Provider: match.ProviderFaceit}
			},
		},
		{
			name: "round not open",
			mutate: func(_ []Pick, r *Round, _ **StarTeam) {
				r.Status = RoundDraft
			},
			targetErr: ErrRoundNotOpen,
		},
		{
			name: "round locked",
			mutate: func(_ []Pick, r *Round, _ **StarTeam) {
				r.LocksAt = now
			},
			targetErr: ErrRoundLocked,
		},
		{
			name: "too many picks",
			mutate: func(_ []Pick, r *Round, _ **StarTeam) {
				r.MaxPicks = 2
			},
			targetErr: ErrTooManyPicks,
		},
		{
			name: "duplicate team",
			mutate: func(picks []Pick, _ *Round, _ **StarTeam) {
				picks[1].TeamExternalID = "t1"
			},
			targetErr: ErrDuplicateTeamPick,
		},
		{
			name: "unknown team type",
			mutate: func(picks []Pick, _ *Round, _ **StarTeam) {
				picks[0].TeamType = TeamType("semi-pro")
			},
			targetErr: ErrUnknownTeamType,
		},
		{
			name: "star outside picks",
			mutate: func(_ []Pick, _ *Round, star **StarTeam) {
				*star = &StarTeam{TeamExternalID: "f1", Provider: match.ProviderPandaScore}
			},
			targetErr: ErrStarNotPicked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picks := append([]Pick(nil), validPicks...)
			r := round
			var star *StarTeam
			tt.mutate(picks, &r, &star)

			err := ValidatePicks(r, picks, star, now)
			if tt.targetErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			if !errors.Is(err, tt.targetErr) {
				t.Fatalf("expected error %v, got %v", tt.targetErr, err)
			}
		})
	}
}

func TestValidatePicks_Empty(t *testing.T) {
	now := time.Now()
	err := ValidatePicks(Round{Status: RoundOpen, LocksAt: now.Add(time.Minute)}, nil, nil, now)
	if !errors.Is(err, ErrNoPicks) {
		t.Fatalf("expected ErrNoPicks, got %v", err)
	}
}

func TestRoundCovers(t *testing.T) {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	r := Round{StartsAt: start, EndsAt: start.Add(48 * time.Hour)}

	if !r.Covers(start) || !r.Covers(start.Add(48*time.Hour)) {
		t.Fatalf("expected boundaries to be covered")
	}
	if r.Covers(start.Add(-time.Second)) || r.Covers(start.Add(49*time.Hour)) {
		t.Fatalf("expected outside times to be excluded")
	}
}
