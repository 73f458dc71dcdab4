package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/platform/id"
)

type PickInput struct {
	Provider       string
	TeamExternalID string
	TeamName       string
	TeamType       string
}

type SubmitPicksInput struct {
	RoundID string
	UserID  string
	Picks   []PickInput
	// StarTeamID optionally names one of the picked teams as the star.
	StarTeamID string
}

type UserLineup struct {
	Round fantasy.Round     `json:"round"`
	Picks []fantasy.Pick    `json:"picks"`
	Star  *fantasy.StarTeam `json:"star,omitempty"`
}

type RoundService struct {
	repo fantasy.Repository
	ids  id.Generator
	now  func() time.Time
}

func NewRoundService(repo fantasy.Repository, ids id.Generator) *RoundService {
	return &RoundService{repo: repo, ids: ids, now: time.Now}
}

func (s *RoundService) ListRounds(ctx context.Context) ([]fantasy.Round, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoundService.ListRounds")
	defer span.End()

	items, err := s.repo.ListRounds(ctx, fantasy.RoundOpen, fantasy.RoundLocked, fantasy.RoundCompleted)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	return items, nil
}

func (s *RoundService) GetRound(ctx context.Context, roundID string) (fantasy.Round, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoundService.GetRound")
	defer span.End()

	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return fantasy.Round{}, fmt.Errorf("%w: round id is required", ErrInvalidInput)
	}
	round, exists, err := s.repo.GetRound(ctx, roundID)
	if err != nil {
		return fantasy.Round{}, fmt.Errorf("get round=%s: %w", roundID, err)
	}
	if !exists {
		return fantasy.Round{}, fmt.Errorf("%w: round=%s", ErrNotFound, roundID)
	}
	return round, nil
}

// SubmitPicks validates and stores a user's lineup, replacing any previous
// one. Lineups are frozen once the round locks.
func (s *RoundService) SubmitPicks(ctx context.Context, input SubmitPicksInput) (UserLineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoundService.SubmitPicks")
	defer span.End()

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return UserLineup{}, fmt.Errorf("%w: user id is required", ErrUnauthorized)
	}
	round, err := s.GetRound(ctx, input.RoundID)
	if err != nil {
		return UserLineup{}, err
	}

	now := s.now().UTC()
	picks := make([]fantasy.Pick, 0, len(input.Picks))
	for _, in := range input.Picks {
		provider, err := match.ParseProvider(in.Provider)
		if err != nil {
			return UserLineup{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		pickID, err := s.ids.NewID()
		if err != nil {
			return UserLineup{}, fmt.Errorf("generate pick id: %w", err)
		}
		picks = append(picks, fantasy.Pick{
			ID:             pickID,
			RoundID:        round.ID,
			UserID:         userID,
			Provider:       provider,
			TeamExternalID: strings.TrimSpace(in.TeamExternalID),
			TeamName:       strings.TrimSpace(in.TeamName),
			TeamType:       fantasy.TeamType(strings.ToLower(strings.TrimSpace(in.TeamType))),
			CreatedAt:      now,
		})
	}

	var star *fantasy.StarTeam
	if starID := strings.TrimSpace(input.StarTeamID); starID != "" {
		star = &fantasy.StarTeam{RoundID: round.ID, UserID: userID, TeamExternalID: starID, CreatedAt: now}
		for _, pick := range picks {
			if pick.TeamExternalID == starID {
				star.Provider = pick.Provider
				break
			}
		}
	}

	if err := fantasy.ValidatePicks(round, picks, star, now); err != nil {
		return UserLineup{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.repo.ReplacePicks(ctx, round.ID, userID, picks, star); err != nil {
		return UserLineup{}, fmt.Errorf("replace picks round=%s user=%s: %w", round.ID, userID, err)
	}

	return UserLineup{Round: round, Picks: picks, Star: star}, nil
}
