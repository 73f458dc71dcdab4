package fantasy

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrRoundNotOpen       = errors.New("round is not open")
	ErrRoundLocked        = errors.New("round is locked")
	ErrNoPicks            = errors.New("at least one pick is required")
	ErrTooManyPicks       = errors.New("too many picks")
	ErrDuplicateTeamPick  = errors.New("duplicate team in picks")
	ErrUnknownTeamType    = errors.New("unknown team type")
	ErrStarNotPicked      = errors.New("star team must be one of the picks")
	ErrAlreadyEntered     = errors.New("user already holds a paid entry")
	ErrInsufficientPromo  = errors.New("insufficient promo balance")
	ErrUnsupportedPayment = errors.New("unsupported payment method")
)

// ValidatePicks checks a lineup against the round before it is stored.
func ValidatePicks(round Round, picks []Pick, star *StarTeam, now time.Time) error {
	if round.Status != RoundOpen {
		return fmt.Errorf("%w: status=%s", ErrRoundNotOpen, round.Status)
	}
	if !now.Before(round.LocksAt) {
		return fmt.Errorf("%w: locked at %s", ErrRoundLocked, round.LocksAt.UTC().Format(time.RFC3339))
	}
	if len(picks) == 0 {
		return ErrNoPicks
	}
	if round.MaxPicks > 0 && len(picks) > round.MaxPicks {
		return fmt.Errorf("%w: max=%d got=%d", ErrTooManyPicks, round.MaxPicks, len(picks))
	}

	seen := make(map[string]struct{}, len(picks))
	for _, pick := range picks {
		if strings.TrimSpace(pick.TeamExternalID) == "" {
			return fmt.Errorf("team id is required")
		}
		if !pick.Provider.Valid() {
			return fmt.Errorf("unknown provider %q for team %s", pick.Provider, pick.TeamExternalID)
		}
		if !pick.TeamType.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownTeamType, pick.TeamType)
		}
		key := string(pick.Provider) + ":" + pick.TeamExternalID
		if _, exists := seen[key]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateTeamPick, key)
		}
		seen[key] = struct{}{}
	}

	if star != nil {
		if _, ok := seen[string(star.Provider)+":"+star.TeamExternalID]; !ok {
			return fmt.Errorf("%w: %s", ErrStarNotPicked, star.TeamExternalID)
		}
	}

	return nil
}
