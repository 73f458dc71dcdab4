package team

import (
	"fmt"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
)

// Team is a real esports roster as reported by one provider.
type Team struct {
	Provider   match.Provider
	ExternalID string
	Name       string
	Acronym    string
	ImageURL   string
	Location   string
	UpdatedAt  time.Time
}

func (t Team) Validate() error {
	if !t.Provider.Valid() {
		return fmt.Errorf("team provider %q is invalid", t.Provider)
	}
	if t.ExternalID == "" {
		return fmt.Errorf("team external id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}
