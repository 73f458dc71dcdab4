package tournament

import (
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
)

type Tournament struct {
	Provider   match.Provider
	ExternalID string
	Name       string
	Tier       string
	Videogame  string
	StartsAt   *time.Time
	EndsAt     *time.Time
	UpdatedAt  time.Time
}
