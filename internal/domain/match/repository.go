package match

import (
	"context"
	"time"
)

// Repository persists canonical match rows, one table per provider.
type Repository interface {
	GetByExternalID(ctx context.Context, provider Provider, externalID string) (Match, bool, error)
	ListByPhases(ctx context.Context, provider Provider, phases ...Phase) ([]Match, error)
	ListFinishedBetween(ctx context.Context, from, to time.Time) ([]Match, error)
	Upsert(ctx context.Context, item Match) error
}
