package team

import (
	"context"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
)

// Repository describes team persistence needs from use cases.
type Repository interface {
	ListByProvider(ctx context.Context, provider match.Provider) ([]Team, error)
	GetByExternalID(ctx context.Context, provider match.Provider, externalID string) (Team, bool, error)
	Upsert(ctx context.Context, item Team) error
}
