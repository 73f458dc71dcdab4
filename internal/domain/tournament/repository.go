package tournament

import (
	"context"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
)

type Repository interface {
	GetByExternalID(ctx context.Context, provider match.Provider, externalID string) (Tournament, bool, error)
	Upsert(ctx context.Context, item Tournament) error
}
