package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/tournament"
	qb "github.com/riskibarqy/esports-fantasy/internal/platform/querybuilder"
)

var tournamentTables = map[match.Provider]string{
	match.ProviderPandaScore: "pandascore_tournaments",
	match.ProviderSportDevs:  "sportdevs_tournaments",
}

type TournamentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ tournament.Repository = (*TournamentRepository)(nil)

func NewTournamentRepository(db *sqlx.DB) *TournamentRepository {
	return &TournamentRepository{db: db, now: time.Now}
}

func tournamentTable(provider match.Provider) (string, error) {
	table, ok := tournamentTables[provider]
	if !ok {
		return "", fmt.Errorf("no tournament catalog for provider %q", provider)
	}
	return table, nil
}

func (r *TournamentRepository) GetByExternalID(ctx context.Context, provider match.Provider, externalID string) (tournament.Tournament, bool, error) {
	table, err := tournamentTable(provider)
	if err != nil {
		return tournament.Tournament{}, false, err
	}

	query, args, err := qb.Select("*").From(table).
		Where(qb.Eq("external_id", externalID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return tournament.Tournament{}, false, fmt.Errorf("build select tournament query: %w", err)
	}

	var row tournamentTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return tournament.Tournament{}, false, nil
		}
		return tournament.Tournament{}, false, fmt.Errorf("select %s id=%s: %w", table, externalID, err)
	}

	return tournament.Tournament{
		Provider:   provider,
		ExternalID: row.ExternalID,
		Name:       row.Name,
		Tier:       nullStringValue(row.Tier),
		Videogame:  nullStringValue(row.Videogame),
		StartsAt:   nullTimeToPtr(row.StartsAt),
		EndsAt:     nullTimeToPtr(row.EndsAt),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}, true, nil
}

func (r *TournamentRepository) Upsert(ctx context.Context, item tournament.Tournament) error {
	table, err := tournamentTable(item.Provider)
	if err != nil {
		return err
	}
	if item.ExternalID == "" {
		return fmt.Errorf("tournament external id is required")
	}

	query, args, err := qb.UpsertModel(table, tournamentUpsertModel{
		ExternalID: item.ExternalID,
		Name:       item.Name,
		Tier:       optionalString(item.Tier),
		Videogame:  optionalString(item.Videogame),
		StartsAt:   nullableTime(item.StartsAt),
		EndsAt:     nullableTime(item.EndsAt),
		UpdatedAt:  utcOrNow(item.UpdatedAt, r.now()),
	}, "external_id")
	if err != nil {
		return fmt.Errorf("build upsert tournament query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s id=%s: %w", table, item.ExternalID, err)
	}
	return nil
}
