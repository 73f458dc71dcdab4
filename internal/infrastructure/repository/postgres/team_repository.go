package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/team"
	qb "github.com/riskibarqy/esports-fantasy/internal/platform/querybuilder"
)

var teamTables = map[match.Provider]string{
	match.ProviderPandaScore: "pandascore_teams",
	match.ProviderFaceit:     "faceit_teams",
}

type TeamRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ team.Repository = (*TeamRepository)(nil)

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db, now: time.Now}
}

func teamTable(provider match.Provider) (string, error) {
	table, ok := teamTables[provider]
	if !ok {
		return "", fmt.Errorf("no team catalog for provider %q", provider)
	}
	return table, nil
}

func (r *TeamRepository) ListByProvider(ctx context.Context, provider match.Provider) ([]team.Team, error) {
	table, err := teamTable(provider)
	if err != nil {
		return nil, err
	}

	query, args, err := qb.Select("*").From(table).OrderBy("name", "external_id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain(provider))
	}
	return out, nil
}

func (r *TeamRepository) GetByExternalID(ctx context.Context, provider match.Provider, externalID string) (team.Team, bool, error) {
	table, err := teamTable(provider)
	if err != nil {
		return team.Team{}, false, err
	}

	query, args, err := qb.Select("*").From(table).
		Where(qb.Eq("external_id", externalID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("select %s id=%s: %w", table, externalID, err)
	}
	return row.toDomain(provider), true, nil
}

func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) error {
	if err := item.Validate(); err != nil {
		return err
	}
	table, err := teamTable(item.Provider)
	if err != nil {
		return err
	}

	query, args, err := qb.UpsertModel(table, teamUpsertModel{
		ExternalID: item.ExternalID,
		Name:       item.Name,
		Acronym:    optionalString(item.Acronym),
		ImageURL:   optionalString(item.ImageURL),
		Location:   optionalString(item.Location),
		UpdatedAt:  utcOrNow(item.UpdatedAt, r.now()),
	}, "external_id")
	if err != nil {
		return fmt.Errorf("build upsert team query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s id=%s: %w", table, item.ExternalID, err)
	}
	return nil
}

func (row teamTableModel) toDomain(provider match.Provider) team.Team {
	return team.Team{
		Provider:   provider,
		ExternalID: row.ExternalID,
		Name:       row.Name,
		Acronym:    nullStringValue(row.Acronym),
		ImageURL:   nullStringValue(row.ImageURL),
		Location:   nullStringValue(row.Location),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}
