package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	qb "github.com/riskibarqy/esports-fantasy/internal/platform/querybuilder"
)

// MatchRepository keeps one match table per provider: faceit_matches,
// pandascore_matches and sportdevs_matches.
type MatchRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ match.Repository = (*MatchRepository)(nil)

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db, now: time.Now}
}

func matchTable(provider match.Provider) (string, error) {
	if !provider.Valid() {
		return "", fmt.Errorf("unknown match provider %q", provider)
	}
	return string(provider) + "_matches", nil
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, provider match.Provider, externalID string) (match.Match, bool, error) {
	table, err := matchTable(provider)
	if err != nil {
		return match.Match{}, false, err
	}

	query, args, err := qb.Select("*").From(table).
		Where(qb.Eq("external_id", externalID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select %s id=%s: %w", table, externalID, err)
	}

	item, err := row.toDomain(provider)
	if err != nil {
		return match.Match{}, false, err
	}
	return item, true, nil
}

func (r *MatchRepository) ListByPhases(ctx context.Context, provider match.Provider, phases ...match.Phase) ([]match.Match, error) {
	table, err := matchTable(provider)
	if err != nil {
		return nil, err
	}

	builder := qb.Select("*").From(table).OrderBy("scheduled_at", "external_id")
	if len(phases) > 0 {
		values := make([]string, 0, len(phases))
		for _, p := range phases {
			values = append(values, string(p))
		}
		builder = builder.Where(qb.AnyOf("phase", values))
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches by phase query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s by phase: %w", table, err)
	}
	return rowsToMatches(provider, rows)
}

// ListFinishedBetween returns finished matches of every provider whose
// scheduled start falls in [from, to].
func (r *MatchRepository) ListFinishedBetween(ctx context.Context, from, to time.Time) ([]match.Match, error) {
	out := make([]match.Match, 0)
	for _, provider := range match.Providers() {
		table, _ := matchTable(provider)
		query, args, err := qb.Select("*").From(table).
			Where(
				qb.EqLiteral("phase", string(match.PhaseFinished)),
				qb.Gte("scheduled_at", from.UTC()),
				qb.Lte("scheduled_at", to.UTC()),
			).
			OrderBy("scheduled_at", "external_id").
			ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build list finished matches query: %w", err)
		}

		var rows []matchTableModel
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("select finished %s: %w", table, err)
		}
		items, err := rowsToMatches(provider, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *MatchRepository) Upsert(ctx context.Context, item match.Match) error {
	table, err := matchTable(item.Provider)
	if err != nil {
		return err
	}
	if item.ExternalID == "" {
		return fmt.Errorf("match external id is required")
	}

	result, err := sonic.Marshal(item.Result)
	if err != nil {
		return fmt.Errorf("marshal match result: %w", err)
	}

	model := matchUpsertModel{
		ExternalID:     item.ExternalID,
		TournamentID:   optionalString(item.TournamentID),
		TournamentName: optionalString(item.TournamentName),
		TeamAID:        optionalString(item.TeamAID),
		TeamAName:      optionalString(item.TeamAName),
		TeamBID:        optionalString(item.TeamBID),
		TeamBName:      optionalString(item.TeamBName),
		BestOf:         item.BestOf,
		RawStatus:      item.RawStatus,
		Phase:          string(item.Phase),
		ScheduledAt:    item.ScheduledAt.UTC(),
		StartedAt:      nullableTime(item.StartedAt),
		FinishedAt:     nullableTime(item.FinishedAt),
		LastUpdateAt:   nullableTime(item.LastUpdateAt),
		Result:         string(result),
		UpdatedAt:      utcOrNow(item.UpdatedAt, r.now()),
	}

	query, args, err := qb.UpsertModel(table, model, "external_id")
	if err != nil {
		return fmt.Errorf("build upsert match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s id=%s: %w", table, item.ExternalID, err)
	}
	return nil
}

func rowsToMatches(provider match.Provider, rows []matchTableModel) ([]match.Match, error) {
	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain(provider)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (row matchTableModel) toDomain(provider match.Provider) (match.Match, error) {
	var result match.Result
	if len(row.Result) > 0 {
		if err := sonic.Unmarshal(row.Result, &result); err != nil {
			return match.Match{}, fmt.Errorf("decode result of %s match %s: %w", provider, row.ExternalID, err)
		}
	}

	return match.Match{
		Provider:       provider,
		ExternalID:     row.ExternalID,
		TournamentID:   nullStringValue(row.TournamentID),
		TournamentName: nullStringValue(row.TournamentName),
		TeamAID:        nullStringValue(row.TeamAID),
		TeamAName:      nullStringValue(row.TeamAName),
		TeamBID:        nullStringValue(row.TeamBID),
		TeamBName:      nullStringValue(row.TeamBName),
		BestOf:         row.BestOf,
		RawStatus:      row.RawStatus,
		Phase:          match.Phase(row.Phase),
		ScheduledAt:    row.ScheduledAt.UTC(),
		StartedAt:      nullTimeToPtr(row.StartedAt),
		FinishedAt:     nullTimeToPtr(row.FinishedAt),
		LastUpdateAt:   nullTimeToPtr(row.LastUpdateAt),
		Result:         result,
		UpdatedAt:      row.UpdatedAt.UTC(),
	}, nil
}
