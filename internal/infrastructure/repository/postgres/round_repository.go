package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	qb "github.com/riskibarqy/esports-fantasy/internal/platform/querybuilder"
)

type RoundRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ fantasy.Repository = (*RoundRepository)(nil)

func NewRoundRepository(db *sqlx.DB) *RoundRepository {
	return &RoundRepository{db: db, now: time.Now}
}

func (r *RoundRepository) GetRound(ctx context.Context, roundID string) (fantasy.Round, bool, error) {
	query, args, err := qb.Select("*").From("fantasy_rounds").
		Where(qb.Eq("id", roundID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return fantasy.Round{}, false, fmt.Errorf("build select round query: %w", err)
	}

	var row roundTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fantasy.Round{}, false, nil
		}
		return fantasy.Round{}, false, fmt.Errorf("select round id=%s: %w", roundID, err)
	}
	return row.toDomain(), true, nil
}

func (r *RoundRepository) ListRounds(ctx context.Context, statuses ...fantasy.RoundStatus) ([]fantasy.Round, error) {
	builder := qb.Select("*").From("fantasy_rounds").OrderBy("starts_at", "id")
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		builder = builder.Where(qb.AnyOf("status", values))
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list rounds query: %w", err)
	}

	var rows []roundTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select rounds: %w", err)
	}

	out := make([]fantasy.Round, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RoundRepository) ListPicks(ctx context.Context, roundID, userID string) ([]fantasy.Pick, error) {
	return r.selectPicks(ctx, qb.Eq("round_id", roundID), qb.Eq("user_id", userID))
}

func (r *RoundRepository) ListRoundPicks(ctx context.Context, roundID string) ([]fantasy.Pick, error) {
	return r.selectPicks(ctx, qb.Eq("round_id", roundID))
}

func (r *RoundRepository) selectPicks(ctx context.Context, conditions ...qb.Condition) ([]fantasy.Pick, error) {
	query, args, err := qb.Select("*").From("fantasy_round_picks").
		Where(conditions...).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select picks query: %w", err)
	}

	var rows []pickTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select picks: %w", err)
	}

	out := make([]fantasy.Pick, 0, len(rows))
	for _, row := range rows {
		out = append(out, fantasy.Pick{
			ID:             row.ID,
			RoundID:        row.RoundID,
			UserID:         row.UserID,
			Provider:       match.Provider(row.Provider),
			TeamExternalID: row.TeamExternalID,
			TeamName:       row.TeamName,
			TeamType:       fantasy.TeamType(row.TeamType),
			CreatedAt:      row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *RoundRepository) GetStarTeam(ctx context.Context, roundID, userID string) (fantasy.StarTeam, bool, error) {
	query, args, err := qb.Select("*").From("fantasy_round_star_teams").
		Where(qb.Eq("round_id", roundID), qb.Eq("user_id", userID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return fantasy.StarTeam{}, false, fmt.Errorf("build select star team query: %w", err)
	}

	var row starTeamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fantasy.StarTeam{}, false, nil
		}
		return fantasy.StarTeam{}, false, fmt.Errorf("select star team round=%s user=%s: %w", roundID, userID, err)
	}
	return row.toDomain(), true, nil
}

func (r *RoundRepository) ListRoundStarTeams(ctx context.Context, roundID string) ([]fantasy.StarTeam, error) {
	query, args, err := qb.Select("*").From("fantasy_round_star_teams").
		Where(qb.Eq("round_id", roundID)).
		OrderBy("user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list star teams query: %w", err)
	}

	var rows []starTeamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select star teams round=%s: %w", roundID, err)
	}

	out := make([]fantasy.StarTeam, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ReplacePicks swaps a user's whole lineup for a round in one transaction.
func (r *RoundRepository) ReplacePicks(ctx context.Context, roundID, userID string, picks []fantasy.Pick, star *fantasy.StarTeam) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace picks tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"fantasy_round_picks", "fantasy_round_star_teams"} {
		query, args, buildErr := qb.DeleteFrom(table).
			Where(qb.Eq("round_id", roundID), qb.Eq("user_id", userID)).
			ToSQL()
		if buildErr != nil {
			return fmt.Errorf("build delete %s query: %w", table, buildErr)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete %s round=%s user=%s: %w", table, roundID, userID, err)
		}
	}

	now := r.now().UTC()
	for _, pick := range picks {
		query, args, buildErr := qb.InsertModel("fantasy_round_picks", pickTableModel{
			ID:             pick.ID,
			RoundID:        roundID,
			UserID:         userID,
			Provider:       string(pick.Provider),
			TeamExternalID: pick.TeamExternalID,
			TeamName:       pick.TeamName,
			TeamType:       string(pick.TeamType),
			CreatedAt:      utcOrNow(pick.CreatedAt, now),
		}, "")
		if buildErr != nil {
			return fmt.Errorf("build insert pick query: %w", buildErr)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert pick round=%s user=%s team=%s: %w", roundID, userID, pick.TeamExternalID, err)
		}
	}

	if star != nil {
		query, args, buildErr := qb.InsertModel("fantasy_round_star_teams", starTeamTableModel{
			RoundID:        roundID,
			UserID:         userID,
			Provider:       string(star.Provider),
			TeamExternalID: star.TeamExternalID,
			CreatedAt:      utcOrNow(star.CreatedAt, now),
		}, "")
		if buildErr != nil {
			return fmt.Errorf("build insert star team query: %w", buildErr)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert star team round=%s user=%s: %w", roundID, userID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace picks tx: %w", err)
	}
	return nil
}

func (row roundTableModel) toDomain() fantasy.Round {
	return fantasy.Round{
		ID:            row.ID,
		Name:          row.Name,
		Status:        fantasy.RoundStatus(row.Status),
		StartsAt:      row.StartsAt.UTC(),
		LocksAt:       row.LocksAt.UTC(),
		EndsAt:        row.EndsAt.UTC(),
		EntryFeeCents: row.EntryFeeCents,
		Currency:      row.Currency,
		MaxPicks:      row.MaxPicks,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

func (row starTeamTableModel) toDomain() fantasy.StarTeam {
	return fantasy.StarTeam{
		RoundID:        row.RoundID,
		UserID:         row.UserID,
		Provider:       match.Provider(row.Provider),
		TeamExternalID: row.TeamExternalID,
		CreatedAt:      row.CreatedAt.UTC(),
	}
}
