package postgres

import (
	"database/sql"
	"time"
)

type matchTableModel struct {
	ExternalID     string         `db:"external_id"`
	TournamentID   sql.NullString `db:"tournament_id"`
	TournamentName sql.NullString `db:"tournament_name"`
	TeamAID        sql.NullString `db:"team_a_id"`
	TeamAName      sql.NullString `db:"team_a_name"`
	TeamBID        sql.NullString `db:"team_b_id"`
	TeamBName      sql.NullString `db:"team_b_name"`
	BestOf         int            `db:"best_of"`
	RawStatus      string         `db:"raw_status"`
	Phase          string         `db:"phase"`
	ScheduledAt    time.Time      `db:"scheduled_at"`
	StartedAt      sql.NullTime   `db:"started_at"`
	FinishedAt     sql.NullTime   `db:"finished_at"`
	LastUpdateAt   sql.NullTime   `db:"last_update_at"`
	Result         []byte         `db:"result"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type matchUpsertModel struct {
	ExternalID     string     `db:"external_id"`
	TournamentID   *string    `db:"tournament_id"`
	TournamentName *string    `db:"tournament_name"`
	TeamAID        *string    `db:"team_a_id"`
	TeamAName      *string    `db:"team_a_name"`
	TeamBID        *string    `db:"team_b_id"`
	TeamBName      *string    `db:"team_b_name"`
	BestOf         int        `db:"best_of"`
	RawStatus      string     `db:"raw_status"`
	Phase          string     `db:"phase"`
	ScheduledAt    time.Time  `db:"scheduled_at"`
	StartedAt      *time.Time `db:"started_at"`
	FinishedAt     *time.Time `db:"finished_at"`
	LastUpdateAt   *time.Time `db:"last_update_at"`
	Result         string     `db:"result"`
	UpdatedAt      time.Time  `db:"updated_at"`
}
