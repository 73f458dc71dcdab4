package postgres

import (
	"database/sql"
	"time"
)

type teamTableModel struct {
	ExternalID string         `db:"external_id"`
	Name       string         `db:"name"`
	Acronym    sql.NullString `db:"acronym"`
	ImageURL   sql.NullString `db:"image_url"`
	Location   sql.NullString `db:"location"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

type teamUpsertModel struct {
	ExternalID string    `db:"external_id"`
	Name       string    `db:"name"`
	Acronym    *string   `db:"acronym"`
	ImageURL   *string   `db:"image_url"`
	Location   *string   `db:"location"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type tournamentTableModel struct {
	ExternalID string         `db:"external_id"`
	Name       string         `db:"name"`
	Tier       sql.NullString `db:"tier"`
	Videogame  sql.NullString `db:"videogame"`
	StartsAt   sql.NullTime   `db:"starts_at"`
	EndsAt     sql.NullTime   `db:"ends_at"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

type tournamentUpsertModel struct {
	ExternalID string     `db:"external_id"`
	Name       string     `db:"name"`
	Tier       *string    `db:"tier"`
	Videogame  *string    `db:"videogame"`
	StartsAt   *time.Time `db:"starts_at"`
	EndsAt     *time.Time `db:"ends_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}
