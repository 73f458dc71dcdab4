package postgres

import (
	"database/sql"
	"time"
)

type roundTableModel struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Status        string    `db:"status"`
	StartsAt      time.Time `db:"starts_at"`
	LocksAt       time.Time `db:"locks_at"`
	EndsAt        time.Time `db:"ends_at"`
	EntryFeeCents int64     `db:"entry_fee_cents"`
	Currency      string    `db:"currency"`
	MaxPicks      int       `db:"max_picks"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type pickTableModel struct {
	ID             string    `db:"id"`
	RoundID        string    `db:"round_id"`
	UserID         string    `db:"user_id"`
	Provider       string    `db:"provider"`
	TeamExternalID string    `db:"team_external_id"`
	TeamName       string    `db:"team_name"`
	TeamType       string    `db:"team_type"`
	CreatedAt      time.Time `db:"created_at"`
}

type starTeamTableModel struct {
	RoundID        string    `db:"round_id"`
	UserID         string    `db:"user_id"`
	Provider       string    `db:"provider"`
	TeamExternalID string    `db:"team_external_id"`
	CreatedAt      time.Time `db:"created_at"`
}

type entryTableModel struct {
	ID                string         `db:"id"`
	RoundID           string         `db:"round_id"`
	UserID            string         `db:"user_id"`
	Status            string         `db:"status"`
	PaymentMethod     sql.NullString `db:"payment_method"`
	PaymentRef        sql.NullString `db:"payment_ref"`
	AmountPaidCents   int64          `db:"amount_paid_cents"`
	PromoAppliedCents int64          `db:"promo_applied_cents"`
	TotalPoints       int            `db:"total_points"`
	PaidAt            sql.NullTime   `db:"paid_at"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

type entryUpsertModel struct {
	ID                string     `db:"id"`
	RoundID           string     `db:"round_id"`
	UserID            string     `db:"user_id"`
	Status            string     `db:"status"`
	PaymentMethod     *string    `db:"payment_method"`
	PaymentRef        *string    `db:"payment_ref"`
	AmountPaidCents   int64      `db:"amount_paid_cents"`
	PromoAppliedCents int64      `db:"promo_applied_cents"`
	TotalPoints       int        `db:"total_points"`
	PaidAt            *time.Time `db:"paid_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

type reservationTableModel struct {
	ID                string    `db:"id"`
	RoundID           string    `db:"round_id"`
	UserID            string    `db:"user_id"`
	PaymentMethod     string    `db:"payment_method"`
	PaymentRef        string    `db:"payment_ref"`
	AmountDueCents    int64     `db:"amount_due_cents"`
	PromoAppliedCents int64     `db:"promo_applied_cents"`
	ExpiresAt         time.Time `db:"expires_at"`
	CreatedAt         time.Time `db:"created_at"`
}

type subscriberTableModel struct {
	UserID string         `db:"user_id"`
	Email  string         `db:"email"`
	Name   sql.NullString `db:"name"`
}
