package fantasy

import (
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
)

type RoundStatus string

const (
	RoundDraft     RoundStatus = "draft"
	RoundOpen      RoundStatus = "open"
	RoundLocked    RoundStatus = "locked"
	RoundCompleted RoundStatus = "completed"
)

// TeamType tells whether a picked team comes from the pro or the amateur feed.
type TeamType string

const (
	TeamPro     TeamType = "pro"
	TeamAmateur TeamType = "amateur"
)

func (t TeamType) Valid() bool {
	return t == TeamPro || t == TeamAmateur
}

type Round struct {
	ID            string
	Name          string
	Status        RoundStatus
	StartsAt      time.Time
	LocksAt       time.Time
	EndsAt        time.Time
	EntryFeeCents int64
	Currency      string
	MaxPicks      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AcceptsPicks reports whether lineups can still change at now.
func (r Round) AcceptsPicks(now time.Time) bool {
	return r.Status == RoundOpen && now.Before(r.LocksAt)
}

// Covers reports whether a match scheduled at t counts towards the round.
func (r Round) Covers(t time.Time) bool {
	return !t.Before(r.StartsAt) && !t.After(r.EndsAt)
}

// Pick is a user's chosen real-world team for a round.
type Pick struct {
	ID             string
	RoundID        string
	UserID         string
	Provider       match.Provider
	TeamExternalID string
	TeamName       string
	TeamType       TeamType
	CreatedAt      time.Time
}

// StarTeam designates the pick that scores double for a user in a round.
type StarTeam struct {
	RoundID        string
	UserID         string
	Provider       match.Provider
	TeamExternalID string
	CreatedAt      time.Time
}

func (s StarTeam) Matches(p Pick) bool {
	return s.TeamExternalID != "" && s.TeamExternalID == p.TeamExternalID && s.Provider == p.Provider
}

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryPaid      EntryStatus = "paid"
	EntryCancelled EntryStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentStripe   PaymentMethod = "stripe"
	PaymentCoinbase PaymentMethod = "coinbase"
	PaymentPromo    PaymentMethod = "promo"
)

// Entry is a user's paid seat in a round and carries their scored total.
type Entry struct {
	ID                string
	RoundID           string
	UserID            string
	Status            EntryStatus
	PaymentMethod     PaymentMethod
	PaymentRef        string
	AmountPaidCents   int64
	PromoAppliedCents int64
	TotalPoints       int
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Reservation holds a seat while an external checkout is pending.
type Reservation struct {
	ID                string
	RoundID           string
	UserID            string
	PaymentMethod     PaymentMethod
	PaymentRef        string
	AmountDueCents    int64
	PromoAppliedCents int64
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

type Subscriber struct {
	UserID string
	Email  string
	Name   string
}
