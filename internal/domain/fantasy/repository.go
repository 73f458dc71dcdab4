package fantasy

import (
	"context"
	"time"
)

// Repository covers rounds and the picks users submit for them.
type Repository interface {
	GetRound(ctx context.Context, roundID string) (Round, bool, error)
	ListRounds(ctx context.Context, statuses ...RoundStatus) ([]Round, error)
	ListPicks(ctx context.Context, roundID, userID string) ([]Pick, error)
	ListRoundPicks(ctx context.Context, roundID string) ([]Pick, error)
	GetStarTeam(ctx context.Context, roundID, userID string) (StarTeam, bool, error)
	ListRoundStarTeams(ctx context.Context, roundID string) ([]StarTeam, error)
	ReplacePicks(ctx context.Context, roundID, userID string, picks []Pick, star *StarTeam) error
}

// EntryRepository covers paid entries, pending reservations and promo credit.
type EntryRepository interface {
	GetEntry(ctx context.Context, roundID, userID string) (Entry, bool, error)
	ListEntries(ctx context.Context, roundID string) ([]Entry, error)
	ListEntriesPaidBetween(ctx context.Context, from, to time.Time) ([]Entry, error)
	UpsertEntry(ctx context.Context, entry Entry) error
	UpdateEntryPoints(ctx context.Context, roundID, userID string, points int) error

	UpsertReservation(ctx context.Context, reservation Reservation) error
	GetReservationByPaymentRef(ctx context.Context, method PaymentMethod, ref string) (Reservation, bool, error)
	DeleteReservation(ctx context.Context, reservationID string) error

	GetPromoBalance(ctx context.Context, userID string) (int64, error)
	SettleEntry(ctx context.Context, settlement Settlement) (SettlementResult, error)
}

// Settlement marks an entry paid in one atomic step: the promo debit, the
// entry write and the reservation removal either all happen or none do.
type Settlement struct {
	Entry         Entry
	PromoCents    int64
	ReservationID string
	// AllowShortfall debits whatever promo is left instead of failing.
	AllowShortfall bool
}

type SettlementResult struct {
	// Settled is false when the entry was already paid with the same
	// reference. A paid entry with a different reference is ErrAlreadyEntered.
	Settled           bool
	PromoDebitedCents int64
}

func (r SettlementResult) ShortfallCents(requested int64) int64 {
	return max(requested-r.PromoDebitedCents, 0)
}

type SubscriberRepository interface {
	ListRoundSubscribers(ctx context.Context) ([]Subscriber, error)
}
