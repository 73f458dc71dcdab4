package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
)

type EntryRepository struct {
	mu           sync.RWMutex
	entries      map[string]fantasy.Entry
	reservations map[string]fantasy.Reservation
	promo        map[string]int64
}

func NewEntryRepository(promoBalances map[string]int64) *EntryRepository {
	promo := make(map[string]int64, len(promoBalances))
	for userID, cents := range promoBalances {
		promo[userID] = cents
	}
	return &EntryRepository{
		entries:      make(map[string]fantasy.Entry),
		reservations: make(map[string]fantasy.Reservation),
		promo:        promo,
	}
}

func (r *EntryRepository) GetEntry(_ context.Context, roundID, userID string) (fantasy.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.entries[lineupKey(roundID, userID)]
	return item, ok, nil
}

func (r *EntryRepository) ListEntries(_ context.Context, roundID string) ([]fantasy.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fantasy.Entry, 0)
	for _, item := range r.entries {
		if item.RoundID == roundID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *EntryRepository) ListEntriesPaidBetween(_ context.Context, from, to time.Time) ([]fantasy.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fantasy.Entry, 0)
	for _, item := range r.entries {
		if item.PaidAt == nil || item.PaidAt.Before(from) || !item.PaidAt.Before(to) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *EntryRepository) UpsertEntry(_ context.Context, entry fantasy.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[lineupKey(entry.RoundID, entry.UserID)] = entry
	return nil
}

func (r *EntryRepository) UpdateEntryPoints(_ context.Context, roundID, userID string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lineupKey(roundID, userID)
	item, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("entry round=%s user=%s not found", roundID, userID)
	}
	item.TotalPoints = points
	r.entries[key] = item
	return nil
}

func (r *EntryRepository) UpsertReservation(_ context.Context, reservation fantasy.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reservations[reservation.ID] = reservation
	return nil
}

func (r *EntryRepository) GetReservationByPaymentRef(_ context.Context, method fantasy.PaymentMethod, ref string) (fantasy.Reservation, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.reservations {
		if item.PaymentMethod == method && item.PaymentRef == ref {
			return item, true, nil
		}
	}
	return fantasy.Reservation{}, false, nil
}

func (r *EntryRepository) DeleteReservation(_ context.Context, reservationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.reservations, reservationID)
	return nil
}

func (r *EntryRepository) GetPromoBalance(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.promo[userID], nil
}

func (r *EntryRepository) SettleEntry(_ context.Context, settlement fantasy.Settlement) (fantasy.SettlementResult, error) {
	entry := settlement.Entry
	if entry.ID == "" || entry.RoundID == "" || entry.UserID == "" {
		return fantasy.SettlementResult{}, fmt.Errorf("settle entry round=%s user=%s: entry identity is incomplete", entry.RoundID, entry.UserID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := lineupKey(entry.RoundID, entry.UserID)
	if existing, ok := r.entries[key]; ok {
		if existing.Status == fantasy.EntryPaid {
			if existing.PaymentRef != entry.PaymentRef {
				return fantasy.SettlementResult{}, fmt.Errorf("%w: round=%s user=%s", fantasy.ErrAlreadyEntered, entry.RoundID, entry.UserID)
			}
			delete(r.reservations, settlement.ReservationID)
			return fantasy.SettlementResult{}, nil
		}
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	}

	debit := max(settlement.PromoCents, 0)
	if balance := r.promo[entry.UserID]; balance < debit {
		if !settlement.AllowShortfall {
			return fantasy.SettlementResult{}, fmt.Errorf("%w: user=%s", fantasy.ErrInsufficientPromo, entry.UserID)
		}
		debit = max(balance, 0)
	}

	r.promo[entry.UserID] -= debit
	entry.PromoAppliedCents = debit
	r.entries[key] = entry
	delete(r.reservations, settlement.ReservationID)
	return fantasy.SettlementResult{Settled: true, PromoDebitedCents: debit}, nil
}

type SubscriberRepository struct {
	items []fantasy.Subscriber
}

func NewSubscriberRepository(items []fantasy.Subscriber) *SubscriberRepository {
	return &SubscriberRepository{items: append([]fantasy.Subscriber(nil), items...)}
}

func (r *SubscriberRepository) ListRoundSubscribers(_ context.Context) ([]fantasy.Subscriber, error) {
	return append([]fantasy.Subscriber(nil), r.items...), nil
}
