package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
)

func paidEntry(id, ref string) fantasy.Entry {
	return fantasy.Entry{
		ID:            id,
		RoundID:       "r1",
		UserID:        "u1",
		Status:        fantasy.EntryPaid,
		PaymentMethod: fantasy.PaymentStripe,
		PaymentRef:    ref,
	}
}

func TestEntryRepository_SettleEntryIsAllOrNothing(t *testing.T) {
	repo := NewEntryRepository(map[string]int64{"u1": 300})
	ctx := context.Background()
	require.NoError(t, repo.UpsertReservation(ctx, fantasy.Reservation{ID: "res-1", RoundID: "r1", UserID: "u1", PaymentMethod: fantasy.PaymentStripe, PaymentRef: "pi_1"}))

	broken := paidEntry("", "pi_1")
	_, err := repo.SettleEntry(ctx, fantasy.Settlement{Entry: broken, PromoCents: 200, ReservationID: "res-1"})
	require.Error(t, err)

	balance, _ := repo.GetPromoBalance(ctx, "u1")
	assert.Equal(t, int64(300), balance)
	_, ok, _ := repo.GetReservationByPaymentRef(ctx, fantasy.PaymentStripe, "pi_1")
	assert.True(t, ok, "reservation survives a failed settlement")

	_, err = repo.SettleEntry(ctx, fantasy.Settlement{Entry: paidEntry("res-1", "pi_1"), PromoCents: 400, ReservationID: "res-1"})
	require.ErrorIs(t, err, fantasy.ErrInsufficientPromo)
	balance, _ = repo.GetPromoBalance(ctx, "u1")
	assert.Equal(t, int64(300), balance)

	got, err := repo.SettleEntry(ctx, fantasy.Settlement{Entry: paidEntry("res-1", "pi_1"), PromoCents: 200, ReservationID: "res-1"})
	require.NoError(t, err)
	assert.True(t, got.Settled)
	assert.Equal(t, int64(200), got.PromoDebitedCents)

	entry, ok, _ := repo.GetEntry(ctx, "r1", "u1")
	require.True(t, ok)
	assert.Equal(t, int64(200), entry.PromoAppliedCents)
	_, ok, _ = repo.GetReservationByPaymentRef(ctx, fantasy.PaymentStripe, "pi_1")
	assert.False(t, ok)
}

func TestEntryRepository_SettleEntryRedeliveryAndShortfall(t *testing.T) {
	repo := NewEntryRepository(map[string]int64{"u1": 50})
	ctx := context.Background()

	settlement := fantasy.Settlement{Entry: paidEntry("res-1", "pi_1"), PromoCents: 200, ReservationID: "res-1", AllowShortfall: true}
	got, err := repo.SettleEntry(ctx, settlement)
	require.NoError(t, err)
	assert.True(t, got.Settled)
	assert.Equal(t, int64(50), got.PromoDebitedCents)
	assert.Equal(t, int64(150), got.ShortfallCents(200))

	again, err := repo.SettleEntry(ctx, settlement)
	require.NoError(t, err)
	assert.False(t, again.Settled)
	assert.Zero(t, again.PromoDebitedCents)

	_, err = repo.SettleEntry(ctx, fantasy.Settlement{Entry: paidEntry("res-2", "pi_2"), ReservationID: "res-2", AllowShortfall: true})
	require.ErrorIs(t, err, fantasy.ErrAlreadyEntered)

	balance, _ := repo.GetPromoBalance(ctx, "u1")
	assert.Equal(t, int64(0), balance)
	entry, _, _ := repo.GetEntry(ctx, "r1", "u1")
	assert.Equal(t, "pi_1", entry.PaymentRef)
}
