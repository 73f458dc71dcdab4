package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	qb "github.com/riskibarqy/esports-fantasy/internal/platform/querybuilder"
)

const entryConflictSuffix = `ON CONFLICT (round_id, user_id) DO UPDATE SET
    status = EXCLUDED.status,
    payment_method = EXCLUDED.payment_method,
    payment_ref = EXCLUDED.payment_ref,
    amount_paid_cents = EXCLUDED.amount_paid_cents,
    promo_applied_cents = EXCLUDED.promo_applied_cents,
    total_points = EXCLUDED.total_points,
    paid_at = COALESCE(round_entries.paid_at, EXCLUDED.paid_at),
    updated_at = EXCLUDED.updated_at`

type EntryRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ fantasy.EntryRepository = (*EntryRepository)(nil)

func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db, now: time.Now}
}

func (r *EntryRepository) GetEntry(ctx context.Context, roundID, userID string) (fantasy.Entry, bool, error) {
	return getEntry(ctx, r.db, roundID, userID)
}

func getEntry(ctx context.Context, q sqlx.QueryerContext, roundID, userID string) (fantasy.Entry, bool, error) {
	query, args, err := qb.Select("*").From("round_entries").
		Where(qb.Eq("round_id", roundID), qb.Eq("user_id", userID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return fantasy.Entry{}, false, fmt.Errorf("build select entry query: %w", err)
	}

	var row entryTableModel
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fantasy.Entry{}, false, nil
		}
		return fantasy.Entry{}, false, fmt.Errorf("select entry round=%s user=%s: %w", roundID, userID, err)
	}
	return row.toDomain(), true, nil
}

func (r *EntryRepository) ListEntries(ctx context.Context, roundID string) ([]fantasy.Entry, error) {
	return r.selectEntries(ctx, []qb.Condition{qb.Eq("round_id", roundID)}, "user_id")
}

// ListEntriesPaidBetween returns entries paid in [from, to).
func (r *EntryRepository) ListEntriesPaidBetween(ctx context.Context, from, to time.Time) ([]fantasy.Entry, error) {
	return r.selectEntries(ctx, []qb.Condition{
		qb.Gte("paid_at", from.UTC()),
		qb.Lt("paid_at", to.UTC()),
	}, "paid_at")
}

func (r *EntryRepository) selectEntries(ctx context.Context, conditions []qb.Condition, orderBy string) ([]fantasy.Entry, error) {
	query, args, err := qb.Select("*").From("round_entries").
		Where(conditions...).
		OrderBy(orderBy, "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select entries query: %w", err)
	}

	var rows []entryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}

	out := make([]fantasy.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *EntryRepository) UpsertEntry(ctx context.Context, entry fantasy.Entry) error {
	return upsertEntry(ctx, r.db, entry, r.now().UTC())
}

func upsertEntry(ctx context.Context, exec sqlx.ExecerContext, entry fantasy.Entry, now time.Time) error {
	query, args, err := qb.InsertModel("round_entries", entryUpsertModel{
		ID:                entry.ID,
		RoundID:           entry.RoundID,
		UserID:            entry.UserID,
		Status:            string(entry.Status),
		PaymentMethod:     optionalString(string(entry.PaymentMethod)),
		PaymentRef:        optionalString(entry.PaymentRef),
		AmountPaidCents:   entry.AmountPaidCents,
		PromoAppliedCents: entry.PromoAppliedCents,
		TotalPoints:       entry.TotalPoints,
		PaidAt:            nullableTime(entry.PaidAt),
		CreatedAt:         utcOrNow(entry.CreatedAt, now),
		UpdatedAt:         utcOrNow(entry.UpdatedAt, now),
	}, entryConflictSuffix)
	if err != nil {
		return fmt.Errorf("build upsert entry query: %w", err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert entry round=%s user=%s: %w", entry.RoundID, entry.UserID, err)
	}
	return nil
}

func (r *EntryRepository) UpdateEntryPoints(ctx context.Context, roundID, userID string, points int) error {
	query, args, err := qb.Update("round_entries").
		Set("total_points", points).
		Set("updated_at", r.now().UTC()).
		Where(qb.Eq("round_id", roundID), qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update entry points query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update entry points round=%s user=%s: %w", roundID, userID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("entry round=%s user=%s not found", roundID, userID)
	}
	return nil
}

func (r *EntryRepository) UpsertReservation(ctx context.Context, reservation fantasy.Reservation) error {
	query, args, err := qb.UpsertModel("round_reservations", reservationTableModel{
		ID:                reservation.ID,
		RoundID:           reservation.RoundID,
		UserID:            reservation.UserID,
		PaymentMethod:     string(reservation.PaymentMethod),
		PaymentRef:        reservation.PaymentRef,
		AmountDueCents:    reservation.AmountDueCents,
		PromoAppliedCents: reservation.PromoAppliedCents,
		ExpiresAt:         reservation.ExpiresAt.UTC(),
		CreatedAt:         utcOrNow(reservation.CreatedAt, r.now()),
	}, "id")
	if err != nil {
		return fmt.Errorf("build upsert reservation query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert reservation id=%s: %w", reservation.ID, err)
	}
	return nil
}

func (r *EntryRepository) GetReservationByPaymentRef(ctx context.Context, method fantasy.PaymentMethod, ref string) (fantasy.Reservation, bool, error) {
	query, args, err := qb.Select("*").From("round_reservations").
		Where(qb.Eq("payment_method", string(method)), qb.Eq("payment_ref", ref)).
		Limit(1).
		ToSQL()
	if err != nil {
		return fantasy.Reservation{}, false, fmt.Errorf("build select reservation query: %w", err)
	}

	var row reservationTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fantasy.Reservation{}, false, nil
		}
		return fantasy.Reservation{}, false, fmt.Errorf("select reservation %s ref=%s: %w", method, ref, err)
	}

	return fantasy.Reservation{
		ID:                row.ID,
		RoundID:           row.RoundID,
		UserID:            row.UserID,
		PaymentMethod:     fantasy.PaymentMethod(row.PaymentMethod),
		PaymentRef:        row.PaymentRef,
		AmountDueCents:    row.AmountDueCents,
		PromoAppliedCents: row.PromoAppliedCents,
		ExpiresAt:         row.ExpiresAt.UTC(),
		CreatedAt:         row.CreatedAt.UTC(),
	}, true, nil
}

func (r *EntryRepository) DeleteReservation(ctx context.Context, reservationID string) error {
	return deleteReservation(ctx, r.db, reservationID)
}

func deleteReservation(ctx context.Context, exec sqlx.ExecerContext, reservationID string) error {
	if reservationID == "" {
		return nil
	}
	query, args, err := qb.DeleteFrom("round_reservations").Where(qb.Eq("id", reservationID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete reservation query: %w", err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete reservation id=%s: %w", reservationID, err)
	}
	return nil
}

func (r *EntryRepository) GetPromoBalance(ctx context.Context, userID string) (int64, error) {
	query, args, err := qb.Select("balance_cents").From("user_promo_balances").
		Where(qb.Eq("user_id", userID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build select promo balance query: %w", err)
	}

	var balance int64
	if err := r.db.GetContext(ctx, &balance, query, args...); err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("select promo balance user=%s: %w", userID, err)
	}
	return balance, nil
}

const settleLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

// SettleEntry runs the promo debit, entry upsert and reservation delete in
// one transaction. An advisory lock on round and user serializes concurrent
// settlements of the same entry.
func (r *EntryRepository) SettleEntry(ctx context.Context, settlement fantasy.Settlement) (result fantasy.SettlementResult, err error) {
	entry := settlement.Entry
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fantasy.SettlementResult{}, fmt.Errorf("begin settle entry tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, settleLockQuery, entry.RoundID+":"+entry.UserID); err != nil {
		return fantasy.SettlementResult{}, fmt.Errorf("lock entry round=%s user=%s: %w", entry.RoundID, entry.UserID, err)
	}

	existing, hasEntry, err := getEntry(ctx, tx, entry.RoundID, entry.UserID)
	if err != nil {
		return fantasy.SettlementResult{}, err
	}
	if hasEntry && existing.Status == fantasy.EntryPaid {
		if existing.PaymentRef != entry.PaymentRef {
			err = fmt.Errorf("%w: round=%s user=%s", fantasy.ErrAlreadyEntered, entry.RoundID, entry.UserID)
			return fantasy.SettlementResult{}, err
		}
		if err = deleteReservation(ctx, tx, settlement.ReservationID); err != nil {
			return fantasy.SettlementResult{}, err
		}
		if err = tx.Commit(); err != nil {
			return fantasy.SettlementResult{}, fmt.Errorf("commit settle entry tx: %w", err)
		}
		return fantasy.SettlementResult{}, nil
	}
	if hasEntry {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	}

	now := r.now().UTC()
	debit, err := debitPromo(ctx, tx, entry.UserID, max(settlement.PromoCents, 0), settlement.AllowShortfall, now)
	if err != nil {
		return fantasy.SettlementResult{}, err
	}
	entry.PromoAppliedCents = debit

	if err = upsertEntry(ctx, tx, entry, now); err != nil {
		return fantasy.SettlementResult{}, err
	}
	if err = deleteReservation(ctx, tx, settlement.ReservationID); err != nil {
		return fantasy.SettlementResult{}, err
	}
	if err = tx.Commit(); err != nil {
		return fantasy.SettlementResult{}, fmt.Errorf("commit settle entry tx: %w", err)
	}
	return fantasy.SettlementResult{Settled: true, PromoDebitedCents: debit}, nil
}

// debitPromo locks the balance row and subtracts up to amountCents. Without
// allowShortfall a balance below amountCents is ErrInsufficientPromo.
func debitPromo(ctx context.Context, tx *sqlx.Tx, userID string, amountCents int64, allowShortfall bool, now time.Time) (int64, error) {
	if amountCents == 0 {
		return 0, nil
	}

	query, args, err := qb.Select("balance_cents").From("user_promo_balances").
		Where(qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build lock promo balance query: %w", err)
	}
	var balance int64
	if err := tx.GetContext(ctx, &balance, query+" FOR UPDATE", args...); err != nil && !isNotFound(err) {
		return 0, fmt.Errorf("lock promo balance user=%s: %w", userID, err)
	}

	debit := amountCents
	if balance < debit {
		if !allowShortfall {
			return 0, fmt.Errorf("%w: user=%s", fantasy.ErrInsufficientPromo, userID)
		}
		debit = max(balance, 0)
	}
	if debit == 0 {
		return 0, nil
	}

	query, args, err = qb.Update("user_promo_balances").
		SetExpr("balance_cents", "balance_cents - ?", debit).
		Set("updated_at", now).
		Where(qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build debit promo balance query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("debit promo balance user=%s: %w", userID, err)
	}
	return debit, nil
}

func (row entryTableModel) toDomain() fantasy.Entry {
	return fantasy.Entry{
		ID:                row.ID,
		RoundID:           row.RoundID,
		UserID:            row.UserID,
		Status:            fantasy.EntryStatus(row.Status),
		PaymentMethod:     fantasy.PaymentMethod(nullStringValue(row.PaymentMethod)),
		PaymentRef:        nullStringValue(row.PaymentRef),
		AmountPaidCents:   row.AmountPaidCents,
		PromoAppliedCents: row.PromoAppliedCents,
		TotalPoints:       row.TotalPoints,
		PaidAt:            nullTimeToPtr(row.PaidAt),
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
}

type SubscriberRepository struct {
	db *sqlx.DB
}

var _ fantasy.SubscriberRepository = (*SubscriberRepository)(nil)

func NewSubscriberRepository(db *sqlx.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

func (r *SubscriberRepository) ListRoundSubscribers(ctx context.Context) ([]fantasy.Subscriber, error) {
	query, args, err := qb.Select("user_id", "email", "name").From("round_subscribers").
		Where(qb.IsNull("unsubscribed_at")).
		OrderBy("email").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select subscribers query: %w", err)
	}

	var rows []subscriberTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select round subscribers: %w", err)
	}

	out := make([]fantasy.Subscriber, 0, len(rows))
	for _, row := range rows {
		out = append(out, fantasy.Subscriber{
			UserID: row.UserID,
			Email:  row.Email,
			Name:   nullStringValue(row.Name),
		})
	}
	return out, nil
}
