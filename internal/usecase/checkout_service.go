package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/platform/id"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
)

type CheckoutConfig struct {
	SuccessURL     string
	CancelURL      string
	ReservationTTL time.Duration
}

type StartCheckoutInput struct {
	RoundID  string
	UserID   string
	Method   string
	UsePromo bool
}

type CheckoutResult struct {
	Status            fantasy.EntryStatus   `json:"status"`
	PaymentMethod     fantasy.PaymentMethod `json:"payment_method"`
	AmountDueCents    int64                 `json:"amount_due_cents"`
	PromoAppliedCents int64                 `json:"promo_applied_cents"`
	CheckoutURL       string                `json:"checkout_url,omitempty"`
	Reference         string                `json:"reference,omitempty"`
	ExpiresAt         *time.Time            `json:"expires_at,omitempty"`
}

type WebhookResult struct {
	EventID             string `json:"event_id"`
	EventType           string `json:"event_type"`
	Handled             bool   `json:"handled"`
	Duplicate           bool   `json:"duplicate"`
	PromoShortfallCents int64  `json:"promo_shortfall_cents,omitempty"`
}

// CheckoutService sells round entries. Promo credit is spent first; any
// remainder goes through a hosted gateway checkout.
type CheckoutService struct {
	roundRepo fantasy.Repository
	entryRepo fantasy.EntryRepository
	ids       id.Generator
	gateways  map[fantasy.PaymentMethod]PaymentGateway
	cfg       CheckoutConfig
	metrics   Metrics
	logger    *logging.Logger
	now       func() time.Time
}

func NewCheckoutService(
	roundRepo fantasy.Repository,
	entryRepo fantasy.EntryRepository,
	ids id.Generator,
	gateways []PaymentGateway,
	cfg CheckoutConfig,
	metrics Metrics,
	logger *logging.Logger,
) *CheckoutService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = 30 * time.Minute
	}
	byMethod := make(map[fantasy.PaymentMethod]PaymentGateway, len(gateways))
	for _, gw := range gateways {
		if gw != nil {
			byMethod[gw.Method()] = gw
		}
	}
	return &CheckoutService{
		roundRepo: roundRepo,
		entryRepo: entryRepo,
		ids:       ids,
		gateways:  byMethod,
		cfg:       cfg,
		metrics:   metricsOrNoop(metrics),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *CheckoutService) Start(ctx context.Context, input StartCheckoutInput) (CheckoutResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CheckoutService.Start")
	defer span.End()

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return CheckoutResult{}, fmt.Errorf("%w: user id is required", ErrUnauthorized)
	}
	roundID := strings.TrimSpace(input.RoundID)
	round, exists, err := s.roundRepo.GetRound(ctx, roundID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("get round=%s: %w", roundID, err)
	}
	if !exists {
		return CheckoutResult{}, fmt.Errorf("%w: round=%s", ErrNotFound, roundID)
	}

	now := s.now().UTC()
	if !round.AcceptsPicks(now) {
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, fantasy.ErrRoundNotOpen)
	}

	entry, hasEntry, err := s.entryRepo.GetEntry(ctx, round.ID, userID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("get entry round=%s user=%s: %w", round.ID, userID, err)
	}
	if hasEntry && entry.Status == fantasy.EntryPaid {
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, fantasy.ErrAlreadyEntered)
	}

	var promoApplied int64
	if input.UsePromo {
		balance, err := s.entryRepo.GetPromoBalance(ctx, userID)
		if err != nil {
			return CheckoutResult{}, fmt.Errorf("get promo balance user=%s: %w", userID, err)
		}
		promoApplied = min(round.EntryFeeCents, max(balance, 0))
	}
	due := round.EntryFeeCents - promoApplied

	if due == 0 {
		return s.payWithPromo(ctx, round, userID, promoApplied, now)
	}

	method := fantasy.PaymentMethod(strings.ToLower(strings.TrimSpace(input.Method)))
	if method == fantasy.PaymentPromo {
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, fantasy.ErrInsufficientPromo)
	}
	gateway, ok := s.gateways[method]
	if !ok {
		return CheckoutResult{}, fmt.Errorf("%w: %w: %q", ErrInvalidInput, fantasy.ErrUnsupportedPayment, input.Method)
	}

	reservationID, err := s.ids.NewID()
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("generate reservation id: %w", err)
	}
	session, err := gateway.CreateCheckout(ctx, CheckoutRequest{
		ReservationID: reservationID,
		RoundID:       round.ID,
		RoundName:     round.Name,
		UserID:        userID,
		AmountCents:   due,
		Currency:      round.Currency,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
	})
	if err != nil {
		s.metrics.IncPayment(string(method), "checkout_error")
		return CheckoutResult{}, fmt.Errorf("%w: create %s checkout: %v", ErrDependencyUnavailable, method, err)
	}

	expiresAt := session.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.cfg.ReservationTTL)
	}
	if err := s.entryRepo.UpsertReservation(ctx, fantasy.Reservation{
		ID:                reservationID,
		RoundID:           round.ID,
		UserID:            userID,
		PaymentMethod:     method,
		PaymentRef:        session.Reference,
		AmountDueCents:    due,
		PromoAppliedCents: promoApplied,
		ExpiresAt:         expiresAt,
		CreatedAt:         now,
	}); err != nil {
		return CheckoutResult{}, fmt.Errorf("store reservation round=%s user=%s: %w", round.ID, userID, err)
	}
	s.metrics.IncPayment(string(method), "checkout_created")

	return CheckoutResult{
		Status:            fantasy.EntryPending,
		PaymentMethod:     method,
		AmountDueCents:    due,
		PromoAppliedCents: promoApplied,
		CheckoutURL:       session.URL,
		Reference:         session.Reference,
		ExpiresAt:         &expiresAt,
	}, nil
}

func (s *CheckoutService) payWithPromo(ctx context.Context, round fantasy.Round, userID string, promoApplied int64, now time.Time) (CheckoutResult, error) {
	entryID, err := s.ids.NewID()
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("generate entry id: %w", err)
	}
	paidAt := now
	_, err = s.entryRepo.SettleEntry(ctx, fantasy.Settlement{
		Entry: fantasy.Entry{
			ID:            entryID,
			RoundID:       round.ID,
			UserID:        userID,
			Status:        fantasy.EntryPaid,
			PaymentMethod: fantasy.PaymentPromo,
			PaymentRef:    "promo-" + entryID,
			PaidAt:        &paidAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		PromoCents: promoApplied,
	})
	if err != nil {
		if errors.Is(err, fantasy.ErrInsufficientPromo) || errors.Is(err, fantasy.ErrAlreadyEntered) {
			return CheckoutResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return CheckoutResult{}, fmt.Errorf("settle promo entry round=%s user=%s: %w", round.ID, userID, err)
	}
	s.metrics.IncPayment(string(fantasy.PaymentPromo), "paid")

	return CheckoutResult{
		Status:            fantasy.EntryPaid,
		PaymentMethod:     fantasy.PaymentPromo,
		PromoAppliedCents: promoApplied,
	}, nil
}

// HandleWebhook verifies a gateway delivery and settles the matching
// reservation. Repeated deliveries of a settled payment are no-ops. A
// confirmed payment always marks the entry paid; promo credit spent
// elsewhere since checkout started is reported as a shortfall.
func (s *CheckoutService) HandleWebhook(ctx context.Context, rawMethod string, payload []byte, signature string) (WebhookResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CheckoutService.HandleWebhook")
	defer span.End()

	method := fantasy.PaymentMethod(rawMethod)
	gateway, ok := s.gateways[method]
	if !ok {
		return WebhookResult{}, fmt.Errorf("%w: %w: %q", ErrInvalidInput, fantasy.ErrUnsupportedPayment, rawMethod)
	}

	event, err := gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.metrics.IncPayment(string(method), "webhook_rejected")
		recordSpanError(span, err)
		return WebhookResult{}, err
	}
	result := WebhookResult{EventID: event.ID, EventType: event.Type}
	if event.Kind != PaymentEventConfirmed {
		s.logger.InfoContext(ctx, "payment webhook ignored", "method", method, "event_type", event.Type, "reference", event.Reference)
		return result, nil
	}

	reservation, exists, err := s.entryRepo.GetReservationByPaymentRef(ctx, method, event.Reference)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("get reservation ref=%s: %w", event.Reference, err)
	}
	if !exists {
		s.logger.InfoContext(ctx, "payment webhook without reservation", "method", method, "reference", event.Reference)
		result.Duplicate = true
		return result, nil
	}

	now := s.now().UTC()
	paidAt := now
	settled, err := s.entryRepo.SettleEntry(ctx, fantasy.Settlement{
		Entry: fantasy.Entry{
			ID:              reservation.ID,
			RoundID:         reservation.RoundID,
			UserID:          reservation.UserID,
			Status:          fantasy.EntryPaid,
			PaymentMethod:   method,
			PaymentRef:      reservation.PaymentRef,
			AmountPaidCents: reservation.AmountDueCents,
			PaidAt:          &paidAt,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		PromoCents:     reservation.PromoAppliedCents,
		ReservationID:  reservation.ID,
		AllowShortfall: true,
	})
	if errors.Is(err, fantasy.ErrAlreadyEntered) {
		s.metrics.IncPayment(string(method), "needs_refund")
		s.logger.WarnContext(ctx, "payment confirmed for an entry paid by another reference",
			"round_id", reservation.RoundID,
			"user_id", reservation.UserID,
			"method", method,
			"reference", reservation.PaymentRef,
			"amount_cents", reservation.AmountDueCents,
		)
		result.Duplicate = true
		return result, nil
	}
	if err != nil {
		recordSpanError(span, err)
		return WebhookResult{}, fmt.Errorf("settle entry round=%s user=%s: %w", reservation.RoundID, reservation.UserID, err)
	}
	if !settled.Settled {
		result.Duplicate = true
		return result, nil
	}

	if shortfall := settled.ShortfallCents(reservation.PromoAppliedCents); shortfall > 0 {
		result.PromoShortfallCents = shortfall
		s.metrics.IncPayment(string(method), "promo_shortfall")
		s.logger.WarnContext(ctx, "promo balance short at settlement",
			"round_id", reservation.RoundID,
			"user_id", reservation.UserID,
			"reserved_cents", reservation.PromoAppliedCents,
			"debited_cents", settled.PromoDebitedCents,
		)
	}

	s.metrics.IncPayment(string(method), "paid")
	s.logger.InfoContext(ctx, "entry paid",
		"round_id", reservation.RoundID,
		"user_id", reservation.UserID,
		"method", method,
		"amount_cents", reservation.AmountDueCents,
	)
	result.Handled = true
	return result, nil
}
