package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "StartCheckout")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing user", usecase.ErrUnauthorized))
		return
	}

	var req checkoutRequest
	if err := h.decodeAndValidate(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.checkoutService.Start(ctx, usecase.StartCheckoutInput{
		RoundID:  r.PathValue("roundID"),
		UserID:   principal.UserID,
		Method:   req.PaymentMethod,
		UsePromo: req.UsePromo,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "start checkout failed",
			"round_id", r.PathValue("roundID"),
			"user_id", principal.UserID,
			"payment_method", req.PaymentMethod,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	status := http.StatusCreated
	if result.Status == fantasy.EntryPaid {
		status = http.StatusOK
	}
	writeSuccess(ctx, w, status, result)
}

func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	h.handleWebhook(w, r, fantasy.PaymentStripe, "Stripe-Signature")
}

func (h *Handler) CoinbaseWebhook(w http.ResponseWriter, r *http.Request) {
	h.handleWebhook(w, r, fantasy.PaymentCoinbase, "X-CC-Webhook-Signature")
}

// handleWebhook passes the raw body through untouched; signatures are
// computed over the exact bytes received.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request, method fantasy.PaymentMethod, signatureHeader string) {
	ctx, span := startSpan(r.Context(), "PaymentWebhook")
	defer span.End()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: read body: %v", usecase.ErrInvalidInput, err))
		return
	}

	result, err := h.checkoutService.HandleWebhook(ctx, string(method), payload, r.Header.Get(signatureHeader))
	if err != nil {
		h.logger.WarnContext(ctx, "payment webhook rejected", "payment_method", method, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}
