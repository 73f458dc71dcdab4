package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

var webhookNow = time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

const completedEvent = `{
  "id": "evt_1",
  "type": "checkout.session.completed",
  "data": {"object": {"id": "cs_test_1", "payment_status": "paid", "amount_total": 500}}
}`

func newWebhookClient() *Client {
	c := NewClient(ClientConfig{SecretKey: "sk_test", WebhookSecret: "whsec_test"})
	c.now = func() time.Time { return webhookNow }
	return c
}

func header(ts int64, sig string) string {
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + sig
}

func TestParseWebhook_ValidSignature(t *testing.T) {
	c := newWebhookClient()
	ts := webhookNow.Add(-time.Minute).Unix()
	payload := []byte(completedEvent)

	evt, err := c.ParseWebhook(payload, header(ts, Sign("whsec_test", ts, payload)))
	require.NoError(t, err)
	assert.Equal(t, usecase.PaymentEventConfirmed, evt.Kind)
	assert.Equal(t, "cs_test_1", evt.Reference)
	assert.Equal(t, int64(500), evt.AmountCents)
	assert.Equal(t, "evt_1", evt.ID)
}

func TestParseWebhook_Rejects(t *testing.T) {
	payload := []byte(completedEvent)
	fresh := webhookNow.Unix()
	stale := webhookNow.Add(-6 * time.Minute).Unix()

	tests := []struct {
		name   string
		header string
	}{
		{name: "wrong secret", header: header(fresh, Sign("other", fresh, payload))},
		{name: "stale timestamp", header: header(stale, Sign("whsec_test", stale, payload))},
		{name: "missing v1", header: "t=" + strconv.FormatInt(fresh, 10)},
		{name: "empty", header: ""},
		{name: "tampered body", header: header(fresh, Sign("whsec_test", fresh, []byte(`{}`)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newWebhookClient().ParseWebhook(payload, tt.header)
			require.Error(t, err)
			assert.True(t, errors.Is(err, usecase.ErrUnauthorized))
		})
	}
}

func TestParseWebhook_ExpiredSessionIsFailure(t *testing.T) {
	c := newWebhookClient()
	ts := webhookNow.Unix()
	payload := []byte(`{"id":"evt_2","type":"checkout.session.expired","data":{"object":{"id":"cs_test_2"}}}`)

	evt, err := c.ParseWebhook(payload, header(ts, Sign("whsec_test", ts, payload)))
	require.NoError(t, err)
	assert.Equal(t, usecase.PaymentEventFailed, evt.Kind)
}

func TestCreateCheckout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "checkout-res-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "500", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "res-1", r.PostForm.Get("client_reference_id"))
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.com/c/pay/cs_test_1","expires_at":1772886600}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL, SecretKey: "sk_test"})
	session, err := c.CreateCheckout(context.Background(), usecase.CheckoutRequest{
		ReservationID: "res-1",
		RoundID:       "round-1",
		RoundName:     "Week 10",
		UserID:        "u1",
		AmountCents:   500,
		Currency:      "USD",
		SuccessURL:    "https://app.example.com/ok",
		CancelURL:     "https://app.example.com/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.Reference)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.URL)
	assert.Equal(t, time.Unix(1772886600, 0).UTC(), session.ExpiresAt)
}
