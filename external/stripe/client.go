package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/esports-fantasy/external/restclient"
	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/platform/resilience"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const (
	defaultBaseURL   = "https://api.stripe.com"
	defaultTolerance = 5 * time.Minute
	// Stripe rejects session expiries closer than 30 minutes.
	minSessionTTL = 30 * time.Minute
)

type ClientConfig struct {
	BaseURL        string
	SecretKey      string
	WebhookSecret  string
	Tolerance      time.Duration
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Observe        restclient.ObserveFunc
}

// Client creates Checkout Sessions and verifies Stripe webhook deliveries.
type Client struct {
	rest          *restclient.Client
	webhookSecret string
	tolerance     time.Duration
	logger        *logging.Logger
	now           func() time.Time
}

var _ usecase.PaymentGateway = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)

	return &Client{
		rest: restclient.New(restclient.Config{
			Name:           "stripe",
			BaseURL:        baseURL,
			Timeout:        cfg.Timeout,
			Headers:        map[string]string{"Authorization": "Bearer " + secretKey},
			Secrets:        []string{secretKey, webhookSecret},
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
			Observe:        cfg.Observe,
		}),
		webhookSecret: webhookSecret,
		tolerance:     tolerance,
		logger:        logger,
		now:           time.Now,
	}
}

func (c *Client) Method() fantasy.PaymentMethod {
	return fantasy.PaymentStripe
}

func (c *Client) CreateCheckout(ctx context.Context, req usecase.CheckoutRequest) (usecase.CheckoutSession, error) {
	if req.AmountCents <= 0 {
		return usecase.CheckoutSession{}, crerr.Newf("stripe checkout amount must be > 0, got %d", req.AmountCents)
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}
	expiresAt := c.now().Add(minSessionTTL + time.Minute)

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.ReservationID)
	form.Set("expires_at", strconv.FormatInt(expiresAt.Unix(), 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", "Round entry: "+req.RoundName)
	form.Set("metadata[reservation_id]", req.ReservationID)
	form.Set("metadata[round_id]", req.RoundID)
	form.Set("metadata[user_id]", req.UserID)

	headers := map[string]string{"Idempotency-Key": "checkout-" + req.ReservationID}
	var session checkoutSession
	if _, err := c.rest.PostForm(ctx, "/v1/checkout/sessions", form, headers, &session); err != nil {
		return usecase.CheckoutSession{}, crerr.Wrapf(err, "create stripe checkout reservation=%s", req.ReservationID)
	}
	if session.ID == "" || session.URL == "" {
		return usecase.CheckoutSession{}, crerr.Newf("stripe checkout reservation=%s returned no session url", req.ReservationID)
	}

	out := usecase.CheckoutSession{Reference: session.ID, URL: session.URL, ExpiresAt: expiresAt.UTC()}
	if session.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(session.ExpiresAt, 0).UTC()
	}
	return out, nil
}

// ParseWebhook verifies the Stripe-Signature header and reduces the event.
func (c *Client) ParseWebhook(payload []byte, signature string) (usecase.PaymentEvent, error) {
	if err := c.verify(payload, signature); err != nil {
		return usecase.PaymentEvent{}, err
	}

	var evt event
	if err := sonic.Unmarshal(payload, &evt); err != nil {
		return usecase.PaymentEvent{}, crerr.Wrapf(usecase.ErrInvalidInput, "decode stripe event: %v", err)
	}

	out := usecase.PaymentEvent{
		ID:          evt.ID,
		Type:        evt.Type,
		Kind:        usecase.PaymentEventIgnored,
		Reference:   evt.Data.Object.ID,
		AmountCents: evt.Data.Object.AmountTotal,
	}
	switch evt.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if evt.Data.Object.PaymentStatus == "paid" || evt.Data.Object.PaymentStatus == "no_payment_required" {
			out.Kind = usecase.PaymentEventConfirmed
		}
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		out.Kind = usecase.PaymentEventFailed
	}
	return out, nil
}

func (c *Client) verify(payload []byte, header string) error {
	if c.webhookSecret == "" {
		return crerr.Wrap(usecase.ErrUnauthorized, "stripe webhook secret is not configured")
	}

	var (
		timestamp  int64
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return crerr.Wrap(usecase.ErrUnauthorized, "stripe signature timestamp is malformed")
			}
			timestamp = parsed
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return crerr.Wrap(usecase.ErrUnauthorized, "stripe signature header is incomplete")
	}

	age := c.now().Sub(time.Unix(timestamp, 0))
	if age > c.tolerance || age < -c.tolerance {
		return crerr.Wrapf(usecase.ErrUnauthorized, "stripe signature timestamp outside tolerance age=%s", age)
	}

	expected := Sign(c.webhookSecret, timestamp, payload)
	for _, candidate := range signatures {
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			return nil
		}
	}
	return crerr.Wrap(usecase.ErrUnauthorized, "stripe signature mismatch")
}

// Sign returns the hex v1 signature Stripe computes for payload sent at timestamp.
func Sign(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type checkoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	ExpiresAt     int64  `json:"expires_at"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
}

type event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object checkoutSession `json:"object"`
	} `json:"data"`
}
