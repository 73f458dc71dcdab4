package coinbase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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
	defaultBaseURL = "https://api.commerce.coinbase.com"
	apiVersion     = "2018-03-22"
)

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	WebhookSecret  string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Observe        restclient.ObserveFunc
}

// Client creates Coinbase Commerce charges and verifies their webhooks.
type Client struct {
	rest          *restclient.Client
	webhookSecret string
	logger        *logging.Logger
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
	apiKey := strings.TrimSpace(cfg.APIKey)
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)

	return &Client{
		rest: restclient.New(restclient.Config{
			Name:    "coinbase",
			BaseURL: baseURL,
			Timeout: cfg.Timeout,
			Headers: map[string]string{
				"X-CC-Api-Key": apiKey,
				"X-CC-Version": apiVersion,
			},
			Secrets:        []string{apiKey, webhookSecret},
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
			Observe:        cfg.Observe,
		}),
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (c *Client) Method() fantasy.PaymentMethod {
	return fantasy.PaymentCoinbase
}

func (c *Client) CreateCheckout(ctx context.Context, req usecase.CheckoutRequest) (usecase.CheckoutSession, error) {
	if req.AmountCents <= 0 {
		return usecase.CheckoutSession{}, crerr.Newf("coinbase charge amount must be > 0, got %d", req.AmountCents)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	body := chargeRequest{
		Name:        "Round entry",
		Description: req.RoundName,
		PricingType: "fixed_price",
		RedirectURL: req.SuccessURL,
		CancelURL:   req.CancelURL,
		Metadata: map[string]string{
			"reservation_id": req.ReservationID,
			"round_id":       req.RoundID,
			"user_id":        req.UserID,
		},
	}
	body.LocalPrice.Amount = FormatAmount(req.AmountCents)
	body.LocalPrice.Currency = currency

	var resp chargeEnvelope
	if _, err := c.rest.PostJSON(ctx, "/charges", body, nil, &resp); err != nil {
		return usecase.CheckoutSession{}, crerr.Wrapf(err, "create coinbase charge reservation=%s", req.ReservationID)
	}
	if resp.Data.ID == "" || resp.Data.HostedURL == "" {
		return usecase.CheckoutSession{}, crerr.Newf("coinbase charge reservation=%s returned no hosted url", req.ReservationID)
	}

	out := usecase.CheckoutSession{Reference: resp.Data.ID, URL: resp.Data.HostedURL}
	if parsed, err := time.Parse(time.RFC3339, resp.Data.ExpiresAt); err == nil {
		out.ExpiresAt = parsed.UTC()
	}
	return out, nil
}

// ParseWebhook checks X-CC-Webhook-Signature, the hex HMAC-SHA256 of the raw body.
func (c *Client) ParseWebhook(payload []byte, signature string) (usecase.PaymentEvent, error) {
	if c.webhookSecret == "" {
		return usecase.PaymentEvent{}, crerr.Wrap(usecase.ErrUnauthorized, "coinbase webhook secret is not configured")
	}
	expected := Sign(c.webhookSecret, payload)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return usecase.PaymentEvent{}, crerr.Wrap(usecase.ErrUnauthorized, "coinbase signature mismatch")
	}

	var envelope webhookEnvelope
	if err := sonic.Unmarshal(payload, &envelope); err != nil {
		return usecase.PaymentEvent{}, crerr.Wrapf(usecase.ErrInvalidInput, "decode coinbase event: %v", err)
	}

	evt := envelope.Event
	out := usecase.PaymentEvent{
		ID:          evt.ID,
		Type:        evt.Type,
		Kind:        usecase.PaymentEventIgnored,
		Reference:   evt.Data.ID,
		AmountCents: ParseAmount(evt.Data.Pricing.Local.Amount),
	}
	switch evt.Type {
	case "charge:confirmed", "charge:resolved":
		out.Kind = usecase.PaymentEventConfirmed
	case "charge:failed":
		out.Kind = usecase.PaymentEventFailed
	}
	return out, nil
}

func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// FormatAmount renders cents as the decimal string Coinbase expects.
func FormatAmount(cents int64) string {
	return strconv.FormatInt(cents/100, 10) + "." + leftPad2(cents%100)
}

// ParseAmount reads a decimal amount string back into cents. Bad input gives 0.
func ParseAmount(raw string) int64 {
	whole, frac, _ := strings.Cut(strings.TrimSpace(raw), ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0
	}
	frac = (frac + "00")[:2]
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0
	}
	return units*100 + cents
}

func leftPad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

type chargeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PricingType string `json:"pricing_type"`
	LocalPrice  struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"local_price"`
	Metadata    map[string]string `json:"metadata"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	CancelURL   string            `json:"cancel_url,omitempty"`
}

type charge struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	HostedURL string `json:"hosted_url"`
	ExpiresAt string `json:"expires_at"`
	Pricing   struct {
		Local struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"local"`
	} `json:"pricing"`
}

type chargeEnvelope struct {
	Data charge `json:"data"`
}

type webhookEnvelope struct {
	ID    string `json:"id"`
	Event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data charge `json:"data"`
	} `json:"event"`
}
