package resend

import (
	"context"
	"sort"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/esports-fantasy/external/restclient"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/platform/resilience"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const defaultBaseURL = "https://api.resend.com"

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	From           string
	ReplyTo        string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Observe        restclient.ObserveFunc
}

// Client sends transactional email through the Resend API.
type Client struct {
	rest    *restclient.Client
	from    string
	replyTo string
}

var _ usecase.Mailer = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiKey := strings.TrimSpace(cfg.APIKey)

	return &Client{
		rest: restclient.New(restclient.Config{
			Name:           "resend",
			BaseURL:        baseURL,
			Timeout:        cfg.Timeout,
			Headers:        map[string]string{"Authorization": "Bearer " + apiKey},
			Secrets:        []string{apiKey},
			Logger:         cfg.Logger,
			CircuitBreaker: cfg.CircuitBreaker,
			Observe:        cfg.Observe,
		}),
		from:    strings.TrimSpace(cfg.From),
		replyTo: strings.TrimSpace(cfg.ReplyTo),
	}
}

// Send delivers one email and returns the Resend message id.
func (c *Client) Send(ctx context.Context, email usecase.Email) (string, error) {
	if c.from == "" {
		return "", crerr.New("resend sender address is not configured")
	}
	if len(email.To) == 0 {
		return "", crerr.Wrap(usecase.ErrInvalidInput, "email has no recipients")
	}

	body := sendRequest{
		From:    c.from,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
	}
	if c.replyTo != "" {
		body.ReplyTo = c.replyTo
	}
	keys := make([]string, 0, len(email.Tags))
	for key := range email.Tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		body.Tags = append(body.Tags, tag{Name: key, Value: email.Tags[key]})
	}

	var resp sendResponse
	if _, err := c.rest.PostJSON(ctx, "/emails", body, nil, &resp); err != nil {
		return "", crerr.Wrapf(err, "send email subject=%q", email.Subject)
	}
	return resp.ID, nil
}

type tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Tags    []tag    `json:"tags,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}
