package restclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v5"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/platform/resilience"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const maxResponseBytes = 6 << 20

// ErrTransient marks failures worth retrying and counting against the breaker.
var ErrTransient = crerr.New("transient upstream failure")

var tokenParamRegex = regexp.MustCompile(`(api_token|token|key)=[^&\s"']+`)

// ObserveFunc receives one call per finished request attempt.
type ObserveFunc func(client, outcome string, elapsed time.Duration)

type Config struct {
	Name           string
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryInterval  time.Duration
	RequestSpacing time.Duration
	Headers        map[string]string
	Secrets        []string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Observe        ObserveFunc
}

// Client is the shared outbound HTTP plumbing of every provider client.
type Client struct {
	name           string
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	retryInterval  time.Duration
	requestSpacing time.Duration
	headers        map[string]string
	secrets        []string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	observe        ObserveFunc
	flight         singleflight.Group

	spacingMu sync.Mutex
	lastSent  time.Time
}

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status=%d body=%s", e.StatusCode, e.Body)
}

// Request describes one outbound call relative to the client base URL.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	Headers     map[string]string
}

func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "upstream"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = time.Second
	}

	secrets := make([]string, 0, len(cfg.Secrets))
	for _, s := range cfg.Secrets {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}

	logger = logger.Named(name)
	breakerCfg := cfg.CircuitBreaker
	if breakerCfg.OnStateChange == nil {
		breakerCfg.OnStateChange = func(upstream string, from, to resilience.CircuitState) {
			logger.Warn("circuit breaker state changed", "upstream", upstream, "from", from, "to", to)
		}
	}

	return &Client{
		name:           name,
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		maxRetries:     max(cfg.MaxRetries, 0),
		retryInterval:  retryInterval,
		requestSpacing: max(cfg.RequestSpacing, 0),
		headers:        cfg.Headers,
		secrets:        secrets,
		logger:         logger,
		breaker:        resilience.NewOptionalCircuitBreaker(name, breakerCfg),
		observe:        cfg.Observe,
	}
}

func (c *Client) Name() string {
	return c.name
}

// GetJSON fetches path and decodes the body into target. Identical concurrent
// calls share one upstream request.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) ([]byte, error) {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, target)
}

// PostJSON marshals payload with sonic and decodes the answer into target.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, headers map[string]string, target any) ([]byte, error) {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, crerr.Wrapf(err, "%s: marshal request", c.name)
	}
	return c.DoJSON(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: "application/json",
		Headers:     headers,
	}, target)
}

// PostForm sends an application/x-www-form-urlencoded body.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, headers map[string]string, target any) ([]byte, error) {
	return c.DoJSON(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        []byte(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
		Headers:     headers,
	}, target)
}

func (c *Client) DoJSON(ctx context.Context, req Request, target any) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "circuit breaker rejected request", "state", c.breaker.State(), "path", req.Path)
		return nil, crerr.Wrapf(usecase.ErrDependencyUnavailable, "%s is temporarily unavailable", c.name)
	}

	fullURL := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if encoded := req.Query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	run := func() ([]byte, error) {
		raw, err := c.executeWithRetry(ctx, req, fullURL)
		switch {
		case err == nil:
			c.breaker.RecordSuccess()
		case errors.Is(err, ErrTransient):
			c.breaker.RecordFailure()
		default:
			c.breaker.RecordSuccess()
		}
		return raw, err
	}

	var (
		raw []byte
		err error
	)
	// per-request headers may carry caller credentials, so only plain GETs are shared
	if req.method() == http.MethodGet && len(req.Headers) == 0 {
		out, flightErr, _ := c.flight.Do(fullURL, func() (any, error) {
			return run()
		})
		err = flightErr
		raw, _ = out.([]byte)
	} else {
		raw, err = run()
	}
	if err != nil {
		return nil, err
	}

	if target != nil && len(raw) > 0 {
		if err := sonic.Unmarshal(raw, target); err != nil {
			return raw, crerr.Wrapf(err, "%s: decode %s", c.name, req.Path)
		}
	}
	return raw, nil
}

func (c *Client) executeWithRetry(ctx context.Context, req Request, fullURL string) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxInterval = 10 * c.retryInterval

	op := func() ([]byte, error) {
		raw, err := c.execute(ctx, req, fullURL)
		if err != nil && !errors.Is(err, ErrTransient) {
			return nil, backoff.Permanent(err)
		}
		return raw, err
	}

	raw, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		c.logger.WarnContext(ctx, "upstream request failed", "method", req.method(), "url", c.redact(fullURL), "error", err)
		return nil, err
	}
	return raw, nil
}

func (c *Client) execute(ctx context.Context, req Request, fullURL string) ([]byte, error) {
	if err := c.waitForSlot(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method(), fullURL, body)
	if err != nil {
		return nil, crerr.Wrapf(err, "%s: build request", c.name)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	startedAt := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record("error", startedAt)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, crerr.Wrapf(ErrTransient, "%s: send request: %s", c.name, c.redact(err.Error()))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.record("error", startedAt)
		return nil, crerr.Wrapf(ErrTransient, "%s: read response body: %v", c.name, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.record("success", startedAt)
		return raw, nil
	}

	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: c.redact(abbreviate(raw, 512))}
	if IsRetryableStatus(resp.StatusCode) {
		c.record("transient", startedAt)
		return nil, crerr.Wrapf(crerr.Mark(statusErr, ErrTransient), "%s %s", c.name, req.Path)
	}
	c.record("rejected", startedAt)
	return nil, crerr.Wrapf(statusErr, "%s %s", c.name, req.Path)
}

// waitForSlot keeps consecutive requests at least requestSpacing apart.
func (c *Client) waitForSlot(ctx context.Context) error {
	if c.requestSpacing <= 0 {
		return nil
	}

	c.spacingMu.Lock()
	wait := time.Until(c.lastSent.Add(c.requestSpacing))
	if wait < 0 {
		wait = 0
	}
	c.lastSent = time.Now().Add(wait)
	c.spacingMu.Unlock()

	if wait == 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) record(outcome string, startedAt time.Time) {
	if c.observe == nil {
		return
	}
	c.observe(c.name, outcome, time.Since(startedAt))
}

func (c *Client) redact(value string) string {
	for _, secret := range c.secrets {
		value = strings.ReplaceAll(value, secret, "REDACTED")
	}
	return tokenParamRegex.ReplaceAllString(value, "$1=REDACTED")
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// IsNotFound reports whether err carries an upstream 404.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

func IsRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func abbreviate(raw []byte, limit int) string {
	text := strings.TrimSpace(string(raw))
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "...(truncated)"
}
