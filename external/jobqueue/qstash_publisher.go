package jobqueue

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/esports-fantasy/external/restclient"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/platform/resilience"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const internalJobTokenHeader = "X-Internal-Job-Token"

type QStashPublisherConfig struct {
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
	Observe          restclient.ObserveFunc
}

// QStashPublisher schedules internal job calls through Upstash QStash.
// QStash owns delivery retries, so the publish call itself is never retried.
type QStashPublisher struct {
	rest             *restclient.Client
	baseURL          string
	targetBaseURL    string
	retries          int
	internalJobToken string
	logger           *logging.Logger
}

var _ usecase.JobQueue = (*QStashPublisher)(nil)

func NewQStashPublisher(cfg QStashPublisherConfig, logger *logging.Logger) (*QStashPublisher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL, err := validateHTTPBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBaseURL, err := validateHTTPBaseURL(cfg.TargetBaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	token := strings.TrimSpace(cfg.Token)
	jobToken := strings.TrimSpace(cfg.InternalJobToken)

	return &QStashPublisher{
		rest: restclient.New(restclient.Config{
			Name:           "qstash",
			BaseURL:        baseURL,
			Timeout:        timeout,
			Headers:        map[string]string{"Authorization": "Bearer " + token},
			Secrets:        []string{token, jobToken},
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
			Observe:        cfg.Observe,
		}),
		baseURL:          baseURL,
		targetBaseURL:    targetBaseURL,
		retries:          max(cfg.Retries, 0),
		internalJobToken: jobToken,
		logger:           logger,
	}, nil
}

func (p *QStashPublisher) Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "/" {
		return crerr.New("job path is required")
	}
	deduplicationID = strings.TrimSpace(deduplicationID)

	if payload == nil {
		payload = map[string]any{}
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal job payload")
	}

	targetURL := p.targetBaseURL + path
	publishPath := "/v2/publish/" + targetURL
	headers := map[string]string{"Upstash-Method": http.MethodPost}
	if p.retries > 0 {
		headers["Upstash-Retries"] = strconv.Itoa(p.retries)
	}
	if delay > 0 {
		headers["Upstash-Delay"] = normalizeDelay(delay)
	}
	if deduplicationID != "" {
		headers["Upstash-Deduplication-Id"] = deduplicationID
	}
	if p.internalJobToken != "" {
		headers["Upstash-Forward-"+internalJobTokenHeader] = p.internalJobToken
	}

	bodyText := truncateForLog(string(body), 4096)
	curlPreview := buildCurlPreview(p.baseURL+publishPath, headers, bodyText)
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.target_url", targetURL),
			attribute.String("qstash.path", path),
			attribute.String("qstash.deduplication_id", deduplicationID),
			attribute.String("qstash.request_curl_preview", curlPreview),
		)
	}
	p.logger.DebugContext(ctx, "qstash publish request", "path", path, "target_url", targetURL, "curl_preview", curlPreview)

	if _, err := p.rest.DoJSON(ctx, restclient.Request{
		Method:      http.MethodPost,
		Path:        publishPath,
		Body:        body,
		ContentType: "application/json",
		Headers:     headers,
	}, nil); err != nil {
		return crerr.Wrapf(err, "publish qstash job path=%s", path)
	}

	p.logger.InfoContext(ctx, "qstash job published", "path", path, "delay", normalizeDelay(delay), "deduplication_id", deduplicationID)
	return nil
}

func normalizeDelay(delay time.Duration) string {
	seconds := int64(delay.Round(time.Second).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatInt(seconds, 10) + "s"
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

// buildCurlPreview renders a copy-pasteable request with secrets masked.
func buildCurlPreview(publishURL string, headers map[string]string, body string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}
	appendHeader := func(name, value string) {
		appendPart("-H")
		appendPart(shellQuote(name + ": " + value))
	}

	appendPart("curl -X POST")
	appendPart(shellQuote(publishURL))
	appendHeader("Authorization", "Bearer ***")
	appendHeader("Content-Type", "application/json")
	for _, name := range []string{"Upstash-Method", "Upstash-Retries", "Upstash-Delay", "Upstash-Deduplication-Id"} {
		if value, ok := headers[name]; ok {
			appendHeader(name, value)
		}
	}
	if _, ok := headers["Upstash-Forward-"+internalJobTokenHeader]; ok {
		appendHeader("Upstash-Forward-"+internalJobTokenHeader, "***")
	}
	appendPart("-d")
	appendPart(shellQuote(body))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit] + "...(truncated)"
}
