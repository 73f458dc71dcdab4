package authplatform

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/esports-fantasy/external/restclient"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/platform/resilience"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const defaultUserPath = "/auth/v1/user"

type ClientConfig struct {
	BaseURL        string
	UserPath       string
	AnonKey        string
	Timeout        time.Duration
	CacheTTL       time.Duration
	CacheMaxSize   int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client resolves end-user access tokens against the hosted auth platform's
// user endpoint. Verified tokens are cached briefly by hash.
type Client struct {
	rest     *restclient.Client
	userPath string
	anonKey  string
	cache    *principalCache
	logger   *logging.Logger
}

var _ usecase.AccessTokenVerifier = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userPath := strings.TrimSpace(cfg.UserPath)
	if userPath == "" {
		userPath = defaultUserPath
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	maxSize := cfg.CacheMaxSize
	if maxSize <= 0 {
		maxSize = 10000
	}
	anonKey := strings.TrimSpace(cfg.AnonKey)

	return &Client{
		rest: restclient.New(restclient.Config{
			Name:           "authplatform",
			BaseURL:        cfg.BaseURL,
			Timeout:        cfg.Timeout,
			Secrets:        []string{anonKey},
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
		}),
		userPath: userPath,
		anonKey:  anonKey,
		cache:    newPrincipalCache(ttl, maxSize),
		logger:   logger,
	}
}

func (c *Client) VerifyAccessToken(ctx context.Context, token string) (usecase.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return usecase.Principal{}, crerr.Wrap(usecase.ErrUnauthorized, "token is required")
	}

	key := hashToken(token)
	if principal, ok := c.cache.Get(key); ok {
		return principal, nil
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	if c.anonKey != "" {
		headers["apikey"] = c.anonKey
	}

	var resp userResponse
	_, err := c.rest.DoJSON(ctx, restclient.Request{
		Method:  http.MethodGet,
		Path:    c.userPath,
		Headers: headers,
	}, &resp)
	if err != nil {
		var statusErr *restclient.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
			return usecase.Principal{}, crerr.Wrap(usecase.ErrUnauthorized, "access token rejected")
		}
		if errors.Is(err, usecase.ErrDependencyUnavailable) {
			return usecase.Principal{}, err
		}
		return usecase.Principal{}, crerr.Wrap(usecase.ErrDependencyUnavailable, err.Error())
	}

	userID := strings.TrimSpace(resp.ID)
	if userID == "" {
		return usecase.Principal{}, crerr.Wrap(usecase.ErrUnauthorized, "auth platform returned no user id")
	}

	principal := usecase.Principal{UserID: userID, Email: strings.TrimSpace(resp.Email)}
	c.cache.Set(key, principal)
	return principal, nil
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
