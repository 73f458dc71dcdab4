package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/team"
	"github.com/riskibarqy/esports-fantasy/internal/domain/tournament"
)

// FaceitFeed is the amateur ladder feed.
type FaceitFeed interface {
	FetchHubMatches(ctx context.Context, hubID string) ([]match.Match, error)
	FetchMatch(ctx context.Context, matchID string) (match.Match, error)
}

// PandaScoreFeed is the primary pro aggregator.
type PandaScoreFeed interface {
	FetchTeams(ctx context.Context, page int) (items []team.Team, hasMore bool, err error)
	FetchMatches(ctx context.Context, since time.Time) ([]match.Match, []tournament.Tournament, error)
	FetchMatch(ctx context.Context, matchID string) (match.Match, error)
}

// SportDevsFeed is the secondary pro feed.
type SportDevsFeed interface {
	FetchMatches(ctx context.Context, since time.Time) ([]match.Match, error)
	FetchTournaments(ctx context.Context, ids []string) ([]tournament.Tournament, error)
	FetchMatch(ctx context.Context, matchID string) (match.Match, error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

// queueEnabled is false for the no-op queue, which drops every job.
func queueEnabled(queue JobQueue) bool {
	if queue == nil {
		return false
	}
	_, noop := queue.(noopJobQueue)
	return !noop
}

// LiveSyncTrigger asks for a live data sync of one match.
type LiveSyncTrigger interface {
	TriggerLiveSync(ctx context.Context, provider match.Provider, externalID string) error
}

// LiveSyncDeduper grants a key once per ttl across every process sharing it.
type LiveSyncDeduper interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type CheckoutRequest struct {
	ReservationID string
	RoundID       string
	RoundName     string
	UserID        string
	AmountCents   int64
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	Reference string
	URL       string
	ExpiresAt time.Time
}

type PaymentEventKind string

const (
	PaymentEventConfirmed PaymentEventKind = "confirmed"
	PaymentEventFailed    PaymentEventKind = "failed"
	PaymentEventIgnored   PaymentEventKind = "ignored"
)

// PaymentEvent is a verified webhook delivery reduced to what checkout needs.
type PaymentEvent struct {
	ID          string
	Kind        PaymentEventKind
	Type        string
	Reference   string
	AmountCents int64
}

// PaymentGateway is a hosted checkout provider.
type PaymentGateway interface {
	Method() fantasy.PaymentMethod
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// ParseWebhook verifies signature over the raw payload. A bad signature
	// returns an error wrapping ErrUnauthorized.
	ParseWebhook(payload []byte, signature string) (PaymentEvent, error)
}

type Email struct {
	To      []string
	Subject string
	HTML    string
	Tags    map[string]string
}

type Mailer interface {
	Send(ctx context.Context, email Email) (string, error)
}

// ChatNotifier posts a short plain-text message to the ops channel.
type ChatNotifier interface {
	Notify(ctx context.Context, text string) error
}

// Principal is the caller identity resolved from a bearer token.
type Principal struct {
	UserID string
	Email  string
}

// AccessTokenVerifier resolves a bearer token issued by the hosted auth platform.
type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (Principal, error)
}
