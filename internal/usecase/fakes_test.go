package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/team"
	"github.com/riskibarqy/esports-fantasy/internal/domain/tournament"
)

type recordingTrigger struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingTrigger) TriggerLiveSync(_ context.Context, provider match.Provider, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, string(provider)+":"+externalID)
	return r.err
}

type queuedJob struct {
	Path    string
	Payload any
	Delay   time.Duration
	DedupID string
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []queuedJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, path string, payload any, delay time.Duration, dedupID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, queuedJob{Path: path, Payload: payload, Delay: delay, DedupID: dedupID})
	return nil
}

type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (d *fakeDeduper) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *fakeDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
	return nil
}

type fakeFaceit struct {
	mu         sync.Mutex
	hubMatches map[string][]match.Match
	hubErrs    map[string]error
	byID       map[string]match.Match
	err        error
	fetched    []string
}

func (f *fakeFaceit) FetchHubMatches(_ context.Context, hubID string) ([]match.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := f.hubErrs[hubID]; err != nil {
		return nil, err
	}
	return f.hubMatches[hubID], nil
}

func (f *fakeFaceit) FetchMatch(_ context.Context, matchID string) (match.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, matchID)
	item, ok := f.byID[matchID]
	if !ok {
		return match.Match{}, fmt.Errorf("faceit match %s not found", matchID)
	}
	return item, nil
}

type fakePandaScore struct {
	teamPages   [][]team.Team
	matches     []match.Match
	tournaments []tournament.Tournament
	err         error
}

func (f *fakePandaScore) FetchTeams(_ context.Context, page int) ([]team.Team, bool, error) {
	if page < 1 || page > len(f.teamPages) {
		return nil, false, nil
	}
	return f.teamPages[page-1], page < len(f.teamPages), nil
}

func (f *fakePandaScore) FetchMatches(_ context.Context, _ time.Time) ([]match.Match, []tournament.Tournament, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.matches, f.tournaments, nil
}

func (f *fakePandaScore) FetchMatch(_ context.Context, matchID string) (match.Match, error) {
	for _, item := range f.matches {
		if item.ExternalID == matchID {
			return item, nil
		}
	}
	return match.Match{}, fmt.Errorf("pandascore match %s not found", matchID)
}

type fakeSportDevs struct {
	matches     []match.Match
	tournaments []tournament.Tournament
	err         error
}

func (f *fakeSportDevs) FetchMatches(_ context.Context, _ time.Time) ([]match.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeSportDevs) FetchTournaments(_ context.Context, _ []string) ([]tournament.Tournament, error) {
	return f.tournaments, nil
}

func (f *fakeSportDevs) FetchMatch(_ context.Context, matchID string) (match.Match, error) {
	for _, item := range f.matches {
		if item.ExternalID == matchID {
			return item, nil
		}
	}
	return match.Match{}, fmt.Errorf("sportdevs match %s not found", matchID)
}

type fakeGateway struct {
	method   fantasy.PaymentMethod
	requests []CheckoutRequest
	event    PaymentEvent
	parseErr error
	err      error
}

func (g *fakeGateway) Method() fantasy.PaymentMethod { return g.method }

func (g *fakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if g.err != nil {
		return CheckoutSession{}, g.err
	}
	g.requests = append(g.requests, req)
	return CheckoutSession{
		Reference: string(g.method) + "-ref-" + req.ReservationID,
		URL:       "https://pay.example.com/" + req.ReservationID,
	}, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, signature string) (PaymentEvent, error) {
	if g.parseErr != nil {
		return PaymentEvent{}, g.parseErr
	}
	if signature != "valid" {
		return PaymentEvent{}, fmt.Errorf("%w: bad signature", ErrUnauthorized)
	}
	return g.event, nil
}

type recordingMailer struct {
	mu     sync.Mutex
	sent   []Email
	failTo map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, email Email) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range email.To {
		if m.failTo[to] {
			return "", fmt.Errorf("resend rejected %s", to)
		}
	}
	m.sent = append(m.sent, email)
	return fmt.Sprintf("email-%d", len(m.sent)), nil
}

type recordingChat struct {
	messages []string
}

func (c *recordingChat) Notify(_ context.Context, text string) error {
	c.messages = append(c.messages, text)
	return nil
}

func timeRef(t time.Time) *time.Time {
	return &t
}
