package faceit

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/esports-fantasy/external/restclient"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/platform/resilience"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const (
	defaultBaseURL = "https://open.faceit.com/data/v4"
	pageLimit      = 100
	maxPages       = 5
)

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	RequestSpacing time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Observe        restclient.ObserveFunc
}

// Client reads hub matches from the FACEIT Data API.
type Client struct {
	rest   *restclient.Client
	logger *logging.Logger
}

var _ usecase.FaceitFeed = (*Client)(nil)

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

	return &Client{
		rest: restclient.New(restclient.Config{
			Name:           "faceit",
			BaseURL:        baseURL,
			Timeout:        cfg.Timeout,
			MaxRetries:     cfg.MaxRetries,
			RequestSpacing: cfg.RequestSpacing,
			Headers:        map[string]string{"Authorization": "Bearer " + apiKey},
			Secrets:        []string{apiKey},
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
			Observe:        cfg.Observe,
		}),
		logger: logger,
	}
}

// FetchHubMatches pages through every ongoing, upcoming and recent match of a hub.
func (c *Client) FetchHubMatches(ctx context.Context, hubID string) ([]match.Match, error) {
	hubID = strings.TrimSpace(hubID)
	if hubID == "" {
		return nil, crerr.New("faceit hub id is required")
	}

	out := make([]match.Match, 0, pageLimit)
	seen := make(map[string]struct{}, pageLimit)
	for _, kind := range []string{"ongoing", "upcoming", "past"} {
		for page := 0; page < maxPages; page++ {
			query := url.Values{}
			query.Set("type", kind)
			query.Set("offset", strconv.Itoa(page*pageLimit))
			query.Set("limit", strconv.Itoa(pageLimit))

			var envelope hubMatchesEnvelope
			if _, err := c.rest.GetJSON(ctx, "/hubs/"+url.PathEscape(hubID)+"/matches", query, &envelope); err != nil {
				return nil, crerr.Wrapf(err, "fetch faceit hub=%s type=%s", hubID, kind)
			}
			for _, item := range envelope.Items {
				if _, dup := seen[item.MatchID]; dup || item.MatchID == "" {
					continue
				}
				seen[item.MatchID] = struct{}{}
				out = append(out, item.toDomain())
			}
			// past matches only matter for the first page
			if len(envelope.Items) < pageLimit || kind == "past" {
				break
			}
		}
	}

	c.logger.DebugContext(ctx, "faceit hub matches fetched", "hub_id", hubID, "count", len(out))
	return out, nil
}

func (c *Client) FetchMatch(ctx context.Context, matchID string) (match.Match, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, crerr.New("faceit match id is required")
	}

	var item matchItem
	if _, err := c.rest.GetJSON(ctx, "/matches/"+url.PathEscape(matchID), nil, &item); err != nil {
		if restclient.IsNotFound(err) {
			return match.Match{}, crerr.Wrapf(usecase.ErrNotFound, "faceit match %s", matchID)
		}
		return match.Match{}, crerr.Wrapf(err, "fetch faceit match=%s", matchID)
	}
	return item.toDomain(), nil
}

type hubMatchesEnvelope struct {
	Items []matchItem `json:"items"`
	Start int         `json:"start"`
	End   int         `json:"end"`
}

type faction struct {
	FactionID string `json:"faction_id"`
	Name      string `json:"name"`
}

type matchItem struct {
	MatchID         string             `json:"match_id"`
	CompetitionID   string             `json:"competition_id"`
	CompetitionName string             `json:"competition_name"`
	Status          string             `json:"status"`
	BestOf          int                `json:"best_of"`
	ScheduledAt     int64              `json:"scheduled_at"`
	StartedAt       int64              `json:"started_at"`
	FinishedAt      int64              `json:"finished_at"`
	Teams           map[string]faction `json:"teams"`
	Results         struct {
		Winner string         `json:"winner"`
		Score  map[string]int `json:"score"`
	} `json:"results"`
	DetailedResults []struct {
		Winner   string `json:"winner"`
		Factions map[string]struct {
			Score int `json:"score"`
		} `json:"factions"`
	} `json:"detailed_results"`
}

func (m matchItem) toDomain() match.Match {
	teamA := m.Teams["faction1"]
	teamB := m.Teams["faction2"]

	out := match.Match{
		Provider:       match.ProviderFaceit,
		ExternalID:     m.MatchID,
		TournamentID:   m.CompetitionID,
		TournamentName: m.CompetitionName,
		TeamAID:        firstNonEmpty(teamA.FactionID, "faction1"),
		TeamAName:      teamA.Name,
		TeamBID:        firstNonEmpty(teamB.FactionID, "faction2"),
		TeamBName:      teamB.Name,
		BestOf:         max(m.BestOf, 1),
		RawStatus:      strings.TrimSpace(m.Status),
		ScheduledAt:    unixTime(m.ScheduledAt),
		StartedAt:      unixTimePtr(m.StartedAt),
		FinishedAt:     unixTimePtr(m.FinishedAt),
	}
	if out.ScheduledAt.IsZero() && out.StartedAt != nil {
		out.ScheduledAt = *out.StartedAt
	}

	factionTeam := map[string]string{"faction1": out.TeamAID, "faction2": out.TeamBID}
	out.Result.TeamAMaps = m.Results.Score["faction1"]
	out.Result.TeamBMaps = m.Results.Score["faction2"]
	out.Result.WinnerTeamID = factionTeam[m.Results.Winner]
	for i, detail := range m.DetailedResults {
		out.Result.Maps = append(out.Result.Maps, match.MapScore{
			Number:       i + 1,
			TeamAScore:   detail.Factions["faction1"].Score,
			TeamBScore:   detail.Factions["faction2"].Score,
			WinnerTeamID: factionTeam[detail.Winner],
		})
	}
	return out
}

func unixTime(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}

func unixTimePtr(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := unixTime(seconds)
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
