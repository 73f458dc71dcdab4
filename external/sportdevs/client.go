package sportdevs

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/esports-fantasy/external/restclient"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/tournament"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/platform/resilience"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const (
	defaultBaseURL = "https://esports.sportdevs.com"
	pageSize       = 50
	maxPages       = 10
	idChunkSize    = 20
)

// statusAliases folds the SportDevs status vocabulary onto the shared pro tokens.
var statusAliases = map[string]string{
	"notstarted": string(match.ProNotStarted),
	"inprogress": string(match.ProRunning),
	"live":       string(match.ProLive),
	"finished":   string(match.ProFinished),
	"ended":      string(match.ProFinished),
	"canceled":   string(match.ProCanceled),
	"cancelled":  string(match.ProCancelled),
	"postponed":  string(match.ProPostponed),
	"walkover":   string(match.ProForfeit),
}

type ClientConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	RequestSpacing time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Observe        restclient.ObserveFunc
}

type Client struct {
	rest   *restclient.Client
	logger *logging.Logger
}

var _ usecase.SportDevsFeed = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	token := strings.TrimSpace(cfg.Token)

	return &Client{
		rest: restclient.New(restclient.Config{
			Name:           "sportdevs",
			BaseURL:        baseURL,
			Timeout:        cfg.Timeout,
			MaxRetries:     cfg.MaxRetries,
			RequestSpacing: cfg.RequestSpacing,
			Headers:        map[string]string{"Authorization": "Bearer " + token},
			Secrets:        []string{token},
			Logger:         logger,
			CircuitBreaker: cfg.CircuitBreaker,
			Observe:        cfg.Observe,
		}),
		logger: logger,
	}
}

func (c *Client) FetchMatches(ctx context.Context, since time.Time) ([]match.Match, error) {
	out := make([]match.Match, 0, pageSize)
	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("start_time", "gte."+since.UTC().Format(time.RFC3339))
		query.Set("order", "start_time.asc")
		query.Set("limit", strconv.Itoa(pageSize))
		query.Set("offset", strconv.Itoa(page*pageSize))

		var items []matchItem
		if _, err := c.rest.GetJSON(ctx, "/matches", query, &items); err != nil {
			return nil, crerr.Wrapf(err, "fetch sportdevs matches page=%d", page)
		}
		for _, item := range items {
			if m := item.toDomain(); m.ExternalID != "" {
				out = append(out, m)
			}
		}
		if len(items) < pageSize {
			break
		}
	}
	return out, nil
}

func (c *Client) FetchTournaments(ctx context.Context, ids []string) ([]tournament.Tournament, error) {
	unique := uniqueIDs(ids)
	out := make([]tournament.Tournament, 0, len(unique))
	for start := 0; start < len(unique); start += idChunkSize {
		end := min(start+idChunkSize, len(unique))
		query := url.Values{}
		query.Set("id", "in.("+strings.Join(unique[start:end], ",")+")")

		var items []tournamentItem
		if _, err := c.rest.GetJSON(ctx, "/tournaments", query, &items); err != nil {
			return nil, crerr.Wrapf(err, "fetch sportdevs tournaments chunk=%d", start/idChunkSize)
		}
		for _, item := range items {
			out = append(out, item.toDomain())
		}
	}
	return out, nil
}

func (c *Client) FetchMatch(ctx context.Context, matchID string) (match.Match, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, crerr.New("sportdevs match id is required")
	}

	query := url.Values{}
	query.Set("id", "eq."+matchID)
	var items []matchItem
	if _, err := c.rest.GetJSON(ctx, "/matches", query, &items); err != nil {
		return match.Match{}, crerr.Wrapf(err, "fetch sportdevs match=%s", matchID)
	}
	if len(items) == 0 {
		return match.Match{}, crerr.Wrapf(usecase.ErrNotFound, "sportdevs match %s", matchID)
	}
	return items[0].toDomain(), nil
}

type score struct {
	Current *int `json:"current"`
	Display *int `json:"display"`
}

func (s score) value() int {
	switch {
	case s.Display != nil:
		return *s.Display
	case s.Current != nil:
		return *s.Current
	default:
		return 0
	}
}

type matchItem struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TournamentID   int64  `json:"tournament_id"`
	TournamentName string `json:"tournament_name"`
	LeagueName     string `json:"league_name"`
	HomeTeamID     int64  `json:"home_team_id"`
	HomeTeamName   string `json:"home_team_name"`
	AwayTeamID     int64  `json:"away_team_id"`
	AwayTeamName   string `json:"away_team_name"`
	StatusType     string `json:"status_type"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	BestOf         int    `json:"best_of"`
	HomeTeamScore  score  `json:"home_team_score"`
	AwayTeamScore  score  `json:"away_team_score"`
	WinnerCode     int    `json:"winner_code"`
}

func (m matchItem) toDomain() match.Match {
	out := match.Match{
		Provider:       match.ProviderSportDevs,
		ExternalID:     formatID(m.ID),
		TournamentID:   formatID(m.TournamentID),
		TournamentName: strings.TrimSpace(strings.TrimSpace(m.LeagueName) + " " + strings.TrimSpace(m.TournamentName)),
		TeamAID:        formatID(m.HomeTeamID),
		TeamAName:      strings.TrimSpace(m.HomeTeamName),
		TeamBID:        formatID(m.AwayTeamID),
		TeamBName:      strings.TrimSpace(m.AwayTeamName),
		BestOf:         max(m.BestOf, 1),
		RawStatus:      NormalizeStatus(m.StatusType),
		FinishedAt:     parseTime(m.EndTime),
	}
	if scheduled := parseTime(m.StartTime); scheduled != nil {
		out.ScheduledAt = *scheduled
	}
	out.Result.TeamAMaps = m.HomeTeamScore.value()
	out.Result.TeamBMaps = m.AwayTeamScore.value()
	switch m.WinnerCode {
	case 1:
		out.Result.WinnerTeamID = out.TeamAID
	case 2:
		out.Result.WinnerTeamID = out.TeamBID
	}
	return out
}

type tournamentItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Tier      string `json:"tier"`
	ClassName string `json:"class_name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (t tournamentItem) toDomain() tournament.Tournament {
	return tournament.Tournament{
		Provider:   match.ProviderSportDevs,
		ExternalID: formatID(t.ID),
		Name:       strings.TrimSpace(t.Name),
		Tier:       strings.TrimSpace(t.Tier),
		Videogame:  strings.TrimSpace(t.ClassName),
		StartsAt:   parseTime(t.StartTime),
		EndsAt:     parseTime(t.EndTime),
	}
}

// NormalizeStatus maps a SportDevs status onto the shared pro vocabulary.
// Unknown values pass through lowercased.
func NormalizeStatus(raw string) string {
	token := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := statusAliases[token]; ok {
		return alias
	}
	return token
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

func formatID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
