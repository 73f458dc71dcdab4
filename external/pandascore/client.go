package pandascore

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
	"github.com/riskibarqy/esports-fantasy/internal/domain/team"
	"github.com/riskibarqy/esports-fantasy/internal/domain/tournament"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/platform/resilience"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const (
	defaultBaseURL = "https://api.pandascore.co"
	pageSize       = 100
	maxMatchPages  = 5
)

type ClientConfig struct {
	BaseURL        string
	Token          string
	Videogame      string
	Timeout        time.Duration
	MaxRetries     int
	RequestSpacing time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Observe        restclient.ObserveFunc
}

type Client struct {
	rest      *restclient.Client
	videogame string
	logger    *logging.Logger
	now       func() time.Time
}

var _ usecase.PandaScoreFeed = (*Client)(nil)

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
			Name:           "pandascore",
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
		videogame: strings.Trim(strings.TrimSpace(cfg.Videogame), "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// FetchTeams returns one page of teams (1-based) and whether another page may follow.
func (c *Client) FetchTeams(ctx context.Context, page int) ([]team.Team, bool, error) {
	if page < 1 {
		page = 1
	}
	query := pageQuery(page)
	query.Set("sort", "id")

	var items []teamItem
	if _, err := c.rest.GetJSON(ctx, c.path("teams"), query, &items); err != nil {
		return nil, false, crerr.Wrapf(err, "fetch pandascore teams page=%d", page)
	}

	out := make([]team.Team, 0, len(items))
	for _, item := range items {
		out = append(out, item.toDomain())
	}
	return out, len(items) >= pageSize, nil
}

// FetchMatches collects running, upcoming and past matches that began after since,
// plus the tournaments they belong to.
func (c *Client) FetchMatches(ctx context.Context, since time.Time) ([]match.Match, []tournament.Tournament, error) {
	now := c.now().UTC()
	byID := make(map[string]match.Match, 128)
	tournaments := make(map[string]tournament.Tournament, 16)

	collect := func(items []matchItem) {
		for _, item := range items {
			m := item.toDomain()
			if m.ExternalID == "" {
				continue
			}
			byID[m.ExternalID] = m
			if t, ok := item.tournament(); ok {
				tournaments[t.ExternalID] = t
			}
		}
	}

	var running []matchItem
	if _, err := c.rest.GetJSON(ctx, c.path("matches/running"), pageQuery(1), &running); err != nil {
		return nil, nil, crerr.Wrap(err, "fetch pandascore running matches")
	}
	collect(running)

	for _, kind := range []string{"upcoming", "past"} {
		for page := 1; page <= maxMatchPages; page++ {
			query := pageQuery(page)
			if kind == "past" {
				query.Set("range[begin_at]", since.UTC().Format(time.RFC3339)+","+now.Format(time.RFC3339))
			} else {
				query.Set("range[begin_at]", now.Format(time.RFC3339)+","+now.Add(14*24*time.Hour).Format(time.RFC3339))
			}

			var items []matchItem
			if _, err := c.rest.GetJSON(ctx, c.path("matches/"+kind), query, &items); err != nil {
				return nil, nil, crerr.Wrapf(err, "fetch pandascore %s matches page=%d", kind, page)
			}
			collect(items)
			if len(items) < pageSize {
				break
			}
		}
	}

	matches := make([]match.Match, 0, len(byID))
	for _, m := range byID {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ExternalID < matches[j].ExternalID })

	outTournaments := make([]tournament.Tournament, 0, len(tournaments))
	for _, t := range tournaments {
		outTournaments = append(outTournaments, t)
	}
	sort.Slice(outTournaments, func(i, j int) bool { return outTournaments[i].ExternalID < outTournaments[j].ExternalID })

	c.logger.DebugContext(ctx, "pandascore matches fetched", "matches", len(matches), "tournaments", len(outTournaments))
	return matches, outTournaments, nil
}

func (c *Client) FetchMatch(ctx context.Context, matchID string) (match.Match, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, crerr.New("pandascore match id is required")
	}

	var item matchItem
	if _, err := c.rest.GetJSON(ctx, "/matches/"+url.PathEscape(matchID), nil, &item); err != nil {
		if restclient.IsNotFound(err) {
			return match.Match{}, crerr.Wrapf(usecase.ErrNotFound, "pandascore match %s", matchID)
		}
		return match.Match{}, crerr.Wrapf(err, "fetch pandascore match=%s", matchID)
	}
	return item.toDomain(), nil
}

func (c *Client) path(resource string) string {
	if c.videogame == "" {
		return "/" + resource
	}
	return "/" + c.videogame + "/" + resource
}

func pageQuery(page int) url.Values {
	query := url.Values{}
	query.Set("page[number]", strconv.Itoa(page))
	query.Set("page[size]", strconv.Itoa(pageSize))
	return query
}

type teamItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Acronym  string `json:"acronym"`
	ImageURL string `json:"image_url"`
	Location string `json:"location"`
}

func (t teamItem) toDomain() team.Team {
	return team.Team{
		Provider:   match.ProviderPandaScore,
		ExternalID: formatID(t.ID),
		Name:       strings.TrimSpace(t.Name),
		Acronym:    strings.TrimSpace(t.Acronym),
		ImageURL:   strings.TrimSpace(t.ImageURL),
		Location:   strings.TrimSpace(t.Location),
	}
}

type tournamentItem struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Tier    string  `json:"tier"`
	BeginAt *string `json:"begin_at"`
	EndAt   *string `json:"end_at"`
}

type matchItem struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	ScheduledAt   *string `json:"scheduled_at"`
	BeginAt       *string `json:"begin_at"`
	EndAt         *string `json:"end_at"`
	NumberOfGames int     `json:"number_of_games"`
	WinnerID      *int64  `json:"winner_id"`
	TournamentID  int64   `json:"tournament_id"`
	Opponents     []struct {
		Opponent teamItem `json:"opponent"`
	} `json:"opponents"`
	Results []struct {
		TeamID int64 `json:"team_id"`
		Score  int   `json:"score"`
	} `json:"results"`
	Games []struct {
		Position int    `json:"position"`
		Status   string `json:"status"`
		Winner   struct {
			ID *int64 `json:"id"`
		} `json:"winner"`
	} `json:"games"`
	League struct {
		Name string `json:"name"`
	} `json:"league"`
	Serie struct {
		FullName string `json:"full_name"`
	} `json:"serie"`
	Tournament tournamentItem `json:"tournament"`
	Videogame  struct {
		Slug string `json:"slug"`
	} `json:"videogame"`
}

func (m matchItem) toDomain() match.Match {
	out := match.Match{
		Provider:       match.ProviderPandaScore,
		ExternalID:     formatID(m.ID),
		TournamentID:   formatID(firstID(m.Tournament.ID, m.TournamentID)),
		TournamentName: tournamentLabel(m),
		BestOf:         max(m.NumberOfGames, 1),
		RawStatus:      strings.TrimSpace(m.Status),
		StartedAt:      parseTime(m.BeginAt),
		FinishedAt:     parseTime(m.EndAt),
	}
	if scheduled := parseTime(m.ScheduledAt); scheduled != nil {
		out.ScheduledAt = *scheduled
	} else if out.StartedAt != nil {
		out.ScheduledAt = *out.StartedAt
	}
	if out.RawStatus == string(match.ProNotStarted) {
		// begin_at mirrors scheduled_at until the match really starts
		out.StartedAt = nil
	}

	if len(m.Opponents) > 0 {
		out.TeamAID = formatID(m.Opponents[0].Opponent.ID)
		out.TeamAName = strings.TrimSpace(m.Opponents[0].Opponent.Name)
	}
	if len(m.Opponents) > 1 {
		out.TeamBID = formatID(m.Opponents[1].Opponent.ID)
		out.TeamBName = strings.TrimSpace(m.Opponents[1].Opponent.Name)
	}

	for _, r := range m.Results {
		switch formatID(r.TeamID) {
		case out.TeamAID:
			out.Result.TeamAMaps = r.Score
		case out.TeamBID:
			out.Result.TeamBMaps = r.Score
		}
	}
	if m.WinnerID != nil {
		out.Result.WinnerTeamID = formatID(*m.WinnerID)
	}
	for _, g := range m.Games {
		if g.Winner.ID == nil {
			continue
		}
		out.Result.Maps = append(out.Result.Maps, match.MapScore{
			Number:       g.Position,
			WinnerTeamID: formatID(*g.Winner.ID),
		})
	}
	sort.Slice(out.Result.Maps, func(i, j int) bool { return out.Result.Maps[i].Number < out.Result.Maps[j].Number })
	return out
}

func (m matchItem) tournament() (tournament.Tournament, bool) {
	if m.Tournament.ID <= 0 {
		return tournament.Tournament{}, false
	}
	return tournament.Tournament{
		Provider:   match.ProviderPandaScore,
		ExternalID: formatID(m.Tournament.ID),
		Name:       tournamentLabel(m),
		Tier:       strings.TrimSpace(m.Tournament.Tier),
		Videogame:  strings.TrimSpace(m.Videogame.Slug),
		StartsAt:   parseTime(m.Tournament.BeginAt),
		EndsAt:     parseTime(m.Tournament.EndAt),
	}, true
}

// tournamentLabel joins league, serie and stage so final-stage keywords survive.
func tournamentLabel(m matchItem) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{m.League.Name, m.Serie.FullName, m.Tournament.Name} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func parseTime(raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}

func formatID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func firstID(ids ...int64) int64 {
	for _, id := range ids {
		if id > 0 {
			return id
		}
	}
	return 0
}
