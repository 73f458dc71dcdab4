package match

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies the upstream feed a match row was synced from.
type Provider string

const (
	ProviderFaceit     Provider = "faceit"
	ProviderPandaScore Provider = "pandascore"
	ProviderSportDevs  Provider = "sportdevs"
)

// Feed groups providers by the kind of competition they cover.
type Feed string

const (
	FeedAmateur Feed = "amateur"
	FeedPro     Feed = "pro"
)

func Providers() []Provider {
	return []Provider{ProviderFaceit, ProviderPandaScore, ProviderSportDevs}
}

func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown match provider %q", raw)
	}
	return p, nil
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderFaceit, ProviderPandaScore, ProviderSportDevs:
		return true
	default:
		return false
	}
}

func (p Provider) Feed() Feed {
	if p == ProviderFaceit {
		return FeedAmateur
	}
	return FeedPro
}

// Phase is the canonical lifecycle state of a match.
type Phase string

const (
	PhaseUpcoming Phase = "upcoming"
	PhaseLive     Phase = "live"
	PhaseFinished Phase = "finished"
)

func ParsePhase(raw string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(raw)))
	if p.rank() < 0 {
		return "", fmt.Errorf("unknown match phase %q", raw)
	}
	return p, nil
}

func (p Phase) rank() int {
	switch p {
	case PhaseUpcoming:
		return 0
	case PhaseLive:
		return 1
	case PhaseFinished:
		return 2
	default:
		return -1
	}
}

// Later returns whichever phase is further along. Phases never move backwards.
func Later(a, b Phase) Phase {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

type MapScore struct {
	Number       int    `json:"number"`
	Name         string `json:"name,omitempty"`
	TeamAScore   int    `json:"team_a_score"`
	TeamBScore   int    `json:"team_b_score"`
	WinnerTeamID string `json:"winner_team_id,omitempty"`
}

// Result is the series outcome. WinnerTeamID is empty for a draw or an unfinished series.
type Result struct {
	TeamAMaps    int        `json:"team_a_maps"`
	TeamBMaps    int        `json:"team_b_maps"`
	WinnerTeamID string     `json:"winner_team_id,omitempty"`
	Maps         []MapScore `json:"maps,omitempty"`
}

type Match struct {
	Provider       Provider
	ExternalID     string
	TournamentID   string
	TournamentName string
	TeamAID        string
	TeamAName      string
	TeamBID        string
	TeamBName      string
	BestOf         int
	RawStatus      string
	Phase          Phase
	ScheduledAt    time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	LastUpdateAt   *time.Time
	Result         Result
	UpdatedAt      time.Time
}

// HasTeam reports whether teamID is one of the two sides.
func (m Match) HasTeam(teamID string) bool {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return false
	}
	return m.TeamAID == teamID || m.TeamBID == teamID
}

// MergeSynced folds a freshly synced provider row into the stored one.
// Stored lifecycle timestamps win and the phase only moves forward.
func MergeSynced(stored Match, exists bool, incoming Match, now time.Time) Match {
	out := incoming
	if exists {
		out.Phase = Later(stored.Phase, incoming.Phase)
		out.StartedAt = firstSet(stored.StartedAt, incoming.StartedAt)
		out.FinishedAt = firstSet(stored.FinishedAt, incoming.FinishedAt)
		out.LastUpdateAt = stored.LastUpdateAt
		if out.Phase != incoming.Phase {
			out.RawStatus = stored.RawStatus
		}
		if out.Result.WinnerTeamID == "" && len(out.Result.Maps) == 0 && out.Result.TeamAMaps == 0 && out.Result.TeamBMaps == 0 {
			out.Result = stored.Result
		}
	}

	switch out.Phase {
	case PhaseLive:
		if out.StartedAt == nil {
			out.StartedAt = timePtr(now)
		}
		if incoming.Phase == PhaseLive || out.LastUpdateAt == nil {
			out.LastUpdateAt = timePtr(now)
		}
	case PhaseFinished:
		if out.FinishedAt == nil {
			out.FinishedAt = timePtr(now)
		}
	}
	out.UpdatedAt = now
	return out
}

func firstSet(values ...*time.Time) *time.Time {
	for _, v := range values {
		if v != nil && !v.IsZero() {
			cp := *v
			return &cp
		}
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	v := t
	return &v
}
