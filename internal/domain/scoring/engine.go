package scoring

import (
	"math"
	"strings"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
)

// Outcome is the slice of a finished match the engine needs.
type Outcome struct {
	TeamAID        string
	TeamBID        string
	TeamAMaps      int
	TeamBMaps      int
	WinnerTeamID   string
	TournamentName string
}

func OutcomeFromMatch(m match.Match) Outcome {
	return Outcome{
		TeamAID:        m.TeamAID,
		TeamBID:        m.TeamBID,
		TeamAMaps:      m.Result.TeamAMaps,
		TeamBMaps:      m.Result.TeamBMaps,
		WinnerTeamID:   m.Result.WinnerTeamID,
		TournamentName: m.TournamentName,
	}
}

type Options struct {
	Amateur bool
	Star    bool
}

// Breakdown is one scoring event: a pick scored against one match.
type Breakdown struct {
	TeamID            string  `json:"team_id"`
	InRoster          bool    `json:"in_roster"`
	MapsWon           int     `json:"maps_won"`
	MapsLost          int     `json:"maps_lost"`
	Won               bool    `json:"won"`
	MapPoints         int     `json:"map_points"`
	MatchWinPoints    int     `json:"match_win_points"`
	CleanSweepPoints  int     `json:"clean_sweep_points"`
	TournamentPoints  int     `json:"tournament_points"`
	BasePoints        int     `json:"base_points"`
	AmateurMultiplier float64 `json:"amateur_multiplier"`
	StarMultiplier    float64 `json:"star_multiplier"`
	// TournamentBonusHeuristic is set when the tournament bonus came from a
	// keyword match on the tournament name rather than a structured tier.
	TournamentBonusHeuristic bool `json:"tournament_bonus_heuristic"`
	Points                   int  `json:"points"`
}

// Score computes the points teamID earns from outcome.
func Score(rules Rules, outcome Outcome, teamID string, opts Options) Breakdown {
	out := Breakdown{
		TeamID:            teamID,
		AmateurMultiplier: 1,
		StarMultiplier:    1,
	}

	teamID = strings.TrimSpace(teamID)
	switch {
	case teamID == "":
		return out
	case teamID == outcome.TeamAID:
		out.MapsWon, out.MapsLost = outcome.TeamAMaps, outcome.TeamBMaps
	case teamID == outcome.TeamBID:
		out.MapsWon, out.MapsLost = outcome.TeamBMaps, outcome.TeamAMaps
	default:
		return out
	}
	out.InRoster = true

	out.MapPoints = out.MapsWon * rules.MapWinPoints
	out.Won = outcome.WinnerTeamID != "" && outcome.WinnerTeamID == teamID
	if out.Won {
		out.MatchWinPoints = rules.MatchWinPoints
		if out.MapsWon >= rules.CleanSweepMinMaps && out.MapsLost == 0 {
			out.CleanSweepPoints = rules.CleanSweepBonus
		}
		if IsTournamentFinal(rules, outcome.TournamentName) {
			out.TournamentPoints = rules.TournamentWinBonus
			out.TournamentBonusHeuristic = true
		}
	}
	out.BasePoints = out.MapPoints + out.MatchWinPoints + out.CleanSweepPoints + out.TournamentPoints

	total := float64(out.BasePoints)
	if opts.Amateur {
		out.AmateurMultiplier = rules.AmateurMultiplier
		total *= rules.AmateurMultiplier
	}
	if opts.Star {
		out.StarMultiplier = rules.StarMultiplier
		total *= rules.StarMultiplier
	}
	out.Points = int(math.Round(total))

	return out
}

// IsTournamentFinal applies the keyword heuristic to a tournament name.
func IsTournamentFinal(rules Rules, tournamentName string) bool {
	name := strings.ToLower(tournamentName)
	if strings.TrimSpace(name) == "" {
		return false
	}
	for _, kw := range rules.TournamentKeywords {
		if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
