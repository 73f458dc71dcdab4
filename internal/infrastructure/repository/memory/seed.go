package memory

import (
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/team"
)

const (
	RoundIDWeekly = "round-weekly-open"
	RoundIDMajor  = "round-major-cup"
)

// SeedRounds returns rounds positioned around now so the memory driver is
// usable for local runs without a database.
func SeedRounds(now time.Time) []fantasy.Round {
	day := now.UTC().Truncate(24 * time.Hour)
	return []fantasy.Round{
		{
			ID:            RoundIDWeekly,
			Name:          "Weekly Open",
			Status:        fantasy.RoundOpen,
			StartsAt:      day.Add(-24 * time.Hour),
			LocksAt:       day.Add(48 * time.Hour),
			EndsAt:        day.Add(7 * 24 * time.Hour),
			EntryFeeCents: 500,
			Currency:      "usd",
			MaxPicks:      5,
			CreatedAt:     day.Add(-48 * time.Hour),
			UpdatedAt:     day.Add(-48 * time.Hour),
		},
		{
			ID:            RoundIDMajor,
			Name:          "Major Cup Round",
			Status:        fantasy.RoundDraft,
			StartsAt:      day.Add(7 * 24 * time.Hour),
			LocksAt:       day.Add(8 * 24 * time.Hour),
			EndsAt:        day.Add(14 * 24 * time.Hour),
			EntryFeeCents: 1000,
			Currency:      "usd",
			MaxPicks:      5,
			CreatedAt:     day,
			UpdatedAt:     day,
		},
	}
}

func SeedTeams() []team.Team {
	return []team.Team{
		{Provider: match.ProviderPandaScore, ExternalID: "3210", Name: "Team Vitality", Acronym: "VIT", Location: "FR"},
		{Provider: match.ProviderPandaScore, ExternalID: "3216", Name: "Natus Vincere", Acronym: "NAVI", Location: "UA"},
		{Provider: match.ProviderPandaScore, ExternalID: "3212", Name: "FaZe Clan", Acronym: "FaZe", Location: "EU"},
		{Provider: match.ProviderPandaScore, ExternalID: "3240", Name: "G2 Esports", Acronym: "G2", Location: "DE"},
		{Provider: match.ProviderFaceit, ExternalID: "fc-team-aurora", Name: "Aurora Academy", Acronym: "AUR"},
		{Provider: match.ProviderFaceit, ExternalID: "fc-team-ember", Name: "Ember Five", Acronym: "EMB"},
	}
}

func SeedMatches(now time.Time) []match.Match {
	now = now.UTC().Truncate(time.Minute)
	startedAt := now.Add(-40 * time.Minute)
	finishedAt := now.Add(-20 * time.Hour)
	return []match.Match{
		{
			Provider:       match.ProviderPandaScore,
			ExternalID:     "1001",
			TournamentName: "IEM Katowice Playoffs",
			TeamAID:        "3210",
			TeamAName:      "Team Vitality",
			TeamBID:        "3216",
			TeamBName:      "Natus Vincere",
			BestOf:         3,
			RawStatus:      "running",
			Phase:          match.PhaseLive,
			ScheduledAt:    startedAt,
			StartedAt:      &startedAt,
			LastUpdateAt:   &startedAt,
		},
		{
			Provider:       match.ProviderPandaScore,
			ExternalID:     "1002",
			TournamentName: "BLAST Premier World Final",
			TeamAID:        "3212",
			TeamAName:      "FaZe Clan",
			TeamBID:        "3240",
			TeamBName:      "G2 Esports",
			BestOf:         3,
			RawStatus:      "finished",
			Phase:          match.PhaseFinished,
			ScheduledAt:    finishedAt.Add(-2 * time.Hour),
			FinishedAt:     &finishedAt,
			Result:         match.Result{TeamAMaps: 2, TeamBMaps: 0, WinnerTeamID: "3212"},
		},
		{
			Provider:    match.ProviderFaceit,
			ExternalID:  "1-aurora-ember",
			TeamAID:     "fc-team-aurora",
			TeamAName:   "Aurora Academy",
			TeamBID:     "fc-team-ember",
			TeamBName:   "Ember Five",
			BestOf:      1,
			RawStatus:   "READY",
			Phase:       match.PhaseUpcoming,
			ScheduledAt: now.Add(3 * time.Hour),
		},
	}
}

func SeedSubscribers() []fantasy.Subscriber {
	return []fantasy.Subscriber{
		{UserID: "user-demo", Email: "demo@example.com", Name: "Demo"},
	}
}
