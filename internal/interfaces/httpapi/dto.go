package httpapi

import (
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/synclog"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

type pickRequest struct {
	Provider       string `json:"provider" validate:"required,oneof=faceit pandascore sportdevs"`
	TeamExternalID string `json:"team_external_id" validate:"required"`
	TeamName       string `json:"team_name" validate:"max=120"`
	TeamType       string `json:"team_type" validate:"required,oneof=pro amateur"`
}

type submitPicksRequest struct {
	Picks      []pickRequest `json:"picks" validate:"dive"`
	StarTeamID string        `json:"star_team_id"`
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=stripe coinbase"`
	UsePromo      bool   `json:"use_promo"`
}

type internalJobRequest struct {
	DispatchID string `json:"dispatch_id"`
	Provider   string `json:"provider" validate:"omitempty,oneof=faceit pandascore sportdevs"`
	MatchID    string `json:"match_id"`
	RoundID    string `json:"round_id"`
	Until      string `json:"until" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type roundDTO struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	StartsAt      time.Time `json:"starts_at"`
	LocksAt       time.Time `json:"locks_at"`
	EndsAt        time.Time `json:"ends_at"`
	EntryFeeCents int64     `json:"entry_fee_cents"`
	Currency      string    `json:"currency"`
	MaxPicks      int       `json:"max_picks"`
}

type pickDTO struct {
	Provider       string `json:"provider"`
	TeamExternalID string `json:"team_external_id"`
	TeamName       string `json:"team_name"`
	TeamType       string `json:"team_type"`
	Star           bool   `json:"star"`
}

type lineupDTO struct {
	Round roundDTO  `json:"round"`
	Picks []pickDTO `json:"picks"`
}

type matchDTO struct {
	Provider       string       `json:"provider"`
	ExternalID     string       `json:"external_id"`
	TournamentID   string       `json:"tournament_id,omitempty"`
	TournamentName string       `json:"tournament_name,omitempty"`
	TeamAID        string       `json:"team_a_id"`
	TeamAName      string       `json:"team_a_name"`
	TeamBID        string       `json:"team_b_id"`
	TeamBName      string       `json:"team_b_name"`
	BestOf         int          `json:"best_of"`
	Status         string       `json:"status"`
	Phase          string       `json:"phase"`
	ScheduledAt    time.Time    `json:"scheduled_at"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
	Result         match.Result `json:"result"`
}

type syncLogDTO struct {
	ID           string    `json:"id"`
	Job          string    `json:"job"`
	Operation    string    `json:"operation"`
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	DurationMS   int64     `json:"duration_ms"`
	Fetched      int       `json:"fetched"`
	Upserted     int       `json:"upserted"`
	Transitioned int       `json:"transitioned"`
	Failed       int       `json:"failed"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

type syncSummaryDTO struct {
	Job          string `json:"job"`
	Runs         int    `json:"runs"`
	Errors       int    `json:"errors"`
	Fetched      int    `json:"fetched"`
	Upserted     int    `json:"upserted"`
	Transitioned int    `json:"transitioned"`
	Failed       int    `json:"failed"`
	LastError    string `json:"last_error,omitempty"`
}

type dailyReportDTO struct {
	From         time.Time            `json:"from"`
	To           time.Time            `json:"to"`
	Jobs         []syncSummaryDTO     `json:"jobs"`
	PaidEntries  int                  `json:"paid_entries"`
	RevenueCents int64                `json:"revenue_cents"`
	Email        usecase.NotifyResult `json:"email"`
	ChatPosted   bool                 `json:"chat_posted"`
}

func toRoundDTO(round fantasy.Round) roundDTO {
	return roundDTO{
		ID:            round.ID,
		Name:          round.Name,
		Status:        string(round.Status),
		StartsAt:      round.StartsAt,
		LocksAt:       round.LocksAt,
		EndsAt:        round.EndsAt,
		EntryFeeCents: round.EntryFeeCents,
		Currency:      round.Currency,
		MaxPicks:      round.MaxPicks,
	}
}

func toLineupDTO(lineup usecase.UserLineup) lineupDTO {
	picks := make([]pickDTO, 0, len(lineup.Picks))
	for _, p := range lineup.Picks {
		picks = append(picks, pickDTO{
			Provider:       string(p.Provider),
			TeamExternalID: p.TeamExternalID,
			TeamName:       p.TeamName,
			TeamType:       string(p.TeamType),
			Star:           lineup.Star != nil && lineup.Star.Matches(p),
		})
	}
	return lineupDTO{Round: toRoundDTO(lineup.Round), Picks: picks}
}

func toMatchDTO(m match.Match) matchDTO {
	return matchDTO{
		Provider:       string(m.Provider),
		ExternalID:     m.ExternalID,
		TournamentID:   m.TournamentID,
		TournamentName: m.TournamentName,
		TeamAID:        m.TeamAID,
		TeamAName:      m.TeamAName,
		TeamBID:        m.TeamBID,
		TeamBName:      m.TeamBName,
		BestOf:         m.BestOf,
		Status:         m.RawStatus,
		Phase:          string(m.Phase),
		ScheduledAt:    m.ScheduledAt,
		StartedAt:      m.StartedAt,
		FinishedAt:     m.FinishedAt,
		Result:         m.Result,
	}
}

func toSyncLogDTO(entry synclog.Entry) syncLogDTO {
	return syncLogDTO{
		ID:           entry.ID,
		Job:          string(entry.Job),
		Operation:    entry.Operation,
		Status:       string(entry.Status),
		StartedAt:    entry.StartedAt,
		DurationMS:   entry.Duration.Milliseconds(),
		Fetched:      entry.Fetched,
		Upserted:     entry.Upserted,
		Transitioned: entry.Transitioned,
		Failed:       entry.Failed,
		ErrorMessage: entry.ErrorMessage,
	}
}

func toDailyReportDTO(report usecase.DailyReport) dailyReportDTO {
	jobs := make([]syncSummaryDTO, 0, len(report.Jobs))
	for _, s := range report.Jobs {
		jobs = append(jobs, syncSummaryDTO{
			Job:          string(s.Job),
			Runs:         s.Runs,
			Errors:       s.Errors,
			Fetched:      s.Fetched,
			Upserted:     s.Upserted,
			Transitioned: s.Transitioned,
			Failed:       s.Failed,
			LastError:    s.LastError,
		})
	}
	return dailyReportDTO{
		From:         report.From,
		To:           report.To,
		Jobs:         jobs,
		PaidEntries:  report.PaidEntries,
		RevenueCents: report.RevenueCents,
		Email:        report.Email,
		ChatPosted:   report.ChatPosted,
	}
}
