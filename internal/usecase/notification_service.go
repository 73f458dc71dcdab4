package usecase

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/synclog"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
)

var roundOpenTemplate = template.Must(template.New("round_open").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>{{.Round.Name}} is open</h2>
<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}}, picks are open until {{.LocksAt}}.</p>
<p>Entry fee: {{.Fee}}</p>
{{if .URL}}<p><a href="{{.URL}}">Build your lineup</a></p>{{end}}
</body></html>`))

var dailyReportTemplate = template.Must(template.New("daily_report").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>Daily report {{.From}} to {{.To}}</h2>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Job</th><th>Runs</th><th>Errors</th><th>Fetched</th><th>Upserted</th><th>Transitioned</th><th>Failed</th><th>Last error</th></tr>
{{range .Jobs}}<tr><td>{{.Job}}</td><td>{{.Runs}}</td><td>{{.Errors}}</td><td>{{.Fetched}}</td><td>{{.Upserted}}</td><td>{{.Transitioned}}</td><td>{{.Failed}}</td><td>{{.LastError}}</td></tr>
{{else}}<tr><td colspan="8">No sync runs recorded.</td></tr>
{{end}}</table>
<p>Paid entries: {{.PaidEntries}}</p>
<p>Revenue: {{.Revenue}}</p>
</body></html>`))

type NotificationConfig struct {
	AppURL           string
	ReportRecipients []string
}

type NotifyResult struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

type DailyReport struct {
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Jobs        []synclog.Summary `json:"jobs"`
	PaidEntries int               `json:"paid_entries"`
	// RevenueCents is gateway revenue only; promo credit is excluded.
	RevenueCents int64        `json:"revenue_cents"`
	Email        NotifyResult `json:"email"`
	ChatPosted   bool         `json:"chat_posted"`
}

type NotificationService struct {
	roundRepo      fantasy.Repository
	subscriberRepo fantasy.SubscriberRepository
	entryRepo      fantasy.EntryRepository
	syncLogRepo    synclog.Repository
	mailer         Mailer
	chat           ChatNotifier
	cfg            NotificationConfig
	metrics        Metrics
	logger         *logging.Logger
	now            func() time.Time
}

func NewNotificationService(
	roundRepo fantasy.Repository,
	subscriberRepo fantasy.SubscriberRepository,
	entryRepo fantasy.EntryRepository,
	syncLogRepo synclog.Repository,
	mailer Mailer,
	chat ChatNotifier,
	cfg NotificationConfig,
	metrics Metrics,
	logger *logging.Logger,
) *NotificationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationService{
		roundRepo:      roundRepo,
		subscriberRepo: subscriberRepo,
		entryRepo:      entryRepo,
		syncLogRepo:    syncLogRepo,
		mailer:         mailer,
		chat:           chat,
		cfg:            cfg,
		metrics:        metricsOrNoop(metrics),
		logger:         logger,
		now:            time.Now,
	}
}

// NotifyRoundOpen emails every subscriber. Per-recipient failures are
// logged and counted; the run keeps going.
func (s *NotificationService) NotifyRoundOpen(ctx context.Context, roundID string) (NotifyResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.NotifyRoundOpen")
	defer span.End()

	if s.mailer == nil {
		return NotifyResult{}, fmt.Errorf("%w: mailer is not configured", ErrDependencyUnavailable)
	}
	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return NotifyResult{}, fmt.Errorf("%w: round id is required", ErrInvalidInput)
	}
	round, exists, err := s.roundRepo.GetRound(ctx, roundID)
	if err != nil {
		return NotifyResult{}, fmt.Errorf("get round=%s: %w", roundID, err)
	}
	if !exists {
		return NotifyResult{}, fmt.Errorf("%w: round=%s", ErrNotFound, roundID)
	}
	if round.Status != fantasy.RoundOpen {
		return NotifyResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, fantasy.ErrRoundNotOpen)
	}

	subscribers, err := s.subscriberRepo.ListRoundSubscribers(ctx)
	if err != nil {
		return NotifyResult{}, fmt.Errorf("list subscribers: %w", err)
	}

	result := NotifyResult{}
	for _, sub := range subscribers {
		email := strings.TrimSpace(sub.Email)
		if email == "" {
			continue
		}
		result.Recipients++

		html, err := renderTemplate(roundOpenTemplate, map[string]any{
			"Round":   round,
			"Name":    sub.Name,
			"LocksAt": round.LocksAt.UTC().Format("Mon 02 Jan 15:04 MST"),
			"Fee":     formatCents(round.EntryFeeCents, round.Currency),
			"URL":     s.roundURL(round.ID),
		})
		if err != nil {
			return result, fmt.Errorf("render round open email: %w", err)
		}

		if _, err := s.mailer.Send(ctx, Email{
			To:      []string{email},
			Subject: round.Name + " is open for picks",
			HTML:    html,
			Tags:    map[string]string{"category": "round_open", "round_id": round.ID},
		}); err != nil {
			result.Failed++
			s.metrics.IncEmail("round_open", "error")
			s.logger.WarnContext(ctx, "send round open email failed", "round_id", round.ID, "user_id", sub.UserID, "error", err)
			continue
		}
		result.Sent++
		s.metrics.IncEmail("round_open", "sent")
	}

	s.logger.InfoContext(ctx, "round open notifications sent",
		"round_id", round.ID,
		"recipients", result.Recipients,
		"sent", result.Sent,
		"failed", result.Failed,
	)
	return result, nil
}

// SendDailyReport covers the 24 hours before until.
func (s *NotificationService) SendDailyReport(ctx context.Context, until time.Time) (DailyReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.SendDailyReport")
	defer span.End()

	if until.IsZero() {
		until = s.now()
	}
	until = until.UTC()
	from := until.Add(-24 * time.Hour)

	logs, err := s.syncLogRepo.ListSince(ctx, from)
	if err != nil {
		return DailyReport{}, fmt.Errorf("list sync logs since %s: %w", from.Format(time.RFC3339), err)
	}
	entries, err := s.entryRepo.ListEntriesPaidBetween(ctx, from, until)
	if err != nil {
		return DailyReport{}, fmt.Errorf("list paid entries: %w", err)
	}

	report := DailyReport{From: from, To: until, Jobs: synclog.Summarize(logs)}
	for _, entry := range entries {
		if entry.Status != fantasy.EntryPaid {
			continue
		}
		report.PaidEntries++
		report.RevenueCents += entry.AmountPaidCents
	}

	if s.mailer != nil && len(s.cfg.ReportRecipients) > 0 {
		html, err := renderTemplate(dailyReportTemplate, map[string]any{
			"From":        from.Format(time.RFC3339),
			"To":          until.Format(time.RFC3339),
			"Jobs":        report.Jobs,
			"PaidEntries": report.PaidEntries,
			"Revenue":     formatCents(report.RevenueCents, "usd"),
		})
		if err != nil {
			return DailyReport{}, fmt.Errorf("render daily report: %w", err)
		}
		report.Email.Recipients = len(s.cfg.ReportRecipients)
		if _, err := s.mailer.Send(ctx, Email{
			To:      s.cfg.ReportRecipients,
			Subject: "Daily report " + until.Format("2006-01-02"),
			HTML:    html,
			Tags:    map[string]string{"category": "daily_report"},
		}); err != nil {
			report.Email.Failed = report.Email.Recipients
			s.metrics.IncEmail("daily_report", "error")
			s.logger.WarnContext(ctx, "send daily report failed", "error", err)
		} else {
			report.Email.Sent = report.Email.Recipients
			s.metrics.IncEmail("daily_report", "sent")
		}
	}

	if s.chat != nil {
		if err := s.chat.Notify(ctx, dailyReportSummary(report)); err != nil {
			s.logger.WarnContext(ctx, "post daily report summary failed", "error", err)
		} else {
			report.ChatPosted = true
		}
	}

	return report, nil
}

func (s *NotificationService) roundURL(roundID string) string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.AppURL), "/")
	if base == "" {
		return ""
	}
	return base + "/rounds/" + roundID
}

func dailyReportSummary(report DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily report %s\n", report.To.Format("2006-01-02"))
	for _, job := range report.Jobs {
		fmt.Fprintf(&b, "%s: %d runs, %d errors, %d upserted\n", job.Job, job.Runs, job.Errors, job.Upserted)
	}
	fmt.Fprintf(&b, "Paid entries: %d, revenue %s", report.PaidEntries, formatCents(report.RevenueCents, "usd"))
	return b.String()
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := tmpl.Execute(buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatCents(cents int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
