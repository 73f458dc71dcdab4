package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/esports-fantasy/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/esports-fantasy/internal/platform/querybuilder"
)

// A dispatch row moves sent -> completed|failed and never leaves completed.
// Each status stamps its own time and trace pair; the first sent stamp wins.
const jobDispatchConflictSuffix = `ON CONFLICT (dispatch_id) DO UPDATE SET
    job_name           = EXCLUDED.job_name,
    job_path           = EXCLUDED.job_path,
    provider           = COALESCE(EXCLUDED.provider, job_dispatch_events.provider),
    match_id           = COALESCE(EXCLUDED.match_id, job_dispatch_events.match_id),
    payload            = EXCLUDED.payload,
    status             = EXCLUDED.status,
    sent_at            = COALESCE(job_dispatch_events.sent_at, EXCLUDED.sent_at),
    sent_trace_id      = COALESCE(job_dispatch_events.sent_trace_id, EXCLUDED.sent_trace_id),
    sent_span_id       = COALESCE(job_dispatch_events.sent_span_id, EXCLUDED.sent_span_id),
    completed_at       = COALESCE(EXCLUDED.completed_at, job_dispatch_events.completed_at),
    completed_trace_id = COALESCE(EXCLUDED.completed_trace_id, job_dispatch_events.completed_trace_id),
    completed_span_id  = COALESCE(EXCLUDED.completed_span_id, job_dispatch_events.completed_span_id),
    failed_at          = CASE WHEN EXCLUDED.status = 'completed' THEN NULL ELSE COALESCE(EXCLUDED.failed_at, job_dispatch_events.failed_at) END,
    failed_trace_id    = COALESCE(EXCLUDED.failed_trace_id, job_dispatch_events.failed_trace_id),
    failed_span_id     = COALESCE(EXCLUDED.failed_span_id, job_dispatch_events.failed_span_id),
    last_error         = CASE WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.last_error ELSE NULL END,
    updated_at         = NOW()
WHERE job_dispatch_events.status <> 'completed' OR EXCLUDED.status = 'completed'`

// jobDispatchRow carries one timestamp and trace pair per status.
type jobDispatchRow struct {
	DispatchID       string     `db:"dispatch_id"`
	JobName          string     `db:"job_name"`
	JobPath          string     `db:"job_path"`
	Provider         *string    `db:"provider"`
	MatchID          *string    `db:"match_id"`
	Payload          string     `db:"payload"`
	Status           string     `db:"status"`
	SentAt           *time.Time `db:"sent_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	FailedAt         *time.Time `db:"failed_at"`
	LastError        *string    `db:"last_error"`
	SentTraceID      *string    `db:"sent_trace_id"`
	SentSpanID       *string    `db:"sent_span_id"`
	CompletedTraceID *string    `db:"completed_trace_id"`
	CompletedSpanID  *string    `db:"completed_span_id"`
	FailedTraceID    *string    `db:"failed_trace_id"`
	FailedSpanID     *string    `db:"failed_span_id"`
}

type JobDispatchRepository struct {
	db *sqlx.DB
}

var _ jobscheduler.Repository = (*JobDispatchRepository)(nil)

func NewJobDispatchRepository(db *sqlx.DB) *JobDispatchRepository {
	return &JobDispatchRepository{db: db}
}

func (r *JobDispatchRepository) UpsertEvent(ctx context.Context, event jobscheduler.DispatchEvent) error {
	query, args, err := buildJobDispatchUpsert(event, time.Now())
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job dispatch dispatch_id=%s status=%s: %w", event.DispatchID, event.Status, err)
	}
	return nil
}

func buildJobDispatchUpsert(event jobscheduler.DispatchEvent, now time.Time) (string, []any, error) {
	if err := event.Validate(); err != nil {
		return "", nil, err
	}
	dispatchID := strings.TrimSpace(event.DispatchID)

	jobName := strings.TrimSpace(event.JobName)
	if jobName == "" {
		jobName = "unknown"
	}
	jobPath := strings.TrimSpace(event.JobPath)
	if jobPath == "" {
		jobPath = "/unknown"
	}
	occurredAt := utcOrNow(event.OccurredAt, now)

	payloadJSON, err := marshalPayload(event.Payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal job dispatch payload: %w", err)
	}

	row := jobDispatchRow{
		DispatchID: dispatchID,
		JobName:    jobName,
		JobPath:    jobPath,
		Provider:   optionalString(event.Provider),
		MatchID:    optionalString(event.MatchID),
		Payload:    payloadJSON,
		Status:     string(event.Status),
	}

	switch event.Status {
	case jobscheduler.StatusSent:
		row.SentAt = &occurredAt
		row.SentTraceID = optionalString(event.TraceID)
		row.SentSpanID = optionalString(event.SpanID)
	case jobscheduler.StatusCompleted:
		row.CompletedAt = &occurredAt
		row.CompletedTraceID = optionalString(event.TraceID)
		row.CompletedSpanID = optionalString(event.SpanID)
	case jobscheduler.StatusFailed:
		row.FailedAt = &occurredAt
		row.FailedTraceID = optionalString(event.TraceID)
		row.FailedSpanID = optionalString(event.SpanID)
		row.LastError = optionalString(event.ErrorMessage)
	}

	query, args, err := qb.InsertModel("job_dispatch_events", row, jobDispatchConflictSuffix)
	if err != nil {
		return "", nil, fmt.Errorf("build upsert job dispatch query: %w", err)
	}
	return query, args, nil
}

func marshalPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
