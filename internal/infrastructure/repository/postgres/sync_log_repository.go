package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/esports-fantasy/internal/domain/synclog"
	qb "github.com/riskibarqy/esports-fantasy/internal/platform/querybuilder"
)

type syncLogTableModel struct {
	ID           string         `db:"id"`
	Operation    string         `db:"operation"`
	Status       string         `db:"status"`
	StartedAt    time.Time      `db:"started_at"`
	DurationMS   int64          `db:"duration_ms"`
	Fetched      int            `db:"fetched"`
	Upserted     int            `db:"upserted"`
	Transitioned int            `db:"transitioned"`
	Failed       int            `db:"failed"`
	ErrorMessage sql.NullString `db:"error_message"`
	ErrorStack   sql.NullString `db:"error_stack"`
}

type syncLogInsertModel struct {
	ID           string    `db:"id"`
	Operation    string    `db:"operation"`
	Status       string    `db:"status"`
	StartedAt    time.Time `db:"started_at"`
	DurationMS   int64     `db:"duration_ms"`
	Fetched      int       `db:"fetched"`
	Upserted     int       `db:"upserted"`
	Transitioned int       `db:"transitioned"`
	Failed       int       `db:"failed"`
	ErrorMessage *string   `db:"error_message"`
	ErrorStack   *string   `db:"error_stack"`
}

// SyncLogRepository writes each sync job's audit trail to its own
// <job>_sync_logs table.
type SyncLogRepository struct {
	db *sqlx.DB
}

var _ synclog.Repository = (*SyncLogRepository)(nil)

func NewSyncLogRepository(db *sqlx.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

func syncLogTable(job synclog.Job) (string, error) {
	if _, err := synclog.ParseJob(string(job)); err != nil {
		return "", err
	}
	return string(job) + "_sync_logs", nil
}

func (r *SyncLogRepository) Insert(ctx context.Context, entry synclog.Entry) error {
	table, err := syncLogTable(entry.Job)
	if err != nil {
		return err
	}

	query, args, err := qb.InsertModel(table, syncLogInsertModel{
		ID:           entry.ID,
		Operation:    entry.Operation,
		Status:       string(entry.Status),
		StartedAt:    entry.StartedAt.UTC(),
		DurationMS:   entry.Duration.Milliseconds(),
		Fetched:      entry.Fetched,
		Upserted:     entry.Upserted,
		Transitioned: entry.Transitioned,
		Failed:       entry.Failed,
		ErrorMessage: optionalString(entry.ErrorMessage),
		ErrorStack:   optionalString(entry.ErrorStack),
	}, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert sync log query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s id=%s: %w", table, entry.ID, err)
	}
	return nil
}

func (r *SyncLogRepository) ListRecent(ctx context.Context, job synclog.Job, limit int) ([]synclog.Entry, error) {
	table, err := syncLogTable(job)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query, args, err := qb.Select("*").From(table).
		OrderBy("started_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list sync logs query: %w", err)
	}
	return r.selectEntries(ctx, job, query, args)
}

// ListSince returns entries of every job started at or after since, oldest first.
func (r *SyncLogRepository) ListSince(ctx context.Context, since time.Time) ([]synclog.Entry, error) {
	out := make([]synclog.Entry, 0)
	for _, job := range synclog.Jobs() {
		table, _ := syncLogTable(job)
		query, args, err := qb.Select("*").From(table).
			Where(qb.Gte("started_at", since.UTC())).
			OrderBy("started_at", "id").
			ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build list sync logs since query: %w", err)
		}
		items, err := r.selectEntries(ctx, job, query, args)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r *SyncLogRepository) selectEntries(ctx context.Context, job synclog.Job, query string, args []any) ([]synclog.Entry, error) {
	var rows []syncLogTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s sync logs: %w", job, err)
	}

	out := make([]synclog.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, synclog.Entry{
			ID:           row.ID,
			Job:          job,
			Operation:    row.Operation,
			Status:       synclog.Status(row.Status),
			StartedAt:    row.StartedAt.UTC(),
			Duration:     time.Duration(row.DurationMS) * time.Millisecond,
			Fetched:      row.Fetched,
			Upserted:     row.Upserted,
			Transitioned: row.Transitioned,
			Failed:       row.Failed,
			ErrorMessage: nullStringValue(row.ErrorMessage),
			ErrorStack:   nullStringValue(row.ErrorStack),
		})
	}
	return out, nil
}
