package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/esports-fantasy/internal/domain/synclog"
	"github.com/riskibarqy/esports-fantasy/internal/platform/id"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
)

const (
	defaultSyncLogLimit = 50
	maxSyncLogLimit     = 500
)

type SyncLogService struct {
	repo synclog.Repository
}

func NewSyncLogService(repo synclog.Repository) *SyncLogService {
	return &SyncLogService{repo: repo}
}

func (s *SyncLogService) ListRecent(ctx context.Context, rawJob string, limit int) ([]synclog.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncLogService.ListRecent")
	defer span.End()

	job, err := synclog.ParseJob(rawJob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if limit <= 0 {
		limit = defaultSyncLogLimit
	}
	if limit > maxSyncLogLimit {
		limit = maxSyncLogLimit
	}

	items, err := s.repo.ListRecent(ctx, job, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync logs job=%s: %w", job, err)
	}
	return items, nil
}

// syncLogWriter persists run audit rows. Write failures never fail the run.
type syncLogWriter struct {
	repo    synclog.Repository
	ids     id.Generator
	metrics Metrics
	logger  *logging.Logger
}

func (w syncLogWriter) write(ctx context.Context, entry synclog.Entry, runErr error) {
	entry.Status = synclog.StatusSuccess
	if runErr != nil {
		entry.Status = synclog.StatusError
		entry.ErrorMessage = runErr.Error()
		entry.ErrorStack = fmt.Sprintf("%+v", runErr)
	}

	w.metrics.ObserveSyncRun(string(entry.Job), string(entry.Status), entry.Duration)
	w.metrics.AddSyncRows(string(entry.Job), entry.Upserted, entry.Failed)

	if w.repo == nil {
		return
	}
	if strings.TrimSpace(entry.ID) == "" && w.ids != nil {
		newID, err := w.ids.NewID()
		if err != nil {
			w.logger.WarnContext(ctx, "generate sync log id failed", "job", entry.Job, "error", err)
			return
		}
		entry.ID = newID
	}
	if err := w.repo.Insert(ctx, entry); err != nil {
		w.logger.WarnContext(ctx, "write sync log failed",
			"job", entry.Job,
			"operation", entry.Operation,
			"error", err,
		)
	}
}
