package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/jobscheduler"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const (
	jobPathBootstrap        = "/v1/internal/jobs/bootstrap"
	jobPathRecalculateRound = "/v1/internal/jobs/recalculate-round"
	jobPathNotifyRoundOpen  = "/v1/internal/jobs/notify-round-open"
	jobPathDailyReport      = "/v1/internal/jobs/daily-report"
)

var internalJobDispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

type internalJobFunc func(ctx context.Context, req internalJobRequest) (any, error)

func (h *Handler) RunStatusTickJob(w http.ResponseWriter, r *http.Request) {
	h.runInternalJob(w, r, "status-tick", usecase.JobPathStatusTick, func(ctx context.Context, req internalJobRequest) (any, error) {
		return h.jobOrchestrator.RunStatusTick(ctx, usecase.JobRunInput{Provider: req.Provider, MatchID: req.MatchID})
	})
}

func (h *Handler) RunSyncLiveJob(w http.ResponseWriter, r *http.Request) {
	h.runInternalJob(w, r, "sync-live", usecase.JobPathSyncLive, func(ctx context.Context, req internalJobRequest) (any, error) {
		return h.jobOrchestrator.RunLiveSync(ctx, usecase.JobRunInput{Provider: req.Provider, MatchID: req.MatchID})
	})
}

func (h *Handler) RunSyncScheduleJob(w http.ResponseWriter, r *http.Request) {
	h.runInternalJob(w, r, "sync-schedule", usecase.JobPathSyncSchedule, func(ctx context.Context, req internalJobRequest) (any, error) {
		return h.jobOrchestrator.RunScheduleSync(ctx, usecase.JobRunInput{Provider: req.Provider})
	})
}

func (h *Handler) RunBootstrapJob(w http.ResponseWriter, r *http.Request) {
	h.runInternalJob(w, r, "bootstrap", jobPathBootstrap, func(ctx context.Context, _ internalJobRequest) (any, error) {
		return h.jobOrchestrator.Bootstrap(ctx)
	})
}

func (h *Handler) RunRecalculateRoundJob(w http.ResponseWriter, r *http.Request) {
	h.runInternalJob(w, r, "recalculate-round", jobPathRecalculateRound, func(ctx context.Context, req internalJobRequest) (any, error) {
		if strings.TrimSpace(req.RoundID) == "" {
			return nil, fmt.Errorf("%w: round_id is required", usecase.ErrInvalidInput)
		}
		return h.scoringService.RecalculateRound(ctx, req.RoundID)
	})
}

func (h *Handler) RunNotifyRoundOpenJob(w http.ResponseWriter, r *http.Request) {
	h.runInternalJob(w, r, "notify-round-open", jobPathNotifyRoundOpen, func(ctx context.Context, req internalJobRequest) (any, error) {
		if strings.TrimSpace(req.RoundID) == "" {
			return nil, fmt.Errorf("%w: round_id is required", usecase.ErrInvalidInput)
		}
		return h.notificationService.NotifyRoundOpen(ctx, req.RoundID)
	})
}

func (h *Handler) RunDailyReportJob(w http.ResponseWriter, r *http.Request) {
	h.runInternalJob(w, r, "daily-report", jobPathDailyReport, func(ctx context.Context, req internalJobRequest) (any, error) {
		until := time.Now().UTC()
		if raw := strings.TrimSpace(req.Until); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid until: %v", usecase.ErrInvalidInput, err)
			}
			until = parsed.UTC()
		}
		report, err := h.notificationService.SendDailyReport(ctx, until)
		if err != nil {
			return nil, err
		}
		return toDailyReportDTO(report), nil
	})
}

func (h *Handler) ListSyncLogs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "ListSyncLogs")
	defer span.End()

	query := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a non-negative integer", usecase.ErrInvalidInput))
			return
		}
		limit = parsed
	}

	entries, err := h.syncLogService.ListRecent(ctx, query.Get("job"), limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	items := make([]syncLogDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toSyncLogDTO(entry))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) runInternalJob(w http.ResponseWriter, r *http.Request, jobName, jobPath string, run internalJobFunc) {
	ctx, span := startSpan(r.Context(), "RunInternalJob")
	defer span.End()

	var req internalJobRequest
	if err := h.decodeAndValidate(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := run(ctx, req)
	event := jobscheduler.DispatchEvent{
		JobName:    jobName,
		JobPath:    jobPath,
		Provider:   req.Provider,
		MatchID:    req.MatchID,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	}
	if err != nil {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
		h.recordInternalJobDispatch(ctx, req, event)
		h.logger.WarnContext(ctx, "internal job failed", "job", jobName, "provider", req.Provider, "match_id", req.MatchID, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, event)
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) recordInternalJobDispatch(ctx context.Context, req internalJobRequest, event jobscheduler.DispatchEvent) {
	if h.jobDispatchRepo == nil {
		return
	}

	event.DispatchID = strings.TrimSpace(req.DispatchID)
	if event.DispatchID == "" {
		event.DispatchID = buildManualDispatchID(event.JobName, req.Provider, event.OccurredAt)
	}
	event.TraceID, event.SpanID = traceIDs(ctx)

	if err := h.jobDispatchRepo.UpsertEvent(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "record internal job dispatch failed",
			"dispatch_id", event.DispatchID,
			"job_name", event.JobName,
			"status", event.Status,
			"error", err,
		)
	}
}

func buildInternalJobPayload(req internalJobRequest) map[string]any {
	payload := make(map[string]any, 5)
	for key, value := range map[string]string{
		"dispatch_id": req.DispatchID,
		"provider":    req.Provider,
		"match_id":    req.MatchID,
		"round_id":    req.RoundID,
		"until":       req.Until,
	} {
		if value = strings.TrimSpace(value); value != "" {
			payload[key] = value
		}
	}
	return payload
}

func buildManualDispatchID(jobName, scope string, now time.Time) string {
	return "manual-" + sanitizeDispatchPart(jobName) + "-" + sanitizeDispatchPart(scope) + "-" + now.UTC().Format("20060102T150405.000000000Z")
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "all"
	}
	return internalJobDispatchUnsafeRegex.ReplaceAllString(value, "-")
}
