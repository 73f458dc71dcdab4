package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/esports-fantasy/internal/domain/jobscheduler"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

type Handler struct {
	roundService        *usecase.RoundService
	scoringService      *usecase.ScoringService
	matchService        *usecase.MatchService
	checkoutService     *usecase.CheckoutService
	jobOrchestrator     *usecase.JobOrchestratorService
	notificationService *usecase.NotificationService
	syncLogService      *usecase.SyncLogService
	jobDispatchRepo     jobscheduler.Repository
	logger              *logging.Logger
	validator           *validator.Validate
}

func NewHandler(
	roundService *usecase.RoundService,
	scoringService *usecase.ScoringService,
	matchService *usecase.MatchService,
	checkoutService *usecase.CheckoutService,
	jobOrchestrator *usecase.JobOrchestratorService,
	notificationService *usecase.NotificationService,
	syncLogService *usecase.SyncLogService,
	jobDispatchRepo jobscheduler.Repository,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		roundService:        roundService,
		scoringService:      scoringService,
		matchService:        matchService,
		checkoutService:     checkoutService,
		jobOrchestrator:     jobOrchestrator,
		notificationService: notificationService,
		syncLogService:      syncLogService,
		jobDispatchRepo:     jobDispatchRepo,
		logger:              logger.Named("httpapi"),
		validator:           validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListRounds(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "ListRounds")
	defer span.End()

	rounds, err := h.roundService.ListRounds(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list rounds failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]roundDTO, 0, len(rounds))
	for _, round := range rounds {
		items = append(items, toRoundDTO(round))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetRound(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "GetRound")
	defer span.End()

	round, err := h.roundService.GetRound(ctx, r.PathValue("roundID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, toRoundDTO(round))
}

func (h *Handler) SubmitPicks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "SubmitPicks")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing user", usecase.ErrUnauthorized))
		return
	}

	var req submitPicksRequest
	if err := h.decodeAndValidate(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	picks := make([]usecase.PickInput, 0, len(req.Picks))
	for _, p := range req.Picks {
		picks = append(picks, usecase.PickInput{
			Provider:       p.Provider,
			TeamExternalID: p.TeamExternalID,
			TeamName:       p.TeamName,
			TeamType:       p.TeamType,
		})
	}

	lineup, err := h.roundService.SubmitPicks(ctx, usecase.SubmitPicksInput{
		RoundID:    r.PathValue("roundID"),
		UserID:     principal.UserID,
		Picks:      picks,
		StarTeamID: req.StarTeamID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit picks failed", "round_id", r.PathValue("roundID"), "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, toLineupDTO(lineup))
}

func (h *Handler) GetRoundBreakdown(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "GetRoundBreakdown")
	defer span.End()

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(ctx, w, fmt.Errorf("%w: user_id is required", usecase.ErrInvalidInput))
		return
	}

	breakdown, err := h.scoringService.TeamMatchBreakdown(ctx, r.PathValue("roundID"), userID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, breakdown)
}

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "ListMatches")
	defer span.End()

	query := r.URL.Query()
	matches, err := h.matchService.List(ctx, query.Get("provider"), query.Get("phase"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]matchDTO, 0, len(matches))
	for _, m := range matches {
		items = append(items, toMatchDTO(m))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

// decodeAndValidate reads a JSON body into dst, rejecting unknown fields.
// An empty body leaves dst untouched when allowEmpty is set.
func (h *Handler) decodeAndValidate(r *http.Request, dst any, allowEmpty bool) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", usecase.ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
	}
	if err := strictJSON.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	if err := h.validator.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}
