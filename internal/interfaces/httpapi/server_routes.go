package httpapi

import (
	"net/http"

	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/rounds", handler.ListRounds)
	mux.HandleFunc("GET /v1/rounds/{roundID}", handler.GetRound)
	mux.HandleFunc("GET /v1/rounds/{roundID}/breakdown", handler.GetRoundBreakdown)
	mux.HandleFunc("GET /v1/matches", handler.ListMatches)
}

func registerUserRoutes(mux *http.ServeMux, handler *Handler, verifier usecase.AccessTokenVerifier) {
	mux.Handle("PUT /v1/rounds/{roundID}/picks", RequireUser(verifier, http.HandlerFunc(handler.SubmitPicks)))
	mux.Handle("POST /v1/rounds/{roundID}/checkout", RequireUser(verifier, http.HandlerFunc(handler.StartCheckout)))
}

func registerWebhookRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/webhooks/stripe", handler.StripeWebhook)
	mux.HandleFunc("POST /v1/webhooks/coinbase", handler.CoinbaseWebhook)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, token string) {
	jobs := map[string]http.HandlerFunc{
		"POST " + usecase.JobPathStatusTick:        handler.RunStatusTickJob,
		"POST " + usecase.JobPathSyncLive:          handler.RunSyncLiveJob,
		"POST " + usecase.JobPathSyncSchedule:      handler.RunSyncScheduleJob,
		"POST /v1/internal/jobs/bootstrap":         handler.RunBootstrapJob,
		"POST /v1/internal/jobs/recalculate-round": handler.RunRecalculateRoundJob,
		"POST /v1/internal/jobs/notify-round-open": handler.RunNotifyRoundOpenJob,
		"POST /v1/internal/jobs/daily-report":      handler.RunDailyReportJob,
		"GET /v1/internal/sync-logs":               handler.ListSyncLogs,
	}
	for pattern, fn := range jobs {
		mux.Handle(pattern, RequireInternalJobToken(token, fn))
	}
}
