package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/synclog"
	"github.com/riskibarqy/esports-fantasy/internal/platform/id"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
)

type StatusTickResult struct {
	Evaluated   int      `json:"evaluated"`
	Started     int      `json:"started"`
	TimedOut    int      `json:"timed_out"`
	Failed      int      `json:"failed"`
	LiveMatches int      `json:"live_matches"`
	Triggered   []string `json:"triggered"`
}

// MatchStatusService advances stored matches through upcoming, live and finished
// on a clock, independent of whether providers report status changes.
type MatchStatusService struct {
	matchRepo match.Repository
	trigger   LiveSyncTrigger
	logs      syncLogWriter
	providers []match.Provider
	metrics   Metrics
	logger    *logging.Logger
	now       func() time.Time
}

func NewMatchStatusService(
	matchRepo match.Repository,
	syncLogRepo synclog.Repository,
	trigger LiveSyncTrigger,
	ids id.Generator,
	metrics Metrics,
	logger *logging.Logger,
) *MatchStatusService {
	if logger == nil {
		logger = logging.Default()
	}
	metrics = metricsOrNoop(metrics)
	return &MatchStatusService{
		matchRepo: matchRepo,
		trigger:   trigger,
		logs:      syncLogWriter{repo: syncLogRepo, ids: ids, metrics: metrics, logger: logger},
		providers: match.Providers(),
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// RunTick evaluates every upcoming and live match once. Each transitioned row
// is written on its own; a failed write is logged and the tick moves on.
func (s *MatchStatusService) RunTick(ctx context.Context) (StatusTickResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchStatusService.RunTick")
	defer span.End()

	startedAt := s.now().UTC()
	result := StatusTickResult{Triggered: make([]string, 0)}
	var (
		loadErrs    []error
		loadedCount int
	)

	for _, provider := range s.providers {
		items, err := s.matchRepo.ListByPhases(ctx, provider, match.PhaseUpcoming, match.PhaseLive)
		if err != nil {
			s.logger.WarnContext(ctx, "load tick candidates failed", "provider", provider, "error", err)
			loadErrs = append(loadErrs, fmt.Errorf("list %s candidates: %w", provider, err))
			continue
		}
		loadedCount++

		policy := match.PolicyFor(provider)
		for _, item := range items {
			result.Evaluated++
			now := s.now().UTC()
			transition := match.Evaluate(item, policy, now)
			if !transition.Changed() {
				if item.Phase == match.PhaseLive {
					result.LiveMatches++
				}
				continue
			}

			if err := s.matchRepo.Upsert(ctx, transition.Match); err != nil {
				result.Failed++
				s.logger.WarnContext(ctx, "persist match transition failed",
					"provider", provider,
					"match_id", item.ExternalID,
					"from", transition.From,
					"to", transition.To,
					"error", err,
				)
				continue
			}
			s.metrics.IncTransition(string(provider), string(transition.Kind))

			switch transition.Kind {
			case match.TransitionStarted:
				result.Started++
				result.LiveMatches++
			case match.TransitionTimedOut:
				result.TimedOut++
			}
			s.logger.InfoContext(ctx, "match transitioned",
				"provider", provider,
				"match_id", item.ExternalID,
				"from", transition.From,
				"to", transition.To,
			)

			if transition.TriggerLiveSync && s.trigger != nil {
				if err := s.trigger.TriggerLiveSync(ctx, provider, item.ExternalID); err != nil {
					s.logger.WarnContext(ctx, "trigger live sync failed",
						"provider", provider,
						"match_id", item.ExternalID,
						"error", err,
					)
					continue
				}
				result.Triggered = append(result.Triggered, string(provider)+":"+item.ExternalID)
			}
		}
	}

	runErr := stderrors.Join(loadErrs...)
	s.logs.write(ctx, synclog.Entry{
		Job:          synclog.JobMatchStatus,
		Operation:    "status-tick",
		StartedAt:    startedAt,
		Duration:     s.now().UTC().Sub(startedAt),
		Fetched:      result.Evaluated,
		Upserted:     result.Started + result.TimedOut,
		Transitioned: result.Started + result.TimedOut,
		Failed:       result.Failed,
	}, runErr)

	if loadedCount == 0 && len(loadErrs) > 0 {
		return result, fmt.Errorf("%w: %v", ErrDependencyUnavailable, runErr)
	}
	return result, nil
}
