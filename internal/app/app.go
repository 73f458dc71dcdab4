package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/esports-fantasy/external/authplatform"
	"github.com/riskibarqy/esports-fantasy/external/coinbase"
	"github.com/riskibarqy/esports-fantasy/external/faceit"
	"github.com/riskibarqy/esports-fantasy/external/jobqueue"
	"github.com/riskibarqy/esports-fantasy/external/pandascore"
	"github.com/riskibarqy/esports-fantasy/external/resend"
	"github.com/riskibarqy/esports-fantasy/external/sportdevs"
	"github.com/riskibarqy/esports-fantasy/external/stripe"
	"github.com/riskibarqy/esports-fantasy/external/telegram"
	"github.com/riskibarqy/esports-fantasy/internal/config"
	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/jobscheduler"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/scoring"
	"github.com/riskibarqy/esports-fantasy/internal/domain/synclog"
	"github.com/riskibarqy/esports-fantasy/internal/domain/team"
	"github.com/riskibarqy/esports-fantasy/internal/domain/tournament"
	"github.com/riskibarqy/esports-fantasy/internal/infrastructure/dedup"
	cacherepo "github.com/riskibarqy/esports-fantasy/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/esports-fantasy/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/esports-fantasy/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/esports-fantasy/internal/interfaces/httpapi"
	"github.com/riskibarqy/esports-fantasy/internal/interfaces/ticker"
	"github.com/riskibarqy/esports-fantasy/internal/observability"
	"github.com/riskibarqy/esports-fantasy/internal/platform/cache"
	idgen "github.com/riskibarqy/esports-fantasy/internal/platform/id"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

// App holds the HTTP server and the optional in-process job ticker.
type App struct {
	Server *http.Server
	Ticker *ticker.Ticker

	closers []func() error
	logger  *logging.Logger
}

type repositories struct {
	rounds      fantasy.Repository
	entries     fantasy.EntryRepository
	subscribers fantasy.SubscriberRepository
	matches     match.Repository
	teams       team.Repository
	tournaments tournament.Repository
	syncLogs    synclog.Repository
	dispatches  jobscheduler.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a := &App{logger: logger}
	repos, err := a.buildRepositories(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	rules, err := scoring.LoadRules(cfg.ScoringRulesFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	ids := idgen.NewUUIDGenerator()

	deduper, err := a.buildDeduper(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var queue usecase.JobQueue = usecase.NewNoopJobQueue()
	if cfg.QStashEnabled {
		publisher, err := jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			Timeout:          cfg.ProviderTimeout,
			CircuitBreaker:   cfg.QStashCircuit,
			Observe:          metrics.ObserveProviderRequest,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("build qstash publisher: %w", err)
		}
		queue = publisher
	}

	faceitFeed, pandaScoreFeed, sportDevsFeed := buildFeeds(cfg, metrics, logger)

	syncSvc := usecase.NewMatchSyncService(
		faceitFeed,
		pandaScoreFeed,
		sportDevsFeed,
		repos.matches,
		repos.teams,
		repos.tournaments,
		repos.syncLogs,
		ids,
		metrics,
		usecase.MatchSyncConfig{
			FaceitHubIDs:  cfg.FaceitHubIDs,
			PastWindow:    cfg.SyncPastWindow,
			TeamPageLimit: cfg.SyncTeamPageLimit,
		},
		logger,
	)
	if !cfg.QStashEnabled {
		logger.Warn("job queue disabled, live syncs run in-process")
	}
	trigger := usecase.NewLiveSyncDispatcher(queue, syncSvc, deduper, repos.dispatches, cfg.LiveSyncDedupTTL, logger)
	a.closers = append(a.closers, func() error {
		trigger.Wait()
		return nil
	})
	statusSvc := usecase.NewMatchStatusService(repos.matches, repos.syncLogs, trigger, ids, metrics, logger)
	orchestrator := usecase.NewJobOrchestratorService(statusSvc, syncSvc, queue, repos.dispatches, usecase.JobOrchestratorConfig{
		StatusInterval:   cfg.JobStatusInterval,
		LiveInterval:     cfg.JobLiveInterval,
		ScheduleInterval: cfg.JobScheduleInterval,
	}, logger)

	checkoutSvc := usecase.NewCheckoutService(
		repos.rounds,
		repos.entries,
		ids,
		buildPaymentGateways(cfg, metrics, logger),
		usecase.CheckoutConfig{
			SuccessURL:     cfg.CheckoutSuccessURL,
			CancelURL:      cfg.CheckoutCancelURL,
			ReservationTTL: cfg.CheckoutReservationTTL,
		},
		metrics,
		logger,
	)

	mailer, chat, err := buildNotifiers(cfg, metrics, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	notificationSvc := usecase.NewNotificationService(
		repos.rounds,
		repos.subscribers,
		repos.entries,
		repos.syncLogs,
		mailer,
		chat,
		usecase.NotificationConfig{AppURL: cfg.AppPublicURL, ReportRecipients: cfg.ReportRecipients},
		metrics,
		logger,
	)

	handler := httpapi.NewHandler(
		usecase.NewRoundService(repos.rounds, ids),
		usecase.NewScoringService(repos.rounds, repos.entries, repos.matches, rules, cfg.ScoringWorkerCount, logger),
		usecase.NewMatchService(repos.matches),
		checkoutSvc,
		orchestrator,
		notificationSvc,
		usecase.NewSyncLogService(repos.syncLogs),
		repos.dispatches,
		logger,
	)

	var verifier usecase.AccessTokenVerifier
	if cfg.AuthEnabled {
		verifier = authplatform.NewClient(authplatform.ClientConfig{
			BaseURL:        cfg.AuthBaseURL,
			AnonKey:        cfg.AuthAnonKey,
			Timeout:        cfg.AuthTimeout,
			CacheTTL:       cfg.AuthCacheTTL,
			Logger:         logger,
			CircuitBreaker: cfg.AuthCircuit,
		})
	} else {
		logger.Warn("auth verifier disabled, trusting X-User-ID header")
	}

	routerCfg := httpapi.RouterConfig{
		ServiceName:        cfg.ServiceName,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
	}
	if cfg.MetricsEnabled {
		routerCfg.Metrics = metrics.Handler()
	}

	a.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, verifier, logger, routerCfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if cfg.JobTickerEnabled {
		a.Ticker = ticker.New(orchestrator, ticker.Config{
			StatusInterval:   cfg.JobStatusInterval,
			LiveInterval:     cfg.JobLiveInterval,
			ScheduleInterval: cfg.JobScheduleInterval,
		}, logger)
	}

	return a, nil
}

// Close waits for in-process live syncs, then releases storage and cache
// connections in reverse order of opening.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func (a *App) buildRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	var repos repositories

	switch cfg.StorageDriver {
	case config.StorageMemory:
		now := time.Now().UTC()
		repos = repositories{
			rounds:      memory.NewRoundRepository(memory.SeedRounds(now)),
			entries:     memory.NewEntryRepository(nil),
			subscribers: memory.NewSubscriberRepository(nil),
			matches:     memory.NewMatchRepository(memory.SeedMatches(now)),
			teams:       memory.NewTeamRepository(memory.SeedTeams()),
			tournaments: memory.NewTournamentRepository(),
			syncLogs:    memory.NewSyncLogRepository(),
			dispatches:  memory.NewJobDispatchRepository(),
		}
		a.logger.Info("storage ready", "driver", config.StorageMemory)
	default:
		db, err := openDB(ctx, cfg)
		if err != nil {
			return repositories{}, err
		}
		a.closers = append(a.closers, db.Close)
		repos = postgresRepositories(db)
		a.logger.Info("storage ready", "driver", config.StoragePostgres, "db_name", databaseName(cfg.DBURL))
	}

	if cfg.CacheEnabled {
		store := cache.NewStore(cfg.CacheTTL)
		repos.rounds = cacherepo.NewRoundRepository(repos.rounds, store)
		repos.teams = cacherepo.NewTeamRepository(repos.teams, store)
		repos.tournaments = cacherepo.NewTournamentRepository(repos.tournaments, store)
	}
	return repos, nil
}

func postgresRepositories(db *sqlx.DB) repositories {
	return repositories{
		rounds:      postgres.NewRoundRepository(db),
		entries:     postgres.NewEntryRepository(db),
		subscribers: postgres.NewSubscriberRepository(db),
		matches:     postgres.NewMatchRepository(db),
		teams:       postgres.NewTeamRepository(db),
		tournaments: postgres.NewTournamentRepository(db),
		syncLogs:    postgres.NewSyncLogRepository(db),
		dispatches:  postgres.NewJobDispatchRepository(db),
	}
}

func (a *App) buildDeduper(cfg config.Config) (usecase.LiveSyncDeduper, error) {
	if cfg.RedisURL == "" {
		return dedup.NewMemoryDeduper(cache.NewStore(cfg.LiveSyncDedupTTL)), nil
	}

	client, err := dedup.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return dedup.NewRedisDeduper(client), nil
}

func buildFeeds(cfg config.Config, metrics *observability.Metrics, logger *logging.Logger) (usecase.FaceitFeed, usecase.PandaScoreFeed, usecase.SportDevsFeed) {
	var (
		faceitFeed     usecase.FaceitFeed
		pandaScoreFeed usecase.PandaScoreFeed
		sportDevsFeed  usecase.SportDevsFeed
	)

	if cfg.FaceitEnabled {
		faceitFeed = faceit.NewClient(faceit.ClientConfig{
			BaseURL:        cfg.FaceitBaseURL,
			APIKey:         cfg.FaceitAPIKey,
			Timeout:        cfg.ProviderTimeout,
			MaxRetries:     cfg.ProviderMaxRetries,
			RequestSpacing: cfg.ProviderRequestSpacing,
			Logger:         logger,
			CircuitBreaker: cfg.ProviderCircuit,
			Observe:        metrics.ObserveProviderRequest,
		})
	}
	if cfg.PandaScoreEnabled {
		pandaScoreFeed = pandascore.NewClient(pandascore.ClientConfig{
			BaseURL:        cfg.PandaScoreBaseURL,
			Token:          cfg.PandaScoreToken,
			Videogame:      cfg.PandaScoreVideogame,
			Timeout:        cfg.ProviderTimeout,
			MaxRetries:     cfg.ProviderMaxRetries,
			RequestSpacing: cfg.ProviderRequestSpacing,
			Logger:         logger,
			CircuitBreaker: cfg.ProviderCircuit,
			Observe:        metrics.ObserveProviderRequest,
		})
	}
	if cfg.SportDevsEnabled {
		sportDevsFeed = sportdevs.NewClient(sportdevs.ClientConfig{
			BaseURL:        cfg.SportDevsBaseURL,
			Token:          cfg.SportDevsToken,
			Timeout:        cfg.ProviderTimeout,
			MaxRetries:     cfg.ProviderMaxRetries,
			RequestSpacing: cfg.ProviderRequestSpacing,
			Logger:         logger,
			CircuitBreaker: cfg.ProviderCircuit,
			Observe:        metrics.ObserveProviderRequest,
		})
	}

	logger.Info("match feeds configured",
		"faceit", cfg.FaceitEnabled,
		"pandascore", cfg.PandaScoreEnabled,
		"sportdevs", cfg.SportDevsEnabled,
	)
	return faceitFeed, pandaScoreFeed, sportDevsFeed
}

func buildPaymentGateways(cfg config.Config, metrics *observability.Metrics, logger *logging.Logger) []usecase.PaymentGateway {
	gateways := make([]usecase.PaymentGateway, 0, 2)
	if cfg.StripeEnabled {
		gateways = append(gateways, stripe.NewClient(stripe.ClientConfig{
			BaseURL:        cfg.StripeBaseURL,
			SecretKey:      cfg.StripeSecretKey,
			WebhookSecret:  cfg.StripeWebhookSecret,
			Tolerance:      cfg.StripeWebhookTolerance,
			Timeout:        cfg.ProviderTimeout,
			Logger:         logger,
			CircuitBreaker: cfg.PaymentCircuit,
			Observe:        metrics.ObserveProviderRequest,
		}))
	}
	if cfg.CoinbaseEnabled {
		gateways = append(gateways, coinbase.NewClient(coinbase.ClientConfig{
			BaseURL:        cfg.CoinbaseBaseURL,
			APIKey:         cfg.CoinbaseAPIKey,
			WebhookSecret:  cfg.CoinbaseWebhookSecret,
			Timeout:        cfg.ProviderTimeout,
			Logger:         logger,
			CircuitBreaker: cfg.PaymentCircuit,
			Observe:        metrics.ObserveProviderRequest,
		}))
	}
	return gateways
}

func buildNotifiers(cfg config.Config, metrics *observability.Metrics, logger *logging.Logger) (usecase.Mailer, usecase.ChatNotifier, error) {
	var (
		mailer usecase.Mailer
		chat   usecase.ChatNotifier
	)

	if cfg.ResendEnabled {
		mailer = resend.NewClient(resend.ClientConfig{
			BaseURL:        cfg.ResendBaseURL,
			APIKey:         cfg.ResendAPIKey,
			From:           cfg.ResendFrom,
			ReplyTo:        cfg.ResendReplyTo,
			Timeout:        cfg.ProviderTimeout,
			Logger:         logger,
			CircuitBreaker: cfg.ProviderCircuit,
			Observe:        metrics.ObserveProviderRequest,
		})
	}
	if cfg.TelegramBotToken != "" {
		notifier, err := telegram.NewBotNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("build telegram notifier: %w", err)
		}
		chat = notifier
	}
	return mailer, chat, nil
}
