package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pitchside/matchtracker/internal/config"
	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/domain/match"
	"github.com/pitchside/matchtracker/internal/domain/notification"
	"github.com/pitchside/matchtracker/internal/domain/replacement"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
	"github.com/pitchside/matchtracker/internal/infrastructure/account/anubis"
	"github.com/pitchside/matchtracker/internal/infrastructure/push"
	"github.com/pitchside/matchtracker/internal/infrastructure/realtime"
	cacherepo "github.com/pitchside/matchtracker/internal/infrastructure/repository/cache"
	"github.com/pitchside/matchtracker/internal/infrastructure/repository/memory"
	"github.com/pitchside/matchtracker/internal/infrastructure/repository/postgres"
	"github.com/pitchside/matchtracker/internal/infrastructure/rosterapi"
	"github.com/pitchside/matchtracker/internal/interfaces/httpapi"
	basecache "github.com/pitchside/matchtracker/internal/platform/cache"
	idgen "github.com/pitchside/matchtracker/internal/platform/id"
	"github.com/pitchside/matchtracker/internal/platform/logging"
	"github.com/pitchside/matchtracker/internal/platform/resilience"
	"github.com/pitchside/matchtracker/internal/usecase"

	_ "github.com/lib/pq"
)

// App owns the wired coordination service: the HTTP server plus the
// background scheduler and the realtime hub it shuts down with.
type App struct {
	Server *http.Server

	matchService *usecase.MatchService
	scheduler    *usecase.Scheduler
	hub          *realtime.Hub
	db           *sqlx.DB
	logger       *slog.Logger
}

type repositories struct {
	events        event.Repository
	matches       match.Repository
	trackers      tracker.Directory
	notifications notification.Repository
	replacements  replacement.Repository
}

func New(cfg config.Config, logger *slog.Logger, appLogger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if appLogger == nil {
		appLogger = logging.Default()
	}

	repos, db, err := buildRepositories(cfg, logger)
	if err != nil {
		return nil, err
	}

	hub := realtime.NewHub(
		realtime.WithSubscriberBuffer(cfg.StreamSubscriberBuffer),
		realtime.WithLogger(logger),
	)
	runtimes := usecase.NewRuntimeRegistry()
	ids := idgen.NewRandomGenerator()

	var pushSender usecase.PushSender
	if cfg.PushEnabled {
		pushSender = push.NewClient(push.ClientConfig{
			BaseURL: cfg.PushBaseURL,
			Token:   cfg.PushToken,
			Retries: cfg.PushRetries,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.PushCircuitEnabled,
				FailureThreshold: cfg.PushCircuitFailureCount,
				OpenTimeout:      cfg.PushCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.PushCircuitHalfOpenMaxReq,
			},
		}, logger)
	}

	notifier := usecase.NewNotificationService(repos.notifications, pushSender, ids, logger)
	replacementSvc := usecase.NewReplacementService(repos.trackers, repos.replacements, notifier, hub, ids, logger)
	assignmentSvc := usecase.NewAssignmentService(runtimes, repos.trackers, notifier, hub, cfg.MaxTrackersPerMatch, logger)
	pendingSvc := usecase.NewPendingQueueService(runtimes, notifier, hub, ids, usecase.PendingQueueConfig{
		HighAfter:            cfg.PendingHighAfter,
		UrgentAfter:          cfg.PendingUrgentAfter,
		UnclaimedHardTimeout: cfg.UnclaimedHardTimeout,
		ClaimHoldTimeout:     cfg.ClaimHoldTimeout,
	}, logger)
	recorderSvc := usecase.NewRecorderService(runtimes, repos.events, hub, ids, logger)
	livenessSvc := usecase.NewLivenessService(runtimes, replacementSvc, hub, usecase.LivenessConfig{
		HeartbeatInterval:    cfg.HeartbeatInterval,
		SuspectAfterMisses:   cfg.SuspectAfterMisses,
		AbsentAfterMisses:    cfg.AbsentAfterMisses,
		BatteryCriticalLevel: cfg.BatteryCriticalLevel,
	}, logger)

	var roster usecase.RosterSource
	if cfg.RosterAPIEnabled {
		roster = rosterapi.NewClient(rosterapi.ClientConfig{
			BaseURL:    cfg.RosterAPIBaseURL,
			Token:      cfg.RosterAPIToken,
			Timeout:    cfg.RosterAPITimeout,
			MaxRetries: cfg.RosterAPIMaxRetries,
			Logger:     appLogger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.RosterAPICircuitEnabled,
				FailureThreshold: cfg.RosterAPICircuitFailureCount,
				OpenTimeout:      cfg.RosterAPICircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.RosterAPICircuitHalfOpenMaxReq,
			},
		})
	}

	matchSvc := usecase.NewMatchService(repos.matches, repos.events, roster, runtimes, hub, logger)

	scheduler, err := usecase.NewScheduler(
		runtimes,
		pendingSvc,
		livenessSvc,
		cfg.SchedulerTickInterval,
		cfg.SchedulerPoolSize,
		logger,
	)
	if err != nil {
		return nil, err
	}

	verifier := anubis.NewClient(
		&http.Client{Timeout: cfg.AnubisTimeout},
		cfg.AnubisBaseURL,
		cfg.AnubisIntrospectURL,
		cfg.AnubisAdminKey,
		anubis.CircuitBreakerConfig{
			Enabled:          cfg.AnubisCircuitEnabled,
			FailureThreshold: cfg.AnubisCircuitFailureCount,
			OpenTimeout:      cfg.AnubisCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.AnubisCircuitHalfOpenMaxReq,
		},
		logger,
	)

	handler := httpapi.NewHandler(
		matchSvc,
		assignmentSvc,
		pendingSvc,
		recorderSvc,
		livenessSvc,
		replacementSvc,
		notifier,
		hub,
		appLogger,
	)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins, cfg.DetectorIngestToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Server:       server,
		matchService: matchSvc,
		scheduler:    scheduler,
		hub:          hub,
		db:           db,
		logger:       logger,
	}, nil
}

// buildRepositories picks the storage backend: Postgres when DB_URL is
// set, the seeded in-memory stores otherwise.
func buildRepositories(cfg config.Config, logger *slog.Logger) (repositories, *sqlx.DB, error) {
	if strings.TrimSpace(cfg.DBURL) == "" {
		logger.Info("storage backend", "backend", "memory")
		repos := repositories{
			events:        memory.NewEventRepository(),
			matches:       memory.NewMatchRepository(memory.SeedMatches()),
			trackers:      memory.NewTrackerDirectory(memory.SeedTrackers()),
			notifications: memory.NewNotificationRepository(),
			replacements:  memory.NewReplacementRepository(),
		}
		return withCache(cfg, repos), nil, nil
	}

	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Connect("postgres", dbURL,
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return repositories{}, nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if cfg.DBSeedEnabled {
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgres.BootstrapSeed(seedCtx, db); err != nil {
			_ = db.Close()
			return repositories{}, nil, fmt.Errorf("bootstrap seed: %w", err)
		}
	}

	logger.Info("storage backend", "backend", "postgres", "db", dbNameFromURL(cfg.DBURL))
	repos := repositories{
		events:        postgres.NewEventRepository(db),
		matches:       postgres.NewMatchRepository(db),
		trackers:      postgres.NewTrackerDirectory(db),
		notifications: postgres.NewNotificationRepository(db),
		replacements:  postgres.NewReplacementRepository(db),
	}
	return withCache(cfg, repos), db, nil
}

// withCache decorates the read-mostly stores. Coordination state lives in
// the per-match runtimes, so only matches and the tracker directory are
// worth caching.
func withCache(cfg config.Config, repos repositories) repositories {
	if !cfg.CacheEnabled {
		return repos
	}
	store := basecache.NewStore(cfg.CacheTTL)
	repos.matches = cacherepo.NewMatchRepository(repos.matches, store)
	repos.trackers = cacherepo.NewTrackerDirectory(repos.trackers, store)
	return repos
}

// Start resumes coordination for matches that were live before a restart
// and launches the escalation/liveness scheduler.
func (a *App) Start(ctx context.Context) error {
	if err := a.matchService.ResumeLive(ctx); err != nil {
		return fmt.Errorf("resume live matches: %w", err)
	}
	go a.scheduler.Run(ctx)
	return nil
}

// Shutdown stops the HTTP server, the scheduler, the realtime hub, and
// the database pool, in that order.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)

	a.scheduler.Stop()
	a.hub.Close()
	if a.db != nil {
		if closeErr := a.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}

	return err
}
