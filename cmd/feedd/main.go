// Package main is the entrypoint of the attendance feed engine daemon.
//
// The daemon owns the write path for feed records and makeup tickets: it
// loads configuration, connects to PostgreSQL and Redis, runs the schema
// migrations, wires the command/query handlers and the event handlers, and
// then serves until a shutdown signal arrives. The dashboard talks to the
// handlers wired here; there is no other path to the store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/academy-hub/attendance-feed-engine/config"
	"github.com/academy-hub/attendance-feed-engine/internal/application/command"
	"github.com/academy-hub/attendance-feed-engine/internal/application/eventhandler"
	"github.com/academy-hub/attendance-feed-engine/internal/application/query"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/infrastructure/messaging"
	"github.com/academy-hub/attendance-feed-engine/internal/infrastructure/notify"
	"github.com/academy-hub/attendance-feed-engine/internal/infrastructure/persistence/memory"
	"github.com/academy-hub/attendance-feed-engine/internal/infrastructure/persistence/postgres"
	redisstore "github.com/academy-hub/attendance-feed-engine/internal/infrastructure/persistence/redis"
	httpapi "github.com/academy-hub/attendance-feed-engine/internal/interface/http"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "feedd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is a development convenience; its absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting attendance feed engine",
		logger.String("version", cfg.App.Version),
		logger.String("environment", string(cfg.App.Environment)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────

	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	feedRepo := postgres.NewFeedRepository(conn)
	ticketRepo := postgres.NewTicketRepository(conn)
	taxonomyRepo := postgres.NewTaxonomyRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// Draft cache (Redis, or in-memory when disabled)
	// ─────────────────────────────────────────────────────────────────────────

	var draftCache feed.DraftCache
	if cfg.Redis.Disabled {
		log.Warn("redis disabled, drafts will not survive a restart")
		draftCache = memory.NewDraftCache()
	} else {
		cache, cerr := redisstore.NewCache(redisstore.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if cerr != nil {
			return fmt.Errorf("connect redis: %w", cerr)
		}
		defer cache.Close()
		draftCache = redisstore.NewDraftCacheWithTTL(cache, cfg.Engine.DraftTTL)
	}

	// Edits stream through the debouncer; only the settled draft hits the cache.
	writeBehind := redisstore.NewWriteBehindWithDelay(func(ctx context.Context, key feed.Key, draft feed.Draft) error {
		return draftCache.Put(ctx, key, draft)
	}, cfg.Engine.DraftDebounce)

	// ─────────────────────────────────────────────────────────────────────────
	// Event bus and handlers
	// ─────────────────────────────────────────────────────────────────────────

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: cfg.Engine.EventWorkerPoolSize,
		Logger:         slog.Default(),
		EnableMetrics:  cfg.Observability.MetricsEnabled,
	})

	dispatcher := notify.NewLogDispatcher(log)

	if err := bus.Subscribe(shared.EventFeedSaved, eventhandler.NewOnFeedSavedHandler(dispatcher, log)); err != nil {
		return fmt.Errorf("subscribe feed saved handler: %w", err)
	}
	absenceHandler := eventhandler.NewOnAbsenceRecordedHandler(feedRepo, dispatcher, bus, eventhandler.AbsenceThresholdConfig{
		Threshold:           cfg.Engine.AbsenceThreshold,
		AlertOnEveryAbsence: cfg.Engine.AlertOnEveryAbsence,
	}, log)
	if err := bus.Subscribe(shared.EventFeedAbsenceRecorded, absenceHandler); err != nil {
		return fmt.Errorf("subscribe absence handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Application handlers
	// ─────────────────────────────────────────────────────────────────────────

	saveHandler := command.NewSaveFeedHandler(feedRepo, ticketRepo, taxonomyRepo, taxonomyRepo, draftCache, bus, log)

	server := httpapi.NewServer(httpapi.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, httpapi.Dependencies{
		SaveFeed:        saveHandler,
		BulkSaveFeed:    command.NewBulkSaveFeedHandler(saveHandler, log),
		DeleteFeed:      command.NewDeleteFeedHandler(feedRepo, draftCache, bus, log),
		ToggleMakeup:    command.NewToggleNeedsMakeupHandler(feedRepo, ticketRepo, taxonomyRepo, bus, log),
		Schedule:        command.NewScheduleTicketHandler(ticketRepo, bus, log),
		Transition:      command.NewTicketTransitionHandler(ticketRepo, bus, log),
		ClassFeed:       query.NewGetClassFeedHandler(feedRepo, taxonomyRepo, draftCache),
		MonthlyAbsences: query.NewMonthlyAbsencesHandler(feedRepo),
		ListTickets:     query.NewListTicketsHandler(ticketRepo),
		ListAbsences:    query.NewListAbsencesHandler(feedRepo, ticketRepo),
		RecordDraft:     recordDraftFunc(writeBehind),
		Logger:          log,
	})

	errCh := server.StartAsync()
	log.Info("attendance feed engine ready")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down http server", logger.Err(err))
	}
	// Unsaved drafts are flushed before the process exits.
	if err := writeBehind.Close(shutdownCtx); err != nil {
		log.Error("failed to flush pending drafts", logger.Err(err))
	}
	if err := bus.Close(); err != nil {
		log.Error("failed to close event bus", logger.Err(err))
	}

	log.Info("attendance feed engine stopped")
	return nil
}

// recordDraftFunc adapts the write-behind debouncer to the draft autosave
// endpoint. Key components are validated here so a malformed autosave never
// reaches the cache.
func recordDraftFunc(wb *redisstore.WriteBehind) func(context.Context, httpapi.DraftAutosaveRequest) error {
	return func(_ context.Context, req httpapi.DraftAutosaveRequest) error {
		tenantID, err := shared.NewTenantID(req.TenantID)
		if err != nil {
			return err
		}
		studentID, err := shared.NewStudentID(req.StudentID)
		if err != nil {
			return err
		}
		classID, err := shared.NewClassID(req.ClassID)
		if err != nil {
			return err
		}
		date, err := shared.ParseFeedDate(req.Date)
		if err != nil {
			return err
		}

		wb.Record(feed.Key{
			TenantID:  tenantID,
			StudentID: studentID,
			ClassID:   classID,
			Date:      date,
		}, req.Draft)
		return nil
	}
}
