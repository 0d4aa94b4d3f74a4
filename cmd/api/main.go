package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"medicrm_backend/internal/appointments"
	"medicrm_backend/internal/auth"
	"medicrm_backend/internal/billing"
	"medicrm_backend/internal/chat"
	"medicrm_backend/internal/dashboard"
	"medicrm_backend/internal/email"
	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/internal/http/router"
	"medicrm_backend/internal/leads"
	"medicrm_backend/internal/notification"
	"medicrm_backend/internal/reports"
	"medicrm_backend/internal/scheduler"
	"medicrm_backend/internal/search"
	"medicrm_backend/internal/stages"
	"medicrm_backend/internal/storage"
	"medicrm_backend/internal/tags"
	"medicrm_backend/internal/tenants"
	"medicrm_backend/internal/webhook"
	"medicrm_backend/internal/whatsapp"
	"medicrm_backend/platform/config"
	"medicrm_backend/platform/db"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	redisClient, err := newRedisClient(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to configure redis", "error", err)
		panic("failed to configure redis: " + err.Error())
	}
	defer func() {
		_ = redisClient.Close()
	}()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure chat media bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, cfg.GetMinioBucketChatMedia())
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "chatMediaBucket", cfg.GetMinioBucketChatMedia())

	// Lead search: Meilisearch with a Postgres ILIKE fallback. Indexing
	// only happens when Meilisearch is configured.
	pgSearch := search.NewPostgres(pool)
	var searcher search.Searcher = pgSearch
	var indexer search.Indexer
	if cfg.IsMeiliEnabled() {
		meiliSearch := search.NewMeili(cfg.GetMeiliURL(), cfg.GetMeiliAPIKey(), log)
		defer meiliSearch.Close()
		searcher = search.NewFallback(meiliSearch, pgSearch)
		indexer = meiliSearch
		log.Info("meilisearch lead index enabled", "url", cfg.GetMeiliURL())
	}

	taskClient, closeTasks := initTaskClient(cfg, log)
	if closeTasks != nil {
		defer closeTasks()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	stagesModule := stages.NewModule(pool, eventBus, val, log)
	stagesModule.RegisterHandlers(eventBus)

	tagsModule := tags.NewModule(pool, redisClient, val, log)
	tagsModule.RegisterHandlers(eventBus)

	tenantsModule := tenants.NewModule(pool, eventBus, val, log)
	authModule := auth.NewModule(pool, cfg, val, log)
	leadsModule := leads.NewModule(pool, stagesModule.Repository(), eventBus, searcher, indexer, val, log)
	chatModule := chat.NewModule(pool, storageSvc, cfg.GetMinioBucketChatMedia(), eventBus, val, log)
	dashboardModule := dashboard.NewModule(pool, val, log)
	appointmentsModule := appointments.NewModule(pool, val, log)
	billingModule := billing.NewModule(pool, redisClient, eventBus, cfg, val, log)
	reportsModule := reports.NewModule(pool, taskClient, eventBus, val, log)
	webhookModule := webhook.NewModule(pool, leadsModule.Service(), eventBus, taskClient, cfg, val, log)

	notificationModule := notification.NewModule(log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.Hub().Close()

	emailModule := email.NewModule(pool, email.NewSenderFromConfig(cfg), cfg, log)
	emailModule.RegisterHandlers(eventBus)

	whatsappModule := whatsapp.NewModule(pool, whatsapp.NewClient(cfg, log), log)
	whatsappModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			tenantsModule,
			stagesModule,
			tagsModule,
			leadsModule,
			chatModule,
			dashboardModule,
			appointmentsModule,
			billingModule,
			reportsModule,
			webhookModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// initTaskClient connects the asynq producer. Without it, report and
// replay requests are rejected with a configuration error.
func initTaskClient(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.TaskEnqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background tasks disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
