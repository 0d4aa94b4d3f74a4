// The worker consumes background tasks: AI report generation and
// webhook event replay. It shares the API's repositories but runs as a
// separate process so slow agent calls never block request handling.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	dashrepo "medicrm_backend/internal/dashboard/repository"
	dashservice "medicrm_backend/internal/dashboard/service"
	"medicrm_backend/internal/email"
	"medicrm_backend/internal/events"
	leadsrepo "medicrm_backend/internal/leads/repository"
	leadsservice "medicrm_backend/internal/leads/service"
	"medicrm_backend/internal/reports/agent"
	reportsrepo "medicrm_backend/internal/reports/repository"
	reportsservice "medicrm_backend/internal/reports/service"
	"medicrm_backend/internal/scheduler"
	stagesrepo "medicrm_backend/internal/stages/repository"
	webhookrepo "medicrm_backend/internal/webhook/repository"
	webhookservice "medicrm_backend/internal/webhook/service"
	"medicrm_backend/platform/config"
	"medicrm_backend/platform/db"
	"medicrm_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	pool, err = db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	// The worker has its own bus so report-ready emails go out from
	// here. SSE streams live in the API process and are not reachable.
	eventBus := events.NewInMemoryBus(log)
	emailModule := email.NewModule(pool, email.NewSenderFromConfig(cfg), cfg, log)
	emailModule.RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	registerReportHandler(worker, pool, eventBus, cfg, log)
	registerReplayHandler(worker, pool, eventBus, log)

	worker.Run(ctx)
	log.Info("worker stopped")
}

func registerReportHandler(worker *scheduler.Worker, pool *pgxpool.Pool, bus events.Bus, cfg *config.Config, log *logger.Logger) {
	if !cfg.IsAIEnabled() {
		log.Warn("MOONSHOT_API_KEY not configured; report generation disabled")
		worker.HandleFunc(scheduler.TypeReportGenerate, func(ctx context.Context, task *asynq.Task) error {
			payload, err := scheduler.ParseReportGeneratePayload(task)
			if err != nil {
				return err
			}
			repo := reportsrepo.New(pool)
			return repo.SetFailed(ctx, payload.ReportID, "ai reporting is not configured")
		})
		return
	}

	reporter, err := agent.NewReporter(cfg.GetMoonshotAPIKey())
	if err != nil {
		log.Error("failed to initialize report agent", "error", err)
		panic("failed to initialize report agent: " + err.Error())
	}

	source := dashservice.New(dashrepo.New(pool), log)
	svc := reportsservice.New(reportsrepo.New(pool), nil, source, reporter, bus, log)

	worker.HandleFunc(scheduler.TypeReportGenerate, func(ctx context.Context, task *asynq.Task) error {
		payload, err := scheduler.ParseReportGeneratePayload(task)
		if err != nil {
			return err
		}
		return svc.Process(ctx, payload)
	})
}

func registerReplayHandler(worker *scheduler.Worker, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) {
	leadsSvc := leadsservice.New(leadsrepo.New(pool), stagesrepo.New(pool), bus, nil, nil, log)
	svc := webhookservice.New(webhookrepo.New(pool), leadsSvc, bus, nil, log)

	worker.HandleFunc(scheduler.TypeWebhookReplay, func(ctx context.Context, task *asynq.Task) error {
		payload, err := scheduler.ParseWebhookReplayPayload(task)
		if err != nil {
			return err
		}
		return svc.Replay(ctx, payload.TenantID, payload.EventID)
	})
}
