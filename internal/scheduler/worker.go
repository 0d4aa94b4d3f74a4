package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"medicrm_backend/platform/config"
	"medicrm_backend/platform/logger"
)

// Worker consumes background tasks. Task handlers are registered by the
// composition root so the scheduler stays free of domain imports.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

// NewWorker creates an asynq server from the scheduler configuration.
func NewWorker(cfg config.SchedulerConfig, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log,
	}, nil
}

// HandleFunc registers a handler for a task type.
func (w *Worker) HandleFunc(pattern string, handler func(context.Context, *asynq.Task) error) {
	w.mux.HandleFunc(pattern, handler)
}

// Run blocks processing tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
