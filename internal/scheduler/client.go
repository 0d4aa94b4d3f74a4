package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"medicrm_backend/platform/config"
)

// Client enqueues background tasks from the API process.
type Client struct {
	client *asynq.Client
	queue  string
}

// TaskEnqueuer is the producer-side interface services depend on.
type TaskEnqueuer interface {
	EnqueueReportGenerate(ctx context.Context, payload ReportGeneratePayload) error
	EnqueueWebhookReplay(ctx context.Context, payload WebhookReplayPayload) error
}

// NewClient creates an asynq client from the scheduler configuration.
func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueReportGenerate queues an AI report build.
func (c *Client) EnqueueReportGenerate(ctx context.Context, payload ReportGeneratePayload) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("scheduler client not configured")
	}

	task, err := NewReportGenerateTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// EnqueueWebhookReplay queues a re-extraction of a stored intake event.
func (c *Client) EnqueueWebhookReplay(ctx context.Context, payload WebhookReplayPayload) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("scheduler client not configured")
	}

	task, err := NewWebhookReplayTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

var _ TaskEnqueuer = (*Client)(nil)
