// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetJWTRefreshSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for transactional email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOPublicBaseURL() string
	GetMinioBucketChatMedia() string
	IsMinIOEnabled() bool
}

// BillingConfig provides settings for the subscription billing provider.
type BillingConfig interface {
	GetBillingAPIKey() string
	GetBillingBaseURL() string
	GetBillingWebhookSecret() string
	IsBillingEnabled() bool
}

// SchedulerConfig provides settings for the asynq background job scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// RedisConfig provides settings for direct Redis stores (caches, dedup sets).
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// WhatsAppConfig provides settings for the outbound WhatsApp channel.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// SearchConfig provides settings for the Meilisearch lead index.
type SearchConfig interface {
	GetMeiliURL() string
	GetMeiliAPIKey() string
	IsMeiliEnabled() bool
}

// AIConfig provides settings for AI report generation.
type AIConfig interface {
	GetMoonshotAPIKey() string
	IsAIEnabled() bool
}

// WebhookConfig provides settings for the public lead intake endpoint.
type WebhookConfig interface {
	GetWebhookRateLimit() float64
	GetWebhookRateBurst() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	JWTAccessSecret      string
	JWTRefreshSecret     string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	AppBaseURL           string
	EmailEnabled         bool
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	EmailFromName        string
	EmailFromAddress     string
	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOUseSSL          bool
	MinIOMaxFileSize     int64
	MinIOPublicBaseURL   string
	MinioBucketChatMedia string
	BillingAPIKey        string
	BillingBaseURL       string
	BillingWebhookSecret string
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	WhatsAppURL          string
	WhatsAppKey          string
	WhatsAppDeviceID     string
	MeiliURL             string
	MeiliAPIKey          string
	MoonshotAPIKey       string
	WebhookRateLimit     float64
	WebhookRateBurst     int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetJWTRefreshSecret() string        { return c.JWTRefreshSecret }
func (c *Config) GetAccessTokenTTL() time.Duration   { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration  { return c.RefreshTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64    { return c.MinIOMaxFileSize }
func (c *Config) GetMinIOPublicBaseURL() string { return c.MinIOPublicBaseURL }
func (c *Config) GetMinioBucketChatMedia() string {
	return c.MinioBucketChatMedia
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// BillingConfig implementation
func (c *Config) GetBillingAPIKey() string        { return c.BillingAPIKey }
func (c *Config) GetBillingBaseURL() string       { return c.BillingBaseURL }
func (c *Config) GetBillingWebhookSecret() string { return c.BillingWebhookSecret }
func (c *Config) IsBillingEnabled() bool          { return c.BillingAPIKey != "" }

// SchedulerConfig / RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

// SearchConfig implementation
func (c *Config) GetMeiliURL() string    { return c.MeiliURL }
func (c *Config) GetMeiliAPIKey() string { return c.MeiliAPIKey }
func (c *Config) IsMeiliEnabled() bool   { return c.MeiliURL != "" }

// AIConfig implementation
func (c *Config) GetMoonshotAPIKey() string { return c.MoonshotAPIKey }
func (c *Config) IsAIEnabled() bool         { return c.MoonshotAPIKey != "" }

// WebhookConfig implementation
func (c *Config) GetWebhookRateLimit() float64 { return c.WebhookRateLimit }
func (c *Config) GetWebhookRateBurst() int     { return c.WebhookRateBurst }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:       mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		RefreshTokenTTL:      mustDuration(getEnv("JWT_REFRESH_TTL", "720h")),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:5173"),
		EmailEnabled:         emailEnabled && smtpHost != "",
		SMTPHost:             smtpHost,
		SMTPPort:             int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		EmailFromName:        getEnv("EMAIL_FROM_NAME", "MediCRM"),
		EmailFromAddress:     getEnv("EMAIL_FROM_ADDRESS", ""),
		MinIOEndpoint:        getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:          strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:     mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "52428800")),
		MinIOPublicBaseURL:   getEnv("MINIO_PUBLIC_BASE_URL", ""),
		MinioBucketChatMedia: getEnv("MINIO_BUCKET_CHAT_MEDIA", "chat-media"),
		BillingAPIKey:        getEnv("BILLING_API_KEY", ""),
		BillingBaseURL:       getEnv("BILLING_BASE_URL", "https://api.asaas.com/v3"),
		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),
		WhatsAppURL:          getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:          getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:     getEnv("WHATSAPP_DEVICE_ID", ""),
		MeiliURL:             getEnv("MEILI_URL", ""),
		MeiliAPIKey:          getEnv("MEILI_API_KEY", ""),
		MoonshotAPIKey:       getEnv("MOONSHOT_API_KEY", ""),
		WebhookRateLimit:     mustFloat64(getEnv("WEBHOOK_RATE_LIMIT", "1")),
		WebhookRateBurst:     int(mustInt64(getEnv("WEBHOOK_RATE_BURST", "5"))),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.IsBillingEnabled() && cfg.BillingWebhookSecret == "" {
		return nil, fmt.Errorf("BILLING_WEBHOOK_SECRET is required when billing is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat64(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
