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
	GetMigrationsEnabled() bool
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetPublicRateLimitPerMinute() int
}

// SchedulerConfig provides settings for the asynq client, worker and sweeps.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetExpirySweepSchedule() string
	GetExpirySweepBatchSize() int
	GetOutboxPollInterval() time.Duration
}

// EmailConfig provides settings for SMTP delivery.
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
	GetAdminNotificationEmail() string
}

// MapsConfig provides settings for the geocoding/routing collaborator.
type MapsConfig interface {
	GetGeocoderURL() string
	GetRoutingURL() string
	GetMapsUserAgent() string
	GetDistanceCacheTTL() time.Duration
}

// StorageConfig provides settings for MinIO document storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketPartnerDocuments() string
	IsMinIOEnabled() bool
}

// CommissionConfig provides the system commission default and the admin input bounds.
type CommissionConfig interface {
	GetCommissionDefaultRate() string
	GetCommissionDefaultType() string
	GetCommissionMinRate() string
	GetCommissionMaxRate() string
	GetCommissionMaxFixed() string
}

// RankingWeights blends distance, rating and volume into a partner ranking score.
type RankingWeights struct {
	Distance float64
	Rating   float64
	Volume   float64
}

// LifecycleConfig provides quote/offer/job policy knobs.
type LifecycleConfig interface {
	GetRUTCap() int64
	GetRUTShare() string
	GetDefaultMaxDriveDistanceKm() int
	GetQuoteTTL() time.Duration
	GetOfferValidity() time.Duration
	GetJobTransitionMode() string
	GetJobTransitionPolicyFile() string
	GetStrictOfferApprovedOverride() bool
	GetRankingWeights() RankingWeights
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                         string
	HTTPAddr                    string
	DatabaseURL                 string
	MigrationsEnabled           bool
	JWTAccessSecret             string
	CORSAllowAll                bool
	CORSOrigins                 []string
	CORSAllowCreds              bool
	PublicRateLimitPerMinute    int
	AppBaseURL                  string
	AdminNotificationEmail      string
	EmailEnabled                bool
	SMTPHost                    string
	SMTPPort                    int
	SMTPUsername                string
	SMTPPassword                string
	EmailFromName               string
	EmailFromAddress            string
	RedisURL                    string
	RedisTLSInsecure            bool
	AsynqQueueName              string
	AsynqConcurrency            int
	ExpirySweepSchedule         string
	ExpirySweepBatchSize        int
	OutboxPollInterval          time.Duration
	GeocoderURL                 string
	RoutingURL                  string
	MapsUserAgent               string
	DistanceCacheTTL            time.Duration
	MinIOEndpoint               string
	MinIOAccessKey              string
	MinIOSecretKey              string
	MinIOUseSSL                 bool
	MinIOMaxFileSize            int64
	MinioBucketPartnerDocuments string
	CommissionDefaultRate       string
	CommissionDefaultType       string
	CommissionMinRate           string
	CommissionMaxRate           string
	CommissionMaxFixed          string
	RUTCap                      int64
	RUTShare                    string
	DefaultMaxDriveDistanceKm   int
	QuoteTTL                    time.Duration
	OfferValidity               time.Duration
	JobTransitionMode           string
	JobTransitionPolicyFile     string
	StrictOfferApprovedOverride bool
	RankingWeights              RankingWeights
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetMigrationsEnabled() bool { return c.MigrationsEnabled }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string               { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool             { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string          { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool           { return c.CORSAllowCreds }
func (c *Config) GetPublicRateLimitPerMinute() int { return c.PublicRateLimitPerMinute }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                  { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool            { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string            { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int             { return c.AsynqConcurrency }
func (c *Config) GetExpirySweepSchedule() string       { return c.ExpirySweepSchedule }
func (c *Config) GetExpirySweepBatchSize() int         { return c.ExpirySweepBatchSize }
func (c *Config) GetOutboxPollInterval() time.Duration { return c.OutboxPollInterval }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string            { return c.AppBaseURL }
func (c *Config) GetAdminNotificationEmail() string { return c.AdminNotificationEmail }

// MapsConfig implementation
func (c *Config) GetGeocoderURL() string              { return c.GeocoderURL }
func (c *Config) GetRoutingURL() string               { return c.RoutingURL }
func (c *Config) GetMapsUserAgent() string            { return c.MapsUserAgent }
func (c *Config) GetDistanceCacheTTL() time.Duration { return c.DistanceCacheTTL }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketPartnerDocuments() string {
	return c.MinioBucketPartnerDocuments
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// CommissionConfig implementation
func (c *Config) GetCommissionDefaultRate() string { return c.CommissionDefaultRate }
func (c *Config) GetCommissionDefaultType() string { return c.CommissionDefaultType }
func (c *Config) GetCommissionMinRate() string     { return c.CommissionMinRate }
func (c *Config) GetCommissionMaxRate() string     { return c.CommissionMaxRate }
func (c *Config) GetCommissionMaxFixed() string    { return c.CommissionMaxFixed }

// LifecycleConfig implementation
func (c *Config) GetRUTCap() int64                     { return c.RUTCap }
func (c *Config) GetRUTShare() string                  { return c.RUTShare }
func (c *Config) GetDefaultMaxDriveDistanceKm() int    { return c.DefaultMaxDriveDistanceKm }
func (c *Config) GetQuoteTTL() time.Duration           { return c.QuoteTTL }
func (c *Config) GetOfferValidity() time.Duration      { return c.OfferValidity }
func (c *Config) GetJobTransitionMode() string         { return c.JobTransitionMode }
func (c *Config) GetJobTransitionPolicyFile() string   { return c.JobTransitionPolicyFile }
func (c *Config) GetStrictOfferApprovedOverride() bool { return c.StrictOfferApprovedOverride }
func (c *Config) GetRankingWeights() RankingWeights    { return c.RankingWeights }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                         getEnv("APP_ENV", "development"),
		HTTPAddr:                    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                 getEnv("DATABASE_URL", ""),
		MigrationsEnabled:           strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		JWTAccessSecret:             getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                corsAllowAll,
		CORSOrigins:                 corsOrigins,
		CORSAllowCreds:              strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		PublicRateLimitPerMinute:    mustInt(getEnv("PUBLIC_RATE_LIMIT_PER_MINUTE", "10")),
		AppBaseURL:                  getEnv("APP_BASE_URL", "http://localhost:4200"),
		AdminNotificationEmail:      getEnv("ADMIN_NOTIFICATION_EMAIL", ""),
		EmailEnabled:                emailEnabled && smtpHost != "",
		SMTPHost:                    smtpHost,
		SMTPPort:                    mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:                getEnv("SMTP_USERNAME", ""),
		SMTPPassword:                getEnv("SMTP_PASSWORD", ""),
		EmailFromName:               getEnv("EMAIL_FROM_NAME", "Flyttbas"),
		EmailFromAddress:            getEnv("EMAIL_FROM_ADDRESS", ""),
		RedisURL:                    getEnv("REDIS_URL", ""),
		RedisTLSInsecure:            strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:              getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:            mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ExpirySweepSchedule:         getEnv("EXPIRY_SWEEP_SCHEDULE", "@every 5m"),
		ExpirySweepBatchSize:        mustInt(getEnv("EXPIRY_SWEEP_BATCH_SIZE", "200")),
		OutboxPollInterval:          mustDuration(getEnv("OUTBOX_POLL_INTERVAL", "2s")),
		GeocoderURL:                 getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		RoutingURL:                  getEnv("ROUTING_URL", "https://router.project-osrm.org"),
		MapsUserAgent:               getEnv("MAPS_USER_AGENT", "Flyttbas/1.0"),
		DistanceCacheTTL:            mustDuration(getEnv("DISTANCE_CACHE_TTL", "168h")),
		MinIOEndpoint:               getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:              getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:              getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                 strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:            mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "10485760")),
		MinioBucketPartnerDocuments: getEnv("MINIO_BUCKET_PARTNER_DOCUMENTS", "partner-documents"),
		CommissionDefaultRate:       getEnv("COMMISSION_DEFAULT_RATE", "7"),
		CommissionDefaultType:       getEnv("COMMISSION_DEFAULT_TYPE", "percentage"),
		CommissionMinRate:           getEnv("COMMISSION_MIN_RATE", "0"),
		CommissionMaxRate:           getEnv("COMMISSION_MAX_RATE", "30"),
		CommissionMaxFixed:          getEnv("COMMISSION_MAX_FIXED", "10000"),
		RUTCap:                      mustInt64(getEnv("RUT_CAP", "75000")),
		RUTShare:                    getEnv("RUT_SHARE", "0.5"),
		DefaultMaxDriveDistanceKm:   mustInt(getEnv("DEFAULT_MAX_DRIVE_DISTANCE_KM", "50")),
		QuoteTTL:                    mustDuration(getEnv("QUOTE_TTL", "720h")),
		OfferValidity:               mustDuration(getEnv("OFFER_VALIDITY", "336h")),
		JobTransitionMode:           strings.ToLower(getEnv("JOB_TRANSITION_MODE", "free")),
		JobTransitionPolicyFile:     getEnv("JOB_TRANSITION_POLICY_FILE", ""),
		StrictOfferApprovedOverride: strings.EqualFold(getEnv("STRICT_OFFER_APPROVED_OVERRIDE", "true"), "true"),
		RankingWeights: RankingWeights{
			Distance: mustFloat(getEnv("RANKING_WEIGHT_DISTANCE", "0.5")),
			Rating:   mustFloat(getEnv("RANKING_WEIGHT_RATING", "0.35")),
			Volume:   mustFloat(getEnv("RANKING_WEIGHT_VOLUME", "0.15")),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.JobTransitionMode != "free" && cfg.JobTransitionMode != "strict" {
		return nil, fmt.Errorf("JOB_TRANSITION_MODE must be free or strict")
	}
	if cfg.RUTCap < 0 {
		return nil, fmt.Errorf("RUT_CAP must not be negative")
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

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
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
