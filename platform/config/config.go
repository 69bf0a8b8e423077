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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// JWTConfig provides JWT validation settings for the control API middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// WhatsAppConfig provides settings for the outbound WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	GetOutboundMessagesPerSecond() float64
}

// AssistantConfig provides settings for the LLM assistant collaborator.
type AssistantConfig interface {
	GetAssistantAPIKey() string
	GetAssistantModel() string
	GetAssistantTimeout() time.Duration
}

// TranscriberConfig provides settings for the speech-to-text collaborator.
type TranscriberConfig interface {
	GetWhisperURL() string
	GetWhisperTimeout() time.Duration
	GetMaxAudioBytes() int64
	GetAudioLanguage() string
}

// SchedulerConfig provides settings for the asynq reminder scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides settings for agent handoff emails (SMTP).
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAgentEmail() string
}

// MinIOConfig provides settings for the optional voice message archive.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketVoiceMessages() string
	IsMinIOEnabled() bool
}

// AutomationConfig provides settings for the pipeline automation engine.
type AutomationConfig interface {
	GetAutomationInterval() time.Duration
	GetAutomationRulesFile() string
	IsAutomationEnabled() bool
}

// BotConfig provides settings for the conversational session controller.
type BotConfig interface {
	GetDefaultTenantID() string
	GetSessionIdleTimeout() time.Duration
	GetSessionReaperInterval() time.Duration
	GetFollowUpInterval() time.Duration
	GetOfficeHoursStart() int
	GetOfficeHoursEnd() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	WhatsAppURL           string
	WhatsAppKey           string
	WhatsAppDeviceID      string
	OutboundMsgsPerSecond float64
	AssistantAPIKey       string
	AssistantModel        string
	AssistantTimeout      time.Duration
	WhisperURL            string
	WhisperTimeout        time.Duration
	MaxAudioBytes         int64
	AudioLanguage         string
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	AgentEmail            string
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinioBucketVoice      string
	AutomationInterval    time.Duration
	AutomationRulesFile   string
	AutomationEnabled     bool
	DefaultTenantID       string
	SessionIdleTimeout    time.Duration
	SessionReaperInterval time.Duration
	FollowUpInterval      time.Duration
	OfficeHoursStart      int
	OfficeHoursEnd        int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string                { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string                { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string           { return c.WhatsAppDeviceID }
func (c *Config) GetOutboundMessagesPerSecond() float64 { return c.OutboundMsgsPerSecond }

// AssistantConfig implementation
func (c *Config) GetAssistantAPIKey() string         { return c.AssistantAPIKey }
func (c *Config) GetAssistantModel() string          { return c.AssistantModel }
func (c *Config) GetAssistantTimeout() time.Duration { return c.AssistantTimeout }

// TranscriberConfig implementation
func (c *Config) GetWhisperURL() string            { return c.WhisperURL }
func (c *Config) GetWhisperTimeout() time.Duration { return c.WhisperTimeout }
func (c *Config) GetMaxAudioBytes() int64          { return c.MaxAudioBytes }
func (c *Config) GetAudioLanguage() string         { return c.AudioLanguage }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAgentEmail() string       { return c.AgentEmail }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketVoiceMessages() string {
	return c.MinioBucketVoice
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// AutomationConfig implementation
func (c *Config) GetAutomationInterval() time.Duration { return c.AutomationInterval }
func (c *Config) GetAutomationRulesFile() string       { return c.AutomationRulesFile }
func (c *Config) IsAutomationEnabled() bool            { return c.AutomationEnabled }

// BotConfig implementation
func (c *Config) GetDefaultTenantID() string              { return c.DefaultTenantID }
func (c *Config) GetSessionIdleTimeout() time.Duration    { return c.SessionIdleTimeout }
func (c *Config) GetSessionReaperInterval() time.Duration { return c.SessionReaperInterval }
func (c *Config) GetFollowUpInterval() time.Duration      { return c.FollowUpInterval }
func (c *Config) GetOfficeHoursStart() int                { return c.OfficeHoursStart }
func (c *Config) GetOfficeHoursEnd() int                  { return c.OfficeHoursEnd }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		WhatsAppURL:           getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:           getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:      getEnv("WHATSAPP_DEVICE_ID", ""),
		OutboundMsgsPerSecond: mustFloat(getEnv("WHATSAPP_MESSAGES_PER_SECOND", "1")),
		AssistantAPIKey:       getEnv("GEMINI_API_KEY", ""),
		AssistantModel:        getEnv("ASSISTANT_MODEL", "gemini-2.0-flash"),
		AssistantTimeout:      mustDuration(getEnv("ASSISTANT_TIMEOUT", "60s")),
		WhisperURL:            getEnv("WHISPER_URL", ""),
		WhisperTimeout:        mustDuration(getEnv("WHISPER_TIMEOUT", "120s")),
		MaxAudioBytes:         mustInt64(getEnv("MAX_AUDIO_SIZE", "26214400")),
		AudioLanguage:         getEnv("AUDIO_LANGUAGE", "pt"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),
		EmailEnabled:          strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "SC Imóveis"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		AgentEmail:            getEnv("AGENT_NOTIFY_EMAIL", ""),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketVoice:      getEnv("MINIO_BUCKET_VOICE_MESSAGES", "voice-messages"),
		AutomationInterval:    mustDuration(getEnv("AUTOMATION_INTERVAL", "5m")),
		AutomationRulesFile:   getEnv("AUTOMATION_RULES_FILE", ""),
		AutomationEnabled:     strings.EqualFold(getEnv("AUTOMATION_ENABLED", "true"), "true"),
		DefaultTenantID:       getEnv("DEFAULT_TENANT_ID", "00000000-0000-0000-0000-000000000001"),
		SessionIdleTimeout:    mustDuration(getEnv("SESSION_IDLE_TIMEOUT", "6h")),
		SessionReaperInterval: mustDuration(getEnv("SESSION_REAPER_INTERVAL", "1h")),
		FollowUpInterval:      mustDuration(getEnv("FOLLOWUP_INTERVAL", "1h")),
		OfficeHoursStart:      int(mustInt64(getEnv("OFFICE_HOURS_START", "8"))),
		OfficeHoursEnd:        int(mustInt64(getEnv("OFFICE_HOURS_END", "22"))),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.AssistantAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when EMAIL_ENABLED is true")
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

func mustFloat(value string) float64 {
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
