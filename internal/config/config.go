// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/venille/internal/model"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string
	AutoMigrate bool

	// Transport
	TransportURL   string
	TransportToken string

	// Environment
	AppEnv string
	Hosted bool // ホスティング環境（QRを端末に描画しない）

	// Session store
	SessionStore   string
	SessionDir     string
	SessionID      string
	CredentialFile string

	// Supervisor
	DisconnectBackoff time.Duration
	ErrorBackoff      time.Duration
	MaxBackoff        time.Duration
	SendTimeout       time.Duration

	// Conversation
	VendorRecipient string
	SalesContactURL string

	// Reminder
	ReminderCron     string
	ReminderLocation *time.Location

	// Outbox
	OutboxInterval      time.Duration
	OutboxBatchSize     int
	OutboxSendInterval  time.Duration
	OutboxMaxAttempts   int
	OutboxRetentionDays int

	// Education feed
	EducationFeedURL string
	FetchTimeout     time.Duration
	FetchMaxSize     int64
	FetchCacheTTL    time.Duration

	// Server
	ServerPort      string
	OpsToken        string
	ShutdownTimeout time.Duration

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は*model.ConfigErrorを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, &model.ConfigError{Missing: missing}
	}

	// Optional fields with defaults
	cfg.AutoMigrate = getEnvBool("AUTO_MIGRATE", true)
	cfg.TransportURL = getEnvString("TRANSPORT_URL", "ws://localhost:3001/bridge")
	cfg.TransportToken = getEnvString("TRANSPORT_TOKEN", "")
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.Hosted = cfg.AppEnv == "production" || os.Getenv("RAILWAY_ENVIRONMENT") != ""
	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", "hybrid"))
	cfg.SessionDir = getEnvString("SESSION_DIR", ".venille-auth")
	cfg.SessionID = getEnvString("SESSION_ID", model.DefaultAuthSessionID)
	cfg.CredentialFile = getEnvString("CREDENTIAL_FILE", "/tmp/last-qr.txt")
	cfg.DisconnectBackoff = getEnvDuration("DISCONNECT_BACKOFF", 5*time.Second)
	cfg.ErrorBackoff = getEnvDuration("ERROR_BACKOFF", 10*time.Second)
	cfg.MaxBackoff = getEnvDuration("MAX_BACKOFF", 5*time.Minute)
	cfg.SendTimeout = getEnvDuration("SEND_TIMEOUT", 30*time.Second)
	cfg.VendorRecipient = getEnvString("VENDOR_RECIPIENT", "")
	cfg.SalesContactURL = getEnvString("SALES_CONTACT_URL", "")
	cfg.ReminderCron = getEnvString("REMINDER_CRON", "0 9 * * *")
	cfg.OutboxInterval = getEnvDuration("OUTBOX_INTERVAL", 3*time.Minute)
	cfg.OutboxBatchSize = getEnvInt("OUTBOX_BATCH_SIZE", 20)
	cfg.OutboxSendInterval = getEnvDuration("OUTBOX_SEND_INTERVAL", 1500*time.Millisecond)
	cfg.OutboxMaxAttempts = getEnvInt("OUTBOX_MAX_ATTEMPTS", 5)
	cfg.OutboxRetentionDays = getEnvInt("OUTBOX_RETENTION_DAYS", 30)
	cfg.EducationFeedURL = getEnvString("EDUCATION_FEED_URL", "")
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchCacheTTL = getEnvDuration("FETCH_CACHE_TTL", 30*time.Minute)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.OpsToken = getEnvString("OPS_TOKEN", "")
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	tz := getEnvString("REMINDER_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE %q: %w", tz, err)
	}
	cfg.ReminderLocation = loc

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
