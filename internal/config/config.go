package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Ticket    TicketConfig
	Scheduler SchedulerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TicketConfig fixes the per-ticket timing windows and value caps applied at
// creation. AutocloseTimeSeconds is not required to exceed
// RevokeTimeSeconds; an autoclose inside the revoke window closes a ticket
// that is still removable.
type TicketConfig struct {
	RevokeTimeSeconds      int
	AutocloseTimeSeconds   int
	ReportErrorTimeSeconds int
	ItemUpdateMaxSeconds   int
	MaxValuesPerGenre      int
	RelationDelaySeconds   int
}

// SchedulerConfig tunes the delayed task queue.
type SchedulerConfig struct {
	KeyPrefix          string
	PollIntervalMillis int
	WorkerCount        int
	TaskRetentionHours int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "compliance-core"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Ticket: TicketConfig{
			RevokeTimeSeconds:      getEnvAsInt("TICKET_REVOKE_TIME_SECONDS", 75),
			AutocloseTimeSeconds:   getEnvAsInt("TICKET_AUTOCLOSE_TIME_SECONDS", 1800),
			ReportErrorTimeSeconds: getEnvAsInt("TICKET_REPORT_ERROR_TIME_SECONDS", 86400),
			ItemUpdateMaxSeconds:   getEnvAsInt("TICKET_ITEM_UPDATE_MAX_SECONDS", 1800),
			MaxValuesPerGenre:      getEnvAsInt("TICKET_MAX_VALUES_PER_GENRE", 1000),
			RelationDelaySeconds:   getEnvAsInt("TICKET_RELATION_DELAY_SECONDS", 1),
		},
		Scheduler: SchedulerConfig{
			KeyPrefix:          getEnv("SCHEDULER_KEY_PREFIX", "compliance:tasks"),
			PollIntervalMillis: getEnvAsInt("SCHEDULER_POLL_INTERVAL_MILLIS", 250),
			WorkerCount:        getEnvAsInt("SCHEDULER_WORKER_COUNT", 4),
			TaskRetentionHours: getEnvAsInt("SCHEDULER_TASK_RETENTION_HOURS", 24),
		},
	}

	if cfg.Ticket.MaxValuesPerGenre <= 0 {
		return nil, fmt.Errorf("TICKET_MAX_VALUES_PER_GENRE must be positive")
	}
	if cfg.Ticket.RevokeTimeSeconds <= 0 {
		return nil, fmt.Errorf("TICKET_REVOKE_TIME_SECONDS must be positive")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the worker poll interval.
func (s SchedulerConfig) PollInterval() time.Duration {
	if s.PollIntervalMillis <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(s.PollIntervalMillis) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
