package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Categories lists the grading categories in the order used for GRADING_* keys.
var Categories = []string{"quiz", "midterm", "final", "assignment", "presentation", "attendance"}

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Summary  SummaryConfig
	Grading  GradingConfig
	Entry    EntryConfig
	Exports  ExportsConfig
	Events   EventsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SummaryConfig governs caching of student grade summaries.
type SummaryConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// CategoryRule is the configured weight and maximum for one category.
type CategoryRule struct {
	Weight      float64
	MaxPossible float64
}

// GradingConfig holds the category weight table keyed by category name.
type GradingConfig struct {
	Rules map[string]CategoryRule
}

// EntryConfig tunes guided entry sessions and background reconciliation.
type EntryConfig struct {
	SessionTTL         time.Duration
	AutoReconcile      bool
	ReconcileWorkers   int
	ReconcileRetries   int
	ReconcileRetryWait time.Duration
}

// ExportsConfig controls where rendered exports live and how long links stay valid.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// EventsConfig selects the mark event transport.
type EventsConfig struct {
	Enabled      bool
	Publisher    string
	KafkaBrokers []string
	Topic        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Summary = SummaryConfig{
		CacheEnabled: v.GetBool("ENABLE_SUMMARY_CACHE"),
		CacheTTL:     parseDuration(v.GetString("SUMMARY_CACHE_TTL"), 5*time.Minute),
	}

	rules := make(map[string]CategoryRule, len(Categories))
	for _, name := range Categories {
		key := strings.ToUpper(name)
		rules[name] = CategoryRule{
			Weight:      v.GetFloat64(fmt.Sprintf("GRADING_%s_WEIGHT", key)),
			MaxPossible: v.GetFloat64(fmt.Sprintf("GRADING_%s_MAX", key)),
		}
	}
	cfg.Grading = GradingConfig{Rules: rules}

	cfg.Entry = EntryConfig{
		SessionTTL:         parseDuration(v.GetString("ENTRY_SESSION_TTL"), 2*time.Hour),
		AutoReconcile:      v.GetBool("ENTRY_AUTO_RECONCILE"),
		ReconcileWorkers:   v.GetInt("RECONCILE_WORKERS"),
		ReconcileRetries:   v.GetInt("RECONCILE_RETRIES"),
		ReconcileRetryWait: parseDuration(v.GetString("RECONCILE_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Events = EventsConfig{
		Enabled:      v.GetBool("EVENTS_ENABLED"),
		Publisher:    strings.ToLower(v.GetString("EVENTS_PUBLISHER")),
		KafkaBrokers: splitAndTrim(v.GetString("KAFKA_BROKERS")),
		Topic:        v.GetString("MARK_EVENTS_TOPIC"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "marks")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SUMMARY_CACHE", false)
	v.SetDefault("SUMMARY_CACHE_TTL", "5m")

	v.SetDefault("GRADING_QUIZ_WEIGHT", 15)
	v.SetDefault("GRADING_QUIZ_MAX", 15)
	v.SetDefault("GRADING_MIDTERM_WEIGHT", 25)
	v.SetDefault("GRADING_MIDTERM_MAX", 25)
	v.SetDefault("GRADING_FINAL_WEIGHT", 40)
	v.SetDefault("GRADING_FINAL_MAX", 40)
	v.SetDefault("GRADING_ASSIGNMENT_WEIGHT", 5)
	v.SetDefault("GRADING_ASSIGNMENT_MAX", 5)
	v.SetDefault("GRADING_PRESENTATION_WEIGHT", 8)
	v.SetDefault("GRADING_PRESENTATION_MAX", 8)
	v.SetDefault("GRADING_ATTENDANCE_WEIGHT", 7)
	v.SetDefault("GRADING_ATTENDANCE_MAX", 7)

	v.SetDefault("ENTRY_SESSION_TTL", "2h")
	v.SetDefault("ENTRY_AUTO_RECONCILE", true)
	v.SetDefault("RECONCILE_WORKERS", 1)
	v.SetDefault("RECONCILE_RETRIES", 3)
	v.SetDefault("RECONCILE_RETRY_DELAY", "5s")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("EVENTS_ENABLED", true)
	v.SetDefault("EVENTS_PUBLISHER", "memory")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("MARK_EVENTS_TOPIC", "marks.events")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
