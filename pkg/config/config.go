package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	School   SchoolConfig
	Ledger   LedgerConfig
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
	Prefix   string
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchoolConfig carries institution specific identifiers and grading rules.
type SchoolConfig struct {
	Name        string
	EmailDomain string
	CampusCode  string
	PassingMark float64
}

// LedgerConfig tunes the financial ledger services.
type LedgerConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	NodeID       int64
}

// EventsConfig controls asynchronous event publication.
type EventsConfig struct {
	Brokers       []string
	PaymentTopic  string
	ApprovalTopic string
	Workers       int
	Buffer        int
	Retries       int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
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
		Prefix:   v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.School = SchoolConfig{
		Name:        v.GetString("SCHOOL_NAME"),
		EmailDomain: strings.TrimPrefix(v.GetString("SCHOOL_EMAIL_DOMAIN"), "@"),
		CampusCode:  v.GetString("STUDENT_ID_CAMPUS_CODE"),
		PassingMark: v.GetFloat64("GRADE_PASSING_MARK"),
	}

	cfg.Ledger = LedgerConfig{
		CacheEnabled: v.GetBool("ENABLE_LEDGER_CACHE"),
		CacheTTL:     parseDuration(v.GetString("LEDGER_CACHE_TTL"), 5*time.Minute),
		NodeID:       v.GetInt64("LEDGER_NODE_ID"),
	}

	cfg.Events = EventsConfig{
		Brokers:       splitAndTrim(v.GetString("KAFKA_BROKERS")),
		PaymentTopic:  v.GetString("KAFKA_PAYMENT_TOPIC"),
		ApprovalTopic: v.GetString("KAFKA_APPROVAL_TOPIC"),
		Workers:       v.GetInt("EVENTS_WORKERS"),
		Buffer:        v.GetInt("EVENTS_BUFFER"),
		Retries:       v.GetInt("EVENTS_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("EVENTS_RETRY_DELAY"), 2*time.Second),
		MaxRetryDelay: parseDuration(v.GetString("EVENTS_MAX_RETRY_DELAY"), time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "uphsl_enrollment")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "uphsl")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHOOL_NAME", "University of Perpetual Help System Laguna")
	v.SetDefault("SCHOOL_EMAIL_DOMAIN", "manila.uphsl.edu.ph")
	v.SetDefault("STUDENT_ID_CAMPUS_CODE", "70")
	v.SetDefault("GRADE_PASSING_MARK", 75)

	v.SetDefault("ENABLE_LEDGER_CACHE", false)
	v.SetDefault("LEDGER_CACHE_TTL", "5m")
	v.SetDefault("LEDGER_NODE_ID", 1)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_PAYMENT_TOPIC", "enrollment.payment_recorded")
	v.SetDefault("KAFKA_APPROVAL_TOPIC", "enrollment.approved")
	v.SetDefault("EVENTS_WORKERS", 2)
	v.SetDefault("EVENTS_RETRIES", 3)
	v.SetDefault("EVENTS_BUFFER", 256)
	v.SetDefault("EVENTS_RETRY_DELAY", "2s")
	v.SetDefault("EVENTS_MAX_RETRY_DELAY", "1m")
}

// isMissingFile reports a missing .env, which viper surfaces as a path error
// when SetConfigFile is used.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
