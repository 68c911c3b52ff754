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
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	SLA      SLAConfig
	Badge    BadgeConfig
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// SLATarget pairs the two deadline durations tracked per priority.
type SLATarget struct {
	FirstResponse time.Duration
	Resolution    time.Duration
}

// SLAConfig carries the policy table and sweep behavior. Policy changes
// only affect tickets created afterward; due times are stamped at creation.
type SLAConfig struct {
	UrgentTarget   SLATarget
	HighTarget     SLATarget
	MediumTarget   SLATarget
	LowTarget      SLATarget
	AtRiskFraction float64
	SweepInterval  time.Duration
}

// BadgeConfig controls the badge aggregator poll cadence.
type BadgeConfig struct {
	PollInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	atRisk, err := strconv.ParseFloat(getEnv("SLA_AT_RISK_FRACTION", "0.20"), 64)
	if err != nil || atRisk <= 0 || atRisk >= 1 {
		return nil, fmt.Errorf("invalid SLA_AT_RISK_FRACTION: %q", getEnv("SLA_AT_RISK_FRACTION", "0.20"))
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-core"),
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
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		SLA: SLAConfig{
			UrgentTarget: SLATarget{
				FirstResponse: getEnvAsDuration("SLA_URGENT_FIRST_RESPONSE", time.Hour),
				Resolution:    getEnvAsDuration("SLA_URGENT_RESOLUTION", 4*time.Hour),
			},
			HighTarget: SLATarget{
				FirstResponse: getEnvAsDuration("SLA_HIGH_FIRST_RESPONSE", 4*time.Hour),
				Resolution:    getEnvAsDuration("SLA_HIGH_RESOLUTION", 24*time.Hour),
			},
			MediumTarget: SLATarget{
				FirstResponse: getEnvAsDuration("SLA_MEDIUM_FIRST_RESPONSE", 8*time.Hour),
				Resolution:    getEnvAsDuration("SLA_MEDIUM_RESOLUTION", 48*time.Hour),
			},
			LowTarget: SLATarget{
				FirstResponse: getEnvAsDuration("SLA_LOW_FIRST_RESPONSE", 24*time.Hour),
				Resolution:    getEnvAsDuration("SLA_LOW_RESOLUTION", 72*time.Hour),
			},
			AtRiskFraction: atRisk,
			SweepInterval:  getEnvAsDuration("SLA_SWEEP_INTERVAL", time.Minute),
		},
		Badge: BadgeConfig{
			PollInterval: getEnvAsDuration("BADGE_POLL_INTERVAL", 15*time.Second),
		},
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
