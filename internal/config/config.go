// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // exchange zones on hosts without a zoneinfo database

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Port        int
	DBDriver    string
	DBPath      string // SQLite file
	DatabaseURL string // Postgres DSN
	Timezone    *time.Location

	CalendarFile string

	FetchTimeout     time.Duration
	FetchCacheTTL    time.Duration
	FetchInterval    time.Duration
	FetchConcurrency int
	UserAgent        string

	DailySchedule    string // cron spec with seconds field
	SnapshotHour     int    // startup catch-up runs at or after this hour
	SchedulerEnabled bool

	CORSOrigins []string
	LogLevel    string
	LogPretty   bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	loc, err := loadLocation(getEnv("TIMEZONE", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:             getEnvAsInt("PORT", 8080),
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:           getEnv("PORTFOLIO_DB", "portfolio.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		Timezone:         loc,
		CalendarFile:     getEnv("CALENDAR_FILE", "configs/calendars/nse.yaml"),
		FetchTimeout:     getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchCacheTTL:    getEnvAsDuration("FETCH_CACHE_TTL", 5*time.Minute),
		FetchInterval:    getEnvAsDuration("FETCH_INTERVAL", 100*time.Millisecond),
		FetchConcurrency: getEnvAsInt("FETCH_CONCURRENCY", 1),
		UserAgent:        getEnv("USER_AGENT", "Mozilla/5.0"),
		DailySchedule:    getEnv("DAILY_SCHEDULE", "0 30 16 * * MON-FRI"),
		SnapshotHour:     getEnvAsInt("SNAPSHOT_HOUR", 16),
		SchedulerEnabled: getEnvAsBool("SCHEDULER_ENABLED", true),
		CORSOrigins:      getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOG_PRETTY", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("PORTFOLIO_DB is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %q or %q)", c.DBDriver, DriverSQLite, DriverPostgres)
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be at least 1")
	}
	if c.SnapshotHour < 0 || c.SnapshotHour > 23 {
		return fmt.Errorf("SNAPSHOT_HOUR must be between 0 and 23")
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
