package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Ledger drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all importer configuration
type Config struct {
	Ledger   LedgerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Archive  ArchiveConfig
	Metrics  MetricsConfig
	Log      LogConfig
}

type LedgerConfig struct {
	Driver   string
	File     string // JSON snapshot for the memory driver
	Currency string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

type ImportConfig struct {
	PreviewRows              int
	DuplicateWindowDays      int
	DuplicateMinSimilarity   float64
	DuplicateRequireSameType bool
	FallbackCategory         string
	TemplatesFile            string
	RulesFile                string
	MaxAmount                float64
	InboxSchedule            string
}

type ArchiveConfig struct {
	Dir string
}

type MetricsConfig struct {
	Textfile string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, after loading envFiles
// (or ".env" when none are given) if they exist.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Ledger: LedgerConfig{
			Driver:   strings.ToLower(getEnv("LEDGER_DRIVER", DriverMemory)),
			File:     getEnv("LEDGER_FILE", "ledger.json"),
			Currency: strings.ToUpper(getEnv("CURRENCY", "EUR")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "ledger"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 4),
		},
		Import: ImportConfig{
			PreviewRows:              getEnvAsInt("IMPORT_PREVIEW_ROWS", 20),
			DuplicateWindowDays:      getEnvAsInt("IMPORT_DUPLICATE_WINDOW_DAYS", 0),
			DuplicateMinSimilarity:   getEnvAsFloat("IMPORT_DUPLICATE_MIN_SIMILARITY", 0),
			DuplicateRequireSameType: getEnvAsBool("IMPORT_DUPLICATE_REQUIRE_SAME_TYPE", false),
			FallbackCategory:         getEnv("IMPORT_FALLBACK_CATEGORY", ""),
			TemplatesFile:            getEnv("IMPORT_TEMPLATES_FILE", ""),
			RulesFile:                getEnv("IMPORT_RULES_FILE", ""),
			MaxAmount:                getEnvAsFloat("IMPORT_MAX_AMOUNT", 0),
			InboxSchedule:            getEnv("IMPORT_INBOX_SCHEDULE", "@every 15m"),
		},
		Archive: ArchiveConfig{
			Dir: getEnv("IMPORT_ARCHIVE_DIR", ""),
		},
		Metrics: MetricsConfig{
			Textfile: getEnv("METRICS_TEXTFILE", ""),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the importer cannot run with.
func (c *Config) Validate() error {
	switch c.Ledger.Driver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("LEDGER_DRIVER must be %q or %q, got %q", DriverMemory, DriverPostgres, c.Ledger.Driver)
	}
	if c.Import.DuplicateWindowDays < 0 {
		return errors.New("IMPORT_DUPLICATE_WINDOW_DAYS must not be negative")
	}
	if c.Import.DuplicateMinSimilarity < 0 || c.Import.DuplicateMinSimilarity > 1 {
		return errors.New("IMPORT_DUPLICATE_MIN_SIMILARITY must be between 0 and 1")
	}
	if c.Import.PreviewRows < 0 {
		return errors.New("IMPORT_PREVIEW_ROWS must not be negative")
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
