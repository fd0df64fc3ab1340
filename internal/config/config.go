package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backends lists the accepted DATA_BACKEND values.
var Backends = []string{"memory", "sheets", "excel", "sqlite"}

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend   string
	MirrorBackend string

	// SQLite
	SQLiteDBPath string

	// Excel workbook
	ExcelPath string

	// Google Sheets
	GoogleSpreadsheetID          string
	GoogleServiceAccountJSON     string
	GoogleServiceAccountFile     string
	GoogleApplicationCredentials string

	// AMQP, optional for the server, required by the mirror
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger reads
	LedgerCacheTTL time.Duration

	// Pricing
	PricingVersion string
	PricingFile    string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		MirrorBackend: getEnv("MIRROR_BACKEND", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cleaningos.db"),
		ExcelPath:    getEnv("EXCEL_PATH", "./data/cleaningos.xlsx"),

		GoogleSpreadsheetID:          getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON:     getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:     getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cleaningos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_mirror"),

		LedgerCacheTTL: getEnvDuration("LEDGER_CACHE_TTL", 5*time.Minute),

		PricingVersion: getEnv("PRICING_VERSION", "v2"),
		PricingFile:    getEnv("PRICING_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !validBackend(c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	} else {
		errors = append(errors, c.backendProblems(c.DataBackend)...)
	}

	// Validate mirror backend if configured
	if c.MirrorBackend != "" {
		switch {
		case !validBackend(c.MirrorBackend):
			errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, Backends))
		case c.MirrorBackend == "memory":
			errors = append(errors, "mirror backend cannot be memory: the copy would be lost on exit")
		case c.MirrorBackend != c.DataBackend:
			errors = append(errors, c.backendProblems(c.MirrorBackend)...)
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate ledger cache TTL
	if c.LedgerCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid ledger cache TTL %v: cannot be negative", c.LedgerCacheTTL))
	} else if c.LedgerCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid ledger cache TTL %v: must be at most 24 hours", c.LedgerCacheTTL))
	}

	// Validate pricing
	if strings.TrimSpace(c.PricingVersion) == "" {
		errors = append(errors, "pricing version cannot be empty")
	}
	if c.PricingFile != "" {
		if _, err := os.Stat(c.PricingFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("pricing file does not exist: %s", c.PricingFile))
		}
	}

	// Validate logging
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HasGoogleCredentials reports whether any service account source is set.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" || c.GoogleApplicationCredentials != ""
}

func (c *Config) backendProblems(backend string) []string {
	var errors []string
	switch backend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath, "SQLite database"); msg != "" {
			errors = append(errors, msg)
		}

	case "excel":
		if c.ExcelPath == "" {
			errors = append(errors, "Excel workbook path cannot be empty when using excel backend")
		} else if ext := strings.ToLower(filepath.Ext(c.ExcelPath)); ext != ".xlsx" {
			errors = append(errors, fmt.Sprintf("invalid Excel workbook path '%s': must end in .xlsx", c.ExcelPath))
		} else if msg := ensureDir(c.ExcelPath, "Excel workbook"); msg != "" {
			errors = append(errors, msg)
		}

	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if !c.HasGoogleCredentials() {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleApplicationCredentials} {
			if f == "" {
				continue
			}
			if _, err := os.Stat(f); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", f))
			}
		}
	}
	return errors
}

// ensureDir creates the parent directory of path when missing.
func ensureDir(path, what string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create %s directory '%s': %v", what, dir, err)
		}
	}
	return ""
}

func validBackend(name string) bool {
	for _, b := range Backends {
		if name == b {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
