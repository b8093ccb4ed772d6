// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Dedup key policies for unique-visitor analytics
const (
	DedupByShortCode = "short_code"
	DedupByIP        = "ip"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// PublicBaseURL is the externally visible origin used to build short URLs
	// and tracking URLs in relay payloads, e.g. https://links.example.com
	PublicBaseURL string `mapstructure:"publicbaseurl"`

	// File paths
	DatabasePath    string `mapstructure:"storagepath"`
	DatabaseName    string `mapstructure:"-"` // Derived from other settings
	GeoDBPath       string `mapstructure:"geodbpath"`
	PublicDirectory string `mapstructure:"publicdir"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Analytics settings
	DedupKey string `mapstructure:"dedupkey"`

	// ClickRetentionDays bounds how long raw click rows are kept.
	// Zero disables the cleanup job entirely.
	ClickRetentionDays int `mapstructure:"clickretentiondays"`

	// MaxMindLicenseKey enables automatic GeoLite2 database refreshes.
	// Empty means the database at GeoDBPath is managed by hand.
	MaxMindLicenseKey string `mapstructure:"maxmindlicensekey"`

	// Hot-lead relay settings
	RelayWebhookURL     string `mapstructure:"relaywebhookurl"`
	RelayTimeoutSeconds int    `mapstructure:"relaytimeoutseconds"`
	HotLeadMinClicks    int    `mapstructure:"hotleadminclicks"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "leadtrace")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("publicbaseurl", "http://localhost:3000")
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("publicdir", "public")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("dedupkey", DedupByShortCode)
		v.SetDefault("clickretentiondays", 0)
		v.SetDefault("maxmindlicensekey", "")
		v.SetDefault("relaywebhookurl", "")
		v.SetDefault("relaytimeoutseconds", 10)
		v.SetDefault("hotleadminclicks", 5)
		v.SetDefault("jobintervalseconds", 3600)

		v.BindEnv("appname", "LEADTRACE_APP_NAME")
		v.BindEnv("appport", "LEADTRACE_APP_PORT")
		v.BindEnv("environment", "LEADTRACE_ENV")
		v.BindEnv("loglevel", "LEADTRACE_LOG_LEVEL")
		v.BindEnv("publicbaseurl", "LEADTRACE_PUBLIC_BASE_URL")
		v.BindEnv("storagepath", "LEADTRACE_STORAGE_PATH")
		v.BindEnv("geodbpath", "LEADTRACE_GEO_DB_PATH")
		v.BindEnv("publicdir", "LEADTRACE_PUBLIC_DIR")
		v.BindEnv("logsdir", "LEADTRACE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "LEADTRACE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "LEADTRACE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "LEADTRACE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "LEADTRACE_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "LEADTRACE_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "LEADTRACE_DB_MAX_IDLE_CONNS")
		v.BindEnv("dedupkey", "LEADTRACE_DEDUP_KEY")
		v.BindEnv("clickretentiondays", "LEADTRACE_CLICK_RETENTION_DAYS")
		v.BindEnv("maxmindlicensekey", "LEADTRACE_MAXMIND_LICENSE_KEY")
		v.BindEnv("relaywebhookurl", "LEADTRACE_RELAY_WEBHOOK_URL")
		v.BindEnv("relaytimeoutseconds", "LEADTRACE_RELAY_TIMEOUT_SECONDS")
		v.BindEnv("hotleadminclicks", "LEADTRACE_HOT_LEAD_MIN_CLICKS")
		v.BindEnv("jobintervalseconds", "LEADTRACE_JOB_INTERVAL_SECONDS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()
		cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	validDedupKeys := map[string]bool{
		DedupByShortCode: true,
		DedupByIP:        true,
	}
	if !validDedupKeys[c.DedupKey] {
		return fmt.Errorf("invalid dedup key policy: %s", c.DedupKey)
	}

	if c.RelayTimeoutSeconds <= 0 {
		return fmt.Errorf("relay timeout must be positive, got %d", c.RelayTimeoutSeconds)
	}
	if c.HotLeadMinClicks <= 0 {
		return fmt.Errorf("hot-lead click threshold must be positive, got %d", c.HotLeadMinClicks)
	}
	if c.ClickRetentionDays < 0 {
		return fmt.Errorf("click retention days cannot be negative, got %d", c.ClickRetentionDays)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return "/"
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// If explicitly set via env var, uses that value. Tests run with a single
// connection for stability; otherwise allow concurrent reads for the
// dashboard aggregation queries.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
