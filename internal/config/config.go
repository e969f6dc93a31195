package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	MongoDB MongoDBConfig
	Notify  NotifyConfig
	Audit   AuditConfig
	Sweeper SweeperConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// NotifyConfig configures the external notification dispatcher. Optional:
// when BaseURL is empty, notification effects are dropped.
type NotifyConfig struct {
	BaseURL string
	APIKey  string
}

// Enabled reports whether the notification dispatcher is configured.
func (c NotifyConfig) Enabled() bool {
	return c.BaseURL != ""
}

// AuditConfig configures the spreadsheet audit sink. Optional: when the
// spreadsheet ID is empty, activity effects are only logged.
type AuditConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the audit sink is configured.
func (c AuditConfig) Enabled() bool {
	return c.SpreadsheetID != "" && c.CredentialsPath != ""
}

// SweeperConfig holds the expiry sweeper schedule.
type SweeperConfig struct {
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "studbook"),
		},
		Notify: NotifyConfig{
			BaseURL: os.Getenv("NOTIFY_BASE_URL"),
			APIKey:  os.Getenv("NOTIFY_API_KEY"),
		},
		Audit: AuditConfig{
			CredentialsPath: os.Getenv("AUDIT_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("AUDIT_SHEET_ID"),
		},
		Sweeper: SweeperConfig{
			CronSchedule: getenvWithDefault("EXPIRY_SWEEP_SCHEDULE", "0 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}
	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Notify.BaseURL != "" && c.Notify.APIKey == "" {
		return errors.New("NOTIFY_API_KEY must be provided when NOTIFY_BASE_URL is set")
	}

	if c.Audit.SpreadsheetID != "" && c.Audit.CredentialsPath == "" {
		return errors.New("AUDIT_SHEETS_CREDENTIALS_PATH must be provided when AUDIT_SHEET_ID is set")
	}

	if c.Sweeper.CronSchedule == "" {
		return errors.New("EXPIRY_SWEEP_SCHEDULE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
