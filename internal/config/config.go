package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Ledger   LedgerConfig
	Loading  LoadingConfig
	Audit    AuditConfig
	Sheets   SheetsConfig
	WhatsApp WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LedgerConfig selects and configures the ledger store backend.
type LedgerConfig struct {
	// Driver is "mongo" or "memory". The memory driver is for
	// single-instance deployments and local development.
	Driver string
	URI    string
	DBName string
}

// LoadingConfig holds the loading policy knobs.
type LoadingConfig struct {
	// ToleranceBags is the single tolerance band applied both to the
	// overflow check on add and to the dispatch band on finalize.
	ToleranceBags int
	// ConflictRetries is how many times an operation re-reads and
	// re-validates after losing an optimistic-concurrency race before the
	// conflict is surfaced to the caller.
	ConflictRetries int
	// BagsPerTonne converts a vehicle's declared tonnage into its target
	// bag capacity at registration.
	BagsPerTonne int
}

// AuditConfig holds the conservation-audit schedule.
type AuditConfig struct {
	CronSchedule string
}

// SheetsConfig contains configuration for the Google Sheets dispatch
// register. Optional; the register is disabled when unset.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	RegisterRange   string
}

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API used
// for dispatch alerts. Optional; alerts are disabled when the token is empty.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	OpsGroupID    string
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

	toleranceBags, err := getenvInt("LOADING_TOLERANCE_BAGS", 20)
	if err != nil {
		return nil, err
	}
	conflictRetries, err := getenvInt("LOADING_CONFLICT_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	bagsPerTonne, err := getenvInt("LOADING_BAGS_PER_TONNE", 20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Ledger: LedgerConfig{
			Driver: getenvWithDefault("LEDGER_STORE", "mongo"),
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "seedledger"),
		},
		Loading: LoadingConfig{
			ToleranceBags:   toleranceBags,
			ConflictRetries: conflictRetries,
			BagsPerTonne:    bagsPerTonne,
		},
		Audit: AuditConfig{
			CronSchedule: getenvWithDefault("AUDIT_CRON_SCHEDULE", "0 21 * * *"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_REGISTER_ID"),
			RegisterRange:   getenvWithDefault("GOOGLE_SHEET_REGISTER_RANGE", "Dispatches!A:H"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			OpsGroupID:    os.Getenv("WHATSAPP_OPS_GROUP_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and
// coherent.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Ledger.Driver {
	case "mongo":
		if c.Ledger.URI == "" {
			return errors.New("MONGODB_URI must be provided when LEDGER_STORE=mongo")
		}
		if c.Ledger.DBName == "" {
			return errors.New("MONGODB_DB_NAME must not be empty")
		}
	case "memory":
		// Nothing to validate; volatile store.
	default:
		return fmt.Errorf("LEDGER_STORE must be mongo or memory, got %q", c.Ledger.Driver)
	}

	if c.Loading.ToleranceBags < 0 {
		return errors.New("LOADING_TOLERANCE_BAGS must not be negative")
	}
	if c.Loading.ConflictRetries < 0 {
		return errors.New("LOADING_CONFLICT_RETRIES must not be negative")
	}
	if c.Loading.BagsPerTonne <= 0 {
		return errors.New("LOADING_BAGS_PER_TONNE must be positive")
	}

	if c.Audit.CronSchedule == "" {
		return errors.New("AUDIT_CRON_SCHEDULE must be provided")
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when the dispatch register is enabled")
	}

	if c.WhatsApp.AccessToken != "" {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided when dispatch alerts are enabled")
		case c.WhatsApp.OpsGroupID == "":
			return errors.New("WHATSAPP_OPS_GROUP_ID must be provided when dispatch alerts are enabled")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return parsed, nil
}
