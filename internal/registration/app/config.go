package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/businesssandbox/regbot/core/config"
	coredatabase "github.com/businesssandbox/regbot/core/database"
	"github.com/businesssandbox/regbot/core/telegram/state"
	"github.com/businesssandbox/regbot/internal/registration/flow"
	"github.com/businesssandbox/regbot/internal/registration/sink"
)

const (
	defaultCredentialsFile = "creds.json"
	defaultSessionTTL      = 24 * time.Hour
	defaultRedisPrefix     = "regbot:" + state.DefaultKeyPrefix
)

// SheetsConfig points at the spreadsheet registrations are appended to.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	Worksheet       string `yaml:"worksheet" envconfig:"SHEETS_WORKSHEET"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"GOOGLE_CREDENTIALS_FILE"`
}

// RedisConfig enables the Redis session store. An empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr       string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password   string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" envconfig:"REDIS_DB"`
	Prefix     string        `yaml:"prefix" envconfig:"REDIS_PREFIX"`
	SessionTTL time.Duration `yaml:"session_ttl" envconfig:"REDIS_SESSION_TTL"`
}

// RegistrationConfig tunes the conversation.
type RegistrationConfig struct {
	PolicyURL     string   `yaml:"policy_url" envconfig:"POLICY_URL"`
	PhonePatterns []string `yaml:"phone_patterns" envconfig:"PHONE_PATTERNS"`
	Source        string   `yaml:"source" envconfig:"REGISTRATION_SOURCE"`
}

// OpsConfig enables the health and counters endpoint when Listen is set.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// Config is the full bot configuration: the shared core plus registration settings.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database     coredatabase.Config `yaml:"database"`
	Sheets       SheetsConfig        `yaml:"sheets"`
	Redis        RedisConfig         `yaml:"redis"`
	Registration RegistrationConfig  `yaml:"registration"`
	Ops          OpsConfig           `yaml:"ops"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads the YAML file at path, overlays the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required settings and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if c.Database.Enabled() {
		c.Database.Normalize()
	}

	c.Sheets.SpreadsheetID = strings.TrimSpace(c.Sheets.SpreadsheetID)
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required")
	}
	if strings.TrimSpace(c.Sheets.Worksheet) == "" {
		c.Sheets.Worksheet = sink.DefaultWorksheet
	}
	if strings.TrimSpace(c.Sheets.CredentialsFile) == "" {
		c.Sheets.CredentialsFile = defaultCredentialsFile
	}

	if c.Redis.SessionTTL < 0 {
		return fmt.Errorf("redis.session_ttl must be >= 0")
	}
	if c.Redis.SessionTTL == 0 {
		c.Redis.SessionTTL = defaultSessionTTL
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = defaultRedisPrefix
	}

	c.Registration.PolicyURL = strings.TrimSpace(c.Registration.PolicyURL)
	if c.Registration.PolicyURL == "" {
		c.Registration.PolicyURL = flow.DefaultPolicyURL
	}
	if strings.TrimSpace(c.Registration.Source) == "" {
		c.Registration.Source = flow.DefaultSource
	}
	if _, err := flow.NewPhoneRules(c.Registration.PhonePatterns); err != nil {
		return fmt.Errorf("registration.phone_patterns: %w", err)
	}
	return nil
}
