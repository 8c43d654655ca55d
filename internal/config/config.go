package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// Defaults applied to optional settings
const (
	DefaultHistoryWindowDays = 180
	DefaultOperationTimeout  = 10 * time.Second
	DefaultProgressInterval  = 120 * time.Millisecond
)

// Supported values for DatabaseDriver and RosterSource
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	RosterFromDatabase = "database"
	RosterFromSheets   = "sheets"
)

// envPrefix is the prefix of environment variables overriding file settings
const envPrefix = "ROTA"

// RoleConfig defines one role of a ministry
type RoleConfig struct {
	Key       string `yaml:"key" validate:"required"`
	Count     int    `yaml:"count" validate:"min=0"`
	PairBySex bool   `yaml:"pairBySex,omitempty"`
}

// MinistryConfig defines the role schema of one ministry
type MinistryConfig struct {
	Key             string       `yaml:"key" validate:"required"`
	Name            string       `yaml:"name,omitempty"`
	RRule           string       `yaml:"rrule" validate:"required"`
	RecurrenceStart string       `yaml:"recurrenceStart,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Masses          []string     `yaml:"masses" validate:"required,min=1,unique,dive,required"`
	MembersTab      string       `yaml:"membersTab,omitempty"`
	CapabilitiesTab string       `yaml:"capabilitiesTab,omitempty"`
	Roles           []RoleConfig `yaml:"roles" validate:"required,min=1,unique=Key,dive"`
}

// Config represents the application configuration
type Config struct {
	DatabaseDriver    string           `yaml:"databaseDriver" validate:"required,oneof=postgres sqlite"`
	DatabaseURL       string           `yaml:"databaseURL,omitempty" validate:"required_if=DatabaseDriver postgres"`
	SQLitePath        string           `yaml:"sqlitePath,omitempty" validate:"required_if=DatabaseDriver sqlite"`
	RosterSource      string           `yaml:"rosterSource,omitempty" validate:"omitempty,oneof=database sheets"`
	RosterSheetID     string           `yaml:"rosterSheetID,omitempty" validate:"required_if=RosterSource sheets"`
	HistoryWindowDays int              `yaml:"historyWindowDays,omitempty" validate:"min=0"`
	OperationTimeout  time.Duration    `yaml:"operationTimeout,omitempty" validate:"min=0"`
	ProgressInterval  time.Duration    `yaml:"progressInterval,omitempty" validate:"min=0"`
	MetricsAddr       string           `yaml:"metricsAddr,omitempty" validate:"omitempty,hostname_port"`
	Ministries        []MinistryConfig `yaml:"ministries" validate:"required,min=1,unique=Key,dive"`
}

// envOverrides lists the settings that may be overridden from ROTA_* environment variables
type envOverrides struct {
	DatabaseDriver   string        `envconfig:"DATABASE_DRIVER"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	SQLitePath       string        `envconfig:"SQLITE_PATH"`
	RosterSource     string        `envconfig:"ROSTER_SOURCE"`
	RosterSheetID    string        `envconfig:"ROSTER_SHEET_ID"`
	MetricsAddr      string        `envconfig:"METRICS_ADDR"`
	OperationTimeout time.Duration `envconfig:"OPERATION_TIMEOUT"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Ministry returns the configuration of the ministry with the given key
func (c *Config) Ministry(key string) (*MinistryConfig, error) {
	for i := range c.Ministries {
		if c.Ministries[i].Key == key {
			return &c.Ministries[i], nil
		}
	}
	return nil, fmt.Errorf("unknown ministry: %s", key)
}

// LoadWithEnv loads and validates the configuration for an environment.
// For example, env="test" will look for "rota_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// Environment overrides are applied after parsing and before validation.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, ministry := range cfg.Ministries {
		opt, err := rrule.StrToROption(ministry.RRule)
		if err == nil {
			_, err = rrule.NewRRule(*opt)
		}
		if err != nil {
			return fmt.Errorf("invalid rrule in ministries[%d]: %w", i, err)
		}
		if opt.Count > 0 && opt.Dtstart.IsZero() && ministry.RecurrenceStart == "" {
			return fmt.Errorf("ministries[%d]: an rrule with COUNT needs DTSTART or recurrenceStart", i)
		}
		if cfg.RosterSource == RosterFromSheets && (ministry.MembersTab == "" || ministry.CapabilitiesTab == "") {
			return fmt.Errorf("ministries[%d]: membersTab and capabilitiesTab are required for a sheets roster", i)
		}
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if env.DatabaseDriver != "" {
		cfg.DatabaseDriver = env.DatabaseDriver
	}
	if env.DatabaseURL != "" {
		cfg.DatabaseURL = env.DatabaseURL
	}
	if env.SQLitePath != "" {
		cfg.SQLitePath = env.SQLitePath
	}
	if env.RosterSource != "" {
		cfg.RosterSource = env.RosterSource
	}
	if env.RosterSheetID != "" {
		cfg.RosterSheetID = env.RosterSheetID
	}
	if env.MetricsAddr != "" {
		cfg.MetricsAddr = env.MetricsAddr
	}
	if env.OperationTimeout > 0 {
		cfg.OperationTimeout = env.OperationTimeout
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.RosterSource == "" {
		cfg.RosterSource = RosterFromDatabase
	}
	if cfg.HistoryWindowDays == 0 {
		cfg.HistoryWindowDays = DefaultHistoryWindowDays
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
}

// findConfigFile searches for rota_config.<env>.yaml in current directory and home directory
func findConfigFile(env string) (string, error) {
	configFileName := "rota_config.yaml"
	if env != "" {
		configFileName = "rota_config." + env + ".yaml"
	}

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
