// Package config loads the portal configuration from environment variables
// layered over an optional YAML file. Environment always wins.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix for all portal environment variables.
const EnvPrefix = "PORTAL"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Licensing LicensingConfig `yaml:"licensing" envconfig:"LICENSING"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Bootstrap BootstrapConfig `yaml:"bootstrap" envconfig:"BOOTSTRAP"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"100"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/portal.log"`
}

// AuthConfig contains credential and session policy configuration
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL          time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL" default:"12h"`
	BcryptCost        int           `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST" default:"10"`
	PasswordMinLength int           `yaml:"password_min_length" envconfig:"PASSWORD_MIN_LENGTH" default:"6"`
}

// LicensingConfig contains entitlement policy configuration
type LicensingConfig struct {
	MaxLicenses        int `yaml:"max_licenses" envconfig:"MAX_LICENSES" default:"10000"`
	CodeRetryLimit     int `yaml:"code_retry_limit" envconfig:"CODE_RETRY_LIMIT" default:"5"`
	MentorIDRetryLimit int `yaml:"mentor_id_retry_limit" envconfig:"MENTOR_ID_RETRY_LIMIT" default:"25"`
}

// StorageConfig contains persistence gateway configuration
type StorageConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
}

// BootstrapConfig provisions the initial admin account. Credentials come from
// the deployment environment, never from source. When AdminEmail is empty,
// seeding is skipped entirely.
type BootstrapConfig struct {
	AdminEmail       string `yaml:"admin_email" envconfig:"ADMIN_EMAIL"`
	AdminPassword    string `yaml:"admin_password" envconfig:"ADMIN_PASSWORD"`
	AdminDisplayName string `yaml:"admin_display_name" envconfig:"ADMIN_DISPLAY_NAME" default:"System Admin"`
}

// Load loads configuration from environment variables and an optional
// config.yaml next to the working directory.
func Load() (*Config, error) {
	return LoadFrom("config.yaml")
}

// LoadFrom loads configuration, reading the YAML file at path when present.
func LoadFrom(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment overrides the file. envconfig fills defaults for anything
	// neither source set.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks configuration invariants
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Auth.PasswordMinLength < 1 {
		return fmt.Errorf("password_min_length must be positive, got %d", c.Auth.PasswordMinLength)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost out of range: %d", c.Auth.BcryptCost)
	}
	if c.Licensing.MaxLicenses < 1 {
		return fmt.Errorf("max_licenses must be positive, got %d", c.Licensing.MaxLicenses)
	}
	if c.Licensing.CodeRetryLimit < 1 || c.Licensing.MentorIDRetryLimit < 1 {
		return fmt.Errorf("retry limits must be positive")
	}
	if c.Bootstrap.AdminEmail != "" && c.Bootstrap.AdminPassword == "" {
		return fmt.Errorf("bootstrap admin_password required when admin_email is set")
	}
	return nil
}
