package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration: connection details for the
// remote dashboard, output settings, and the capture job list.
type Config struct {
	// AppEnv selects logging behavior ("development" or "production").
	AppEnv string `yaml:"app_env"`

	// BaseURL is the root URL of the dashboard, without a trailing slash.
	BaseURL string `yaml:"base_url"`

	// AccessToken is the long-lived token injected into the page's
	// persistent storage before the first load.
	AccessToken string `yaml:"access_token"`

	// OutputDir is where rendered images are written.
	OutputDir string `yaml:"output_dir"`

	// Port is the HTTP port the image server listens on.
	Port int `yaml:"port"`

	// RedisAddr optionally enables the Redis status sink.
	RedisAddr string `yaml:"redis_addr"`

	// OffHours optionally suppresses all captures inside the window.
	OffHours *OffHoursWindow `yaml:"off_hours"`

	Jobs []CaptureJob `yaml:"jobs"`
}

// ValidationError reports an invalid configuration value. It is fatal at
// startup: no job is scheduled once one is raised.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NewValidationError helps create a new validation error.
func NewValidationError(field, format string, a ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

// Load reads the YAML configuration file at path and applies environment
// overrides. Callers are expected to have loaded any .env file beforehand.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.BaseURL == "" {
		return nil, NewValidationError("base_url", "is required")
	}
	if cfg.AccessToken == "" {
		return nil, NewValidationError("access_token", "is required")
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.AccessToken = getEnv("ACCESS_TOKEN", c.AccessToken)
	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.AppEnv == "" {
		c.AppEnv = "production"
	}
	if c.OutputDir == "" {
		c.OutputDir = "./output"
	}
	if c.Port == 0 {
		c.Port = 5000
	}
	for i := range c.Jobs {
		c.Jobs[i].applyDefaults()
	}
}

// getEnv returns the environment value for key, or fallback when unset.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
