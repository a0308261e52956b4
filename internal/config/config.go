// Package config loads smtpcheck settings from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OliverSchlueter/smtpcheck/internal/smtp"
	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	SMTP    SMTPConfig    `yaml:"smtp"`
	DKIM    DKIMConfig    `yaml:"dkim"`
	Logging LoggingConfig `yaml:"logging"`
}

// SMTPConfig describes the transaction to run.
type SMTPConfig struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	User      string        `yaml:"user"`
	Sender    string        `yaml:"sender"`
	Recipient string        `yaml:"recipient"`
	Password  string        `yaml:"password"`
	Timeout   time.Duration `yaml:"timeout"`
	Verbose   bool          `yaml:"verbose"`
}

// DKIMConfig enables signing of the test message when both fields are set.
type DKIMConfig struct {
	KeyFile  string `yaml:"key_file"`
	Selector string `yaml:"selector"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	LokiURL     string `yaml:"loki_url"`
	LokiEnabled bool   `yaml:"loki_enabled"`
}

// Load loads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DKIMEnabled returns true if a key file and a selector are configured.
func (c *Config) DKIMEnabled() bool {
	return c.DKIM.KeyFile != "" && c.DKIM.Selector != ""
}

// Session converts the SMTP section into a validated session configuration.
func (c *Config) Session() (smtp.SessionConfig, error) {
	sc := smtp.SessionConfig{
		Host:      c.SMTP.Host,
		Port:      c.SMTP.Port,
		User:      c.SMTP.User,
		Sender:    c.SMTP.Sender,
		Recipient: c.SMTP.Recipient,
		Password:  c.SMTP.Password,
		Verbose:   c.SMTP.Verbose,
	}.WithDefaults()

	if err := sc.Validate(); err != nil {
		return smtp.SessionConfig{}, err
	}

	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		return smtp.SessionConfig{}, fmt.Errorf("invalid port %d", c.SMTP.Port)
	}

	return sc, nil
}

func (c *Config) applyDefaults() {
	c.SMTP.Port = smtp.DefaultPort
	c.SMTP.Timeout = smtp.DefaultTimeout
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("SMTPCHECK_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTPCHECK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTPCHECK_PORT %q: %w", v, err)
		}
		c.SMTP.Port = port
	}
	if v := os.Getenv("SMTPCHECK_USER"); v != "" {
		c.SMTP.User = v
	}
	if v := os.Getenv("SMTPCHECK_SENDER"); v != "" {
		c.SMTP.Sender = v
	}
	if v := os.Getenv("SMTPCHECK_RECIPIENT"); v != "" {
		c.SMTP.Recipient = v
	}
	if v := os.Getenv("SMTPCHECK_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTPCHECK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SMTPCHECK_TIMEOUT %q: %w", v, err)
		}
		c.SMTP.Timeout = d
	}
	if v := os.Getenv("SMTPCHECK_VERBOSE"); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SMTPCHECK_VERBOSE %q: %w", v, err)
		}
		c.SMTP.Verbose = verbose
	}

	if v := os.Getenv("SMTPCHECK_DKIM_KEY_FILE"); v != "" {
		c.DKIM.KeyFile = v
	}
	if v := os.Getenv("SMTPCHECK_DKIM_SELECTOR"); v != "" {
		c.DKIM.Selector = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOKI_URL"); v != "" {
		c.Logging.LokiURL = v
		c.Logging.LokiEnabled = true
	}

	return nil
}
