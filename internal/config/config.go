// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	DiscordToken     string   `yaml:"discord_token"`
	AllowedChannelID int64    `yaml:"allowed_channel_id"`
	OpenAI           OpenAI   `yaml:"openai"`
	Database         Database `yaml:"database"`
	ContextLimit     int      `yaml:"context_limit"`
	StrictContext    bool     `yaml:"strict_context"`
	LogLevel         string   `yaml:"log_level"`
}

type OpenAI struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

type Database struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	Port         int    `yaml:"port"`
	SSLMode      string `yaml:"sslmode"`
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// Default returns the configuration used when neither the file nor the
// environment sets a value.
func Default() Config {
	return Config{
		OpenAI: OpenAI{
			Model:           "gpt-4o",
			MaxOutputTokens: 2500,
		},
		Database: Database{
			Driver:       DriverPostgres,
			Host:         "localhost",
			Port:         5432,
			SSLMode:      "disable",
			Path:         "./data/chat_history.db",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		ContextLimit: 10,
		LogLevel:     "info",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.DiscordToken, "DISCORD_TOKEN")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")

	errs = append(errs,
		setInt64(&c.AllowedChannelID, "ALLOWED_CHANNEL_ID"),
		setInt(&c.OpenAI.MaxOutputTokens, "MAX_OUTPUT_TOKENS"),
		setInt(&c.Database.Port, "DB_PORT"),
		setInt(&c.ContextLimit, "CONTEXT_LIMIT"),
		setBool(&c.StrictContext, "STRICT_CONTEXT"),
	)
	return errors.Join(errs...)
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Name == "" {
			return errors.New("DB_NAME cannot be empty for the postgres driver")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("DB_PATH cannot be empty for the sqlite driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.ContextLimit < 1 {
		return errors.New("CONTEXT_LIMIT must be > 0")
	}
	if c.OpenAI.MaxOutputTokens < 1 {
		return errors.New("MAX_OUTPUT_TOKENS must be > 0")
	}
	return nil
}

// ValidateModel checks the settings needed to talk to the completion API.
func (c Config) ValidateModel() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if c.OpenAI.Model == "" {
		return errors.New("OPENAI_MODEL cannot be empty")
	}
	return nil
}

// ValidateDiscord checks the settings needed to connect to Discord.
func (c Config) ValidateDiscord() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fmt.Errorf("%s must be a 64-bit integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	*dst = b
	return nil
}
