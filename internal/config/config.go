// Package config loads the service configuration from a YAML file with
// environment variable overrides. Environment always wins so deployments can
// keep secrets out of the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Provider ProviderConfig `yaml:"provider"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type SessionConfig struct {
	// IdleTTL is how long a session survives without inbound messages
	// before it is evicted and its checkpoint expires.
	IdleTTL time.Duration `yaml:"idle_ttl"`
	// MaxSteps bounds dynamic routing runs.
	MaxSteps int `yaml:"max_steps"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type RedisConfig struct {
	// Addr empty means checkpoints stay in memory.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080"},
		Session: SessionConfig{IdleTTL: 30 * time.Minute, MaxSteps: 32},
		Provider: ProviderConfig{
			Model: "gpt-4o-mini",
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads the YAML file at path (skipped if path is empty or missing) and
// applies environment overrides on top of defaults.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return Config{}, fmt.Errorf("error parsing config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults plus environment is a valid deployment.
		default:
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	applyEnv(&config)

	if config.Session.MaxSteps <= 0 {
		config.Session.MaxSteps = 32
	}
	if config.Session.IdleTTL <= 0 {
		config.Session.IdleTTL = 30 * time.Minute
	}
	return config, nil
}

func applyEnv(config *Config) {
	setString(&config.Server.Addr, "LANGFLOW_ADDR")
	setString(&config.Provider.APIKey, "OPENAI_API_KEY")
	setString(&config.Provider.BaseURL, "OPENAI_BASE_URL")
	setString(&config.Provider.Model, "LANGFLOW_MODEL")
	setString(&config.Redis.Addr, "LANGFLOW_REDIS_ADDR")
	setString(&config.Redis.Password, "LANGFLOW_REDIS_PASSWORD")
	setString(&config.Log.Level, "LANGFLOW_LOG_LEVEL")
	setString(&config.Log.Format, "LANGFLOW_LOG_FORMAT")

	if raw := os.Getenv("LANGFLOW_SESSION_IDLE_TTL"); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil {
			config.Session.IdleTTL = ttl
		}
	}
	if raw := os.Getenv("LANGFLOW_MAX_STEPS"); raw != "" {
		if steps, err := strconv.Atoi(raw); err == nil {
			config.Session.MaxSteps = steps
		}
	}
	if raw := os.Getenv("LANGFLOW_REDIS_DB"); raw != "" {
		if db, err := strconv.Atoi(raw); err == nil {
			config.Redis.DB = db
		}
	}
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}
