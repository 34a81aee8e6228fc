package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TOPIC_TRAINER_STORE.
const EnvPrefix = "TOPIC_TRAINER"

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	// Storage
	DataDir     string `mapstructure:"data_dir"`
	Store       string `mapstructure:"store"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`

	// Gemini AI
	GeminiAPIKey         string        `mapstructure:"gemini_api_key"`
	GeminiModel          string        `mapstructure:"gemini_model"`
	GeminiConcurrentReqs int           `mapstructure:"gemini_concurrent_requests"`
	EvaluationTimeout    time.Duration `mapstructure:"evaluation_timeout"`
	AgentMaxSteps        int           `mapstructure:"agent_max_steps"`

	// Server
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	StatsWindowDays int `mapstructure:"stats_window_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("redis_prefix", "topic-trainer")

	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("gemini_concurrent_requests", 2)
	v.SetDefault("evaluation_timeout", 60*time.Second)
	v.SetDefault("agent_max_steps", 8)

	v.SetDefault("port", 8080)
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("stats_window_days", 30)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".topic-trainer"
	}
	return filepath.Join(home, ".topic-trainer")
}

// Load reads a local .env file if present, then defaults, then the optional
// YAML file at configPath, then TOPIC_TRAINER_* environment variables.
// GEMINI_API_KEY is honoured as well.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini_api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("config: unknown store %q (want sqlite, redis or memory)", c.Store)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	if c.StatsWindowDays < 1 {
		return fmt.Errorf("config: stats_window_days must be positive")
	}
	if c.AgentMaxSteps < 1 {
		return fmt.Errorf("config: agent_max_steps must be positive")
	}
	if c.EvaluationTimeout < 0 {
		return fmt.Errorf("config: evaluation_timeout must not be negative")
	}
	return nil
}

// HasGemini reports whether an API key is configured.
func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
