package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is read from an optional YAML file named by CONFIG_PATH, with
// environment variables (and a .env file) taking precedence.
type Config struct {
	HTTPAddr             string   `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8080"`
	DatabaseURL          string   `yaml:"-" env:"DATABASE_URL" env-required:"true"`
	CORSAllowedOrigins   []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
	CORSAllowCredentials bool     `yaml:"cors_allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`

	JWTSecret string `yaml:"-" env:"JWT_SECRET" env-required:"true"`

	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Refiner RefinerConfig `yaml:"refiner"`

	// SuggestionSource is "static" or "store".
	SuggestionSource string `yaml:"suggestion_source" env:"SUGGESTION_SOURCE" env-default:"static"`

	WorkerPollInterval time.Duration `yaml:"worker_poll_interval" env:"WORKER_POLL_INTERVAL" env-default:"800ms"`
	SessionIdleTTL     time.Duration `yaml:"session_idle_ttl" env:"SESSION_IDLE_TTL" env-default:"30m"`
}

type RefinerConfig struct {
	// Provider is "simulated", "openai" or "anthropic".
	Provider string        `yaml:"provider" env:"REFINER_PROVIDER" env-default:"simulated"`
	Endpoint string        `yaml:"endpoint" env:"REFINER_ENDPOINT"`
	Model    string        `yaml:"model" env:"REFINER_MODEL"`
	APIKey   string        `yaml:"-" env:"REFINER_API_KEY"`
	Delay    time.Duration `yaml:"delay" env:"REFINER_DELAY" env-default:"1500ms"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	var err error
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if cfg.DatabaseURL == "" || cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("DATABASE_URL and JWT_SECRET are required")
	}
	switch cfg.SuggestionSource {
	case "static", "store":
	default:
		return Config{}, fmt.Errorf("invalid SUGGESTION_SOURCE %q", cfg.SuggestionSource)
	}
	if cfg.SessionIdleTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_IDLE_TTL must be positive")
	}
	return cfg, nil
}
