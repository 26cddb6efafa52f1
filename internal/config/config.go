package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config содержит настройки сервера чата
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Env         string `env:"ENV" envDefault:"development"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Если true, отправлять можно только в комнату, к которой сессия присоединилась
	RequireJoin bool `env:"CHAT_REQUIRE_JOIN" envDefault:"false"`

	SendQueueSize   int    `env:"WS_SEND_QUEUE" envDefault:"256"`
	MaxMessageBytes int64  `env:"WS_MAX_MESSAGE_BYTES" envDefault:"524288"`
	RedisChannel    string `env:"REDIS_CHANNEL" envDefault:"chat_events"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load загружает .env.local или .env (если есть) и читает переменные окружения
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}
	return Parse()
}

// Parse читает конфигурацию только из окружения процесса
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.SendQueueSize <= 0 {
		return errors.Errorf("WS_SEND_QUEUE must be positive, got %d", c.SendQueueSize)
	}
	if c.MaxMessageBytes <= 0 {
		return errors.Errorf("WS_MAX_MESSAGE_BYTES must be positive, got %d", c.MaxMessageBytes)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
