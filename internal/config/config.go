package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN   string `env:"DATABASE_DSN,required=true"`
	RedisURL      string `env:"REDIS_URL,required=true"`
	EncryptionKey string `env:"ENCRYPTION_KEY,required=true"`

	SendRateLimitPerSec int `env:"SEND_RATE_LIMIT_PER_SEC,default=10"`

	RecurrenceSweepIntervalHours  int `env:"RECURRENCE_SWEEP_INTERVAL_HOURS,default=24"`
	RecurrenceStartupDelaySeconds int `env:"RECURRENCE_STARTUP_DELAY_SECONDS,default=5"`
	RecurrenceScanLimit           int `env:"RECURRENCE_SCAN_LIMIT,default=100"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
