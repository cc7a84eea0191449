package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds all application configuration values
type Config struct {
	Port            string        `env:"PORT,default=8080"`
	GinMode         string        `env:"GIN_MODE,default=debug"`
	CardAPIURL      string        `env:"CARD_API_URL,default=http://localhost:3000"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=text"`
	ViewTTL         time.Duration `env:"VIEW_TTL,default=30m"`
	CORSAllowOrigin string        `env:"CORS_ALLOW_ORIGIN,default=*"`
	MaxViews        int           `env:"MAX_VIEWS,default=10000"`

	// CardFingerprintKey keys the card fingerprints written to the logs.
	// When empty a random key is generated per process.
	CardFingerprintKey string `env:"CARD_FINGERPRINT_KEY"`
}

// LoadConfig reads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("error decoding environment: %w", err)
	}

	if cfg.ViewTTL <= 0 {
		return nil, fmt.Errorf("VIEW_TTL must be positive, got %s", cfg.ViewTTL)
	}

	if cfg.MaxViews <= 0 {
		return nil, fmt.Errorf("MAX_VIEWS must be positive, got %d", cfg.MaxViews)
	}

	return cfg, nil
}
