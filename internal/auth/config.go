package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// authEnv holds raw env values before post-parse validation.
type authEnv struct {
	Secret   string        `env:"PRESENCE_AUTH_SECRET"`
	Issuer   string        `env:"PRESENCE_AUTH_ISSUER"`
	Audience string        `env:"PRESENCE_AUTH_AUDIENCE"`
	Leeway   time.Duration `env:"PRESENCE_AUTH_LEEWAY" envDefault:"30s"`
}

// Config defines how credentials are verified.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
	Now      func() time.Time
}

var ErrSecretRequired = errors.New("PRESENCE_AUTH_SECRET is required")

// LoadConfigFromEnv reads credential verification configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw authEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse auth env: %w", err)
	}
	secret := strings.TrimSpace(raw.Secret)
	if secret == "" {
		return Config{}, ErrSecretRequired
	}
	if raw.Leeway < 0 {
		return Config{}, fmt.Errorf("PRESENCE_AUTH_LEEWAY must not be negative")
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Secret:   []byte(secret),
		Issuer:   strings.TrimSpace(raw.Issuer),
		Audience: strings.TrimSpace(raw.Audience),
		Leeway:   raw.Leeway,
		Now:      now,
	}, nil
}
