// Package config loads the server configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// PayloadSecret signs the access tokens. The server refuses to start
	// without it.
	PayloadSecret string `env:"PAYLOAD_SECRET,required"`

	// APIPrefix is prepended to every endpoint path.
	APIPrefix string `env:"API_PREFIX" envDefault:"/api/v1"`

	// FloodRPS caps the process-wide request intake rate.
	FloodRPS int `env:"FLOOD_RPS" envDefault:"200"`

	// Debug switches the logger to development output.
	Debug bool `env:"DEBUG" envDefault:"false"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`
}

// SMTPConfig holds the outgoing mail settings. Mail delivery is disabled
// when Host is empty.
type SMTPConfig struct {
	Host          string `env:"HOST"`
	Port          int    `env:"PORT" envDefault:"587"`
	User          string `env:"USER"`
	Password      string `env:"PASSWORD"`
	SenderAddress string `env:"SENDER_ADDRESS"`
	SenderName    string `env:"SENDER_NAME"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
