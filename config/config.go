// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the service reads at startup.
type Config struct {
	DatabaseURL      string   `env:"DATABASE_URL,required,notEmpty"`
	HTTPAddr         string   `env:"HTTP_ADDR"          envDefault:":5300"`
	GameServiceToken string   `env:"GAME_SERVICE_TOKEN,required,notEmpty"`
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS"    envSeparator:"," envDefault:"http://localhost:3000"`

	AutoConfirmWindow     time.Duration `env:"AUTO_CONFIRM_WINDOW"     envDefault:"24h"`
	PendingAttentionAge   time.Duration `env:"PENDING_ATTENTION_AGE"   envDefault:"12h"`
	DismissResetsDeadline bool          `env:"DISMISS_RESETS_DEADLINE" envDefault:"true"`

	EloKFactor       int `env:"ELO_K_FACTOR"       envDefault:"32"`
	EloDefaultRating int `env:"ELO_DEFAULT_RATING" envDefault:"1200"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	InboxDefaultPageSize int `env:"INBOX_DEFAULT_PAGE_SIZE" envDefault:"25"`
	InboxMaxPageSize     int `env:"INBOX_MAX_PAGE_SIZE"     envDefault:"100"`

	// NotificationWebhookURL receives result notifications. Empty logs them instead.
	NotificationWebhookURL string `env:"NOTIFICATION_WEBHOOK_URL"`

	Proof ProofConfig
}

// ProofConfig points at the S3-compatible bucket holding match proof uploads.
// An empty bucket disables presigned proof links.
type ProofConfig struct {
	Bucket          string        `env:"PROOF_BUCKET"`
	Endpoint        string        `env:"PROOF_ENDPOINT"`
	AccessKeyID     string        `env:"PROOF_ACCESS_KEY_ID"`
	AccessKeySecret string        `env:"PROOF_ACCESS_KEY_SECRET"`
	URLTTL          time.Duration `env:"PROOF_URL_TTL" envDefault:"15m"`
}

// Enabled reports whether enough is configured to sign proof URLs.
func (p ProofConfig) Enabled() bool {
	return p.Bucket != "" && p.Endpoint != ""
}

// Load reads .env when present, then parses and validates the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	switch {
	case c.AutoConfirmWindow <= 0:
		return fmt.Errorf("AUTO_CONFIRM_WINDOW must be positive, got %s", c.AutoConfirmWindow)
	case c.PendingAttentionAge <= 0:
		return fmt.Errorf("PENDING_ATTENTION_AGE must be positive, got %s", c.PendingAttentionAge)
	case c.EloKFactor <= 0:
		return fmt.Errorf("ELO_K_FACTOR must be positive, got %d", c.EloKFactor)
	case c.EloDefaultRating <= 0:
		return fmt.Errorf("ELO_DEFAULT_RATING must be positive, got %d", c.EloDefaultRating)
	case c.SweepInterval <= 0:
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	case c.InboxDefaultPageSize <= 0 || c.InboxMaxPageSize < c.InboxDefaultPageSize:
		return fmt.Errorf("inbox page sizes invalid: default %d, max %d", c.InboxDefaultPageSize, c.InboxMaxPageSize)
	case c.Proof.Bucket != "" && c.Proof.Endpoint == "":
		return fmt.Errorf("PROOF_ENDPOINT is required when PROOF_BUCKET is set")
	}
	return nil
}

// CORSOrigins joins the allowed origins the way fiber's cors config expects.
func (c Config) CORSOrigins() string {
	return strings.Join(c.AllowedOrigins, ",")
}
