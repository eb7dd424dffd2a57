package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/results")
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HTTPAddr != ":5300" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AutoConfirmWindow != 24*time.Hour || cfg.PendingAttentionAge != 12*time.Hour {
		t.Fatalf("windows = %s / %s", cfg.AutoConfirmWindow, cfg.PendingAttentionAge)
	}
	if cfg.EloKFactor != 32 || cfg.EloDefaultRating != 1200 {
		t.Fatalf("elo = %d / %d", cfg.EloKFactor, cfg.EloDefaultRating)
	}
	if !cfg.DismissResetsDeadline {
		t.Fatal("DismissResetsDeadline should default to true")
	}
	if cfg.InboxDefaultPageSize != 25 || cfg.InboxMaxPageSize != 100 {
		t.Fatalf("page sizes = %d / %d", cfg.InboxDefaultPageSize, cfg.InboxMaxPageSize)
	}
	if cfg.Proof.Enabled() || cfg.Proof.URLTTL != 15*time.Minute {
		t.Fatalf("proof = %+v", cfg.Proof)
	}
}

func TestParseOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AUTO_CONFIRM_WINDOW", "48h")
	t.Setenv("DISMISS_RESETS_DEADLINE", "false")
	t.Setenv("PROOF_BUCKET", "proofs")
	t.Setenv("PROOF_ENDPOINT", "https://r2.example")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := cfg.CORSOrigins(); got != "https://a.example,https://b.example" {
		t.Fatalf("CORSOrigins = %q", got)
	}
	if cfg.AutoConfirmWindow != 48*time.Hour || cfg.DismissResetsDeadline {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.Proof.Enabled() {
		t.Fatal("proof should be enabled")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing database", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"bad duration", map[string]string{"SWEEP_INTERVAL": "soon"}, "parse env"},
		{"negative window", map[string]string{"AUTO_CONFIRM_WINDOW": "-1h"}, "AUTO_CONFIRM_WINDOW"},
		{"page sizes", map[string]string{"INBOX_MAX_PAGE_SIZE": "10"}, "page sizes"},
		{"bucket without endpoint", map[string]string{"PROOF_BUCKET": "proofs"}, "PROOF_ENDPOINT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
