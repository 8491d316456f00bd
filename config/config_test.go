package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.HTTPPort)
	}
	if cfg.AgentRoute != "/api/agent" {
		t.Fatalf("unexpected agent route: %s", cfg.AgentRoute)
	}
	if cfg.SignatureTolerance != 300*time.Second {
		t.Fatalf("unexpected tolerance: %v", cfg.SignatureTolerance)
	}
	if cfg.DefaultAgent != "starter" {
		t.Fatalf("unexpected default agent: %s", cfg.DefaultAgent)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LAYERCODE_WEBHOOK_SECRET", "shh")
	t.Setenv("SIGNATURE_TOLERANCE_SECONDS", "60")
	t.Setenv("AGENT_ROUTE", "webhooks/agent/")

	cfg := Load()

	if cfg.HTTPPort != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.HTTPPort)
	}
	if cfg.WebhookSecret != "shh" {
		t.Fatalf("unexpected secret: %q", cfg.WebhookSecret)
	}
	if cfg.SignatureTolerance != time.Minute {
		t.Fatalf("unexpected tolerance: %v", cfg.SignatureTolerance)
	}
	if cfg.AgentRoute != "/webhooks/agent" {
		t.Fatalf("unexpected route: %q", cfg.AgentRoute)
	}
}

func TestLoadIgnoresInvalidInt(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg := Load()
	if cfg.HTTPPort != 8000 {
		t.Fatalf("expected fallback to 8000, got %d", cfg.HTTPPort)
	}
}

func TestNormalizeRoute(t *testing.T) {
	cases := map[string]string{
		"/api/agent":  "/api/agent",
		"api/agent":   "/api/agent",
		"/api/agent/": "/api/agent",
		"/":           "/",
	}
	for in, want := range cases {
		if got := normalizeRoute(in); got != want {
			t.Fatalf("normalizeRoute(%q) = %q, want %q", in, got, want)
		}
	}
}
