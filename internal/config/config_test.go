package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Jellyfin.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Jellyfin.Timeout)
	}

	if cfg.Output.Dir != "output" {
		t.Errorf("expected default output dir 'output', got '%s'", cfg.Output.Dir)
	}

	if cfg.Output.DataDir != "data" {
		t.Errorf("expected default data dir 'data', got '%s'", cfg.Output.DataDir)
	}

	if cfg.Web.Port != 1280 {
		t.Errorf("expected default port 1280, got %d", cfg.Web.Port)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("JELLYFIN_URL", "http://media.local:8096")
	t.Setenv("JELLYFIN_API_KEY", "secret")
	t.Setenv("PIXELFIN_HTTP_TIMEOUT", "5s")
	t.Setenv("PIXELFIN_PORT", "9000")

	cfg := Load()

	if cfg.Jellyfin.URL != "http://media.local:8096" {
		t.Errorf("expected URL from env, got '%s'", cfg.Jellyfin.URL)
	}

	if cfg.Jellyfin.APIKey != "secret" {
		t.Errorf("expected API key from env, got '%s'", cfg.Jellyfin.APIKey)
	}

	if cfg.Jellyfin.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Jellyfin.Timeout)
	}

	if cfg.Web.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Web.Port)
	}
}

func TestEnvInt_Invalid(t *testing.T) {
	t.Setenv("PIXELFIN_PORT", "not-a-number")

	cfg := Load()

	if cfg.Web.Port != 1280 {
		t.Errorf("expected fallback to default port, got %d", cfg.Web.Port)
	}
}

func TestEnvDuration_Invalid(t *testing.T) {
	t.Setenv("PIXELFIN_HTTP_TIMEOUT", "-3s")

	cfg := Load()

	if cfg.Jellyfin.Timeout != 30*time.Second {
		t.Errorf("expected fallback to default timeout, got %v", cfg.Jellyfin.Timeout)
	}
}
