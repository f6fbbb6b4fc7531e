package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("IGDM_DATA_DIR", t.TempDir())
	t.Setenv("IGDM_UPSTREAM_BASE_URL", "")
	t.Setenv("IGDM_MIN_REQUEST_SPACING", "")
	t.Setenv("IGDM_REQUEST_TIMEOUT", "")
	t.Setenv("IGDM_ALLOW_PLAINTEXT_LOGIN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("Addr = %q, want :8000", cfg.Server.Addr)
	}
	if cfg.Upstream.BaseURL != "https://i.instagram.com/api/v1" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.MinSpacing != 2*time.Second {
		t.Errorf("MinSpacing = %v, want 2s", cfg.Upstream.MinSpacing)
	}
	if cfg.Upstream.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Upstream.MaxRetries)
	}
	if cfg.Auth.AllowPlaintextLogin {
		t.Error("plaintext login must default to disabled")
	}
}

func TestLoadPortForms(t *testing.T) {
	t.Setenv("IGDM_DATA_DIR", t.TempDir())

	t.Setenv("PORT", "9001")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != ":9001" {
		t.Errorf("Addr = %q, want :9001", cfg.Server.Addr)
	}

	t.Setenv("PORT", "127.0.0.1:9002")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9002" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}

	t.Setenv("PORT", "90 01")
	if _, err := Load(); err == nil {
		t.Error("expected error for malformed PORT")
	}
}

func TestLoadPathsDerived(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IGDM_DATA_DIR", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Paths.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.Paths.DataDir, dir)
	}
	if cfg.Paths.KeysDir != dir+"/keys" {
		t.Errorf("KeysDir = %q", cfg.Paths.KeysDir)
	}
	if cfg.Paths.SessionFile != dir+"/session.json" {
		t.Errorf("SessionFile = %q", cfg.Paths.SessionFile)
	}
}

func TestLoadUpstreamOverrides(t *testing.T) {
	t.Setenv("IGDM_DATA_DIR", t.TempDir())
	t.Setenv("IGDM_MIN_REQUEST_SPACING", "500ms")
	t.Setenv("IGDM_REQUEST_TIMEOUT", "10s")
	t.Setenv("IGDM_MAX_RETRIES", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Upstream.MinSpacing != 500*time.Millisecond {
		t.Errorf("MinSpacing = %v", cfg.Upstream.MinSpacing)
	}
	if cfg.Upstream.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.Upstream.RequestTimeout)
	}
	if cfg.Upstream.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.Upstream.MaxRetries)
	}
}

func TestLoadUpstreamRejectsBadValues(t *testing.T) {
	t.Setenv("IGDM_DATA_DIR", t.TempDir())

	t.Setenv("IGDM_MIN_REQUEST_SPACING", "-1s")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative spacing")
	}
	t.Setenv("IGDM_MIN_REQUEST_SPACING", "")

	t.Setenv("IGDM_MAX_RETRIES", "-2")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative retries")
	}
	t.Setenv("IGDM_MAX_RETRIES", "")

	t.Setenv("IGDM_ALLOW_PLAINTEXT_LOGIN", "yep")
	if _, err := Load(); err == nil {
		t.Error("expected error for malformed bool")
	}
}
