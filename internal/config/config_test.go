package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultEmbeddingDim(t *testing.T) {
	os.Unsetenv("EMBEDDING_DIM")

	cfg := Load()

	if cfg.Embedding.Dim != 128 {
		t.Errorf("expected default embedding dim 128, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_CustomEmbeddingDim(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "512")

	cfg := Load()

	if cfg.Embedding.Dim != 512 {
		t.Errorf("expected embedding dim 512, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_InvalidEmbeddingDim(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "invalid")

	cfg := Load()

	if cfg.Embedding.Dim != 128 {
		t.Errorf("expected default embedding dim 128 for invalid input, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_NegativeEmbeddingDim(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "-100")

	cfg := Load()

	if cfg.Embedding.Dim != 128 {
		t.Errorf("expected default embedding dim 128 for negative input, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_DefaultMatchThreshold(t *testing.T) {
	os.Unsetenv("MATCH_THRESHOLD")

	cfg := Load()

	if cfg.Matching.Threshold != 0.6 {
		t.Errorf("expected default match threshold 0.6, got %f", cfg.Matching.Threshold)
	}
}

func TestLoad_CustomMatchThreshold(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.45")

	cfg := Load()

	if cfg.Matching.Threshold != 0.45 {
		t.Errorf("expected match threshold 0.45, got %f", cfg.Matching.Threshold)
	}
}

func TestLoad_InvalidMatchThreshold(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "not-a-number")

	cfg := Load()

	if cfg.Matching.Threshold != 0.6 {
		t.Errorf("expected default match threshold 0.6 for invalid input, got %f", cfg.Matching.Threshold)
	}
}

func TestLoad_DefaultDataDir(t *testing.T) {
	os.Unsetenv("DATA_DIR")

	cfg := Load()

	if cfg.Data.Dir != "./data" {
		t.Errorf("expected default data dir './data', got '%s'", cfg.Data.Dir)
	}
}

func TestLoad_CustomDataDir(t *testing.T) {
	t.Setenv("DATA_DIR", "/var/lib/rollcall")

	cfg := Load()

	if cfg.Data.Dir != "/var/lib/rollcall" {
		t.Errorf("expected data dir '/var/lib/rollcall', got '%s'", cfg.Data.Dir)
	}
}

func TestLoad_CameraConfig(t *testing.T) {
	t.Setenv("CAMERA_URL", "http://camera.local/snapshot.jpg")
	t.Setenv("CAMERA_INTERVAL_MS", "1000")

	cfg := Load()

	if cfg.Camera.URL != "http://camera.local/snapshot.jpg" {
		t.Errorf("expected camera URL 'http://camera.local/snapshot.jpg', got '%s'", cfg.Camera.URL)
	}

	if cfg.Camera.IntervalMs != 1000 {
		t.Errorf("expected camera interval 1000, got %d", cfg.Camera.IntervalMs)
	}
}

func TestLoad_WebDefaults(t *testing.T) {
	os.Unsetenv("WEB_PORT")
	os.Unsetenv("WEB_HOST")

	cfg := Load()

	if cfg.Web.Port != 8080 {
		t.Errorf("expected default web port 8080, got %d", cfg.Web.Port)
	}

	if cfg.Web.Host != "0.0.0.0" {
		t.Errorf("expected default web host '0.0.0.0', got '%s'", cfg.Web.Host)
	}
}

func TestLoad_DefaultSettingsLoaded(t *testing.T) {
	cfg := Load()

	if len(cfg.Defaults.Settings) == 0 {
		t.Fatal("expected default settings to be loaded from embedded YAML")
	}

	if got := cfg.Defaults.Settings["late_threshold"]; got != "09:00" {
		t.Errorf("expected late_threshold '09:00', got '%s'", got)
	}

	for _, key := range []string{"enable_email", "enable_whatsapp", "email_address", "whatsapp_number"} {
		if _, ok := cfg.Defaults.Settings[key]; !ok {
			t.Errorf("expected default setting '%s' to be present", key)
		}
	}
}
