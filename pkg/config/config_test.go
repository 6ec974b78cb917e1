package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\nscaler:\n  backend: memory\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Forecast.Window != 60 {
		t.Fatalf("window default = %d", c.Forecast.Window)
	}
	if c.Forecast.RequestTimeout != 30*time.Second {
		t.Fatalf("timeout default = %v", c.Forecast.RequestTimeout)
	}
	if c.Models.Dir != "models" {
		t.Fatalf("models dir default = %q", c.Models.Dir)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	if _, err := Parse([]byte("environment: test\nscaler:\n  backend: s3\n")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateRedisNeedsHost(t *testing.T) {
	if _, err := Parse([]byte("environment: test\nscaler:\n  backend: redis\n")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateEnvironmentRequired(t *testing.T) {
	if _, err := Parse([]byte("scaler:\n  backend: memory\n")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\nscaler:\n  backend: memory\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SYMBOLS", "AAPL,MSFT")
	t.Setenv("MODEL_DIR", "/srv/models")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Forecast.Symbols) != 2 || c.Forecast.Symbols[1] != "MSFT" {
		t.Fatalf("symbols = %v", c.Forecast.Symbols)
	}
	if c.Models.Dir != "/srv/models" {
		t.Fatalf("model dir = %q", c.Models.Dir)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	if _, err := Load(filepath.Join("..", "..", "config", "config.yaml")); err != nil {
		t.Fatalf("sample config: %v", err)
	}
}
