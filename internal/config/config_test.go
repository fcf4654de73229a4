package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", config.Server.Addr)
	}
	if config.Session.MaxSteps != 32 {
		t.Errorf("max steps = %d, want 32", config.Session.MaxSteps)
	}
	if config.Session.IdleTTL != 30*time.Minute {
		t.Errorf("idle ttl = %v, want 30m", config.Session.IdleTTL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
session:
  idle_ttl: 5m
  max_steps: 10
provider:
  model: test-model
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.Server.Addr != ":9090" {
		t.Errorf("addr = %q", config.Server.Addr)
	}
	if config.Session.IdleTTL != 5*time.Minute {
		t.Errorf("idle ttl = %v", config.Session.IdleTTL)
	}
	if config.Session.MaxSteps != 10 {
		t.Errorf("max steps = %d", config.Session.MaxSteps)
	}
	if config.Provider.Model != "test-model" {
		t.Errorf("model = %q", config.Provider.Model)
	}
	if config.Log.Level != "debug" {
		t.Errorf("log level = %q", config.Log.Level)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LANGFLOW_ADDR", ":7070")
	t.Setenv("LANGFLOW_SESSION_IDLE_TTL", "1m")
	t.Setenv("LANGFLOW_MAX_STEPS", "7")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.Server.Addr != ":7070" {
		t.Errorf("addr = %q, want env override :7070", config.Server.Addr)
	}
	if config.Session.IdleTTL != time.Minute {
		t.Errorf("idle ttl = %v, want 1m", config.Session.IdleTTL)
	}
	if config.Session.MaxSteps != 7 {
		t.Errorf("max steps = %d, want 7", config.Session.MaxSteps)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
