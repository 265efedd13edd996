package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.Mkdir("config", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join("config", "test.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	writeConfig(t, `
http:
  port: 7733
database:
  addrs:
    - localhost:6379
`)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Port != 7733 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Index.KeyPrefix != "recall:" || cfg.Index.Collection != "observations" {
		t.Errorf("index defaults = %+v", cfg.Index)
	}
	if cfg.Rewrite.Haiku.TimeoutSec != 8 || cfg.Rewrite.OpenAI.TimeoutSec != 12 {
		t.Errorf("rewrite timeouts = %d/%d", cfg.Rewrite.Haiku.TimeoutSec, cfg.Rewrite.OpenAI.TimeoutSec)
	}
	if cfg.Recall.RetrievalTimeoutSec != 10 || cfg.Recall.TelemetryBuffer != 64 {
		t.Errorf("recall defaults = %+v", cfg.Recall)
	}
	if cfg.Secrets.TimeoutSec != 5 {
		t.Errorf("secrets timeout = %d", cfg.Secrets.TimeoutSec)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_RECALL_PORT", "9999")
	t.Setenv("TEST_RECALL_KEY", "lease://openai/api-key")
	writeConfig(t, `
http:
  port: ${TEST_RECALL_PORT}
database:
  addrs:
    - ${TEST_RECALL_DB:-localhost:6379}
embedding:
  api_key: ${TEST_RECALL_KEY}
`)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9999 {
		t.Errorf("port = %d, want expanded from env", cfg.HTTP.Port)
	}
	if cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("addr = %q, want the fallback default", cfg.Database.Addrs[0])
	}
	if cfg.Embedding.APIKey != "lease://openai/api-key" {
		t.Errorf("api key = %q", cfg.Embedding.APIKey)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		HTTP:     HTTPConfig{Port: 7733},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	noPort := valid
	noPort.HTTP.Port = 0
	if err := noPort.Validate(); err == nil {
		t.Error("want error for missing port")
	}

	noDB := valid
	noDB.Database.Addrs = nil
	if err := noDB.Validate(); err == nil {
		t.Error("want error for missing database addrs")
	}
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load("nope"); err == nil {
		t.Error("want error for a missing config file")
	}
}
