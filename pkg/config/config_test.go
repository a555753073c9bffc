package config

import (
	"os"
	"testing"
	"time"
)

type testConfig struct {
	Name    string   `yaml:"name" env:"APP_NAME"`
	Port    int      `yaml:"port" env:"APP_PORT"`
	Debug   bool     `yaml:"debug" env:"APP_DEBUG"`
	Every   Duration `yaml:"every" env:"APP_EVERY"`
	Storage struct {
		Root string `yaml:"root" env:"APP_STORAGE_ROOT"`
	} `yaml:"storage"`
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(content)
	f.Close()
	return f.Name()
}

func TestLoad(t *testing.T) {
	path := writeTemp(t, `
name: kolpulse
port: 8080
debug: false
every: 1h30m
storage:
  root: ./archive
`)

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.Name != "kolpulse" {
		t.Fatalf("expected 'kolpulse', got '%s'", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected 8080, got %d", cfg.Port)
	}
	if cfg.Debug {
		t.Fatal("expected debug to be false")
	}
	if cfg.Every.Std() != 90*time.Minute {
		t.Fatalf("expected 90m, got %v", cfg.Every.Std())
	}
	if cfg.Storage.Root != "./archive" {
		t.Fatalf("expected './archive', got '%s'", cfg.Storage.Root)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeTemp(t, "every: ninety-minutes\n")
	var cfg testConfig
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeTemp(t, `
name: default
port: 3000
every: 10m
`)

	t.Setenv("APP_NAME", "from-env")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_DEBUG", "true")
	t.Setenv("APP_EVERY", "45s")

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.Name != "from-env" {
		t.Fatalf("expected 'from-env', got '%s'", cfg.Name)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected 9090, got %d", cfg.Port)
	}
	if !cfg.Debug {
		t.Fatal("expected debug to be true from env")
	}
	if cfg.Every.Std() != 45*time.Second {
		t.Fatalf("expected 45s from env, got %v", cfg.Every.Std())
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	var cfg testConfig
	if err := LoadOrDefault("/nonexistent/config.yaml", &cfg); err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	// Should use zero values
	if cfg.Name != "" {
		t.Fatalf("expected empty name, got '%s'", cfg.Name)
	}
}
