package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"waveline/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8480" {
		t.Fatalf("unexpected default api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Workflow.MaxAttempts != 3 {
		t.Fatalf("unexpected default max attempts: %d", cfg.Workflow.MaxAttempts)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"

[upload]
max_size_mib = 5
allowed_extensions = ["MP3", ".wav", " flac "]

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Paths.UploadDir != filepath.Join(dir, "data", "uploads") {
		t.Fatalf("upload dir not derived from data dir: %q", cfg.Paths.UploadDir)
	}
	want := []string{".mp3", ".wav", ".flac"}
	if len(cfg.Upload.AllowedExtensions) != len(want) {
		t.Fatalf("unexpected extensions: %v", cfg.Upload.AllowedExtensions)
	}
	for i, ext := range want {
		if cfg.Upload.AllowedExtensions[i] != ext {
			t.Fatalf("extension %d: expected %q, got %q", i, ext, cfg.Upload.AllowedExtensions[i])
		}
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.MaxUploadBytes() != 5<<20 {
		t.Fatalf("unexpected max upload bytes: %d", cfg.MaxUploadBytes())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero max size", func(c *config.Config) { c.Upload.MaxSizeMiB = 0 }, "max_size_mib"},
		{"no extensions", func(c *config.Config) { c.Upload.AllowedExtensions = nil }, "allowed_extensions"},
		{"zero poll interval", func(c *config.Config) { c.Workflow.QueuePollInterval = 0 }, "queue_poll_interval"},
		{"zero attempts", func(c *config.Config) { c.Workflow.MaxAttempts = 0 }, "max_attempts"},
		{"cleanup interval", func(c *config.Config) { c.Cleanup.IntervalMinutes = 0 }, "interval_minutes"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "yaml" }, "logging.format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[workflow]") {
		t.Fatal("sample config missing workflow section")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.UploadDir = filepath.Join(dir, "data", "uploads")
	cfg.Paths.OutputDir = filepath.Join(dir, "data", "outputs")
	cfg.Paths.LogDir = filepath.Join(dir, "data", "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, p := range []string{cfg.Paths.UploadDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", p, err)
		}
	}
}
