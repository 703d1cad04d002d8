package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"waveline/internal/config"
	"waveline/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	logger.Info("hello from test", logging.String("key", "value"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "waveline.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("log file missing record: %s", data)
	}
	if !strings.Contains(string(data), `"key":"value"`) {
		t.Fatalf("log file missing attribute: %s", data)
	}
}

func TestComponentLoggerCarriesComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	component := logging.NewComponentLogger(logger, "worker")
	component.Info("started")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"worker"`) {
		t.Fatalf("expected component attribute, got: %s", data)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should not panic", logging.Error(nil))
}
