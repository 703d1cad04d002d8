package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"waveline/internal/config"
	"waveline/internal/queue"
	"waveline/internal/testsupport"
)

// writeConfigFile persists cfg as TOML so commands resolve the same paths the
// test seeded.
func writeConfigFile(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestQueueListEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeConfigFile(t, cfg)

	out, err := runCommand(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("expected empty queue message, got %q", out)
	}
}

func TestQueueListShowsJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	path := filepath.Join(cfg.Paths.UploadDir, "seed.mp3")
	testsupport.WriteFile(t, path, 64)
	file := testsupport.NewAudioFile(t, store, "seed.mp3", path)
	testsupport.NewJob(t, store, file.ID, queue.JobConvert)
	configPath := writeConfigFile(t, cfg)

	out, err := runCommand(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	for _, want := range []string{"convert", "pending", "seed.mp3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeConfigFile(t, cfg)

	if _, err := runCommand(t, configPath, "queue", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestQueueShowPrintsDetails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	path := filepath.Join(cfg.Paths.UploadDir, "seed.mp3")
	testsupport.WriteFile(t, path, 64)
	file := testsupport.NewAudioFile(t, store, "seed.mp3", path)
	job := testsupport.NewJob(t, store, file.ID, queue.JobWaveform)
	configPath := writeConfigFile(t, cfg)

	out, err := runCommand(t, configPath, "queue", "show", fmt.Sprintf("%d", job.ID))
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	if !strings.Contains(out, "waveform") || !strings.Contains(out, "seed.mp3") {
		t.Fatalf("unexpected show output:\n%s", out)
	}

	if _, err := runCommand(t, configPath, "queue", "show", "99"); err == nil {
		t.Fatal("expected error for missing job")
	}
}

func TestQueueStatsAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	path := filepath.Join(cfg.Paths.UploadDir, "seed.mp3")
	testsupport.WriteFile(t, path, 64)
	file := testsupport.NewAudioFile(t, store, "seed.mp3", path)
	testsupport.NewJob(t, store, file.ID, queue.JobMetadata)
	testsupport.NewJob(t, store, file.ID, queue.JobAnalyze)
	configPath := writeConfigFile(t, cfg)

	out, err := runCommand(t, configPath, "queue", "stats")
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	if !strings.Contains(out, "pending") {
		t.Fatalf("expected status rows, got:\n%s", out)
	}

	out, err = runCommand(t, configPath, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "Removed 2 job(s)") {
		t.Fatalf("unexpected clear output: %q", out)
	}
}

func TestQueueClearFlagConflict(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeConfigFile(t, cfg)

	if _, err := runCommand(t, configPath, "queue", "clear", "--completed", "--failed"); err == nil {
		t.Fatal("expected flag conflict error")
	}
}

func TestQueueHealthOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeConfigFile(t, cfg)

	out, err := runCommand(t, configPath, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	if !strings.Contains(out, "Readable:    yes") {
		t.Fatalf("unexpected health output:\n%s", out)
	}
}
