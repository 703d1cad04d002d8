package testsupport

import (
	"context"
	"testing"

	"waveline/internal/config"
	"waveline/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewAudioFile creates an audio file row for tests using the provided store.
func NewAudioFile(t testing.TB, store *queue.Store, filename, path string) *queue.AudioFile {
	t.Helper()

	file, err := store.NewAudioFile(context.Background(), filename, filename, path, "audio/mpeg", 1024)
	if err != nil {
		t.Fatalf("store.NewAudioFile: %v", err)
	}
	return file
}

// NewJob creates a pending job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, audioFileID int64, jobType queue.JobType) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), audioFileID, jobType, "")
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}
