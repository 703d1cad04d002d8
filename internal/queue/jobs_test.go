package queue_test

import (
	"context"
	"testing"
	"time"

	"waveline/internal/queue"
	"waveline/internal/testsupport"
)

func TestNewJobDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	file := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	job, err := store.NewJob(ctx, file.ID, queue.JobMetadata, "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusPending || job.Progress != 0 || job.Attempts != 0 {
		t.Fatalf("unexpected new job state: %#v", job)
	}
}

func TestNewJobRejectsUnknownType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	file := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	if _, err := store.NewJob(context.Background(), file.ID, queue.JobType("transcribe"), ""); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}

func TestClaimNextPendingOrdersByCreation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	file := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	first := testsupport.NewJob(t, store, file.ID, queue.JobMetadata)
	second := testsupport.NewJob(t, store, file.ID, queue.JobWaveform)

	claimed, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected oldest job %d first, got %#v", first.ID, claimed)
	}
	if claimed.Status != queue.StatusProcessing || claimed.Attempts != 1 || claimed.Progress != 10 {
		t.Fatalf("unexpected claimed state: %#v", claimed)
	}

	claimed, err = store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending failed: %v", err)
	}
	if claimed == nil || claimed.ID != second.ID {
		t.Fatalf("expected second job %d, got %#v", second.ID, claimed)
	}

	claimed, err = store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending failed: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected empty queue, got %#v", claimed)
	}
}

func TestFailJobSchedulesRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	file := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	testsupport.NewJob(t, store, file.ID, queue.JobConvert)

	claimed, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending failed: %v", err)
	}

	retryScheduled, err := store.FailJob(ctx, claimed, "ffmpeg exited 1", 3, time.Hour)
	if err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}
	if !retryScheduled {
		t.Fatal("expected a retry to be scheduled")
	}

	fetched, err := store.GetJob(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected pending job, got %s", fetched.Status)
	}
	if fetched.NextAttemptAt == nil || !fetched.NextAttemptAt.After(time.Now()) {
		t.Fatalf("expected future next attempt, got %v", fetched.NextAttemptAt)
	}

	// Not due yet, so the queue hands out nothing.
	next, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending failed: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no due job, got %#v", next)
	}
}

func TestFailJobExhaustsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	file := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	testsupport.NewJob(t, store, file.ID, queue.JobSlice)

	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		claimed, err := store.ClaimNextPending(ctx)
		if err != nil {
			t.Fatalf("ClaimNextPending failed: %v", err)
		}
		if claimed == nil {
			t.Fatalf("expected claimable job on attempt %d", attempt)
		}
		if claimed.Attempts != attempt {
			t.Fatalf("expected attempt count %d, got %d", attempt, claimed.Attempts)
		}

		retryScheduled, err := store.FailJob(ctx, claimed, "invalid slice range", maxAttempts, 0)
		if err != nil {
			t.Fatalf("FailJob failed: %v", err)
		}
		if attempt < maxAttempts && !retryScheduled {
			t.Fatalf("expected retry on attempt %d", attempt)
		}
		if attempt == maxAttempts && retryScheduled {
			t.Fatal("expected final attempt to exhaust retries")
		}
	}

	jobs, err := store.List(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 failed job, got %d", len(jobs))
	}
	if jobs[0].ErrorMessage != "invalid slice range" {
		t.Fatalf("expected error message recorded, got %q", jobs[0].ErrorMessage)
	}
	if jobs[0].Attempts != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, jobs[0].Attempts)
	}
}

func TestCompleteJobStoresResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	file := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	testsupport.NewJob(t, store, file.ID, queue.JobWaveform)

	claimed, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending failed: %v", err)
	}
	if err := store.SetProgress(ctx, claimed.ID, 55); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	if err := store.CompleteJob(ctx, claimed.ID, `{"width":800}`, "/output/abc_waveform.png"); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	fetched, err := store.GetJob(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if fetched.Status != queue.StatusCompleted || fetched.Progress != 100 {
		t.Fatalf("unexpected completed state: %#v", fetched)
	}
	if fetched.ResultJSON != `{"width":800}` || fetched.OutputPath != "/output/abc_waveform.png" {
		t.Fatalf("unexpected result payload: %#v", fetched)
	}
	if fetched.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
}

func TestCompleteJobRequiresProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	file := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	job := testsupport.NewJob(t, store, file.ID, queue.JobMetadata)

	if err := store.CompleteJob(ctx, job.ID, "", ""); err == nil {
		t.Fatal("expected error completing a pending job")
	}
}

func TestSetProgressIgnoredOutsideProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	file := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	job := testsupport.NewJob(t, store, file.ID, queue.JobMetadata)

	if err := store.SetProgress(ctx, job.ID, 75); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	fetched, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if fetched.Progress != 0 {
		t.Fatalf("expected untouched progress, got %v", fetched.Progress)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	file := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	testsupport.NewJob(t, store, file.ID, queue.JobMetadata)
	testsupport.NewJob(t, store, file.ID, queue.JobAnalyze)

	if _, err := store.ClaimNextPending(ctx); err != nil {
		t.Fatalf("ClaimNextPending failed: %v", err)
	}

	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Type != queue.JobAnalyze {
		t.Fatalf("unexpected pending jobs: %#v", pending)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
}

func TestJobsForAudioFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewAudioFile(t, store, "abc.mp3", "/uploads/abc.mp3")
	second := testsupport.NewAudioFile(t, store, "def.wav", "/uploads/def.wav")
	testsupport.NewJob(t, store, first.ID, queue.JobMetadata)
	testsupport.NewJob(t, store, first.ID, queue.JobWaveform)
	testsupport.NewJob(t, store, second.ID, queue.JobMetadata)

	jobs, err := store.JobsForAudioFile(ctx, first.ID)
	if err != nil {
		t.Fatalf("JobsForAudioFile failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs for file %d, got %d", first.ID, len(jobs))
	}
	for _, job := range jobs {
		if job.AudioFileID != first.ID {
			t.Fatalf("job %d belongs to file %d", job.ID, job.AudioFileID)
		}
	}

	count, err := store.JobCountForAudioFile(ctx, second.ID)
	if err != nil {
		t.Fatalf("JobCountForAudioFile failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 job for file %d, got %d", second.ID, count)
	}
}
