package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"waveline/internal/logging"
	"waveline/internal/process"
	"waveline/internal/queue"
)

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleClaimError(ctx, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		if err := m.processJob(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	logger := m.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobType, string(job.Type)),
	)
	logger.Info("processing job",
		logging.Int("attempt", job.Attempts),
		logging.String(logging.FieldEventType, "job_started"),
	)

	file, err := m.store.GetAudioFile(ctx, job.AudioFileID)
	if err != nil {
		return m.failJob(ctx, logger, job, "", fmt.Errorf("load audio file: %w", err))
	}
	if file == nil {
		return m.failJob(ctx, logger, job, "", fmt.Errorf("audio file %d no longer exists", job.AudioFileID))
	}

	handler, ok := m.handlers[job.Type]
	if !ok {
		return m.failJob(ctx, logger, job, file.OriginalName, fmt.Errorf("no handler for job type %q", job.Type))
	}

	req := &process.Request{
		Job:  job,
		File: file,
		Progress: func(progress float64) {
			if err := m.store.SetProgress(ctx, job.ID, progress); err != nil {
				logger.Warn("progress update failed", logging.Error(err))
			}
		},
	}

	started := time.Now()
	result, err := handler.Execute(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Shutdown mid-job; the row stays in processing for a
			// manual queue reset.
			return err
		}
		return m.failJob(ctx, logger, job, file.OriginalName, err)
	}

	if err := m.store.CompleteJob(ctx, job.ID, result.ResultJSON, result.OutputPath); err != nil {
		m.setLastError(err)
		logger.Error("failed to persist job completion", logging.Error(err))
		return err
	}
	logger.Info("job completed",
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	if err := m.notifier.NotifyJobCompleted(ctx, job, file.OriginalName); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}

func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, job *queue.Job, originalName string, jobErr error) error {
	message := strings.TrimSpace(jobErr.Error())
	retryScheduled, err := m.store.FailJob(ctx, job, message, m.maxAttempts, m.retryBackoff)
	if err != nil {
		m.setLastError(err)
		logger.Error("failed to persist job failure", logging.Error(err))
		return err
	}
	if retryScheduled {
		logger.Warn("job attempt failed, retry scheduled",
			logging.Int("attempt", job.Attempts),
			logging.Error(jobErr),
			logging.String(logging.FieldEventType, "job_retry_scheduled"),
		)
		return nil
	}
	logger.Error("job failed",
		logging.Int("attempt", job.Attempts),
		logging.Error(jobErr),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorHint, "inspect the job error message via waveline queue show"),
	)
	if err := m.notifier.NotifyJobFailed(ctx, job, originalName, message); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	return nil
}

func (m *Manager) handleClaimError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetry):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
