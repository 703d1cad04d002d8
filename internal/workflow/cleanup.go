package workflow

import (
	"context"
	"errors"
	"os"
	"time"

	"waveline/internal/logging"
)

func (m *Manager) runCleanup(ctx context.Context) {
	defer m.wg.Done()

	interval := time.Duration(m.cfg.Cleanup.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.setLastError(err)
				m.logger.Error("cleanup sweep failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "cleanup_failed"),
				)
			}
		}
	}
}

// SweepOnce removes completed jobs older than the configured age together
// with their output files, then drops uploads left without any job. File and
// row deletion are not transactional; a crash in between can orphan either
// side until the next sweep.
func (m *Manager) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(m.cfg.Cleanup.MaxAgeHours) * time.Hour)
	jobs, err := m.store.CompletedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	removedJobs := 0
	removedFiles := 0
	fileIDs := make(map[int64]struct{})
	for _, job := range jobs {
		if job.OutputPath != "" {
			if err := os.Remove(job.OutputPath); err == nil {
				removedFiles++
			} else if !errors.Is(err, os.ErrNotExist) {
				m.logger.Warn("could not remove output file",
					logging.Int64(logging.FieldJobID, job.ID),
					logging.String("path", job.OutputPath),
					logging.Error(err),
				)
			}
		}
		removed, err := m.store.RemoveJob(ctx, job.ID)
		if err != nil {
			return err
		}
		if removed {
			removedJobs++
			fileIDs[job.AudioFileID] = struct{}{}
		}
	}

	for id := range fileIDs {
		count, err := m.store.JobCountForAudioFile(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		file, err := m.store.GetAudioFile(ctx, id)
		if err != nil {
			return err
		}
		if file == nil {
			continue
		}
		if err := os.Remove(file.Path); err == nil {
			removedFiles++
		} else if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("could not remove upload file",
				logging.Int64(logging.FieldAudioFileID, file.ID),
				logging.String("path", file.Path),
				logging.Error(err),
			)
		}
		if _, err := m.store.RemoveAudioFile(ctx, id); err != nil {
			return err
		}
	}

	m.logger.Info("cleanup sweep complete",
		logging.Int("removed_jobs", removedJobs),
		logging.Int("removed_files", removedFiles),
		logging.String(logging.FieldEventType, "cleanup_complete"),
	)
	if err := m.notifier.NotifyCleanup(ctx, removedJobs, removedFiles); err != nil {
		m.logger.Warn("cleanup notification failed", logging.Error(err))
	}
	return nil
}
