package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, audio_file_id, type, status, progress, params_json, result_json, output_path, error_message, attempts, next_attempt_at, created_at, updated_at, completed_at"

// claimProgress is the progress value a job receives when delivered to the worker.
const claimProgress = 10

// NewJob enqueues a pending job for an existing upload.
func (s *Store) NewJob(ctx context.Context, audioFileID int64, jobType JobType, paramsJSON string) (*Job, error) {
	if _, ok := jobTypeSet[jobType]; !ok {
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (audio_file_id, type, status, progress, params_json, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?, ?)`,
		audioFileID,
		jobType,
		StatusPending,
		nullableString(paramsJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. Returns nil when absent.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided),
// newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at DESC, id DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// JobsForAudioFile returns all jobs referencing an upload, oldest first.
func (s *Store) JobsForAudioFile(ctx context.Context, audioFileID int64) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE audio_file_id = ? ORDER BY created_at, id`,
		audioFileID,
	)
	if err != nil {
		return nil, fmt.Errorf("jobs for audio file: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNextPending delivers the oldest due pending job to the caller. The
// transition to processing is a single conditional UPDATE keyed by id and
// status, so a job is claimed at most once even with concurrent claimers.
// Returns nil when no job is due.
func (s *Store) ClaimNextPending(ctx context.Context) (*Job, error) {
	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	for {
		var id int64
		row := s.db.QueryRowContext(
			ctx,
			`SELECT id FROM jobs
             WHERE status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
             ORDER BY created_at, id LIMIT 1`,
			StatusPending,
			nowStr,
		)
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select next pending: %w", err)
		}

		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
             SET status = ?, progress = ?, attempts = attempts + 1,
                 next_attempt_at = NULL, error_message = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusProcessing,
			claimProgress,
			nowStr,
			id,
			StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race for this job; look for another.
			continue
		}
		return s.GetJob(ctx, id)
	}
}

// SetProgress updates the progress of an in-flight job.
func (s *Store) SetProgress(ctx context.Context, id int64, progress float64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ? AND status = ?`,
		progress,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// CompleteJob transitions a processing job to completed, storing the result
// payload, optional output path, and completion timestamp.
func (s *Store) CompleteJob(ctx context.Context, id int64, resultJSON, outputPath string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress = 100, result_json = ?, output_path = ?,
             error_message = NULL, completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		nullableString(resultJSON),
		nullableString(outputPath),
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not processing", id)
	}
	return nil
}

// FailJob records a failed attempt. When attempts remain below maxAttempts the
// job returns to pending with its next delivery pushed out by backoff doubled
// per prior attempt; otherwise it lands in failed with the error message.
// Reports whether another attempt was scheduled.
func (s *Store) FailJob(ctx context.Context, job *Job, message string, maxAttempts int, backoff time.Duration) (bool, error) {
	if job == nil {
		return false, errors.New("job is nil")
	}
	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	if job.Attempts < maxAttempts {
		shift := job.Attempts - 1
		if shift < 0 {
			shift = 0
		}
		delay := backoff << shift
		next := now.Add(delay)
		_, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
             SET status = ?, progress = 0, next_attempt_at = ?, error_message = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusPending,
			next.Format(time.RFC3339Nano),
			nowStr,
			job.ID,
			StatusProcessing,
		)
		if err != nil {
			return false, fmt.Errorf("schedule retry: %w", err)
		}
		return true, nil
	}

	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		message,
		nowStr,
		job.ID,
		StatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	return false, nil
}

// RemoveJob deletes a job by identifier.
func (s *Store) RemoveJob(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		audioFileID  int64
		typeStr      string
		statusStr    string
		progress     sql.NullFloat64
		paramsJSON   sql.NullString
		resultJSON   sql.NullString
		outputPath   sql.NullString
		errorMessage sql.NullString
		attempts     sql.NullInt64
		nextRaw      sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&audioFileID,
		&typeStr,
		&statusStr,
		&progress,
		&paramsJSON,
		&resultJSON,
		&outputPath,
		&errorMessage,
		&attempts,
		&nextRaw,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		AudioFileID:  audioFileID,
		Type:         JobType(typeStr),
		Status:       Status(statusStr),
		Progress:     progress.Float64,
		ParamsJSON:   paramsJSON.String,
		ResultJSON:   resultJSON.String,
		OutputPath:   outputPath.String,
		ErrorMessage: errorMessage.String,
		Attempts:     int(attempts.Int64),
	}
	if nextRaw.Valid {
		if next, err := parseTimeString(nextRaw.String); err == nil {
			job.NextAttemptAt = &next
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}
