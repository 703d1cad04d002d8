package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const audioFileColumns = "id, filename, original_name, path, mime_type, size_bytes, created_at, updated_at"

// NewAudioFile inserts a stored upload record.
func (s *Store) NewAudioFile(ctx context.Context, filename, originalName, path, mimeType string, sizeBytes int64) (*AudioFile, error) {
	if filename == "" || path == "" {
		return nil, errors.New("audio file requires filename and path")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO audio_files (filename, original_name, path, mime_type, size_bytes, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		filename,
		originalName,
		path,
		mimeType,
		sizeBytes,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audio file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAudioFile(ctx, id)
}

// GetAudioFile fetches an audio file by identifier. Returns nil when absent.
func (s *Store) GetAudioFile(ctx context.Context, id int64) (*AudioFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+audioFileColumns+` FROM audio_files WHERE id = ?`, id)
	file, err := scanAudioFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get audio file: %w", err)
	}
	return file, nil
}

// ListAudioFiles returns all stored uploads ordered by creation time.
func (s *Store) ListAudioFiles(ctx context.Context) ([]*AudioFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+audioFileColumns+` FROM audio_files ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list audio files: %w", err)
	}
	defer rows.Close()

	var files []*AudioFile
	for rows.Next() {
		file, err := scanAudioFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// JobCountForAudioFile returns how many jobs reference the given upload.
func (s *Store) JobCountForAudioFile(ctx context.Context, audioFileID int64) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE audio_file_id = ?`, audioFileID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs for audio file: %w", err)
	}
	return count, nil
}

// RemoveAudioFile deletes an upload row; associated jobs cascade.
func (s *Store) RemoveAudioFile(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM audio_files WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete audio file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanAudioFile(scanner interface{ Scan(dest ...any) error }) (*AudioFile, error) {
	var (
		id         int64
		filename   string
		original   sql.NullString
		path       string
		mimeType   sql.NullString
		sizeBytes  sql.NullInt64
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(&id, &filename, &original, &path, &mimeType, &sizeBytes, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	file := &AudioFile{
		ID:           id,
		Filename:     filename,
		OriginalName: original.String,
		Path:         path,
		MimeType:     mimeType.String,
		SizeBytes:    sizeBytes.Int64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		file.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		file.UpdatedAt = updated
	}
	return file, nil
}
