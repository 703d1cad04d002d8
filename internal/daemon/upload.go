package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"waveline/internal/api"
	"waveline/internal/fileutil"
	"waveline/internal/logging"
	"waveline/internal/queue"
)

const multipartMemoryLimit = 32 << 20

// handleUpload accepts a multipart upload and enqueues a processing job. The
// file part may be replaced by an audio_file_id field referencing an earlier
// upload, so one stored file can back several jobs.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.daemon.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds the %d MiB limit", s.daemon.cfg.Upload.MaxSizeMiB))
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	jobType, ok := queue.ParseJobType(r.FormValue("job_type"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown job type %q", r.FormValue("job_type")))
		return
	}

	params := strings.TrimSpace(r.FormValue("params"))
	if params != "" && !json.Valid([]byte(params)) {
		s.writeError(w, http.StatusBadRequest, "params must be valid JSON")
		return
	}

	var (
		audioFile *queue.AudioFile
		err       error
	)
	if idValue := strings.TrimSpace(r.FormValue("audio_file_id")); idValue != "" {
		id, parseErr := strconv.ParseInt(idValue, 10, 64)
		if parseErr != nil || id <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid audio_file_id")
			return
		}
		audioFile, err = s.daemon.store.GetAudioFile(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if audioFile == nil {
			s.writeError(w, http.StatusNotFound, "audio file not found")
			return
		}
	} else {
		audioFile, err = s.storeUploadedFile(w, r)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if audioFile == nil {
			// storeUploadedFile already wrote the error response.
			return
		}
	}

	job, err := s.daemon.store.NewJob(r.Context(), audioFile.ID, jobType, params)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log().Info("upload accepted",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int64(logging.FieldAudioFileID, audioFile.ID),
		logging.String(logging.FieldJobType, string(jobType)),
		logging.String("original_name", audioFile.OriginalName))
	s.writeJSON(w, http.StatusCreated, api.UploadResponse{
		Job:  api.FromJob(job),
		File: api.FromAudioFile(audioFile),
	})
}

// storeUploadedFile validates the file part, writes it under a UUID name, and
// inserts its row. A nil AudioFile means the response has been written.
func (s *apiServer) storeUploadedFile(w http.ResponseWriter, r *http.Request) (*queue.AudioFile, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "a file part or audio_file_id is required")
		return nil, nil
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !s.allowedExtension(ext) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file extension %q", ext))
		return nil, nil
	}
	mimeType := header.Header.Get("Content-Type")
	if !allowedMimeType(mimeType) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported content type %q", mimeType))
		return nil, nil
	}

	storedName := uuid.New().String() + ext
	dst := filepath.Join(s.daemon.cfg.Paths.UploadDir, storedName)
	written, err := fileutil.SaveReader(dst, file)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	audioFile, err := s.daemon.store.NewAudioFile(r.Context(), storedName, header.Filename, dst, mimeType, written)
	if err != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("record upload: %w", err)
	}
	return audioFile, nil
}

func (s *apiServer) allowedExtension(ext string) bool {
	for _, allowed := range s.daemon.cfg.Upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// allowedMimeType accepts audio types plus the generic fallbacks browsers and
// CLI clients send. The extension allowlist remains the primary gate.
func allowedMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case mimeType == "", mimeType == "application/octet-stream":
		return true
	case strings.HasPrefix(mimeType, "audio/"):
		return true
	case mimeType == "video/webm", mimeType == "video/ogg":
		return true
	}
	return false
}
