package api

import (
	"encoding/json"
	"time"

	"waveline/internal/queue"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a job in a transport-friendly format.
type JobView struct {
	ID           int64           `json:"id"`
	AudioFileID  int64           `json:"audioFileId"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Progress     float64         `json:"progress"`
	Params       json.RawMessage `json:"params,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Output       string          `json:"output,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Attempts     int             `json:"attempts"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	CompletedAt  string          `json:"completedAt,omitempty"`
}

// AudioFileView describes a stored upload in a transport-friendly format.
type AudioFileView struct {
	ID           int64  `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType,omitempty"`
	SizeBytes    int64  `json:"sizeBytes"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// AudioFileResponse wraps a single upload record.
type AudioFileResponse struct {
	File AudioFileView `json:"file"`
}

// UploadResponse is returned from a successful upload request.
type UploadResponse struct {
	Job  JobView       `json:"job"`
	File AudioFileView `json:"file"`
}

// VisualizationResponse aggregates queue state for UI polling.
type VisualizationResponse struct {
	StatusCounts map[string]int `json:"statusCounts"`
	TypeCounts   map[string]int `json:"typeCounts"`
	Total        int            `json:"total"`
	RecentJobs   []JobView      `json:"recentJobs"`
}

// RemoveJobResponse reports the outcome of a job deletion.
type RemoveJobResponse struct {
	Removed     bool `json:"removed"`
	FileRemoved bool `json:"fileRemoved"`
}

// ErrorResponse is the structured error body for non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromJob converts a queue job into its API view.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		ID:           job.ID,
		AudioFileID:  job.AudioFileID,
		Type:         string(job.Type),
		Status:       string(job.Status),
		Progress:     job.Progress,
		Output:       job.OutputPath,
		ErrorMessage: job.ErrorMessage,
		Attempts:     job.Attempts,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
	if job.ParamsJSON != "" {
		view.Params = json.RawMessage(job.ParamsJSON)
	}
	if job.ResultJSON != "" {
		view.Result = json.RawMessage(job.ResultJSON)
	}
	if job.CompletedAt != nil {
		view.CompletedAt = formatTime(*job.CompletedAt)
	}
	return view
}

// FromJobs converts a slice of queue jobs into API views.
func FromJobs(jobs []*queue.Job) []JobView {
	if len(jobs) == 0 {
		return nil
	}
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	return views
}

// FromAudioFile converts a stored upload into its API view.
func FromAudioFile(file *queue.AudioFile) AudioFileView {
	if file == nil {
		return AudioFileView{}
	}
	return AudioFileView{
		ID:           file.ID,
		Filename:     file.Filename,
		OriginalName: file.OriginalName,
		MimeType:     file.MimeType,
		SizeBytes:    file.SizeBytes,
		CreatedAt:    formatTime(file.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
