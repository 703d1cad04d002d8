package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status can no longer transition.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobType identifies the processing operation requested for an upload.
type JobType string

const (
	JobMetadata JobType = "metadata"
	JobAnalyze  JobType = "analyze"
	JobConvert  JobType = "convert"
	JobSlice    JobType = "slice"
	JobWaveform JobType = "waveform"
)

var allJobTypes = []JobType{
	JobMetadata,
	JobAnalyze,
	JobConvert,
	JobSlice,
	JobWaveform,
}

var jobTypeSet = func() map[JobType]struct{} {
	set := make(map[JobType]struct{}, len(allJobTypes))
	for _, jt := range allJobTypes {
		set[jt] = struct{}{}
	}
	return set
}()

// AllJobTypes returns the ordered list of known job types.
func AllJobTypes() []JobType {
	cp := make([]JobType, len(allJobTypes))
	copy(cp, allJobTypes)
	return cp
}

// ParseJobType converts a string into a known JobType.
func ParseJobType(value string) (JobType, bool) {
	normalized := JobType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := jobTypeSet[normalized]
	return normalized, ok
}

// AudioFile represents a stored upload. Immutable after creation except for
// cascade deletion together with its jobs.
type AudioFile struct {
	ID           int64
	Filename     string
	OriginalName string
	Path         string
	MimeType     string
	SizeBytes    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Job represents one unit of requested audio processing against an upload.
type Job struct {
	ID            int64
	AudioFileID   int64
	Type          JobType
	Status        Status
	Progress      float64
	ParamsJSON    string
	ResultJSON    string
	OutputPath    string
	ErrorMessage  string
	Attempts      int
	NextAttemptAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// IsTerminal reports whether the job reached a final state.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalJobs        int
	TotalAudioFiles  int
	Error            string
}
