package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldAudioFileID is the standardized structured logging key for audio file identifiers.
	FieldAudioFileID = "audio_file_id"
	// FieldJobType is the standardized structured logging key for job type names.
	FieldJobType = "job_type"
	// FieldRequestID is the standardized structured logging key for HTTP request correlation.
	FieldRequestID = "request_id"
	// FieldEventType tags log records with a machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries operator guidance alongside error records.
	FieldErrorHint = "error_hint"
)
