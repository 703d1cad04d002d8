package config

const (
	defaultDataDir             = "~/.local/share/waveline"
	defaultAPIBind             = "127.0.0.1:8480"
	defaultMaxSizeMiB          = 100
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultQueuePollInterval   = 2
	defaultErrorRetryInterval  = 10
	defaultMaxAttempts         = 3
	defaultRetryBackoffSeconds = 2
	defaultCleanupInterval     = 60
	defaultCleanupMaxAgeHours  = 24
	defaultNotifyTimeout       = 10
)

func defaultAllowedExtensions() []string {
	return []string{".mp3", ".wav", ".flac", ".ogg", ".m4a", ".aac", ".opus", ".wma", ".webm"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			APIBind: defaultAPIBind,
		},
		Upload: Upload{
			MaxSizeMiB:        defaultMaxSizeMiB,
			AllowedExtensions: defaultAllowedExtensions(),
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Workflow: Workflow{
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			MaxAttempts:         defaultMaxAttempts,
			RetryBackoffSeconds: defaultRetryBackoffSeconds,
		},
		Cleanup: Cleanup{
			Enabled:         true,
			IntervalMinutes: defaultCleanupInterval,
			MaxAgeHours:     defaultCleanupMaxAgeHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			JobCompleted:   true,
			JobFailed:      true,
			Cleanup:        false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
