package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxSizeMiB <= 0 {
		return errors.New("upload.max_size_mib must be positive")
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return errors.New("upload.allowed_extensions must not be empty")
	}
	for _, ext := range c.Upload.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("upload.allowed_extensions entry %q is not a file extension", ext)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.MaxAttempts < 1 {
		return errors.New("workflow.max_attempts must be at least 1")
	}
	if c.Workflow.RetryBackoffSeconds <= 0 {
		return errors.New("workflow.retry_backoff_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if !c.Cleanup.Enabled {
		return nil
	}
	if c.Cleanup.IntervalMinutes <= 0 {
		return errors.New("cleanup.interval_minutes must be positive when cleanup.enabled is true")
	}
	if c.Cleanup.MaxAgeHours <= 0 {
		return errors.New("cleanup.max_age_hours must be positive when cleanup.enabled is true")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
		return nil
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
