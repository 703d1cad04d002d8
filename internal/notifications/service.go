package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"waveline/internal/config"
	"waveline/internal/queue"
)

const userAgent = "Waveline/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyJobCompleted(ctx context.Context, job *queue.Job, originalName string) error
	NotifyJobFailed(ctx context.Context, job *queue.Job, originalName, message string) error
	NotifyCleanup(ctx context.Context, removedJobs, removedFiles int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:       topic,
		client:         client,
		onJobCompleted: cfg.Notifications.JobCompleted,
		onJobFailed:    cfg.Notifications.JobFailed,
		onCleanup:      cfg.Notifications.Cleanup,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	onJobCompleted bool
	onJobFailed    bool
	onCleanup      bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, job *queue.Job, originalName string) error {
	if !n.onJobCompleted || job == nil {
		return nil
	}
	originalName = strings.TrimSpace(originalName)
	message := fmt.Sprintf("Job %d (%s) completed", job.ID, job.Type)
	if originalName != "" {
		message = fmt.Sprintf("%s for %s", message, originalName)
	}
	data := payload{
		title:   "Waveline - Job Complete",
		message: message,
		tags:    []string{"waveline", string(job.Type), "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, job *queue.Job, originalName, message string) error {
	if !n.onJobFailed || job == nil {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Job %d (%s) failed", job.ID, job.Type)
	if originalName = strings.TrimSpace(originalName); originalName != "" {
		fmt.Fprintf(&builder, " for %s", originalName)
	}
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteString(": ")
		builder.WriteString(message)
	}
	data := payload{
		title:    "Waveline - Job Failed",
		message:  builder.String(),
		tags:     []string{"waveline", string(job.Type), "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCleanup(ctx context.Context, removedJobs, removedFiles int) error {
	if !n.onCleanup || removedJobs == 0 {
		return nil
	}
	data := payload{
		title:    "Waveline - Cleanup",
		message:  fmt.Sprintf("Cleanup removed %d completed jobs and %d files", removedJobs, removedFiles),
		tags:     []string{"waveline", "cleanup"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Waveline - Test",
		message:  "Notification system test",
		tags:     []string{"waveline", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, *queue.Job, string) error      { return nil }
func (noopService) NotifyJobFailed(context.Context, *queue.Job, string, string) error { return nil }
func (noopService) NotifyCleanup(context.Context, int, int) error                     { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
