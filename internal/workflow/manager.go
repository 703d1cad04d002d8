package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"waveline/internal/config"
	"waveline/internal/logging"
	"waveline/internal/notifications"
	"waveline/internal/process"
	"waveline/internal/queue"
)

// Manager coordinates queue processing using registered job handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	handlers     map[queue.JobType]process.Handler
	pollInterval time.Duration
	errorRetry   time.Duration
	maxAttempts  int
	retryBackoff time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager with the default handler set and
// notifier.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		notifier:     notifier,
		handlers:     process.NewHandlers(cfg, logger),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetry:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		maxAttempts:  cfg.Workflow.MaxAttempts,
		retryBackoff: time.Duration(cfg.Workflow.RetryBackoffSeconds) * time.Second,
	}
}

// SetHandler replaces the handler for a job type (used in tests).
func (m *Manager) SetHandler(handler process.Handler) {
	m.handlers[handler.JobType()] = handler
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if len(m.handlers) == 0 {
		return errors.New("workflow handlers not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.runWorker(runCtx)

	if m.cfg.Cleanup.Enabled {
		m.wg.Add(1)
		go m.runCleanup(runCtx)
	}

	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the manager loops are active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastError returns the most recent loop-level failure.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// HandlerHealth reports the readiness of every registered job handler.
func (m *Manager) HandlerHealth(ctx context.Context) []process.Health {
	checks := make([]process.Health, 0, len(m.handlers))
	for _, jt := range queue.AllJobTypes() {
		handler, ok := m.handlers[jt]
		if !ok {
			continue
		}
		checks = append(checks, handler.HealthCheck(ctx))
	}
	return checks
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
