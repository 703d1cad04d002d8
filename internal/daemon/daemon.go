package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"waveline/internal/api"
	"waveline/internal/config"
	"waveline/internal/deps"
	"waveline/internal/logging"
	"waveline/internal/notifications"
	"waveline/internal/queue"
	"waveline/internal/workflow"
)

// Daemon runs the background worker and HTTP API and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "waveline.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock, then launches the workflow manager and the
// HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another waveline daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.unwind()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.unwind()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("waveline daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) unwind() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("waveline daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the bound API listen address, or "" when the API is not
// listening.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Handler exposes the HTTP API for embedding and tests.
func (d *Daemon) Handler() http.Handler {
	if d.api == nil {
		return nil
	}
	return d.api.handler
}

// Health gathers daemon, store, handler, and dependency diagnostics.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	resp := api.HealthResponse{
		Status:  "ok",
		Running: d.running.Load(),
	}

	summary, err := d.store.Health(ctx)
	if err != nil {
		resp.Status = "degraded"
		resp.Database.Error = err.Error()
	} else {
		resp.Queue = api.QueueHealth{
			Total:      summary.Total,
			Pending:    summary.Pending,
			Processing: summary.Processing,
			Completed:  summary.Completed,
			Failed:     summary.Failed,
		}
	}

	db, err := d.store.CheckHealth(ctx)
	if err != nil {
		resp.Status = "degraded"
		resp.Database.Error = err.Error()
	} else {
		resp.Database = api.DatabaseHealth{
			Path:           db.DBPath,
			Readable:       db.DatabaseReadable,
			IntegrityCheck: db.IntegrityCheck,
			MissingTables:  db.MissingTables,
			Error:          db.Error,
		}
		if !db.DatabaseReadable || !db.IntegrityCheck || len(db.MissingTables) > 0 {
			resp.Status = "degraded"
		}
	}

	for _, health := range d.workflow.HandlerHealth(ctx) {
		resp.Handlers = append(resp.Handlers, api.HandlerHealth{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
		if !health.Ready {
			resp.Status = "degraded"
		}
	}

	for _, status := range deps.CheckBinaries(deps.Requirements(d.cfg)) {
		resp.Dependencies = append(resp.Dependencies, api.DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
		if !status.Available && !status.Optional {
			resp.Status = "degraded"
		}
	}

	return resp
}

// TestNotification sends a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
