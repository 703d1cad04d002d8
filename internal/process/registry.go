package process

import (
	"log/slog"

	"waveline/internal/config"
	"waveline/internal/queue"
)

// NewHandlers builds the full handler set keyed by job type.
func NewHandlers(cfg *config.Config, logger *slog.Logger) map[queue.JobType]Handler {
	handlers := []Handler{
		NewMetadataHandler(cfg, logger),
		NewAnalyzeHandler(cfg, logger),
		NewConvertHandler(cfg, logger),
		NewSliceHandler(cfg, logger),
		NewWaveformHandler(cfg, logger),
	}
	byType := make(map[queue.JobType]Handler, len(handlers))
	for _, h := range handlers {
		byType[h.JobType()] = h
	}
	return byType
}
