package process

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"

	"waveline/internal/config"
	"waveline/internal/logging"
	"waveline/internal/media/ffmpeg"
	"waveline/internal/queue"
)

// SliceResult is the stored payload of a slice job.
type SliceResult struct {
	Output          string  `json:"output"`
	StartTime       float64 `json:"startTime"`
	EndTime         float64 `json:"endTime"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// SliceHandler extracts a time range from an upload.
type SliceHandler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewSliceHandler constructs the slice job handler.
func NewSliceHandler(cfg *config.Config, logger *slog.Logger) *SliceHandler {
	return &SliceHandler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "slice"),
	}
}

func (h *SliceHandler) JobType() queue.JobType {
	return queue.JobSlice
}

func (h *SliceHandler) Execute(ctx context.Context, req *Request) (Result, error) {
	if h == nil || h.cfg == nil {
		return Result{}, Wrap(ErrConfiguration, "slice", "execute", "handler is not configured", nil)
	}
	if req == nil || req.File == nil {
		return Result{}, Wrap(ErrValidation, "slice", "execute", "audio file is missing", nil)
	}

	var params SliceParams
	if err := decodeParams(req.Job.ParamsJSON, &params); err != nil {
		return Result{}, Wrap(ErrValidation, "slice", "params", "invalid parameters", err)
	}
	// Presence is checked per field so an explicit startTime of 0 passes.
	if params.StartTime == nil || params.EndTime == nil {
		return Result{}, Wrap(ErrValidation, "slice", "params", "startTime and endTime are required", nil)
	}
	start, end := *params.StartTime, *params.EndTime
	if start < 0 || end <= start {
		return Result{}, Wrap(ErrValidation, "slice", "params", "invalid time range", nil)
	}

	ext := filepath.Ext(req.File.Filename)
	dest := filepath.Join(h.cfg.Paths.OutputDir, outputName(req.File, req.Job, ext))
	req.report(30)
	if err := ffmpeg.Slice(ctx, h.cfg.FFmpegBinary(), req.File.Path, dest, start, end); err != nil {
		return Result{}, Wrap(ErrExternalTool, "slice", "extract", "ffmpeg failed", err)
	}
	req.report(90)

	payload := SliceResult{
		Output:          filepath.Base(dest),
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: end - start,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, Wrap(ErrExternalTool, "slice", "encode", "marshal result", err)
	}
	h.logger.Debug("slice complete",
		logging.Int64(logging.FieldJobID, req.Job.ID),
		logging.Float64("start", start),
		logging.Float64("end", end),
	)
	return Result{ResultJSON: string(encoded), OutputPath: dest}, nil
}

func (h *SliceHandler) HealthCheck(ctx context.Context) Health {
	return binaryHealth("slice", h.cfg.FFmpegBinary())
}
