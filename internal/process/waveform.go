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

const (
	defaultWaveformWidth  = 800
	defaultWaveformHeight = 240
)

// WaveformResult is the stored payload of a waveform job.
type WaveformResult struct {
	Output string `json:"output"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// WaveformHandler renders a PNG waveform image of an upload.
type WaveformHandler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewWaveformHandler constructs the waveform job handler.
func NewWaveformHandler(cfg *config.Config, logger *slog.Logger) *WaveformHandler {
	return &WaveformHandler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "waveform"),
	}
}

func (h *WaveformHandler) JobType() queue.JobType {
	return queue.JobWaveform
}

func (h *WaveformHandler) Execute(ctx context.Context, req *Request) (Result, error) {
	if h == nil || h.cfg == nil {
		return Result{}, Wrap(ErrConfiguration, "waveform", "execute", "handler is not configured", nil)
	}
	if req == nil || req.File == nil {
		return Result{}, Wrap(ErrValidation, "waveform", "execute", "audio file is missing", nil)
	}

	var params WaveformParams
	if err := decodeParams(req.Job.ParamsJSON, &params); err != nil {
		return Result{}, Wrap(ErrValidation, "waveform", "params", "invalid parameters", err)
	}
	width, height := params.Width, params.Height
	if width <= 0 {
		width = defaultWaveformWidth
	}
	if height <= 0 {
		height = defaultWaveformHeight
	}

	dest := filepath.Join(h.cfg.Paths.OutputDir, outputName(req.File, req.Job, ".png"))
	req.report(30)
	if err := ffmpeg.Waveform(ctx, h.cfg.FFmpegBinary(), req.File.Path, dest, width, height); err != nil {
		return Result{}, Wrap(ErrExternalTool, "waveform", "render", "ffmpeg failed", err)
	}
	req.report(90)

	payload := WaveformResult{
		Output: filepath.Base(dest),
		Width:  width,
		Height: height,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, Wrap(ErrExternalTool, "waveform", "encode", "marshal result", err)
	}
	h.logger.Debug("waveform rendered",
		logging.Int64(logging.FieldJobID, req.Job.ID),
		logging.Int("width", width),
		logging.Int("height", height),
	)
	return Result{ResultJSON: string(encoded), OutputPath: dest}, nil
}

func (h *WaveformHandler) HealthCheck(ctx context.Context) Health {
	return binaryHealth("waveform", h.cfg.FFmpegBinary())
}
