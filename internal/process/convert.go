package process

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"

	"waveline/internal/config"
	"waveline/internal/logging"
	"waveline/internal/media/ffmpeg"
	"waveline/internal/queue"
)

// convertFormats maps accepted target formats to output extensions.
var convertFormats = map[string]string{
	"mp3":  ".mp3",
	"wav":  ".wav",
	"flac": ".flac",
	"ogg":  ".ogg",
	"m4a":  ".m4a",
	"aac":  ".aac",
	"opus": ".opus",
}

// ConvertResult is the stored payload of a convert job.
type ConvertResult struct {
	Output    string `json:"output"`
	Format    string `json:"format"`
	Bitrate   string `json:"bitrate,omitempty"`
	SizeBytes int64  `json:"sizeBytes"`
}

// ConvertHandler transcodes uploads into a target container.
type ConvertHandler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewConvertHandler constructs the convert job handler.
func NewConvertHandler(cfg *config.Config, logger *slog.Logger) *ConvertHandler {
	return &ConvertHandler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "convert"),
	}
}

func (h *ConvertHandler) JobType() queue.JobType {
	return queue.JobConvert
}

func (h *ConvertHandler) Execute(ctx context.Context, req *Request) (Result, error) {
	if h == nil || h.cfg == nil {
		return Result{}, Wrap(ErrConfiguration, "convert", "execute", "handler is not configured", nil)
	}
	if req == nil || req.File == nil {
		return Result{}, Wrap(ErrValidation, "convert", "execute", "audio file is missing", nil)
	}

	var params ConvertParams
	if err := decodeParams(req.Job.ParamsJSON, &params); err != nil {
		return Result{}, Wrap(ErrValidation, "convert", "params", "invalid parameters", err)
	}
	format := strings.ToLower(strings.TrimSpace(params.Format))
	if format == "" {
		format = "mp3"
	}
	ext, ok := convertFormats[format]
	if !ok {
		return Result{}, Wrap(ErrValidation, "convert", "params", "unsupported target format "+format, nil)
	}

	dest := filepath.Join(h.cfg.Paths.OutputDir, outputName(req.File, req.Job, ext))
	opts := ffmpeg.ConvertOptions{
		Bitrate:    params.Bitrate,
		SampleRate: params.SampleRate,
		Channels:   params.Channels,
	}
	req.report(30)
	if err := ffmpeg.Convert(ctx, h.cfg.FFmpegBinary(), req.File.Path, dest, opts); err != nil {
		return Result{}, Wrap(ErrExternalTool, "convert", "transcode", "ffmpeg failed", err)
	}
	req.report(90)

	payload := ConvertResult{
		Output:    filepath.Base(dest),
		Format:    format,
		Bitrate:   params.Bitrate,
		SizeBytes: fileSize(dest),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, Wrap(ErrExternalTool, "convert", "encode", "marshal result", err)
	}
	h.logger.Debug("conversion complete",
		logging.Int64(logging.FieldJobID, req.Job.ID),
		logging.String("format", format),
		logging.Int64("size_bytes", payload.SizeBytes),
	)
	return Result{ResultJSON: string(encoded), OutputPath: dest}, nil
}

func (h *ConvertHandler) HealthCheck(ctx context.Context) Health {
	return binaryHealth("convert", h.cfg.FFmpegBinary())
}
