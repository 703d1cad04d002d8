package process

import (
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"

	"waveline/internal/config"
	"waveline/internal/logging"
	"waveline/internal/media/ffprobe"
	"waveline/internal/queue"
)

// MetadataResult is the stored payload of a metadata job.
type MetadataResult struct {
	FormatName      string            `json:"formatName"`
	DurationSeconds float64           `json:"durationSeconds"`
	SizeBytes       int64             `json:"sizeBytes"`
	BitRate         int64             `json:"bitRate"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// MetadataHandler extracts container tags and format information.
type MetadataHandler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewMetadataHandler constructs the metadata job handler.
func NewMetadataHandler(cfg *config.Config, logger *slog.Logger) *MetadataHandler {
	return &MetadataHandler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "metadata"),
	}
}

func (h *MetadataHandler) JobType() queue.JobType {
	return queue.JobMetadata
}

func (h *MetadataHandler) Execute(ctx context.Context, req *Request) (Result, error) {
	if h == nil || h.cfg == nil {
		return Result{}, Wrap(ErrConfiguration, "metadata", "execute", "handler is not configured", nil)
	}
	if req == nil || req.File == nil {
		return Result{}, Wrap(ErrValidation, "metadata", "execute", "audio file is missing", nil)
	}

	probe, err := ffprobe.Inspect(ctx, h.cfg.FFprobeBinary(), req.File.Path)
	if err != nil {
		return Result{}, Wrap(ErrExternalTool, "metadata", "inspect", "ffprobe failed", err)
	}
	if probe.AudioStreamCount() == 0 {
		return Result{}, Wrap(ErrValidation, "metadata", "inspect", "no audio stream in upload", nil)
	}
	req.report(70)

	payload := MetadataResult{
		FormatName:      probe.Format.FormatName,
		DurationSeconds: probe.DurationSeconds(),
		SizeBytes:       probe.SizeBytes(),
		BitRate:         probe.BitRate(),
		Tags:            probe.Format.Tags,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, Wrap(ErrExternalTool, "metadata", "encode", "marshal result", err)
	}
	h.logger.Debug("metadata extracted",
		logging.Int64(logging.FieldJobID, req.Job.ID),
		logging.String("format", payload.FormatName),
	)
	return Result{ResultJSON: string(encoded)}, nil
}

func (h *MetadataHandler) HealthCheck(ctx context.Context) Health {
	return binaryHealth("metadata", h.cfg.FFprobeBinary())
}

func binaryHealth(name, binary string) Health {
	if _, err := exec.LookPath(binary); err != nil {
		return Unhealthy(name, binary+" not found on PATH")
	}
	return Healthy(name)
}
