package process

import (
	"context"
	"encoding/json"
	"log/slog"

	"waveline/internal/config"
	"waveline/internal/logging"
	"waveline/internal/media/ffprobe"
	"waveline/internal/queue"
)

// AnalyzeResult is the stored payload of an analyze job. It extends the
// metadata payload with the technical shape of the primary audio stream.
type AnalyzeResult struct {
	MetadataResult

	Codec         string `json:"codec"`
	CodecLong     string `json:"codecLong,omitempty"`
	SampleRateHz  int    `json:"sampleRateHz"`
	SampleFormat  string `json:"sampleFormat,omitempty"`
	Channels      int    `json:"channels"`
	ChannelLayout string `json:"channelLayout,omitempty"`
	StreamCount   int    `json:"streamCount"`
	AudioStreams  int    `json:"audioStreams"`
}

// AnalyzeHandler performs metadata extraction plus a technical probe of the
// primary audio stream.
type AnalyzeHandler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewAnalyzeHandler constructs the analyze job handler.
func NewAnalyzeHandler(cfg *config.Config, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "analyze"),
	}
}

func (h *AnalyzeHandler) JobType() queue.JobType {
	return queue.JobAnalyze
}

func (h *AnalyzeHandler) Execute(ctx context.Context, req *Request) (Result, error) {
	if h == nil || h.cfg == nil {
		return Result{}, Wrap(ErrConfiguration, "analyze", "execute", "handler is not configured", nil)
	}
	if req == nil || req.File == nil {
		return Result{}, Wrap(ErrValidation, "analyze", "execute", "audio file is missing", nil)
	}

	probe, err := ffprobe.Inspect(ctx, h.cfg.FFprobeBinary(), req.File.Path)
	if err != nil {
		return Result{}, Wrap(ErrExternalTool, "analyze", "inspect", "ffprobe failed", err)
	}
	audio := probe.FirstAudioStream()
	if audio == nil {
		return Result{}, Wrap(ErrValidation, "analyze", "inspect", "no audio stream in upload", nil)
	}
	req.report(70)

	payload := AnalyzeResult{
		MetadataResult: MetadataResult{
			FormatName:      probe.Format.FormatName,
			DurationSeconds: probe.DurationSeconds(),
			SizeBytes:       probe.SizeBytes(),
			BitRate:         probe.BitRate(),
			Tags:            probe.Format.Tags,
		},
		Codec:         audio.CodecName,
		CodecLong:     audio.CodecLongName,
		SampleRateHz:  audio.SampleRateHz(),
		SampleFormat:  audio.SampleFormat,
		Channels:      audio.Channels,
		ChannelLayout: audio.ChannelLayout,
		StreamCount:   len(probe.Streams),
		AudioStreams:  probe.AudioStreamCount(),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, Wrap(ErrExternalTool, "analyze", "encode", "marshal result", err)
	}
	h.logger.Debug("analysis complete",
		logging.Int64(logging.FieldJobID, req.Job.ID),
		logging.String("codec", payload.Codec),
		logging.Int("sample_rate", payload.SampleRateHz),
	)
	return Result{ResultJSON: string(encoded)}, nil
}

func (h *AnalyzeHandler) HealthCheck(ctx context.Context) Health {
	return binaryHealth("analyze", h.cfg.FFprobeBinary())
}
