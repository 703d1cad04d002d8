package process

import (
	"encoding/json"
	"strings"
)

// ConvertParams select the target container for a convert job.
type ConvertParams struct {
	Format     string `json:"format"`
	Bitrate    string `json:"bitrate"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// SliceParams bound a time-range extract. Pointer fields distinguish an
// absent value from an explicit zero; a start time of 0 is valid.
type SliceParams struct {
	StartTime *float64 `json:"startTime"`
	EndTime   *float64 `json:"endTime"`
}

// WaveformParams size the rendered waveform image.
type WaveformParams struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func decodeParams(raw string, dest any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return json.Unmarshal([]byte(trimmed), dest)
}
