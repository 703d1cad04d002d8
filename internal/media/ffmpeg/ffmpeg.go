// Package ffmpeg wraps the ffmpeg binary for audio transformations.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ConvertOptions control a transcode to a target container.
type ConvertOptions struct {
	// Bitrate is the target audio bitrate, e.g. "192k". Empty keeps the
	// encoder default.
	Bitrate string
	// SampleRate is the target sample rate in Hz. Zero keeps the source rate.
	SampleRate int
	// Channels is the target channel count. Zero keeps the source layout.
	Channels int
}

// Convert transcodes the source audio into the container implied by the
// destination extension.
func Convert(ctx context.Context, binary, source, dest string, opts ConvertOptions) error {
	if err := checkPaths(source, dest); err != nil {
		return fmt.Errorf("ffmpeg convert: %w", err)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
	}
	if opts.Bitrate != "" {
		args = append(args, "-b:a", opts.Bitrate)
	}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	args = append(args, dest)
	return run(ctx, binary, args, "convert")
}

// Slice extracts the [startSec, endSec) range of the source audio into dest
// without re-encoding. A start of 0 extracts from the beginning.
func Slice(ctx context.Context, binary, source, dest string, startSec, endSec float64) error {
	if err := checkPaths(source, dest); err != nil {
		return fmt.Errorf("ffmpeg slice: %w", err)
	}
	if startSec < 0 {
		return fmt.Errorf("ffmpeg slice: negative start %v", startSec)
	}
	if endSec <= startSec {
		return fmt.Errorf("ffmpeg slice: end %v not after start %v", endSec, startSec)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startSec),
		"-to", formatSeconds(endSec),
		"-i", source,
		"-vn",
		"-c:a", "copy",
		dest,
	}
	return run(ctx, binary, args, "slice")
}

// Waveform renders a PNG waveform image of the source audio.
func Waveform(ctx context.Context, binary, source, dest string, width, height int) error {
	if err := checkPaths(source, dest); err != nil {
		return fmt.Errorf("ffmpeg waveform: %w", err)
	}
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 240
	}
	filter := fmt.Sprintf("showwavespic=s=%dx%d:colors=0x3b82f6", width, height)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-filter_complex", filter,
		"-frames:v", "1",
		dest,
	}
	return run(ctx, binary, args, "waveform")
}

func run(ctx context.Context, binary string, args []string, op string) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", op, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func checkPaths(source, dest string) error {
	if strings.TrimSpace(source) == "" {
		return errors.New("empty source path")
	}
	if strings.TrimSpace(dest) == "" {
		return errors.New("empty destination path")
	}
	return nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
