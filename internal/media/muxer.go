package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"revoice/internal/services"
)

// Muxer replaces a video's audio track with synthesized narration using
// ffmpeg. The command runner is injectable for tests.
type Muxer struct {
	ffmpegBinary  string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewMuxer builds a muxer around the given ffmpeg binary.
func NewMuxer(ffmpegBinary string) *Muxer {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Muxer{ffmpegBinary: ffmpegBinary}
}

// SetCommandRunner overrides command execution, for tests.
func (m *Muxer) SetCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	m.commandRunner = runner
}

// ReplaceAudio remuxes videoPath with audioPath as the only audio track,
// writing the result to destPath. The video stream is copied untouched and
// the output is cut at the shorter of the two inputs.
func (m *Muxer) ReplaceAudio(ctx context.Context, videoPath, audioPath, destPath string) error {
	if _, err := os.Stat(videoPath); err != nil {
		return services.Wrap(services.ErrMerge, "merging", "stat video", videoPath, err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return services.Wrap(services.ErrMerge, "merging", "stat audio", audioPath, err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-shortest",
		destPath,
	}
	if err := m.run(ctx, args...); err != nil {
		return services.Wrap(services.ErrMerge, "merging", "ffmpeg", "replace audio", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return services.Wrap(services.ErrMerge, "merging", "stat output", destPath, err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrMerge, "merging", "ffmpeg", "empty output file", nil)
	}
	return nil
}

func (m *Muxer) run(ctx context.Context, args ...string) error {
	if m.commandRunner != nil {
		return m.commandRunner(ctx, m.ffmpegBinary, args...)
	}
	cmd := exec.CommandContext(ctx, m.ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// HealthCheck verifies the ffmpeg binary is on PATH.
func (m *Muxer) HealthCheck() error {
	if _, err := exec.LookPath(m.ffmpegBinary); err != nil {
		return services.Wrap(services.ErrConfiguration, "merging", "lookup", m.ffmpegBinary, err)
	}
	return nil
}
