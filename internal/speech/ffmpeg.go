package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"go.uber.org/zap"
)

// FFmpegConverter shells out to ffmpeg for format conversion.
type FFmpegConverter struct {
	bin string
	log *zap.Logger
}

// NewFFmpegConverter creates a converter using the given ffmpeg binary.
func NewFFmpegConverter(bin string, log *zap.Logger) *FFmpegConverter {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegConverter{bin: bin, log: log}
}

// Convert re-encodes the input into 16 kHz mono WAV.
func (c *FFmpegConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, c.bin,
		"-y",
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		c.log.Warn("speech: ffmpeg failed",
			zap.String("input", inputPath),
			zap.String("stderr", tail(stderr.String(), 512)),
			zap.Error(err))
		return fmt.Errorf("%w: %v", errs.ErrConversionFailed, err)
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
