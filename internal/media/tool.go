// Package media invokes an external media-processing tool (ffmpeg or
// compatible) for the trim and join video operations. The tool itself is
// out of scope; this package only specifies the argv it is called with
// and how a non-zero exit is surfaced.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/bihari123/reelpick/internal/logger"
)

// MaxTrimDuration is the largest trim duration accepted, in seconds.
const MaxTrimDuration = 3600

var (
	ErrInvalidDuration   = errors.New("media: duration must be positive")
	ErrDurationTooLong   = errors.New("media: duration exceeds maximum")
	ErrInvalidTrimRange  = errors.New("media: start+duration exceeds video length")
	ErrVideoInfoError    = errors.New("media: failed to probe video duration")
	ErrTrimError         = errors.New("media: trim tool exited with error")
	ErrJoinError         = errors.New("media: join tool exited with error")
)

// Tool wraps calls to the external media-processing binary.
type Tool struct {
	binPath string
	log     *logger.Logger
}

// NewTool points at the media tool binary (commonly ffmpeg) at binPath.
func NewTool(binPath string, log *logger.Logger) *Tool {
	return &Tool{binPath: binPath, log: log}
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Probe returns a video file's duration in seconds by invoking the tool's
// own probing mode (ffprobe-compatible: "-i <file>" output parsing is
// tool-specific; here we shell out to a format-duration query).
func (t *Tool) Probe(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.binPath, "-i", path, "-show_entries", "format=duration",
		"-v", "quiet", "-of", "csv=p=0")
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrVideoInfoError, err)
	}

	duration, err := strconv.ParseFloat(trimNewline(out), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse duration: %v", ErrVideoInfoError, err)
	}
	return duration, nil
}

func trimNewline(b []byte) string {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return string(b)
}

// Trim extracts [start, start+duration) from input into output. Both
// start and duration are seconds; duration must be positive, at most
// MaxTrimDuration, and start+duration must not exceed the probed video
// length.
func (t *Tool) Trim(ctx context.Context, input string, start, duration float64, output string) error {
	if duration <= 0 {
		return ErrInvalidDuration
	}
	if duration > MaxTrimDuration {
		return ErrDurationTooLong
	}

	total, err := t.Probe(ctx, input)
	if err != nil {
		return err
	}
	if start+duration > total {
		return ErrInvalidTrimRange
	}

	args := []string{
		"-i", input,
		"-ss", formatTimestamp(start),
		"-t", formatTimestamp(duration),
		"-c", "copy",
		output,
	}

	cmd := exec.CommandContext(ctx, t.binPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.log.Error("media: trim failed: %v, output: %s", err, string(out))
		return fmt.Errorf("%w: %v", ErrTrimError, err)
	}
	return nil
}

// Join concatenates parts (in order) into output using a generated
// concat-list file, the standard way ffmpeg-family tools join files
// without re-encoding.
func (t *Tool) Join(ctx context.Context, parts []string, output string) error {
	if len(parts) < 2 {
		return fmt.Errorf("%w: at least two parts required", ErrJoinError)
	}

	listFile, err := os.CreateTemp("", "join-*.txt")
	if err != nil {
		return fmt.Errorf("%w: create concat list: %v", ErrJoinError, err)
	}
	defer os.Remove(listFile.Name())

	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			listFile.Close()
			return fmt.Errorf("%w: resolve part path: %v", ErrJoinError, err)
		}
		if _, err := fmt.Fprintf(listFile, "file '%s'\n", abs); err != nil {
			listFile.Close()
			return fmt.Errorf("%w: write concat list: %v", ErrJoinError, err)
		}
	}
	if err := listFile.Close(); err != nil {
		return fmt.Errorf("%w: close concat list: %v", ErrJoinError, err)
	}

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile.Name(),
		"-c", "copy",
		output,
	}

	cmd := exec.CommandContext(ctx, t.binPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.log.Error("media: join failed: %v, output: %s", err, string(out))
		return fmt.Errorf("%w: %v", ErrJoinError, err)
	}
	return nil
}
