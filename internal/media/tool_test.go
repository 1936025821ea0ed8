package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bihari123/reelpick/internal/logger"
)

// fakeTool writes a shell script that stands in for the media binary,
// so these tests exercise argv construction and error propagation
// without depending on a real ffmpeg install.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-media-tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestTrim_RejectsNonPositiveDuration(t *testing.T) {
	tool := NewTool(fakeTool(t, "exit 0"), logger.New())
	err := tool.Trim(context.Background(), "in.mp4", 0, 0, "out.mp4")
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestTrim_RejectsTooLongDuration(t *testing.T) {
	tool := NewTool(fakeTool(t, "exit 0"), logger.New())
	err := tool.Trim(context.Background(), "in.mp4", 0, MaxTrimDuration+1, "out.mp4")
	assert.ErrorIs(t, err, ErrDurationTooLong)
}

func TestTrim_RejectsRangeBeyondProbedDuration(t *testing.T) {
	tool := NewTool(fakeTool(t, `echo "10.0"`), logger.New())
	err := tool.Trim(context.Background(), "in.mp4", 5, 10, "out.mp4")
	assert.ErrorIs(t, err, ErrInvalidTrimRange)
}

func TestTrim_PropagatesProbeFailure(t *testing.T) {
	tool := NewTool(fakeTool(t, "exit 1"), logger.New())
	err := tool.Trim(context.Background(), "in.mp4", 0, 5, "out.mp4")
	assert.ErrorIs(t, err, ErrVideoInfoError)
}

func TestTrim_Success(t *testing.T) {
	tool := NewTool(fakeTool(t, `
if [ "$1" = "-i" ] && [ "$3" = "-show_entries" ]; then
  echo "100.0"
  exit 0
fi
exit 0
`), logger.New())
	err := tool.Trim(context.Background(), "in.mp4", 0, 5, "out.mp4")
	assert.NoError(t, err)
}

func TestTrim_ToolExitNonZeroSurfacesTrimError(t *testing.T) {
	tool := NewTool(fakeTool(t, `
if [ "$3" = "-show_entries" ]; then
  echo "100.0"
  exit 0
fi
exit 7
`), logger.New())
	err := tool.Trim(context.Background(), "in.mp4", 0, 5, "out.mp4")
	assert.ErrorIs(t, err, ErrTrimError)
}

func TestJoin_RequiresAtLeastTwoParts(t *testing.T) {
	tool := NewTool(fakeTool(t, "exit 0"), logger.New())
	err := tool.Join(context.Background(), []string{"a.mp4"}, "out.mp4")
	assert.ErrorIs(t, err, ErrJoinError)
}

func TestJoin_Success(t *testing.T) {
	tool := NewTool(fakeTool(t, "exit 0"), logger.New())
	err := tool.Join(context.Background(), []string{"a.mp4", "b.mp4"}, "out.mp4")
	assert.NoError(t, err)
}

func TestJoin_ToolExitNonZeroSurfacesJoinError(t *testing.T) {
	tool := NewTool(fakeTool(t, "exit 3"), logger.New())
	err := tool.Join(context.Background(), []string{"a.mp4", "b.mp4"}, "out.mp4")
	assert.ErrorIs(t, err, ErrJoinError)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:05", formatTimestamp(5))
	assert.Equal(t, "01:01:01", formatTimestamp(3661))
}
