package chunkstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bihari123/reelpick/internal/logger"
)

func TestLocalBackend_WriteAndConcatenate(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocalBackend(dir, logger.New())
	require.NoError(t, err)

	ctx := context.Background()
	chunks := [][]byte{[]byte("hello "), []byte("world"), []byte("!")}

	for i, c := range chunks {
		n, err := b.WriteChunk(ctx, "f1", i, bytes.NewReader(c))
		require.NoError(t, err)
		assert.Equal(t, int64(len(c)), n)
	}

	location, err := b.Concatenate(ctx, "f1", "hello.txt", len(chunks))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hello.txt"), location)

	rc, err := b.Open(ctx, location)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", string(data))
}

func TestLocalBackend_WriteChunkOverwritesOnRetry(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocalBackend(dir, logger.New())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.WriteChunk(ctx, "f1", 0, bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	_, err = b.WriteChunk(ctx, "f1", 0, bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	location, err := b.Concatenate(ctx, "f1", "f1.bin", 1)
	require.NoError(t, err)
	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalBackend_ConcatenateLeavesNoPartFile(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocalBackend(dir, logger.New())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.WriteChunk(ctx, "f1", 0, bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	location, err := b.Concatenate(ctx, "f1", "f1.bin", 1)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".f1.bin.part"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalBackend_Remove(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocalBackend(dir, logger.New())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.WriteChunk(ctx, "f1", 0, bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	require.NoError(t, b.Remove(ctx, "f1"))

	_, err = os.Stat(filepath.Join(dir, "f1"))
	assert.True(t, os.IsNotExist(err))
}
