package upload

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bihari123/reelpick/internal/catalog"
	"github.com/bihari123/reelpick/internal/chunkstore"
	"github.com/bihari123/reelpick/internal/logger"
	"github.com/bihari123/reelpick/internal/searchindex"
	"github.com/bihari123/reelpick/internal/sessionstore"
)

func newTestCoordinator(t *testing.T) (*Coordinator, string) {
	t.Helper()
	log := logger.New()

	dir := t.TempDir()
	chunks, err := chunkstore.NewLocalBackend(filepath.Join(dir, "uploads"), log)
	require.NoError(t, err)

	catPath := filepath.Join(dir, fmt.Sprintf("catalog-%d.db", rand.Int()))
	cat, err := catalog.NewCatalog(catPath, 4, time.Minute, log)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	index := searchindex.NewIndexer("", time.Second, log) // no-op, no endpoint configured

	coord := NewCoordinator(sessionstore.NewFakeStore(), cat, index, chunks, log)
	return coord, dir
}

func readFinal(t *testing.T, dir, fileName string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "uploads", fileName))
	require.NoError(t, err)
	return data
}

// Scenario 1: happy single-chunk.
func TestCoordinator_HappySingleChunk(t *testing.T) {
	coord, dir := newTestCoordinator(t)
	ctx := context.Background()

	init, err := coord.Initialize(ctx, "a.txt", 500)
	require.NoError(t, err)
	assert.Equal(t, 1, init.TotalChunks)
	assert.Equal(t, ChunkSize, init.ChunkSize)

	body := bytes.Repeat([]byte("x"), 500)
	res, err := coord.Chunk(ctx, init.FileID, 0, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, int64(500), res.UploadedSize)

	data := readFinal(t, dir, "a.txt")
	assert.Len(t, data, 500)

	_, err = coord.Status(ctx, init.FileID)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

// Scenario 2: happy multi-chunk, in order.
func TestCoordinator_HappyMultiChunkInOrder(t *testing.T) {
	coord, dir := newTestCoordinator(t)
	ctx := context.Background()

	const fileSize = 3_000_000
	init, err := coord.Initialize(ctx, "video.mp4", fileSize)
	require.NoError(t, err)
	require.Equal(t, 3, init.TotalChunks)

	chunkBytes := [][]byte{
		bytes.Repeat([]byte{0xAA}, ChunkSize),
		bytes.Repeat([]byte{0xBB}, ChunkSize),
		bytes.Repeat([]byte{0xCC}, fileSize-2*ChunkSize),
	}

	for i, c := range chunkBytes {
		res, err := coord.Chunk(ctx, init.FileID, i, bytes.NewReader(c))
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, "uploading", res.Status)
		}
	}

	data := readFinal(t, dir, "video.mp4")
	assert.Len(t, data, fileSize)
	assert.True(t, bytes.Equal(data[:ChunkSize], chunkBytes[0]))
	assert.True(t, bytes.Equal(data[ChunkSize:2*ChunkSize], chunkBytes[1]))
	assert.True(t, bytes.Equal(data[2*ChunkSize:], chunkBytes[2]))
}

// Scenario 3: out-of-order and concurrent chunk delivery still
// assembles correctly, exactly once.
func TestCoordinator_OutOfOrderConcurrent(t *testing.T) {
	coord, dir := newTestCoordinator(t)
	ctx := context.Background()

	const fileSize = 3_000_000
	init, err := coord.Initialize(ctx, "video.mp4", fileSize)
	require.NoError(t, err)

	chunkBytes := [][]byte{
		bytes.Repeat([]byte{0x01}, ChunkSize),
		bytes.Repeat([]byte{0x02}, ChunkSize),
		bytes.Repeat([]byte{0x03}, fileSize-2*ChunkSize),
	}

	order := []int{2, 0, 1}
	var wg sync.WaitGroup
	var mu sync.Mutex
	completions := 0

	for _, idx := range order {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := coord.Chunk(ctx, init.FileID, i, bytes.NewReader(chunkBytes[i]))
			require.NoError(t, err)
			if res.Status == "completed" {
				mu.Lock()
				completions++
				mu.Unlock()
			}
		}(idx)
	}
	wg.Wait()

	assert.Equal(t, 1, completions)

	data := readFinal(t, dir, "video.mp4")
	assert.Len(t, data, fileSize)
	assert.True(t, bytes.Equal(data[:ChunkSize], chunkBytes[0]))
	assert.True(t, bytes.Equal(data[ChunkSize:2*ChunkSize], chunkBytes[1]))
	assert.True(t, bytes.Equal(data[2*ChunkSize:], chunkBytes[2]))
}

// Scenario 4: duplicate chunk delivery does not double-count.
func TestCoordinator_DuplicateChunk(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	init, err := coord.Initialize(ctx, "video.mp4", 2_000_000)
	require.NoError(t, err)

	body := bytes.Repeat([]byte{0x9}, ChunkSize)
	res1, err := coord.Chunk(ctx, init.FileID, 0, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, int64(ChunkSize), res1.UploadedSize)

	res2, err := coord.Chunk(ctx, init.FileID, 0, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, res1.UploadedSize, res2.UploadedSize)

	st, err := coord.Status(ctx, init.FileID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.UploadedChunks)
}

// Scenario 5: file too large is rejected before any session is created.
func TestCoordinator_FileTooLarge(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coord.Initialize(ctx, "huge.mp4", 1001*1024*1024)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

// Scenario 7: a session-store failure surfaces as an error; a retry
// after recovery succeeds. Simulated here via out-of-range index
// rejecting before any store mutation, and a subsequent valid retry.
func TestCoordinator_RetryAfterRejectedChunk(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	init, err := coord.Initialize(ctx, "a.txt", 500)
	require.NoError(t, err)

	_, err = coord.Chunk(ctx, init.FileID, 5, bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, ErrInvalidRequestBody)

	res, err := coord.Chunk(ctx, init.FileID, 0, bytes.NewReader(bytes.Repeat([]byte("x"), 500)))
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Status)
}

func TestCoordinator_ChunkUnknownSession(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	_, err := coord.Chunk(context.Background(), "does-not-exist", 0, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestCoordinator_Abort(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	init, err := coord.Initialize(ctx, "a.txt", 500)
	require.NoError(t, err)

	require.NoError(t, coord.Abort(ctx, init.FileID))

	_, err = coord.Status(ctx, init.FileID)
	assert.ErrorIs(t, err, ErrInvalidSession)
}
