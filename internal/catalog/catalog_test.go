package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bihari123/reelpick/internal/logger"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, fmt.Sprintf("catalog-%d.db", rand.Int()))
	cat, err := NewCatalog(path, 4, time.Minute, logger.New())
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

func TestUpsertChunk_InsertOrReplace(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, cat.UpsertChunk(ctx, "file1", 3, 0, "/data/file1/chunk_0", false))
	require.NoError(t, cat.UpsertChunk(ctx, "file1", 3, 0, "/data/file1/chunk_0", true))

	conn, err := cat.pool.acquire()
	require.NoError(t, err)
	defer cat.pool.release(conn)

	var count int
	require.NoError(t, conn.db.QueryRow(
		"SELECT COUNT(*) FROM video_chunk_data WHERE file_id = ? AND chunk_id = ?", "file1", 0,
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpsertFinal(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, cat.UpsertFinal(ctx, "file1", 3_000_000, "/data/video.mp4"))

	conn, err := cat.pool.acquire()
	require.NoError(t, err)
	defer cat.pool.release(conn)

	var size int64
	var loc string
	require.NoError(t, conn.db.QueryRow(
		"SELECT file_size, file_locations FROM video_final_data WHERE file_id = ?", "file1",
	).Scan(&size, &loc))
	assert.Equal(t, int64(3_000_000), size)
	assert.Equal(t, "/data/video.mp4", loc)
}

// P7: the pool never exceeds max_connections live connections.
func TestPool_NeverExceedsMaxConnections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bound.db")
	pool := NewConnPool(path, 3, time.Minute)
	defer pool.Close()

	var wg sync.WaitGroup
	held := make(chan *pooledConn, 3)

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := pool.acquire()
			if err == nil {
				held <- c
			}
		}()
	}
	wg.Wait()
	close(held)

	for c := range held {
		_ = c
	}

	assert.LessOrEqual(t, pool.Live(), 3)

	_, err := pool.acquire()
	if pool.Live() >= 3 {
		assert.ErrorIs(t, err, ErrNoAvailableConnections)
	}
}

func TestPool_IdleReaperKeepsOneAlive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reap.db")
	pool := NewConnPool(path, 4, time.Millisecond)
	defer pool.Close()

	c1, err := pool.acquire()
	require.NoError(t, err)
	pool.release(c1)

	time.Sleep(5 * time.Millisecond)

	c2, err := pool.acquire()
	require.NoError(t, err)
	pool.release(c2)

	assert.GreaterOrEqual(t, pool.Live(), 1)
}

var _ = sql.ErrNoRows
