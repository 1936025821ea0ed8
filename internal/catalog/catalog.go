package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/bihari123/reelpick/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS video_chunk_data (
  file_id TEXT,
  total_chunks INTEGER NOT NULL,
  chunk_id INTEGER DEFAULT 0,
  chunk_locations TEXT,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  is_complete BOOLEAN DEFAULT FALSE,
  PRIMARY KEY (file_id, chunk_id)
);
CREATE TABLE IF NOT EXISTS video_final_data (
  file_id TEXT PRIMARY KEY,
  file_size INTEGER NOT NULL,
  file_locations TEXT,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Catalog is the Catalog Writer: durable, best-effort audit records of
// chunk arrivals and assembled files. Every operation here is allowed to
// fail without failing the upload response — callers should log and
// continue, never propagate these errors to the client.
type Catalog struct {
	pool *ConnPool
	log  *logger.Logger
}

// NewCatalog opens (creating if necessary) the SQLite catalog at path and
// ensures its schema exists.
func NewCatalog(path string, maxConns int, idleTimeout time.Duration, log *logger.Logger) (*Catalog, error) {
	pool := NewConnPool(path, maxConns, idleTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("catalog: acquire connection for schema init: %w", err)
	}
	_, err = conn.db.ExecContext(ctx, schema)
	pool.release(conn)
	if err != nil {
		return nil, fmt.Errorf("catalog: create schema: %w", err)
	}

	return &Catalog{pool: pool, log: log}, nil
}

// UpsertChunk records that chunk_id bytes for file_id have landed on
// disk at chunk_path. INSERT OR REPLACE semantics: a retried chunk
// simply overwrites its own row.
func (c *Catalog) UpsertChunk(ctx context.Context, fileID string, totalChunks, chunkID int, chunkPath string, isComplete bool) error {
	stmt, err := c.pool.Prepare(ctx, `
		INSERT OR REPLACE INTO video_chunk_data
			(file_id, total_chunks, chunk_id, chunk_locations, is_complete)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("catalog: prepare upsert_chunk: %w", err)
	}
	defer stmt.Close()

	stmt.BindText(1, []byte(fileID))
	stmt.BindInt(2, int64(totalChunks))
	stmt.BindInt(3, int64(chunkID))
	stmt.BindText(4, []byte(chunkPath))
	complete := int64(0)
	if isComplete {
		complete = 1
	}
	stmt.BindInt(5, complete)

	if _, err := stmt.Exec(ctx); err != nil {
		return fmt.Errorf("catalog: upsert_chunk: %w", err)
	}
	return nil
}

// UpsertFinal records the assembled file exactly once per successful
// assembly.
func (c *Catalog) UpsertFinal(ctx context.Context, fileID string, fileSize int64, fileLocation string) error {
	stmt, err := c.pool.Prepare(ctx, `
		INSERT OR REPLACE INTO video_final_data (file_id, file_size, file_locations)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("catalog: prepare upsert_final: %w", err)
	}
	defer stmt.Close()

	stmt.BindText(1, []byte(fileID))
	stmt.BindInt(2, fileSize)
	stmt.BindText(3, []byte(fileLocation))

	if _, err := stmt.Exec(ctx); err != nil {
		return fmt.Errorf("catalog: upsert_final: %w", err)
	}
	return nil
}

// Close shuts down the underlying connection pool.
func (c *Catalog) Close() error {
	return c.pool.Close()
}
