// Package chunkstore persists uploaded chunk bytes and assembles them
// into a final file. Local and S3 implementations share the same
// Backend contract so the upload coordinator never branches on which
// one is configured.
package chunkstore

import (
	"context"
	"errors"
	"io"
)

// ErrChunkNotFound names a requested chunk that was never written. The
// backends in this package do not return it: a missing chunk surfaces
// from Concatenate as the wrapped storage error.
var ErrChunkNotFound = errors.New("chunkstore: chunk not found")

// Backend stores individual chunks and assembles them into a final file.
// Implementations must be safe for concurrent use across file IDs;
// concurrent writes to distinct chunk indices of the same file are
// expected (chunks can arrive out of order and in parallel).
type Backend interface {
	// WriteChunk stores chunkIndex's bytes for fileID, overwriting any
	// prior write for the same index (a retried chunk upload).
	WriteChunk(ctx context.Context, fileID string, chunkIndex int, r io.Reader) (int64, error)

	// Concatenate assembles totalChunks chunks (indices 0..totalChunks-1)
	// for fileID, in order, into one final file named fileName and
	// returns its location. The assembly is atomic: a reader of the
	// destination path never observes a partially written file.
	Concatenate(ctx context.Context, fileID, fileName string, totalChunks int) (string, error)

	// Remove deletes every staged chunk for fileID. The assembled file,
	// which is stored under its file name rather than under fileID, is
	// not removed.
	Remove(ctx context.Context, fileID string) error

	// Open returns a reader over the assembled final file at location,
	// as returned by Concatenate.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}
