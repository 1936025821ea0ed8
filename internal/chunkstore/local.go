package chunkstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bihari123/reelpick/internal/logger"
)

// LocalBackend stores chunks and assembled files on a shared filesystem
// volume rooted at Dir. Every replica of the upload service must mount
// the same volume at the same path — this is the "shared filesystem"
// deployment this backend requires; use the S3 backend instead for
// replicas that don't share a filesystem.
type LocalBackend struct {
	dir string
	log *logger.Logger
}

// NewLocalBackend roots a backend at dir, creating it if necessary.
func NewLocalBackend(dir string, log *logger.Logger) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chunkstore: create root dir: %w", err)
	}
	return &LocalBackend{dir: dir, log: log}, nil
}

func (b *LocalBackend) fileDir(fileID string) string {
	return filepath.Join(b.dir, fileID)
}

func (b *LocalBackend) chunkPath(fileID string, chunkIndex int) string {
	return filepath.Join(b.fileDir(fileID), fmt.Sprintf("chunk_%d", chunkIndex))
}

func (b *LocalBackend) finalPath(fileName string) string {
	return filepath.Join(b.dir, fileName)
}

// WriteChunk writes chunkIndex's bytes to its own file under the file's
// staging directory. A retried chunk simply overwrites the same path.
func (b *LocalBackend) WriteChunk(ctx context.Context, fileID string, chunkIndex int, r io.Reader) (int64, error) {
	if err := os.MkdirAll(b.fileDir(fileID), 0o755); err != nil {
		return 0, fmt.Errorf("chunkstore: create staging dir: %w", err)
	}

	path := b.chunkPath(fileID, chunkIndex)
	tmp := path + ".part"

	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("chunkstore: create chunk file: %w", err)
	}

	n, err := io.Copy(f, r)
	closeErr := f.Close()
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("chunkstore: write chunk: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("chunkstore: close chunk file: %w", closeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("chunkstore: finalize chunk file: %w", err)
	}

	return n, nil
}

// Concatenate reads chunks 0..totalChunks-1 in order into a temporary
// sibling file, then renames it into place. The rename is atomic on a
// POSIX filesystem, so no reader of finalPath ever observes a partial
// write, whether or not the underlying volume survives a crash
// mid-assembly.
func (b *LocalBackend) Concatenate(ctx context.Context, fileID, fileName string, totalChunks int) (string, error) {
	final := b.finalPath(fileName)
	tmp := filepath.Join(filepath.Dir(final), "."+filepath.Base(final)+".part")

	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("chunkstore: create assembly file: %w", err)
	}

	for i := 0; i < totalChunks; i++ {
		if err := ctx.Err(); err != nil {
			out.Close()
			os.Remove(tmp)
			return "", err
		}

		in, err := os.Open(b.chunkPath(fileID, i))
		if err != nil {
			out.Close()
			os.Remove(tmp)
			return "", fmt.Errorf("chunkstore: open chunk %d: %w", i, err)
		}
		_, copyErr := io.Copy(out, in)
		in.Close()
		if copyErr != nil {
			out.Close()
			os.Remove(tmp)
			return "", fmt.Errorf("chunkstore: append chunk %d: %w", i, copyErr)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("chunkstore: close assembly file: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("chunkstore: finalize assembly: %w", err)
	}

	for i := 0; i < totalChunks; i++ {
		os.Remove(b.chunkPath(fileID, i))
	}

	return final, nil
}

// Remove deletes the entire staging directory for fileID. The assembled
// file lives outside it, at <dir>/<fileName>, and is left in place.
func (b *LocalBackend) Remove(ctx context.Context, fileID string) error {
	if err := os.RemoveAll(b.fileDir(fileID)); err != nil {
		return fmt.Errorf("chunkstore: remove file dir: %w", err)
	}
	return nil
}

// Open opens the assembled file at location for reading.
func (b *LocalBackend) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: open assembled file: %w", err)
	}
	return f, nil
}
