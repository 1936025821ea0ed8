// Package upload implements the session-coordinated chunked-upload
// protocol state machine. The coordinator itself holds no per-upload
// state in replica memory — every mutation goes through the session
// store, which is what lets any replica accept any chunk for any file.
package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/bihari123/reelpick/internal/catalog"
	"github.com/bihari123/reelpick/internal/chunkstore"
	"github.com/bihari123/reelpick/internal/logger"
	"github.com/bihari123/reelpick/internal/searchindex"
	"github.com/bihari123/reelpick/internal/sessionstore"
)

const (
	// ChunkSize is the server-chosen fixed chunk length, 1 MiB.
	ChunkSize = 1 << 20
	// MaxFileSize is the largest file the service accepts, 1000 MiB.
	MaxFileSize = 1000 << 20

	createRetries = 3
)

// InitResult is the response body for a successful initialize call.
type InitResult struct {
	FileID      string `json:"fileId"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	TotalChunks int    `json:"totalChunks"`
	ChunkSize   int    `json:"chunkSize"`
}

// ChunkResult is the response body for a successful chunk call.
type ChunkResult struct {
	Received    bool   `json:"received"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	UploadedSize int64 `json:"uploadedSize"`
	TotalSize   int64  `json:"totalSize"`
	Message     string `json:"message"`
}

// StatusResult is the response body for a status query.
type StatusResult struct {
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	UploadedSize   int64  `json:"uploadedSize"`
	TotalSize      int64  `json:"totalSize"`
	TotalChunks    int    `json:"totalChunks"`
	UploadedChunks int    `json:"uploadedChunks"`
}

// Coordinator is the protocol state machine described in the upload
// coordinator design: it composes the session store, catalog, search
// indexer and chunk store, and holds no per-upload memory of its own.
type Coordinator struct {
	sessions sessionstore.Store
	catalog  *catalog.Catalog
	index    *searchindex.Indexer
	chunks   chunkstore.Backend
	log      *logger.Logger
}

// NewCoordinator wires the four leaf components into a coordinator.
func NewCoordinator(sessions sessionstore.Store, cat *catalog.Catalog, index *searchindex.Indexer, chunks chunkstore.Backend, log *logger.Logger) *Coordinator {
	return &Coordinator{sessions: sessions, catalog: cat, index: index, chunks: chunks, log: log}
}

func generateFileID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Initialize creates a new upload session. The client's totalChunks hint
// is never trusted; totalChunks is always recomputed from fileSize and
// the server's fixed ChunkSize.
func (c *Coordinator) Initialize(ctx context.Context, fileName string, fileSize int64) (*InitResult, error) {
	if fileSize > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if fileSize <= 0 || fileName == "" {
		return nil, ErrInvalidRequestBody
	}

	totalChunks := int(math.Ceil(float64(fileSize) / float64(ChunkSize)))
	if totalChunks < 1 {
		totalChunks = 1
	}

	var fileID string
	for attempt := 0; ; attempt++ {
		id, err := generateFileID()
		if err != nil {
			return nil, fmt.Errorf("%w: generate file id: %v", ErrInternal, err)
		}

		session := &sessionstore.UploadSession{
			FileID:      id,
			FileName:    fileName,
			TotalSize:   fileSize,
			ChunkSize:   ChunkSize,
			TotalChunks: totalChunks,
			ChunkStatus: sessionstore.NewChunkBitmap(totalChunks),
			Status:      sessionstore.StatusInitializing,
		}

		err = c.sessions.Create(ctx, session)
		if err == nil {
			fileID = id
			break
		}
		if !errors.Is(err, sessionstore.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: create session: %v", ErrSessionStoreDown, err)
		}
		if attempt >= createRetries-1 {
			return nil, fmt.Errorf("%w: exhausted file id retries", ErrInternal)
		}
	}

	c.index.Index(ctx, searchindex.Document{
		ID:        fileID,
		Action:    "initialize_upload",
		FileName:  fileName,
		Directory: fileID,
		FileSize:  fileSize,
	})

	return &InitResult{
		FileID:      fileID,
		FileName:    fileName,
		FileSize:    fileSize,
		TotalChunks: totalChunks,
		ChunkSize:   ChunkSize,
	}, nil
}

// Chunk accepts one chunk's bytes for an in-progress upload. If this
// call is the one that completes the session (JustCompleted==true from
// the session store), this replica performs assembly synchronously
// before returning.
func (c *Coordinator) Chunk(ctx context.Context, fileID string, chunkIndex int, body io.Reader) (*ChunkResult, error) {
	session, err := c.sessions.Load(ctx, fileID)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("%w: load session: %v", ErrSessionStoreDown, err)
	}

	if chunkIndex < 0 || chunkIndex >= session.TotalChunks {
		return nil, ErrInvalidRequestBody
	}

	n, err := c.chunks.WriteChunk(ctx, fileID, chunkIndex, body)
	if err != nil {
		return nil, fmt.Errorf("%w: write chunk: %v", ErrInternal, err)
	}

	if err := c.catalog.UpsertChunk(ctx, fileID, session.TotalChunks, chunkIndex, chunkPath(fileID, chunkIndex), false); err != nil {
		c.log.Error("upload: catalog upsert_chunk failed for %s[%d]: %v", fileID, chunkIndex, err)
	}

	updated, justCompleted, err := c.sessions.ApplyChunk(ctx, fileID, chunkIndex, n)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		if errors.Is(err, sessionstore.ErrChunkIndexOutOfRange) {
			return nil, ErrInvalidRequestBody
		}
		return nil, fmt.Errorf("%w: apply_chunk: %v", ErrSessionStoreDown, err)
	}

	c.index.Index(ctx, searchindex.Document{
		ID:         fmt.Sprintf("%s_%d", fileID, chunkIndex),
		Action:     "chunk_upload",
		FileName:   updated.FileName,
		ChunkPath:  chunkPath(fileID, chunkIndex),
		ChunkIndex: chunkIndex,
	})

	status := string(updated.Status)
	message := "chunk received"

	if justCompleted {
		if err := c.assemble(ctx, updated); err != nil {
			c.log.Error("upload: assembly failed for %s: %v", fileID, err)
			if markErr := c.sessions.MarkFailed(ctx, fileID); markErr != nil {
				c.log.Error("upload: mark session failed for %s: %v", fileID, markErr)
			}
			return nil, fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
		}
		status = string(sessionstore.StatusCompleted)
		message = "upload complete"
	}

	return &ChunkResult{
		Received:     true,
		Status:       status,
		Progress:     updated.Progress(),
		UploadedSize: updated.UploadedSize,
		TotalSize:    updated.TotalSize,
		Message:      message,
	}, nil
}

// Status returns a read-only snapshot of an upload's progress.
func (c *Coordinator) Status(ctx context.Context, fileID string) (*StatusResult, error) {
	session, err := c.sessions.Load(ctx, fileID)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("%w: load session: %v", ErrSessionStoreDown, err)
	}

	return &StatusResult{
		Status:         string(session.Status),
		Progress:       session.Progress(),
		UploadedSize:   session.UploadedSize,
		TotalSize:      session.TotalSize,
		TotalChunks:    session.TotalChunks,
		UploadedChunks: session.UploadedChunks,
	}, nil
}

// Abort deletes an in-progress session and its staged chunks. This is a
// supplemented operation (DELETE /api/upload/:fileId): not part of the
// original protocol's three core calls, but a natural complement to
// List for a client that wants to cancel cleanly.
func (c *Coordinator) Abort(ctx context.Context, fileID string) error {
	if err := c.chunks.Remove(ctx, fileID); err != nil {
		c.log.Error("upload: remove staging dir for aborted upload %s: %v", fileID, err)
	}
	if err := c.sessions.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("%w: delete session: %v", ErrSessionStoreDown, err)
	}
	return nil
}

// assemble performs finalization on the replica that won the
// JustCompleted election: concatenate chunks, record the final row,
// index the completion event, and free transient state.
func (c *Coordinator) assemble(ctx context.Context, session *sessionstore.UploadSession) error {
	location, err := c.chunks.Concatenate(ctx, session.FileID, session.FileName, session.TotalChunks)
	if err != nil {
		return fmt.Errorf("concatenate chunks: %w", err)
	}

	if err := c.catalog.UpsertFinal(ctx, session.FileID, session.TotalSize, location); err != nil {
		c.log.Error("upload: catalog upsert_final failed for %s: %v", session.FileID, err)
	}

	c.index.Index(ctx, searchindex.Document{
		ID:          session.FileID,
		Action:      "complete_upload",
		FileName:    session.FileName,
		Directory:   session.FileID,
		FileSize:    session.TotalSize,
		TotalChunks: session.TotalChunks,
	})

	if err := c.chunks.Remove(ctx, session.FileID); err != nil {
		c.log.Error("upload: remove staging dir after assembly for %s: %v", session.FileID, err)
	}

	if err := c.sessions.Delete(ctx, session.FileID); err != nil {
		c.log.Error("upload: delete session after assembly for %s: %v", session.FileID, err)
	}

	return nil
}

func chunkPath(fileID string, chunkIndex int) string {
	return filepath.Join(fileID, fmt.Sprintf("chunk_%d", chunkIndex))
}
