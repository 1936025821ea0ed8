package sessionstore

import (
	"context"
	"sync"
	"time"
)

// FakeStore is an in-process Store used by tests. It reproduces the same
// atomic apply-chunk semantics as RedisStore's Lua script (single
// critical section covering read, bit-check, mutate, write) without
// requiring a running Redis instance. It is deliberately NOT a stand-in
// for cross-replica correctness — it only proves the state machine logic
// that the Lua script also implements.
type FakeStore struct {
	mu       sync.Mutex
	sessions map[string]*UploadSession
}

func NewFakeStore() *FakeStore {
	return &FakeStore{sessions: make(map[string]*UploadSession)}
}

func (f *FakeStore) Create(_ context.Context, session *UploadSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.sessions[session.FileID]; exists {
		return ErrAlreadyExists
	}
	cp := *session
	cp.ChunkStatus = append(ChunkBitmap(nil), session.ChunkStatus...)
	f.sessions[session.FileID] = &cp
	return nil
}

func (f *FakeStore) Load(_ context.Context, fileID string) (*UploadSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[fileID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	cp.ChunkStatus = append(ChunkBitmap(nil), s.ChunkStatus...)
	return &cp, nil
}

func (f *FakeStore) ApplyChunk(_ context.Context, fileID string, chunkIndex int, chunkBytesLen int64) (*UploadSession, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[fileID]
	if !ok {
		return nil, false, ErrNotFound
	}
	if chunkIndex < 0 || chunkIndex >= s.TotalChunks {
		return nil, false, ErrChunkIndexOutOfRange
	}

	justCompleted := false
	if s.ChunkStatus.Set(chunkIndex) {
		s.UploadedChunks++
		s.UploadedSize += chunkBytesLen
		if s.UploadedChunks == s.TotalChunks {
			s.Status = StatusFinalizing
			justCompleted = true
		} else {
			s.Status = StatusUploading
		}
	}
	s.UpdatedAt = time.Now().Unix()

	cp := *s
	cp.ChunkStatus = append(ChunkBitmap(nil), s.ChunkStatus...)
	return &cp, justCompleted, nil
}

func (f *FakeStore) MarkFailed(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[fileID]
	if !ok {
		return ErrNotFound
	}
	s.Status = StatusFailed
	s.UpdatedAt = time.Now().Unix()
	return nil
}

func (f *FakeStore) Delete(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, fileID)
	return nil
}
