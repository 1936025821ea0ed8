// Package sessionstore provides atomic, cross-replica access to the
// per-upload session record that backs the chunked-upload protocol. All
// mutable upload state lives here so that any backend replica can accept
// any chunk for any file.
package sessionstore

import (
	"encoding/json"
	"fmt"
)

// Status is the upload session's state-machine tag. It moves on the wire
// as a string but is handled internally as a closed set of values.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusUploading     Status = "uploading"
	StatusFinalizing    Status = "finalizing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// ChunkBitmap tracks which chunk indices have been received. It is
// transported as a byte string of '0'/'1' characters rather than a JSON
// array of booleans so wire size stays linear in total_chunks.
type ChunkBitmap []byte

// NewChunkBitmap allocates a bitmap of the given length, all unset.
func NewChunkBitmap(totalChunks int) ChunkBitmap {
	b := make(ChunkBitmap, totalChunks)
	for i := range b {
		b[i] = '0'
	}
	return b
}

// IsSet reports whether bit i has been received.
func (b ChunkBitmap) IsSet(i int) bool {
	if i < 0 || i >= len(b) {
		return false
	}
	return b[i] == '1'
}

// Set marks bit i received, returning whether it changed anything
// (false means the bit was already set — the idempotent case).
func (b ChunkBitmap) Set(i int) bool {
	if i < 0 || i >= len(b) {
		return false
	}
	if b[i] == '1' {
		return false
	}
	b[i] = '1'
	return true
}

// Popcount returns the number of set bits.
func (b ChunkBitmap) Popcount() int {
	n := 0
	for _, c := range b {
		if c == '1' {
			n++
		}
	}
	return n
}

func (b ChunkBitmap) String() string { return string(b) }

// UploadSession is the central entity of the protocol: the server-side
// record tracking progress of one file upload. All fields round-trip
// through MarshalJSON/UnmarshalJSON so the store can treat a session as an
// opaque document.
type UploadSession struct {
	FileID      string      `json:"file_id"`
	FileName    string      `json:"file_name"`
	TotalSize   int64       `json:"total_size"`
	ChunkSize   int64       `json:"chunk_size"`
	TotalChunks int         `json:"total_chunks"`

	UploadedChunks int         `json:"uploaded_chunks"`
	UploadedSize   int64       `json:"uploaded_size"`
	ChunkStatus    ChunkBitmap `json:"chunk_status"`

	Status Status `json:"status"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// sessionWire is the on-the-wire shape: chunk_status travels as a plain
// string of '0'/'1' characters, matching spec's "not a JSON array of
// booleans" requirement.
type sessionWire struct {
	FileID         string `json:"file_id"`
	FileName       string `json:"file_name"`
	TotalSize      int64  `json:"total_size"`
	ChunkSize      int64  `json:"chunk_size"`
	TotalChunks    int    `json:"total_chunks"`
	UploadedChunks int    `json:"uploaded_chunks"`
	UploadedSize   int64  `json:"uploaded_size"`
	ChunkStatus    string `json:"chunk_status"`
	Status         Status `json:"status"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// MarshalJSON implements stable, linear-size session serialization.
func (s UploadSession) MarshalJSON() ([]byte, error) {
	w := sessionWire{
		FileID:         s.FileID,
		FileName:       s.FileName,
		TotalSize:      s.TotalSize,
		ChunkSize:      s.ChunkSize,
		TotalChunks:    s.TotalChunks,
		UploadedChunks: s.UploadedChunks,
		UploadedSize:   s.UploadedSize,
		ChunkStatus:    s.ChunkStatus.String(),
		Status:         s.Status,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	return json.Marshal(w)
}

// UnmarshalJSON reconstructs a session from its wire form, validating that
// the bitmap length agrees with total_chunks.
func (s *UploadSession) UnmarshalJSON(data []byte) error {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: decode session: %v", ErrCorrupt, err)
	}
	if len(w.ChunkStatus) != w.TotalChunks {
		return fmt.Errorf("%w: chunk_status length %d != total_chunks %d", ErrCorrupt, len(w.ChunkStatus), w.TotalChunks)
	}
	s.FileID = w.FileID
	s.FileName = w.FileName
	s.TotalSize = w.TotalSize
	s.ChunkSize = w.ChunkSize
	s.TotalChunks = w.TotalChunks
	s.UploadedChunks = w.UploadedChunks
	s.UploadedSize = w.UploadedSize
	s.ChunkStatus = ChunkBitmap(w.ChunkStatus)
	s.Status = w.Status
	s.CreatedAt = w.CreatedAt
	s.UpdatedAt = w.UpdatedAt
	return nil
}

// Progress returns floor(100 * uploaded_size / total_size), the percentage
// reported on chunk and status responses.
func (s UploadSession) Progress() int {
	if s.TotalSize <= 0 {
		return 0
	}
	return int(100 * s.UploadedSize / s.TotalSize)
}
