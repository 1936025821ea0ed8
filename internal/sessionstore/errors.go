package sessionstore

import "errors"

var (
	// ErrAlreadyExists is returned by Create when the file_id key is
	// already present.
	ErrAlreadyExists = errors.New("sessionstore: session already exists")

	// ErrNotFound is returned by Load/ApplyChunk/MarkFailed when the key
	// is absent. Delete is idempotent and does not return it.
	ErrNotFound = errors.New("sessionstore: session not found")

	// ErrCorrupt is returned when a stored payload cannot be decoded into
	// a well-formed UploadSession.
	ErrCorrupt = errors.New("sessionstore: stored session is corrupt")

	// ErrChunkIndexOutOfRange is returned by ApplyChunk for an index >=
	// total_chunks.
	ErrChunkIndexOutOfRange = errors.New("sessionstore: chunk index out of range")

	// ErrTerminal names a mutation attempted against a session already in
	// a terminal state (completed/failed). Neither FakeStore nor
	// RedisStore returns it: ApplyChunk and MarkFailed do not check the
	// session's current status.
	ErrTerminal = errors.New("sessionstore: session is in a terminal state")
)
