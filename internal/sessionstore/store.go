package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bihari123/reelpick/internal/logger"
)

// Store is the Session Store Adapter contract: atomic session operations
// over a shared KV store keyed by "<prefix><file_id>".
type Store interface {
	Create(ctx context.Context, session *UploadSession) error
	Load(ctx context.Context, fileID string) (*UploadSession, error)
	ApplyChunk(ctx context.Context, fileID string, chunkIndex int, chunkBytesLen int64) (session *UploadSession, justCompleted bool, err error)
	// MarkFailed transitions fileID's session to the terminal failed
	// status. Per the assembly-error contract, a failed session is kept
	// around (not deleted) so status polls keep reporting it.
	MarkFailed(ctx context.Context, fileID string) error
	Delete(ctx context.Context, fileID string) error
}

// applyChunkScript runs entirely inside Redis's single-threaded command
// execution, so concurrent callers across replicas serialize on the
// script rather than racing a client-side read-modify-write. This is the
// atomicity primitive chosen to replace a racy fetch-then-set sequence.
const applyChunkScript = `
local raw = redis.call('GET', KEYS[1])
if raw == false then
  return redis.error_reply('NOTFOUND')
end
local session = cjson.decode(raw)
local idx = tonumber(ARGV[1]) + 1
if idx > session.total_chunks or idx < 1 then
  return redis.error_reply('OUTOFRANGE')
end
local just_completed = 0
local bit = string.sub(session.chunk_status, idx, idx)
if bit ~= '1' then
  session.chunk_status = string.sub(session.chunk_status, 1, idx - 1) .. '1' .. string.sub(session.chunk_status, idx + 1)
  session.uploaded_chunks = session.uploaded_chunks + 1
  session.uploaded_size = session.uploaded_size + tonumber(ARGV[2])
  if session.uploaded_chunks == session.total_chunks then
    session.status = 'finalizing'
    just_completed = 1
  else
    session.status = 'uploading'
  end
end
session.updated_at = tonumber(ARGV[3])
local encoded = cjson.encode(session)
redis.call('SET', KEYS[1], encoded, 'KEEPTTL')
return {encoded, just_completed}
`

// markFailedScript is a terminal, one-way transition: it never races
// ApplyChunk for the same session because by the time assembly runs,
// every chunk slot has already been claimed.
const markFailedScript = `
local raw = redis.call('GET', KEYS[1])
if raw == false then
  return redis.error_reply('NOTFOUND')
end
local session = cjson.decode(raw)
session.status = 'failed'
session.updated_at = tonumber(ARGV[1])
redis.call('SET', KEYS[1], cjson.encode(session), 'KEEPTTL')
return 'OK'
`

// RedisStore is the Session Store Adapter, grounded on the teacher's
// internal/cache/redis_client.go wrapper: a single *redis.Client, typed
// JSON marshal/unmarshal, sentinel errors instead of leaking driver
// errors to callers.
type RedisStore struct {
	client         *redis.Client
	script         *redis.Script
	markFailed     *redis.Script
	keyPrefix      string
	ttl            time.Duration
	log            *logger.Logger
}

// NewRedisStore parses redisURL (the same redis.ParseURL convention the
// teacher uses) and returns a ready Store.
func NewRedisStore(redisURL, keyPrefix string, ttl time.Duration, log *logger.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("sessionstore: connect to redis: %w", err)
	}

	if keyPrefix == "" {
		keyPrefix = "upload:"
	}

	return &RedisStore{
		client:     client,
		script:     redis.NewScript(applyChunkScript),
		markFailed: redis.NewScript(markFailedScript),
		keyPrefix:  keyPrefix,
		ttl:        ttl,
		log:        log,
	}, nil
}

func (s *RedisStore) key(fileID string) string {
	return s.keyPrefix + fileID
}

func (s *RedisStore) Create(ctx context.Context, session *UploadSession) error {
	data, err := session.MarshalJSON()
	if err != nil {
		return fmt.Errorf("sessionstore: marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(session.FileID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("sessionstore: create session: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, fileID string) (*UploadSession, error) {
	raw, err := s.client.Get(ctx, s.key(fileID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sessionstore: load session: %w", err)
	}

	var session UploadSession
	if err := session.UnmarshalJSON([]byte(raw)); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisStore) ApplyChunk(ctx context.Context, fileID string, chunkIndex int, chunkBytesLen int64) (*UploadSession, bool, error) {
	res, err := s.script.Run(ctx, s.client, []string{s.key(fileID)},
		strconv.Itoa(chunkIndex), strconv.FormatInt(chunkBytesLen, 10), strconv.FormatInt(time.Now().Unix(), 10),
	).Result()
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "NOTFOUND"):
			return nil, false, ErrNotFound
		case strings.Contains(err.Error(), "OUTOFRANGE"):
			return nil, false, ErrChunkIndexOutOfRange
		default:
			return nil, false, fmt.Errorf("sessionstore: apply chunk: %w", err)
		}
	}

	parts, ok := res.([]interface{})
	if !ok || len(parts) != 2 {
		return nil, false, fmt.Errorf("%w: unexpected script reply shape", ErrCorrupt)
	}
	encoded, ok := parts[0].(string)
	if !ok {
		return nil, false, fmt.Errorf("%w: unexpected script reply payload", ErrCorrupt)
	}
	justCompletedRaw, _ := parts[1].(int64)

	var session UploadSession
	if err := session.UnmarshalJSON([]byte(encoded)); err != nil {
		return nil, false, err
	}

	return &session, justCompletedRaw == 1, nil
}

func (s *RedisStore) MarkFailed(ctx context.Context, fileID string) error {
	_, err := s.markFailed.Run(ctx, s.client, []string{s.key(fileID)},
		strconv.FormatInt(time.Now().Unix(), 10),
	).Result()
	if err != nil {
		if strings.Contains(err.Error(), "NOTFOUND") {
			return ErrNotFound
		}
		return fmt.Errorf("sessionstore: mark failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, fileID string) error {
	if err := s.client.Del(ctx, s.key(fileID)).Err(); err != nil {
		return fmt.Errorf("sessionstore: delete session: %w", err)
	}
	return nil
}

// Keys lists session keys matching the store's prefix, used by the
// decorative list endpoint. Best-effort; callers should treat results as
// a snapshot, not a consistent view.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, s.keyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("sessionstore: list keys: %w", err)
	}
	return keys, nil
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
