package config

import (
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the ingest service, loaded
// from the environment with sane defaults for local development.
type Config struct {
	Port        string
	Environment string

	// Session store (shared KV, source of truth for upload progress)
	RedisURL       string
	SessionTTL     int // seconds; bounds how long an abandoned session survives
	SessionKeySpan string

	// Catalog (embedded SQL audit trail)
	CatalogPath         string
	CatalogMaxConns     int
	CatalogIdleTimeoutS int

	// Search indexer (best-effort lifecycle events)
	SearchIndexURL     string
	SearchIndexTimeout int // seconds

	// Chunk store / upload_dir
	UploadDir      string
	ChunkBackend   string // "local" or "s3"
	S3Bucket       string
	S3Region       string
	S3Endpoint     string

	// Protocol constants
	ChunkSize   int64
	MaxFileSize int64

	// Auth: fixed bearer-token allowlist, compiled from env at startup
	AuthTokens []string

	// Media tool (trim/join external collaborator)
	MediaToolPath string
	MaxTrimSecs   int

	// Per-IP rate limiting on every /api route (the chunk endpoint included)
	ChunkRatePerSecond int
	ChunkRateBurst     int
}

func Load() (*Config, error) {
	LoadEnvOnce()

	sessionTTL, _ := strconv.Atoi(GetEnvWithFallback("SESSION_TTL_SECONDS", "86400"))
	catalogMaxConns, _ := strconv.Atoi(GetEnvWithFallback("CATALOG_MAX_CONNECTIONS", "8"))
	catalogIdleTimeout, _ := strconv.Atoi(GetEnvWithFallback("CATALOG_IDLE_TIMEOUT_SECONDS", "300"))
	searchTimeout, _ := strconv.Atoi(GetEnvWithFallback("SEARCH_INDEX_TIMEOUT_SECONDS", "5"))
	chunkSize, _ := strconv.ParseInt(GetEnvWithFallback("CHUNK_SIZE_BYTES", "1048576"), 10, 64) // 1 MiB
	maxFileSize, _ := strconv.ParseInt(GetEnvWithFallback("MAX_FILE_SIZE_BYTES", "1048576000"), 10, 64) // 1000 MiB
	maxTrimSecs, _ := strconv.Atoi(GetEnvWithFallback("MAX_TRIM_DURATION_SECONDS", "3600"))
	ratePerSecond, _ := strconv.Atoi(GetEnvWithFallback("CHUNK_RATE_PER_SECOND", "50"))
	rateBurst, _ := strconv.Atoi(GetEnvWithFallback("CHUNK_RATE_BURST", "100"))

	tokens := GetEnvWithFallback("AUTH_TOKENS", "")
	var tokenList []string
	for _, t := range strings.Split(tokens, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tokenList = append(tokenList, t)
		}
	}

	return &Config{
		Port:        GetEnvWithFallback("PORT", "5000"),
		Environment: GetEnvWithFallback("ENVIRONMENT", "development"),

		RedisURL:       GetEnvWithFallback("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:     sessionTTL,
		SessionKeySpan: GetEnvWithFallback("SESSION_KEY_PREFIX", "upload:"),

		CatalogPath:         GetEnvWithFallback("CATALOG_PATH", "./data/catalog.db"),
		CatalogMaxConns:     catalogMaxConns,
		CatalogIdleTimeoutS: catalogIdleTimeout,

		SearchIndexURL:     GetEnvWithFallback("SEARCH_INDEX_URL", ""),
		SearchIndexTimeout: searchTimeout,

		UploadDir:    GetEnvWithFallback("UPLOAD_DIR", "./data/uploads"),
		ChunkBackend: GetEnvWithFallback("CHUNK_BACKEND", "local"),
		S3Bucket:     GetEnvWithFallback("CHUNK_S3_BUCKET", ""),
		S3Region:     GetEnvWithFallback("CHUNK_S3_REGION", "us-east-1"),
		S3Endpoint:   GetEnvWithFallback("CHUNK_S3_ENDPOINT", ""),

		ChunkSize:   chunkSize,
		MaxFileSize: maxFileSize,

		AuthTokens: tokenList,

		MediaToolPath: GetEnvWithFallback("MEDIA_TOOL_PATH", "ffmpeg"),
		MaxTrimSecs:   maxTrimSecs,

		ChunkRatePerSecond: ratePerSecond,
		ChunkRateBurst:     rateBurst,
	}, nil
}
