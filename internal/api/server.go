package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/bihari123/reelpick/internal/chunkstore"
	"github.com/bihari123/reelpick/internal/config"
	"github.com/bihari123/reelpick/internal/handlers"
	"github.com/bihari123/reelpick/internal/logger"
	"github.com/bihari123/reelpick/internal/media"
	"github.com/bihari123/reelpick/internal/middleware"
	"github.com/bihari123/reelpick/internal/sessionstore"
	"github.com/bihari123/reelpick/internal/upload"
)

// Server wraps the gin engine and the http.Server it listens on.
type Server struct {
	config *config.Config
	engine *gin.Engine
	http   *http.Server
	log    *logger.Logger
}

// NewServer wires the upload protocol and video endpoints onto a gin
// engine. CORS and structured request logging run on every request;
// bearer-token auth and per-IP rate limiting run on the /api routes
// only, so /healthz is reachable without a token.
func NewServer(cfg *config.Config, coordinator *upload.Coordinator, tool *media.Tool, lister handlers.SessionLister, log *logger.Logger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	reqLog := logrus.New()

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.RequestLog(reqLog))

	handlers.RegisterHealthRoute(engine)

	apiGroup := engine.Group("/api")
	apiGroup.Use(middleware.BearerAuth(cfg.AuthTokens))
	apiGroup.Use(middleware.RateLimit(rate.Limit(cfg.ChunkRatePerSecond), cfg.ChunkRateBurst))

	handlers.NewUploadHandler(coordinator, lister).RegisterRoutes(apiGroup)
	handlers.NewVideoHandler(tool, cfg.UploadDir).RegisterRoutes(apiGroup)

	return &Server{
		config: cfg,
		engine: engine,
		http: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Minute, // large chunk bodies can take a while to drain
		},
		log: log,
	}
}

// Start runs the HTTP server until it is shut down or fails. It
// returns nil on a clean shutdown (http.ErrServerClosed).
func (s *Server) Start() error {
	s.log.Printf("starting server on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// BuildChunkStore resolves the configured chunk-store backend.
func BuildChunkStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (chunkstore.Backend, error) {
	switch cfg.ChunkBackend {
	case "s3":
		return chunkstore.NewS3Backend(ctx, chunkstore.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   "chunks",
		}, log)
	default:
		return chunkstore.NewLocalBackend(cfg.UploadDir, log)
	}
}

// BuildSessionStore resolves the configured session store.
func BuildSessionStore(cfg *config.Config, log *logger.Logger) (sessionstore.Store, error) {
	return sessionstore.NewRedisStore(cfg.RedisURL, cfg.SessionKeySpan, time.Duration(cfg.SessionTTL)*time.Second, log)
}
