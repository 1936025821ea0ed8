package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bihari123/reelpick/internal/api"
	"github.com/bihari123/reelpick/internal/catalog"
	"github.com/bihari123/reelpick/internal/config"
	"github.com/bihari123/reelpick/internal/logger"
	"github.com/bihari123/reelpick/internal/media"
	"github.com/bihari123/reelpick/internal/searchindex"
	"github.com/bihari123/reelpick/internal/sessionstore"
	"github.com/bihari123/reelpick/internal/upload"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load configuration: %v", err)
		os.Exit(1)
	}

	sessions, err := api.BuildSessionStore(cfg, log)
	if err != nil {
		log.Printf("failed to connect to session store: %v", err)
		os.Exit(1)
	}

	cat, err := catalog.NewCatalog(cfg.CatalogPath, cfg.CatalogMaxConns, time.Duration(cfg.CatalogIdleTimeoutS)*time.Second, log)
	if err != nil {
		log.Printf("failed to open catalog: %v", err)
		os.Exit(1)
	}
	defer cat.Close()

	index := searchindex.NewIndexer(cfg.SearchIndexURL, time.Duration(cfg.SearchIndexTimeout)*time.Second, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	chunks, err := api.BuildChunkStore(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Printf("failed to initialize chunk store: %v", err)
		os.Exit(1)
	}

	tool := media.NewTool(cfg.MediaToolPath, log)
	coordinator := upload.NewCoordinator(sessions, cat, index, chunks, log)

	server := api.NewServer(cfg, coordinator, tool, sessions.(*sessionstore.RedisStore), log)

	go func() {
		if err := server.Start(); err != nil {
			log.Printf("server failed: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
