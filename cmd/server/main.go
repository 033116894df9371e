// server is the Tivoli query server binary: loads the catalog snapshot,
// wires the search/tag-mutation/image-bytes services, and serves the HTTP
// API until it receives a shutdown signal.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"tivoli/internal/api"
	"tivoli/internal/catalogstore"
	"tivoli/internal/config"
	"tivoli/internal/filterdsl"
	"tivoli/internal/imagebytes"
	"tivoli/internal/logging"
	"tivoli/internal/search"
	"tivoli/internal/tagmutation"
	"tivoli/internal/workerpool"
)

func main() {
	var addr = flag.String("addr", "", "override listen address (host:port), takes precedence over config")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := catalogstore.SnapshotLoad(cfg.Catalog.DBPath)
	if err != nil {
		log.Fatalf("failed to load catalog snapshot from %s: %v", cfg.Catalog.DBPath, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logging.CatalogLogger.WithError(closeErr).Error("error closing catalog store")
		}
	}()

	pool := workerpool.New(runtime.NumCPU())
	defer pool.Close()

	compiler := filterdsl.New()
	searchSvc := search.NewService(store, compiler)
	tagSvc := tagmutation.NewService(store, pool)

	bytesSvc, err := imagebytes.NewService(store, pool, cfg.Galleries.Path, cfg.Thumbnail.MinWidth, cfg.Thumbnail.MaxWidth)
	if err != nil {
		log.Fatalf("failed to initialise image bytes service: %v", err)
	}

	router, err := api.NewRouter(cfg, searchSvc, tagSvc, bytesSvc)
	if err != nil {
		log.Fatalf("failed to build HTTP router: %v", err)
	}

	listenAddr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	if *addr != "" {
		listenAddr = *addr
	}

	if err := startAndRunHTTPServer(ctx, router.Handler(), listenAddr, cfg); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}

func startAndRunHTTPServer(ctx context.Context, handler http.Handler, addr string, cfg *config.Config) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeoutDuration(),
		WriteTimeout:      cfg.WriteTimeoutDuration(),
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logging.ServerLogger.Info("tivoli server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ServerLogger.Error("http server error", "error", err.Error())
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx) //nolint:contextcheck // fresh context needed once the parent is already cancelled
}
