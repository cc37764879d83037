// inference-service scores transactions with the model version the control
// plane last promoted.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/frauddesk/control-plane/internal/config"
	"github.com/frauddesk/control-plane/internal/inference"
	"github.com/frauddesk/control-plane/internal/registry"
)

func main() {
	logger := log.New(os.Stdout, "[inference] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config load: %v", err)
	}
	addr := cfg.InferenceAddr

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("registry init: %v", err)
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	fetcher, err := inference.NewS3Fetcher(ctx)
	if err != nil {
		logger.Fatalf("artifact fetcher init: %v", err)
	}
	loader := &inference.Loader{Store: store, ModelName: cfg.ModelName, Fetcher: fetcher}
	server := inference.NewServer(loader, logger)
	if err := server.Reload(ctx); err != nil {
		logger.Fatalf("initial model load: %v", err)
	}
	cancel()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	go func() {
		logger.Printf("inference service listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func openStore(cfg config.Config, logger *log.Logger) (registry.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Printf("no database configured, using in-memory registry")
		return registry.NewMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return registry.NewPGStore(db), func() { db.Close() }, nil
}

func waitForShutdown(logger *log.Logger, srv *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}
