package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/frauddesk/control-plane/internal/auth"
	"github.com/frauddesk/control-plane/internal/config"
	"github.com/frauddesk/control-plane/internal/events"
	"github.com/frauddesk/control-plane/internal/httpserver"
	"github.com/frauddesk/control-plane/internal/orchestrator"
	"github.com/frauddesk/control-plane/internal/registry"
	"github.com/frauddesk/control-plane/internal/release"
	"github.com/frauddesk/control-plane/internal/training"
)

func main() {
	serve := flag.Bool("serve", false, "run as an HTTP service instead of a single batch cycle")
	flag.Parse()

	logger := log.New(os.Stdout, "[control-plane] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config load: %v", err)
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("registry init: %v", err)
	}
	defer closeStore()

	recorder, err := buildRecorder(cfg, logger)
	if err != nil {
		logger.Fatalf("recorder init: %v", err)
	}

	trainer, err := buildTrainer(cfg, store)
	if err != nil {
		logger.Fatalf("trainer init: %v", err)
	}

	gate := release.New(store, cfg.ExperimentName, cfg.ModelName, nil)
	orch := orchestrator.New(orchestrator.Config{
		PolicyPath: cfg.PolicyPath,
		ReportDir:  cfg.ReportDir,
		DataDir:    cfg.DataDir,
	}, trainer, gate, recorder, logger)

	if !*serve {
		runBatch(orch, logger)
		return
	}

	fileRecorder := events.NewFileRecorder(cfg.EventsDir)
	verifier := auth.NewVerifier(cfg.AuthSecret, cfg.AllowDebugToken, cfg.DebugToken)
	server := httpserver.New(orch, store, fileRecorder, verifier)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Router(),
	}

	go func() {
		logger.Printf("control plane listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func runBatch(orch *orchestrator.Orchestrator, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result, err := orch.RunCycle(ctx)
	if err != nil {
		logger.Fatalf("cycle %s failed: %v", result.CycleID, err)
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatalf("encode result: %v", err)
	}
	os.Stdout.Write(append(out, '\n'))
}

// openStore prefers Postgres when a database URL is configured and falls
// back to the in-memory registry for local single-process runs.
func openStore(cfg config.Config, logger *log.Logger) (registry.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Printf("no database configured, using in-memory registry")
		return registry.NewMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return registry.NewPGStore(db), func() { db.Close() }, nil
}

// buildRecorder always writes the file trail; Kafka and S3 sinks attach when
// configured and stay best-effort.
func buildRecorder(cfg config.Config, logger *log.Logger) (events.Recorder, error) {
	primary := events.NewFileRecorder(cfg.EventsDir)

	var sinks []events.Recorder
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaRecorder(events.KafkaRecorderConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, kafka)
	}
	if cfg.S3Bucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		archiver, err := events.NewS3Archiver(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, archiver)
	}

	if len(sinks) == 0 {
		return primary, nil
	}
	return &events.MultiRecorder{Primary: primary, Sinks: sinks, Logger: logger}, nil
}

func buildTrainer(cfg config.Config, store registry.Store) (training.Gateway, error) {
	if cfg.TrainerURL != "" {
		return training.NewHTTPClient(training.HTTPClientConfig{BaseURL: cfg.TrainerURL})
	}
	return &training.LocalGateway{
		Store:            store,
		ExperimentName:   cfg.ExperimentName,
		ModelName:        cfg.ModelName,
		AUC:              0.92,
		AveragePrecision: 0.93,
	}, nil
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
