// Command server is the marketpulse process entry point: it loads configuration,
// opens the bar store, wires the ingestion supervisor and aggregator to it, and
// serves the HTTP API until it receives a termination signal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nrgio/marketpulse/internal/aggregator"
	"github.com/nrgio/marketpulse/internal/barstore"
	"github.com/nrgio/marketpulse/internal/config"
	"github.com/nrgio/marketpulse/internal/events"
	"github.com/nrgio/marketpulse/internal/ingest/supervisor"
	"github.com/nrgio/marketpulse/internal/reliability"
	"github.com/nrgio/marketpulse/internal/server"
	signalengine "github.com/nrgio/marketpulse/internal/signal"
	"github.com/nrgio/marketpulse/pkg/logger"
)

const (
	barQueueCapacity     = 4096
	aggregatorBufferBars = 200
	snapshotInterval     = 30 * time.Second
	shutdownGracePeriod  = 10 * time.Second
)

func main() {
	var tomlPath string
	flag.StringVar(&tomlPath, "config", "", "path to an optional TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(tomlPath)
	if err != nil {
		logger.New(logger.Config{Level: "info", Pretty: true}).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Str("data_dir", cfg.DataDir).Strs("symbols", cfg.BinanceSymbols).Str("transport", string(cfg.BinanceTransport)).Msg("starting marketpulse")

	store, err := barstore.Open(cfg.StorePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open bar store")
	}
	defer store.Close()

	bus := events.NewBus(log)

	queue := supervisor.NewBarQueue(barQueueCapacity)
	sup := supervisor.New(cfg, queue, bus, log)

	agg, err := aggregator.New(store, bus, log, cfg.BarIntervals, aggregatorBufferBars)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build aggregator")
	}

	snapshotPath := filepath.Join(cfg.DataDir, "aggregator_snapshot.msgpack")
	if err := agg.LoadSnapshotFile(snapshotPath); err != nil {
		log.Warn().Err(err).Str("path", snapshotPath).Msg("failed to load aggregator snapshot, starting with empty buffers")
	}

	engine := signalengine.NewEngine(store)

	srv := server.New(server.Config{
		Addr:       cfg.HTTPAddr,
		Log:        log,
		Reader:     store,
		Supervisor: sup,
		Engine:     engine,
		StartedAt:  time.Now(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	go func() {
		if err := sup.Run(ctx); err != nil {
			log.Error().Err(err).Msg("supervisor exited")
		}
	}()

	go func() {
		if err := agg.Run(ctx, queue); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("aggregator exited")
		}
	}()

	go agg.RunSnapshotLoop(ctx, snapshotPath, snapshotInterval, log)

	if cfg.BackupS3Bucket != "" {
		client, err := reliability.NewClient(reliability.ClientConfig{
			Endpoint:        cfg.BackupS3Endpoint,
			Region:          cfg.BackupS3Region,
			AccessKeyID:     cfg.BackupS3AccessKeyID,
			SecretAccessKey: cfg.BackupS3SecretAccessKey,
			Bucket:          cfg.BackupS3Bucket,
		}, log)
		if err != nil {
			log.Error().Err(err).Msg("backup disabled: failed to build s3 client")
		} else {
			backupSvc := reliability.NewService(client, cfg.DataDir, log)
			job := reliability.NewJob(backupSvc, cfg.BackupIntervalSeconds, cfg.BackupRetentionDays, log)
			go func() {
				if err := job.Run(ctx); err != nil {
					log.Error().Err(err).Msg("backup scheduler exited")
				}
			}()
			log.Info().Str("bucket", cfg.BackupS3Bucket).Float64("interval_seconds", cfg.BackupIntervalSeconds).Msg("backup scheduler started")
		}
	}

	log.Info().Str("addr", cfg.HTTPAddr).Msg("marketpulse started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	if err := agg.SaveSnapshot(snapshotPath); err != nil {
		log.Warn().Err(err).Msg("failed to save final aggregator snapshot")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("stopped")
}
