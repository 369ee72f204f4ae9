package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"revoice/internal/config"
	"revoice/internal/daemon"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/media"
	"revoice/internal/pipeline"
	"revoice/internal/services/speech"
	"revoice/internal/services/storage"
	"revoice/internal/services/transcribe"
	"revoice/internal/services/translate"
	"revoice/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// A .env beside the binary is optional; real deployments use the
	// process environment.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		log.Fatalf("open job store: %v", err)
	}

	artifacts, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init artifact store: %v", err)
	}
	transcriber, err := transcribe.New(ctx, cfg, artifacts)
	if err != nil {
		log.Fatalf("init transcriber: %v", err)
	}
	synthesizer, err := speech.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init synthesizer: %v", err)
	}
	translator := translate.NewClient(translate.FromConfig(cfg))
	muxer := media.NewMuxer(cfg.FFmpegBinary())
	if err := muxer.HealthCheck(); err != nil {
		logger.Warn("ffmpeg unavailable, merge stage will fail", logging.Error(err))
	}

	runner := pipeline.NewRunner(pipeline.Deps{
		Store:       store,
		Artifacts:   artifacts,
		Transcriber: transcriber,
		Translator:  translator,
		Synthesizer: synthesizer,
		Muxer:       muxer,
		StagingDir:  cfg.Paths.StagingDir,
		Logger:      logger,
	})

	d, err := daemon.New(cfg, store, runner, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	if cfg.Watch.Dir != "" {
		w, err := watcher.New(cfg, d, logger)
		if err != nil {
			logger.Warn("ingest watcher disabled", logging.Error(err))
		} else {
			go func() {
				if err := w.Run(ctx); err != nil {
					logger.Error("ingest watcher stopped", logging.Error(err))
				}
			}()
		}
	}

	<-ctx.Done()
	logger.Info("revoiced shutting down")
}
