package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"apex-portrait/internal/config"
	"apex-portrait/internal/httpclient"
	"apex-portrait/internal/httpserver"
	"apex-portrait/internal/jobs"
	"apex-portrait/internal/pipeline"
	"apex-portrait/internal/portrait"
	"apex-portrait/internal/webapi"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := config.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := cfg.OpenStore(ctx, logger)
	if err != nil {
		logger.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	presets, err := portrait.LoadPresetBook(cfg.PresetsFile)
	if err != nil {
		logger.Error("presets load failed", "err", err)
		os.Exit(1)
	}

	genOpts := pipeline.Options{Saver: store, Logger: logger}
	if cfg.JobsEnabled {
		genOpts.Submitter = jobs.New(jobs.Options{
			BaseURL: cfg.JobsBaseURL,
			HTTPClient: httpclient.New(httpclient.Options{
				PreferIPv4: cfg.PreferIPv4,
				Timeout:    cfg.HTTPTimeout,
			}),
			Logger: logger,
		})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := webapi.New(webapi.Options{
		Generator:      pipeline.New(genOpts),
		Store:          store,
		Presets:        presets,
		Logger:         logger,
		Registry:       reg,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.WebAddr, Handler: api.Router()})

	logger.Info("web started", "addr", cfg.WebAddr, "store", cfg.StoreBackend, "jobs", cfg.JobsEnabled)
	if err := httpserver.ListenAndRun(ctx, srv, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
