package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"apex-portrait/internal/config"
	"apex-portrait/internal/handlers"
	"apex-portrait/internal/httpclient"
	"apex-portrait/internal/jobs"
	"apex-portrait/internal/mediagroup"
	"apex-portrait/internal/pipeline"
	"apex-portrait/internal/portrait"
	"apex-portrait/internal/session"
	"apex-portrait/internal/telegram"
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bot stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("telegram init: %w", err)
	}

	store, closeStore, err := cfg.OpenStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	presets, err := portrait.LoadPresetBook(cfg.PresetsFile)
	if err != nil {
		return err
	}

	// Saving goes through each user's own namespace; the handler supplies it.
	genOpts := pipeline.Options{Logger: logger}
	if cfg.JobsEnabled {
		genOpts.Submitter = jobs.New(jobs.Options{
			BaseURL:    cfg.JobsBaseURL,
			HTTPClient: httpClient,
			Logger:     logger,
		})
	}

	handler := handlers.New(handlers.Options{
		Telegram:  tg,
		Generator: pipeline.New(genOpts),
		Store:     store,
		Presets:   presets,
		Sessions:  session.NewStore(),
		Logger:    logger,
	})

	d := &dispatcher{
		ctx:     ctx,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		timeout: cfg.RequestTimeout,
		logger:  logger,
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush: func(group mediagroup.Group) {
			d.spawn(func(ctx context.Context) error {
				handler.HandleMediaGroup(ctx, group)
				return nil
			})
		},
	})
	defer aggregator.Stop()
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username(), "store", cfg.StoreBackend, "jobs", cfg.JobsEnabled)

	updates := tg.Updates(telegram.UpdatesOptions{Timeout: 30 * time.Second})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return nil
			}
			d.spawn(func(ctx context.Context) error {
				return handler.HandleUpdate(ctx, update)
			})
		}
	}
}

// dispatcher runs each unit of work in its own goroutine with a per-request
// timeout, at most cap(sem) at a time.
type dispatcher struct {
	ctx     context.Context
	sem     chan struct{}
	timeout time.Duration
	logger  *slog.Logger
}

func (d *dispatcher) spawn(fn func(ctx context.Context) error) {
	select {
	case d.sem <- struct{}{}:
	case <-d.ctx.Done():
		return
	}

	go func() {
		defer func() { <-d.sem }()

		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("handle update failed", "err", err)
		}
	}()
}
