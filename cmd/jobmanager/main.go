package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"apex-portrait/internal/config"
	"apex-portrait/internal/httpserver"
	"apex-portrait/internal/jobmanager"
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

	srv := httpserver.New(httpserver.Options{
		Addr:    cfg.JobManagerAddr,
		Handler: jobmanager.NewRouter(jobmanager.Options{Store: jobmanager.NewStore(), Logger: logger}),
	})

	if err := httpserver.ListenAndRun(ctx, srv, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
