package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"apex-portrait/internal/profilestore"
)

type Config struct {
	LogLevel string
	Debug    bool

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	JobsBaseURL string
	JobsEnabled bool

	StoreBackend   string
	StoreDir       string
	StoreNamespace string
	RedisURL       string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	PresetsFile string

	WebAddr        string
	JobManagerAddr string

	TelegramToken      string
	MaxConcurrent      int
	MediaGroupDebounce time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		JobsBaseURL:        strings.TrimRight(getEnv("JOBS_BASE_URL", "http://localhost:8000"), "/"),
		JobsEnabled:        getEnvBool("JOBS_ENABLED", true),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", profilestore.BackendFile)),
		StoreDir:           getEnv("STORE_DIR", "data"),
		StoreNamespace:     getEnv("STORE_NAMESPACE", profilestore.DefaultNamespace),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		PresetsFile:        getEnv("PRESETS_FILE", ""),
		WebAddr:            getEnv("WEB_ADDR", ":8080"),
		JobManagerAddr:     getEnv("JOBMANAGER_ADDR", ":8000"),
		TelegramToken:      strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
	}

	switch cfg.StoreBackend {
	case profilestore.BackendMemory, profilestore.BackendFile, profilestore.BackendRedis:
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND %q is not one of memory, file, redis", cfg.StoreBackend)
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}

	return cfg, nil
}

// RequireTelegram is checked by the bot only.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func (c Config) StoreOptions() profilestore.BackendOptions {
	return profilestore.BackendOptions{
		Backend: c.StoreBackend,
		Dir:     c.StoreDir,
		Redis: profilestore.RedisOptions{
			URL:      c.RedisURL,
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
	}
}

// OpenStore opens the configured KV and wraps it in a profile store.
func (c Config) OpenStore(ctx context.Context, logger *slog.Logger) (*profilestore.Store, func() error, error) {
	kv, closeFn, err := profilestore.OpenKV(ctx, c.StoreOptions())
	if err != nil {
		return nil, closeFn, fmt.Errorf("open %s store: %w", c.StoreBackend, err)
	}
	store, err := profilestore.New(profilestore.Options{
		KV:        kv,
		Namespace: c.StoreNamespace,
		Logger:    logger,
	})
	if err != nil {
		_ = closeFn()
		return nil, func() error { return nil }, err
	}
	return store, closeFn, nil
}

func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
