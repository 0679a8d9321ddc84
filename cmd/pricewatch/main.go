// Command pricewatch runs the price tracking service: SQLite-backed
// catalog and watch registry, a daily notification run, and an HTTP API
// for an external command layer.
//
// Usage:
//
//	pricewatch -config pricewatch.yaml
//	pricewatch -db pricewatch.db -addr :9030 -fetcher http://localhost:9040
//
// Environment (loaded from .env when present):
//
//	PRICEWATCH_WEBHOOK_URL   notification webhook; stdout JSON lines otherwise
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pricewatch/api"
	"github.com/hazyhaar/pricewatch/dbopen"
	"github.com/hazyhaar/pricewatch/remote"
	"github.com/hazyhaar/pricewatch/tracker"
)

func main() {
	configPath := flag.String("config", "", "path to pricewatch.yaml config file")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	addr := flag.String("addr", ":9030", "HTTP listen address")
	fetcherURL := flag.String("fetcher", "http://localhost:9040", "scraping service base URL")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// .env is optional; missing file is not an error.
	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *addr, *fetcherURL); err != nil {
		logger.Error("pricewatch: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, addr, fetcherURL string) error {
	cfg := &tracker.Config{}
	if configPath != "" {
		loaded, err := tracker.LoadConfigFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "pricewatch.db"
	}

	db, err := dbopen.Open(cfg.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(tracker.Schema),
	)
	if err != nil {
		return err
	}
	defer db.Close()

	fetcher := remote.NewHTTPFetcher(remote.FetcherConfig{
		BaseURL:   fetcherURL,
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	}, logger)

	var notifier tracker.Notifier
	if url := os.Getenv("PRICEWATCH_WEBHOOK_URL"); url != "" {
		notifier = remote.NewWebhookNotifier(url)
		logger.Info("pricewatch: webhook notifier", "url", url)
	} else {
		notifier = remote.NewStdoutNotifier(os.Stdout)
		logger.Info("pricewatch: stdout notifier")
	}

	svc := tracker.New(db, fetcher, notifier, *cfg, logger)
	svc.Start(ctx)
	defer svc.Close()
	logger.Info("pricewatch: schedule armed", "next_run", svc.NextRun())

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pricewatch: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
