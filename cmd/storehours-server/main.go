package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storehours/internal/config"
	"storehours/internal/service/schedule"
	"storehours/internal/store/postgres"
	httpTransport "storehours/internal/transport/http"
	"storehours/internal/upstream"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "storehours-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "storehours-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("store_timezone", cfg.StoreTimezone),
		slog.String("log_level", cfg.LogLevel),
	)

	storeZone, err := time.LoadLocation(cfg.StoreTimezone)
	if err != nil {
		log.Error("store timezone invalid", slog.Any("err", err), slog.String("store_timezone", cfg.StoreTimezone))
		os.Exit(1)
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	repo := postgres.NewScheduleRepo(db)
	client := upstream.New(upstream.Config{
		BaseURL:  cfg.UpstreamBaseURL,
		Username: cfg.UpstreamUsername,
		Password: cfg.UpstreamPassword,
		Timeout:  cfg.UpstreamTimeout,
	}, log)
	svc := schedule.NewService(repo, client, storeZone, cfg.CacheTTL, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UpstreamBaseURL != "" {
		refreshCtx, cancel := context.WithTimeout(ctx, cfg.UpstreamTimeout+30*time.Second)
		if err := svc.Refresh(refreshCtx); err != nil {
			log.Warn("initial schedule refresh failed; serving last snapshot", slog.Any("err", err))
		}
		cancel()

		go refreshLoop(ctx, svc, cfg.RefreshInterval, log)
	} else {
		log.Info("no upstream configured; serving stored schedule only")
	}

	server := httpTransport.NewServer(svc, storeZone, cfg.SlotIntervalMinutes, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.HTTPAddr)
	}()

	log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, server, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func refreshLoop(ctx context.Context, svc *schedule.Service, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.Refresh(ctx); err != nil {
				log.Warn("scheduled refresh failed", slog.Any("err", err))
			}
		}
	}
}

func shutdown(log *slog.Logger, s *httpTransport.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Warn("http shutdown failed", slog.Any("err", err))
		return
	}
	log.Info("http server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
