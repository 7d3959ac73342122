package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/varekai/roster/internal/app"
	"github.com/varekai/roster/internal/config"
	"github.com/varekai/roster/internal/database"
	"github.com/varekai/roster/internal/metrics"
	"github.com/varekai/roster/internal/security"
	"github.com/varekai/roster/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	setupLogging(cfg)

	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	var sessions session.Store
	switch cfg.Redis.SessionBackend {
	case "redis":
		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.Security.SessionTimeout)
		slog.Info("using redis session backend")
	default:
		sessions = session.NewMemoryStore(cfg.Security.SessionTimeout)
		slog.Info("using in-memory session backend")
	}

	signer := security.NewSigner(cfg.Security.CSRFSecretKey)
	guard := security.NewCSRFGuard(signer)
	limiter := security.NewLimiter(cfg.RateLimit)

	metrics.RegisterActiveSessions(sessions.CountActive)

	a := app.New(cfg, db, sessions, limiter, guard)
	a.RegisterRoutes()

	// Background janitor: evict expired sessions and stale limiter
	// buckets so long-lived processes do not accumulate dead entries.
	janitorDone := make(chan struct{})
	go janitor(cfg.Security.SweepInterval, sessions, limiter, janitorDone)

	go func() {
		if err := a.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	close(janitorDone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", slog.Any("error", err))
	}
	slog.Info("server stopped")
}

// janitor periodically sweeps expired sessions and stale rate-limit
// buckets until done is closed.
func janitor(interval time.Duration, sessions session.Store, limiter *security.Limiter, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			evicted, err := sessions.SweepExpired(ctx)
			cancel()
			if err != nil {
				slog.Warn("session sweep failed", slog.Any("error", err))
			} else if evicted > 0 {
				slog.Info("swept expired sessions", slog.Int("evicted", evicted))
			}

			if stale := limiter.SweepStale(); stale > 0 {
				slog.Debug("swept stale rate limit buckets", slog.Int("evicted", stale))
			}
		}
	}
}

func setupLogging(cfg *config.Config) {
	level := parseLogLevel(cfg.LogLevel)

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
