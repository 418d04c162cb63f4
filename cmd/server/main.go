package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"teasales/backend/internal/cache"
	"teasales/backend/internal/config"
	"teasales/backend/internal/httpapi"
	"teasales/backend/internal/logging"
	"teasales/backend/internal/service"
	"teasales/backend/internal/store"
	"teasales/backend/internal/store/memory"
	pgstore "teasales/backend/internal/store/postgres"
	sqlitestore "teasales/backend/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	if err := validateSecurityConfig(cfg); err != nil {
		slog.Error("invalid security configuration", "error", err)
		os.Exit(1)
	}
	location, err := cfg.Location()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	repo, closeRepo, kind, err := openRepository(ctx, cfg)
	if err != nil {
		slog.Error("repository unavailable; refusing to start with in-memory fallback", "kind", kind, "error", err)
		os.Exit(1)
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}
	slog.Info("repository ready", "kind", kind)

	catalogCache := cache.CatalogCache(cache.NoopCatalogCache{})
	drafts := cache.DraftStore(cache.NewMemoryDraftStore())
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, using in-process catalog and draft stores", "addr", cfg.RedisAddr, "error", err)
			_ = client.Close()
		} else {
			catalogCache = cache.NewRedisCatalogCache(client)
			drafts = cache.NewRedisDraftStore(client)
			closers = append(closers, client.Close)
			slog.Info("cache: redis", "addr", cfg.RedisAddr)
		}
	} else {
		slog.Info("cache: in-process")
	}

	svc := service.New(repo, catalogCache, drafts, service.Options{
		CatalogTTL: time.Duration(cfg.CatalogTTLSeconds) * time.Second,
		DraftTTL:   time.Duration(cfg.DraftTTLMinutes) * time.Minute,
		Location:   location,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	if cfg.AdminEmail != "" {
		created, err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			slog.Error("failed to bootstrap admin account", "email", cfg.AdminEmail, "error", err)
			os.Exit(1)
		}
		if created {
			slog.Info("admin account created", "email", cfg.AdminEmail)
		}
	}
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		AllowSignup:    cfg.AllowSignup,
		MetricsEnabled: cfg.MetricsEnabled,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("tea sales backend listening", "addr", cfg.Address(), "timezone", location.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			slog.Error("close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

// openRepository picks postgres, then sqlite, then the seeded memory store.
// A configured backend that fails to open is an error, never a fallback.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, string, error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, "postgres", err
		}
		return pg, pg.Close, "postgres", nil
	case cfg.SQLitePath != "":
		db, err := sqlitestore.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, "sqlite", err
		}
		return db, db.Close, "sqlite", nil
	default:
		return memory.NewSeeded(), nil, "memory", nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if strings.Count(cfg.AuthSecret, cfg.AuthSecret[:1]) == len(cfg.AuthSecret) {
		return fmt.Errorf("AUTH_SECRET must not repeat a single character")
	}
	if cfg.AllowedOrigin == "*" && cfg.AllowSignup {
		slog.Warn("ALLOWED_ORIGIN is * with signup enabled; restrict the origin in production")
	}
	return nil
}
