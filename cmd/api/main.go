package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/config"
	"github.com/MrJamesThe3rd/ledgersync/internal/database"
	"github.com/MrJamesThe3rd/ledgersync/internal/duplicate"
	ledgerHttp "github.com/MrJamesThe3rd/ledgersync/internal/http"
	accountHandler "github.com/MrJamesThe3rd/ledgersync/internal/http/account"
	backupHandler "github.com/MrJamesThe3rd/ledgersync/internal/http/backup"
	duplicateHandler "github.com/MrJamesThe3rd/ledgersync/internal/http/duplicate"
	syncHandler "github.com/MrJamesThe3rd/ledgersync/internal/http/syncapi"
	ledgerStore "github.com/MrJamesThe3rd/ledgersync/internal/ledger/store"
	"github.com/MrJamesThe3rd/ledgersync/internal/syncengine"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), cfg.Pool())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	var cache *ledgerStore.AccountCache
	if cfg.Cache.Enabled {
		cache, err = ledgerStore.NewAccountCache(cfg.Cache.NumCounters, cfg.Cache.MaxCost)
		if err != nil {
			slog.Error("failed to create account cache", "error", err)
			os.Exit(1)
		}
		defer cache.Close()
	}

	logger := slog.Default()
	store := ledgerStore.New(db, cache)

	var (
		backupService   = backup.NewService(store, cfg.Backup.Dir, cfg.Backup.Keep, logger)
		duplicateEngine = duplicate.NewEngine(store, logger)
		syncEngine      = syncengine.NewEngine(store, backupService, syncengine.Options{
			RequireBackup: cfg.Sync.RequireBackup,
		}, logger)
	)

	var (
		accountH   = accountHandler.NewHandler(store)
		duplicateH = duplicateHandler.NewHandler(duplicateEngine)
		syncH      = syncHandler.NewHandler(syncEngine)
		backupH    = backupHandler.NewHandler(backupService)
	)

	if cfg.Auth.Secret == "" {
		slog.Warn("AUTH_SECRET is not set, API routes are unauthenticated")
	}

	router := ledgerHttp.New(ledgerHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuthSecret:     []byte(cfg.Auth.Secret),
	}, accountH, duplicateH, syncH, backupH)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "name", cfg.App.Name, "addr", server.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
