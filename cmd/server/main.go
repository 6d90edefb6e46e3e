package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/cesargomez89/vidfetch/internal/app"
	"github.com/cesargomez89/vidfetch/internal/config"
	"github.com/cesargomez89/vidfetch/internal/constants"
	"github.com/cesargomez89/vidfetch/internal/downloader"
	httpapp "github.com/cesargomez89/vidfetch/internal/http"
	"github.com/cesargomez89/vidfetch/internal/logger"
	"github.com/cesargomez89/vidfetch/internal/media"
	"github.com/cesargomez89/vidfetch/internal/storage"
	"github.com/cesargomez89/vidfetch/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if err := storage.EnsureDir(cfg.DownloadsDir); err != nil {
		appLogger.Error("Failed to create downloads directory", "path", cfg.DownloadsDir, "error", err)
		os.Exit(1)
	}

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.YtDlpAutoInstall && cfg.YtDlpPath == "" {
		appLogger.Info("Ensuring yt-dlp is installed")
		if err := media.Install(context.Background()); err != nil {
			appLogger.Error("Failed to install yt-dlp", "error", err)
			os.Exit(1)
		}
	}

	registry := store.NewRegistry()
	fetcher := media.NewYtDlpFetcher(cfg.YtDlpPath)

	w := downloader.NewWorker(registry, fetcher, db, cfg, appLogger)
	defer w.Stop()

	janitor := downloader.NewJanitor(registry, cfg.DownloadsDir, cfg.JobTTL, cfg.CleanupInterval, appLogger)
	janitor.Start()
	defer janitor.Stop()

	jobService := app.NewJobService(registry, w, db, cfg.DownloadsDir, cfg.DefaultFormat, cfg.MaxPending, appLogger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := httpapp.NewHandler(jobService, appLogger)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr, "downloads_dir", cfg.DownloadsDir,
			"max_concurrent", cfg.MaxConcurrent)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exiting", "active_jobs", w.Active())
}
