package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"dormitory-backend/config"
	"dormitory-backend/internal/api"
	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/backup"
	"dormitory-backend/internal/billing"
	"dormitory-backend/internal/db"
	"dormitory-backend/internal/logger"
	"dormitory-backend/internal/notification"
	"dormitory-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("configuration loaded", zap.String("path", configPath))

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, cfg.Log.Level, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, store.Options{
		Billing: billing.Calculator{
			DefaultFee:   cfg.Billing.DefaultFeePerSemester,
			MaxSemesters: cfg.Billing.MaxSemesters,
		},
		Logger: log.Named("store"),
	})

	var (
		push           api.Dispatcher
		webpushOptions *webpush.Options
	)
	if cfg.Push.Enabled() {
		webpushOptions = notification.OptionsFromConfig(&cfg.Push)
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, log)
		pool.Start(ctx)
		push = pool
	} else {
		log.Warn("VAPID keys are not configured, push notifications disabled")
	}

	backups := backup.NewService(cfg, gormDB, log)
	backups.AfterRestore = appStore.ForgetSchema
	go backup.NewScheduler(backups, cfg.Backup.Interval, log).Run(ctx)

	router := api.NewRouter(api.Deps{
		Config:  cfg,
		Store:   appStore,
		Auth:    auth.NewManager(&cfg.Auth),
		Push:    push,
		Backups: backups,
		WebPush: webpushOptions,
		Logger:  log,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server stopped unexpectedly", zap.Error(err))
		}
	}()

	// Block until a signal is received.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutdown signal received, stopping services")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
		return
	}
	log.Info("server gracefully stopped")
}
