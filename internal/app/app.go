package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stream-stitch-relay/internal/config"
	"stream-stitch-relay/internal/database"
	"stream-stitch-relay/internal/fetcher"
	"stream-stitch-relay/internal/handler"
	"stream-stitch-relay/internal/metrics"
	"stream-stitch-relay/internal/queue"
	"stream-stitch-relay/internal/remux"
	"stream-stitch-relay/internal/repository"
	"stream-stitch-relay/internal/router"
	"stream-stitch-relay/internal/scheduler"
	"stream-stitch-relay/internal/service"
	"stream-stitch-relay/internal/storage"
	"stream-stitch-relay/internal/worker"
)

// App holds the wired components of the relay
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	Repository   *repository.Repository
	Queue        *queue.Queue
	Objects      storage.ObjectStore
	Orchestrator *service.Orchestrator

	localStore *storage.LocalStore
}

// New loads configuration and connects every backing service
func New(ctx context.Context) (*App, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	setupLogging(cfg.Log)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		Config:     cfg,
		DB:         db,
		Repository: repository.New(db),
		Queue:      queue.New(db, cfg.Queue.LeaseDuration),
	}

	switch strings.ToLower(cfg.Storage.Backend) {
	case "gcs":
		a.Objects, err = storage.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS store: %w", err)
		}
		logrus.Infof("Using GCS bucket %s for artifacts", cfg.Storage.Bucket)
	default:
		a.localStore, err = storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Server.PublicURL, cfg.Storage.SigningKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create local store: %w", err)
		}
		a.Objects = a.localStore
		logrus.Infof("Using local directory %s for artifacts", cfg.Storage.LocalDir)
	}

	remuxer := remux.New(cfg.Remux)
	if !remuxer.Available() {
		logrus.Warnf("%s not found in PATH; jobs will fail with ENCODING_FAULT", remuxer.Binary())
	}

	a.Orchestrator = service.NewOrchestrator(service.Dependencies{
		Requests: a.Repository,
		Dedup:    a.Repository,
		Queue:    a.Queue,
		Fetcher:  fetcher.New(cfg.Fetcher),
		Remuxer:  remuxer,
		Objects:  a.Objects,
	}, cfg, metrics.NewMetrics(prometheus.DefaultRegisterer))

	return a, nil
}

// Close releases the object store and database connections
func (a *App) Close() {
	if err := a.Objects.Close(); err != nil {
		logrus.Errorf("Failed to close object store: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logrus.Errorf("Failed to close database: %v", err)
		}
	}
}

// Serve runs the HTTP intake, and the workers and janitor when withWorkers is set,
// until SIGINT or SIGTERM
func (a *App) Serve(withWorkers bool) error {
	cfg := a.Config
	logrus.Info("Starting Stream Stitch Relay")

	opts := handler.Options{
		Artifacts: a.localStore,
		Queue:     a.Queue,
	}

	var pool *worker.Pool
	var janitor *scheduler.Janitor
	if withWorkers {
		pool = worker.NewPool(cfg.Worker, a.Queue, a.Orchestrator)
		janitor = scheduler.NewJanitor(cfg.Janitor, cfg.Worker.ScratchDir)
		opts.Workers = pool
		opts.Janitor = janitor

		if err := startBackground(pool, janitor); err != nil {
			return err
		}
	}

	h := handler.NewHandlers(a.Orchestrator, a.Repository, opts)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.SetupRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	waitForSignal()

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}
	if withWorkers {
		stopBackground(pool, janitor)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}

// Work runs only the workers and janitor until SIGINT or SIGTERM
func (a *App) Work() error {
	logrus.Info("Starting Stream Stitch Relay workers")

	pool := worker.NewPool(a.Config.Worker, a.Queue, a.Orchestrator)
	janitor := scheduler.NewJanitor(a.Config.Janitor, a.Config.Worker.ScratchDir)
	if err := startBackground(pool, janitor); err != nil {
		return err
	}

	waitForSignal()

	logrus.Info("Shutting down workers...")
	stopBackground(pool, janitor)
	logrus.Info("Workers stopped gracefully")
	return nil
}

func startBackground(pool *worker.Pool, janitor *scheduler.Janitor) error {
	if err := pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	if err := janitor.Start(); err != nil {
		_ = pool.Stop()
		return fmt.Errorf("failed to start janitor: %w", err)
	}
	return nil
}

func stopBackground(pool *worker.Pool, janitor *scheduler.Janitor) {
	if err := pool.Stop(); err != nil {
		logrus.Errorf("Failed to stop worker pool: %v", err)
	}
	pool.Wait()

	if err := janitor.Stop(); err != nil {
		logrus.Errorf("Failed to stop janitor: %v", err)
	}
	janitor.Wait()
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func setupLogging(cfg config.LogConfig) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
