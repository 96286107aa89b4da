package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"learning-planner-backend/config"
	"learning-planner-backend/internal/api"
	"learning-planner-backend/internal/db"
	"learning-planner-backend/internal/notification"
	"learning-planner-backend/internal/reminder"
	"learning-planner-backend/internal/store"
)

const shutdownTimeout = 5 * time.Second

// App wires stores, push delivery, the reminder scanner and the HTTP API together.
type App struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *gorm.DB
	scanner   *reminder.Scanner
	scheduler *reminder.Scheduler
	router    *gin.Engine
}

// New opens the database and builds every component from cfg.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		return nil, errors.New("VAPID keys must be configured; generate them with `plannerd vapid`")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret must be configured")
	}

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return newApp(cfg, gormDB, notification.NewWebPushTransport(cfg.Push, log), log), nil
}

func newApp(cfg *config.Config, gormDB *gorm.DB, transport notification.Transport, log *zap.Logger) *App {
	subscriptions := store.NewGormSubscriptionStore(gormDB)
	tasks := store.NewGormTaskStore(gormDB)

	dispatcher := notification.NewDispatcher(subscriptions, transport, cfg.WorkerPool.Size, log.Named("dispatcher"))
	scanner := reminder.NewScanner(tasks, dispatcher, reminder.Options{
		Title:    cfg.Reminders.Title,
		Location: cfg.Reminders.Location,
		ClaimTTL: cfg.Reminders.ClaimTTL,
	}, log.Named("scanner"))

	handler := api.NewHandler(subscriptions, tasks, scanner, cfg.Push.PublicKey, log.Named("api"))

	return &App{
		cfg:       cfg,
		log:       log,
		db:        gormDB,
		scanner:   scanner,
		scheduler: reminder.NewScheduler(scanner, cfg.Reminders.Location, log.Named("scheduler")),
		router:    api.NewRouter(cfg.Server, cfg.Auth.JWTSecret, handler, log.Named("http")),
	}
}

// Handler exposes the HTTP API.
func (a *App) Handler() http.Handler {
	return a.router
}

// ScanOnce runs a single reminder scan cycle.
func (a *App) ScanOnce(ctx context.Context) (reminder.ScanResult, error) {
	return a.scanner.ScanAndNotify(ctx, time.Now())
}

// Serve runs the HTTP server and, when enabled, the reminder scheduler until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if a.cfg.Reminders.Enabled {
		if err := a.scheduler.Start(ctx, a.cfg.Reminders.Schedule); err != nil {
			return err
		}
		defer func() {
			<-a.scheduler.Stop().Done()
			a.log.Info("reminder scheduler stopped")
		}()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server starting", zap.Int("port", a.cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutdown signal received, stopping services")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	a.log.Info("server gracefully stopped")
	return nil
}

// Close releases the database connection pool.
func (a *App) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
