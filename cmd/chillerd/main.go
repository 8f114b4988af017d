// cmd/chillerd/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/acascioli/serial-chiller/docs"
	"github.com/acascioli/serial-chiller/internal/config"
	"github.com/acascioli/serial-chiller/internal/database"
	"github.com/acascioli/serial-chiller/internal/handler"
	"github.com/acascioli/serial-chiller/internal/repository"
	"github.com/acascioli/serial-chiller/internal/routes"
	"github.com/acascioli/serial-chiller/internal/service"
	"github.com/acascioli/serial-chiller/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB
	eventBus *handler.EventBus

	// Services
	sessionService   *service.SessionService
	exchangeService  *service.ExchangeService
	discoveryService *service.DiscoveryService

	// Repositories
	sessionRepo    repository.SessionRepository
	transcriptRepo repository.TranscriptRepository
}

// @title Serial Chiller Service API
// @version 1.1.1
// @description Command exerciser for lab chillers on RS-232, with session management and transcript recording

// @host localhost:8090
// @BasePath /api/v1
func main() {
	migrateDown := flag.Bool("migrate-down", false, "roll back the transcript store schema and exit")
	flag.Parse()

	if *migrateDown {
		if err := rollbackMigrations(); err != nil {
			fmt.Printf("Failed to roll back migrations: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// rollbackMigrations reverts the transcript store schema, for operators
// recovering from a bad upgrade
func rollbackMigrations() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer utils.CloseLogger(logger)

	db, err := database.NewConnection(&cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to open transcript store: %w", err)
	}
	defer db.Close()

	return database.NewMigrator(db, logger).Down()
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "serial-chiller")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config:   cfg,
		logger:   logger,
		eventBus: handler.NewEventBus(logger),
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeDatabase sets up the transcript store and runs migrations
func (app *Application) initializeDatabase() error {
	db, err := database.NewConnection(&app.config.Store, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	app.database = db

	migrator := database.NewMigrator(db, app.logger)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.logger.Info("Transcript store initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() error {
	app.sessionRepo = repository.NewSessionRepository(app.database, app.logger)
	app.transcriptRepo = repository.NewTranscriptRepository(app.database, app.logger)

	app.logger.Info("Repositories initialized successfully")
	return nil
}

// initializeServices creates service instances
func (app *Application) initializeServices() error {
	app.sessionService = service.NewSessionService(
		app.config,
		app.sessionRepo,
		app.eventBus,
		app.logger,
	)

	app.exchangeService = service.NewExchangeService(
		app.sessionService,
		app.transcriptRepo,
		app.eventBus,
		app.logger,
	)

	app.discoveryService = service.NewDiscoveryService(app.logger)

	app.logger.Info("Services initialized successfully")
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.sessionService,
		app.exchangeService,
		app.discoveryService,
		app.eventBus,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	go app.startCleanupService()

	app.logger.Info("Background services started")
}

// startCleanupService prunes transcript entries past the retention window
func (app *Application) startCleanupService() {
	ticker := time.NewTicker(app.config.Store.CleanupInterval)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started",
		zap.Duration("interval", app.config.Store.CleanupInterval),
		zap.Int("retention_days", app.config.Store.RetentionDays),
	)

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)

		cutoff := time.Now().AddDate(0, 0, -app.config.Store.RetentionDays)
		deleted, err := app.transcriptRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			utils.LogError(app.logger, "Failed to cleanup old transcript entries", err)
		} else if deleted > 0 {
			app.logger.Info("Cleaned up old transcript entries", zap.Int64("deleted", deleted))
		}

		cancel()
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "serial-chiller")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Close every live serial session before the store goes away
	app.sessionService.CloseAll(ctx)

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()

	app.waitForShutdown()

	return nil
}
