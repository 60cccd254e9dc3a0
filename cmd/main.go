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
	"time"

	"github.com/Sovan7777/spardha-26/config"
	"github.com/Sovan7777/spardha-26/db"
	"github.com/Sovan7777/spardha-26/feed"
	"github.com/Sovan7777/spardha-26/handlers"
	"github.com/Sovan7777/spardha-26/metrics"
	"github.com/Sovan7777/spardha-26/repositories"
	api "github.com/Sovan7777/spardha-26/routes"
	"github.com/Sovan7777/spardha-26/services"
	"github.com/Sovan7777/spardha-26/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
)

const (
	connectTimeout  = 5 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	if err := run(cfg, logger); err != nil {
		logger.Error("application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	// Хранилище
	teamRepo, pinger, closeStore, err := openStore(ctx, cfg, clock, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Загрузчик файлов: Cloudflare R2, если заданы все параметры, иначе в памяти
	r2cfg := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	var uploader storage.FileUploader
	if r2cfg.Complete() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, r2cfg)
		if err != nil {
			return fmt.Errorf("init Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		uploader = storage.NewMemoryUploader("")
		logger.Warn("R2 credentials incomplete, uploads are kept in memory")
	}

	// WebSocket Hub
	hub := feed.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)
	logger.Info("WebSocket Hub started")

	collectors := metrics.New()

	// Сервисы
	adminService := services.NewAdminService(services.AdminServiceConfig{
		Passkey:    cfg.AdminPasskey,
		JWTSecret:  []byte(cfg.JWTSecretKey),
		SessionTTL: cfg.AdminSessionTTL,
	}, clock, collectors, logger)
	registrationService := services.NewRegistrationService(teamRepo, uploader, hub, collectors, cfg.MaxUploadBytes, logger)
	teamService := services.NewTeamService(teamRepo, hub, collectors, logger)
	reportService := services.NewReportService(teamRepo, clock)
	logger.Info("Services initialized")

	pages, err := handlers.NewPages()
	if err != nil {
		return fmt.Errorf("parse page templates: %w", err)
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Team:   handlers.NewTeamHandler(registrationService, teamService, cfg.MaxUploadBytes),
		Admin:  handlers.NewAdminHandler(adminService, cfg.SecureCookie),
		Report: handlers.NewReportHandler(reportService, pages),
		Feed:   handlers.NewFeedHandler(hub, cfg.CORSAllowedOrigins, logger),
		Health: handlers.NewHealthHandler(pinger),
		Pages:  pages,
	}, api.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Verifier:       adminService,
		Metrics:        collectors,
	})
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		// Сначала закрываем websocket-клиентов, Shutdown их не ждёт.
		stopHub()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}

// openStore выбирает репозиторий по схеме DATABASE_URL.
func openStore(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) (repositories.TeamRepository, handlers.Pinger, func(), error) {
	store, err := cfg.Store()
	if err != nil {
		return nil, nil, nil, err
	}

	switch store {
	case config.StorePostgres:
		dbConn, err := db.Connect(cfg.DatabaseURL, connectTimeout)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx, dbConn); err != nil {
			_ = dbConn.Close()
			return nil, nil, nil, err
		}
		logger.Info("database connection established", slog.String("store", string(store)))
		closeFn := func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}
		return repositories.NewPostgresTeamRepository(dbConn, clock), dbConn, closeFn, nil

	case config.StoreMongo:
		client, database, err := db.ConnectMongo(cfg.DatabaseURL, cfg.MongoDatabase, connectTimeout)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to mongo: %w", err)
		}
		if err := repositories.EnsureMongoIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, err
		}
		logger.Info("database connection established", slog.String("store", string(store)))
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Error("failed to disconnect mongo client", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}
		return repositories.NewMongoTeamRepository(database, clock), db.MongoPinger{Client: client}, closeFn, nil

	default:
		logger.Warn("using in-memory store, registrations are lost on restart")
		return repositories.NewMemoryTeamRepository(clock), nil, func() {}, nil
	}
}
