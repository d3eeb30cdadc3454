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

	"github.com/timmy/folio/internal/api"
	"github.com/timmy/folio/internal/api/handler"
	"github.com/timmy/folio/internal/api/middleware"
	"github.com/timmy/folio/internal/app"
	"github.com/timmy/folio/internal/config"
	"github.com/timmy/folio/internal/llm"
	"github.com/timmy/folio/internal/logger"
	"github.com/timmy/folio/internal/popularity"
	"github.com/timmy/folio/internal/service"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH points at the config file in deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := app.OpenStores(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	defer stores.Close()

	uploads, err := app.NewUploadService(ctx, cfg, stores, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize upload service")
	}
	uploads.OnProgress(func(p service.Progress) {
		appLogger.WithFields(logger.Fields{
			logger.FieldJobIndex: p.JobIndex,
			"overall":            p.Overall,
			"current":            p.Current,
		}).Debug("Upload progress")
	})

	sources, err := app.DatasetSources(cfg.Upload.DatasetPath)
	if err != nil {
		appLogger.WithError(err).Warn("Dataset sources unavailable, only inline uploads are accepted")
	}

	completer, err := llm.NewCompleter(&cfg.LLM)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize completion client")
	}
	appLogger.WithFields(logger.Fields{
		"provider": cfg.LLM.Provider,
		"model":    cfg.LLM.Model,
	}).Info("Completion client ready")

	checks := map[string]handler.HealthCheck{"database": stores.Ping}

	var ranking popularity.Store = popularity.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		redisStore, err := popularity.NewRedisStore(ctx, popularity.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
		if err != nil {
			appLogger.WithError(err).Warn("Redis unavailable, ranking suggestions in memory")
		} else {
			defer redisStore.Close()
			ranking = redisStore
			checks["redis"] = redisStore.Ping
		}
	}

	chats := service.NewChatService(service.ChatDeps{
		Completer:  completer,
		Portfolio:  service.NewRepositoryContext(stores.Projects, stores.Certificates, cfg.Chat.ContextItems),
		Popularity: ranking,
		Logger:     appLogger,
	}, app.ChatConfig(cfg.Chat))

	go chats.RunJanitor(ctx, cfg.Chat.SessionSweepInterval, cfg.Chat.SessionIdleTimeout)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	go limiter.RunJanitor(ctx, time.Minute, 3*time.Minute)

	router := api.SetupRouter(&cfg.Server, api.Handlers{
		Health:       handler.NewHealthHandler(checks),
		Uploads:      handler.NewUploadHandler(uploads, sources, stores.Runs),
		Chat:         handler.NewChatHandler(chats),
		Certificates: handler.NewCertificateHandler(stores.Certificates),
		Projects:     handler.NewProjectHandler(stores.Projects),
	}, limiter)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	chats.CloseAll(shutdownCtx)
	if err := uploads.Stop(shutdownCtx); err == nil {
		select {
		case <-uploads.Done():
		case <-shutdownCtx.Done():
			appLogger.Warn("Upload run did not finish before shutdown")
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
