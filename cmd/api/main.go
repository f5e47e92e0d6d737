// @title Quiz Pilot API
// @version 1.0
// @description Triggers and inspects automated quiz runs.
// @host localhost:8090
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "quiz-pilot/cmd/api/docs"
	"quiz-pilot/internal/app"
	"quiz-pilot/internal/config"
	"quiz-pilot/internal/handler"
	"quiz-pilot/internal/logger"
	"quiz-pilot/internal/service"
	"quiz-pilot/internal/telemetry"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logger.Get()
	defer func() { _ = logger.Sync() }()

	tel, err := telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		appLogger.Fatal("Failed to set up telemetry", zap.Error(err))
	}

	container, err := app.Build(cfg, appLogger, app.Options{Persistence: true, Cache: true})
	if err != nil {
		appLogger.Fatal("Failed to build services", zap.Error(err))
	}
	defer func() { _ = container.Close() }()

	authService, err := service.NewAuthService(cfg)
	if err != nil {
		appLogger.Fatal("Failed to create AuthService", zap.Error(err))
	}

	dispatcher := service.NewRunDispatcher(container.Pipeline, container.Runs, container.Cache, cfg.Pipeline, logger.Named("dispatcher"))
	runService := service.NewRunService(dispatcher, container.Runs, container.Cache, container.Extractor, authService, appLogger)

	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": handler.PingerFunc(container.DB.PingContext),
		"redis":    container.Cache,
	})
	runHandler := handler.NewRunHandler(runService, cfg.Student)

	fiberApp := handler.NewApp(cfg.Server)
	handler.RegisterRoutes(fiberApp, runHandler, healthHandler, authService)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := fiberApp.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fiberApp.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		appLogger.Warn("Runs still in flight were canceled", zap.Error(err))
	}
	if err := tel.Shutdown(ctx); err != nil {
		appLogger.Warn("Failed to flush traces", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
