package main

import (
	"fmt"
	"os"

	"quiz-pilot/internal/config"
	"quiz-pilot/internal/database"
	"quiz-pilot/internal/logger"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("migrate")

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.DB.Driver, err)
	}
	defer db.Close()

	if err := database.RunMigrations(db, log); err != nil {
		return err
	}
	log.Info("Schema is up to date", zap.String("driver", cfg.DB.Driver))
	return nil
}
