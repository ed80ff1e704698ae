// Package cli holds the bookingd commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"service-booking-backend/config"
	"service-booking-backend/internal/db"
	"service-booking-backend/internal/logging"
)

const defaultConfigPath = "./config/config.yaml"

func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "bookingd",
		Short:         "Service booking backend: time slots, reservations and booking status",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	envPath := os.Getenv("CONFIG_PATH")
	if envPath == "" {
		envPath = defaultConfigPath
	}
	root.PersistentFlags().StringVar(&configPath, "config", envPath, "path to the YAML config file (env CONFIG_PATH)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newGenerateCmd(&configPath))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime is what every command needs before doing its own work.
type runtime struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func setup(configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	log, err := logging.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &runtime{cfg: cfg, log: log, db: gormDB}, nil
}

func (rt *runtime) close() {
	if sqlDB, err := rt.db.DB(); err == nil {
		sqlDB.Close()
	}
	rt.log.Sync()
}
