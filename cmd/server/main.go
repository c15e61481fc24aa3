package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/civicmitra/backend/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "civicmitra",
	Short:         "CivicMitra backend: municipal complaint intake, routing and tracking",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// setup loads and validates the configuration and builds the root logger.
func setup() (config.Config, zerolog.Logger, error) {
	zerolog.TimeFieldFormat = time.RFC3339
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "civicmitra").Logger()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, logger, err
	}
	return cfg, logger, nil
}
