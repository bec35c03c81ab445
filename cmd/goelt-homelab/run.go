package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/goelt-homelab/internal/config"
	"github.com/fgeck/goelt-homelab/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the transfer pipeline",
	Long: `Execute the complete transfer pipeline:
1. Wake-on-LAN of the source host (if configured)
2. Wait for the source server to accept connections
3. Wait for the destination server to accept connections
4. Dump the source database with pg_dump
5. Load the dump into the destination with psql
6. SSH shutdown of the source host (if configured)
7. Send Telegram notification (if configured)`,
	RunE: runTransfer,
}

func runTransfer(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Load configuration. Configuration failures are fatal before any
	// probe runs.
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	log.Info().
		Str("config", configFile).
		Str("source", cfg.Source.Host).
		Str("destination", cfg.Destination.Host).
		Str("database", cfg.Source.Database).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	// Run transfer
	runnerSvc := runner.New(log.Logger)
	if err := runnerSvc.Run(ctx, *cfg); err != nil {
		log.Error().Err(err).Msg("transfer failed")
		return err
	}

	return nil
}
