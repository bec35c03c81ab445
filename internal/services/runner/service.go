// Package runner orchestrates the ELT transfer pipeline.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fgeck/goelt-homelab/internal/models"
	"github.com/fgeck/goelt-homelab/internal/services/pgdump"
	"github.com/fgeck/goelt-homelab/internal/services/pgload"
	"github.com/fgeck/goelt-homelab/internal/services/probe"
	"github.com/fgeck/goelt-homelab/internal/services/sshshutdown"
	"github.com/fgeck/goelt-homelab/internal/services/telegram"
	"github.com/fgeck/goelt-homelab/internal/services/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for the transfer runner.
type Service interface {
	Run(ctx context.Context, cfg models.TransferConfig) error
}

// Impl implements the runner Service interface.
type Impl struct {
	probeSvc    probe.Service
	dumpSvc     pgdump.Service
	loadSvc     pgload.Service
	wolSvc      wol.Service
	sshSvc      sshshutdown.Service
	telegramSvc telegram.Service
	logger      zerolog.Logger
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		probeSvc:    probe.New(logger),
		dumpSvc:     pgdump.New(logger),
		loadSvc:     pgload.New(logger),
		wolSvc:      wol.New(logger),
		sshSvc:      sshshutdown.New(logger),
		telegramSvc: telegram.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	probeSvc probe.Service,
	dumpSvc pgdump.Service,
	loadSvc pgload.Service,
	wolSvc wol.Service,
	sshSvc sshshutdown.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		probeSvc:    probeSvc,
		dumpSvc:     dumpSvc,
		loadSvc:     loadSvc,
		wolSvc:      wolSvc,
		sshSvc:      sshSvc,
		telegramSvc: telegramSvc,
		logger:      logger,
	}
}

// Run executes the transfer pipeline: wake the source (if configured),
// confirm both servers accept connections, dump the source database, load
// it into the destination, then power off the source (if configured).
// Liveness of both sides is confirmed before any data movement so a dump
// is never produced for a destination that cannot take it. Any stage
// failure aborts the run; later stages never execute. The dump artifact is
// left on disk for inspection.
//
//nolint:gocognit,gocyclo // sequential multi-stage workflow
func (s *Impl) Run(ctx context.Context, cfg models.TransferConfig) error {
	startTime := time.Now()
	var failedStep string
	var runErr error
	var dumpResult *models.DumpResult

	s.logger.Info().
		Str("source", cfg.Source.Host).
		Str("destination", cfg.Destination.Host).
		Str("database", cfg.Source.Database).
		Msg("starting ELT pipeline")

	defer func() {
		if cfg.Telegram != nil {
			s.sendNotification(ctx, cfg, startTime, failedStep, runErr, dumpResult)
		}
	}()

	// Step 1: Wake-on-LAN (if configured)
	if cfg.WOL != nil {
		failedStep = "wol"
		if err := s.runWOL(ctx, cfg.WOL); err != nil {
			runErr = err
			return err
		}
	}

	// Step 2: wait for the source server
	failedStep = "probe_source"
	if !s.probeSvc.WaitForAvailable(ctx, cfg.Source.Host, cfg.Probe) {
		runErr = fmt.Errorf("source server %s is not available", cfg.Source.Host)
		return runErr
	}

	// Step 3: wait for the destination server
	failedStep = "probe_destination"
	if !s.probeSvc.WaitForAvailable(ctx, cfg.Destination.Host, cfg.Probe) {
		runErr = fmt.Errorf("destination server %s is not available", cfg.Destination.Host)
		return runErr
	}

	s.logger.Info().Msg("running ELT pipeline")

	// Step 4: extract
	failedStep = "dump"
	artifactPath := filepath.Join(cfg.Transfer.WorkDir, pgdump.GetOutputFilename(cfg.Source))

	result, err := s.dumpSvc.Dump(ctx, cfg.Source, artifactPath)
	if err != nil {
		runErr = err
		s.logger.Error().Err(err).Msg("Failed to dump data")
		return fmt.Errorf("dump failed: %w", err)
	}
	if result.Error != nil {
		runErr = result.Error
		s.logger.Error().Err(result.Error).Msg("Failed to dump data")
		return fmt.Errorf("dump failed: %w", result.Error)
	}
	dumpResult = result

	// Step 5: load, from the exact artifact the dump produced
	failedStep = "load"
	loadResult, err := s.loadSvc.Load(ctx, cfg.Destination, result.OutputPath)
	if err != nil {
		runErr = err
		s.logger.Error().Err(err).Msg("Failed to load data")
		return fmt.Errorf("load failed: %w", err)
	}
	if loadResult.Error != nil {
		runErr = loadResult.Error
		s.logger.Error().Err(loadResult.Error).Msg("Failed to load data")
		return fmt.Errorf("load failed: %w", loadResult.Error)
	}

	// Step 6: SSH shutdown of the source host (if configured)
	if cfg.SSHShutdown != nil {
		failedStep = "ssh_shutdown"
		if err := s.runSSHShutdown(ctx, cfg.SSHShutdown); err != nil {
			runErr = err
			return err
		}
	}

	failedStep = ""
	s.logger.Info().
		Str("artifact", result.OutputPath).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", time.Since(startTime)).
		Msg("ELT pipeline completed")

	return nil
}

func (s *Impl) runWOL(ctx context.Context, cfg *models.WOLConfig) error {
	result, err := s.wolSvc.Wake(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("WOL failed: %w", err)
	}
	if result.Error != nil {
		return fmt.Errorf("WOL failed: %w", result.Error)
	}

	s.logger.Info().
		Bool("packet_sent", result.PacketSent).
		Msg("WOL completed")

	return nil
}

func (s *Impl) runSSHShutdown(ctx context.Context, cfg *models.SSHShutdownConfig) error {
	result, err := s.sshSvc.Shutdown(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("SSH shutdown failed: %w", err)
	}
	if result.Error != nil {
		// The host may drop the connection while going down; only treat
		// it as a failure when the command never ran.
		if !result.CommandRun {
			return fmt.Errorf("SSH shutdown failed: %w", result.Error)
		}
		s.logger.Warn().
			Err(result.Error).
			Str("output", result.Output).
			Msg("shutdown command returned error (may be expected)")
	}

	return nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	cfg models.TransferConfig,
	startTime time.Time,
	failedStep string,
	runErr error,
	dumpResult *models.DumpResult,
) {
	msg := models.TelegramMessage{
		Success:         runErr == nil,
		SourceHost:      cfg.Source.Host,
		DestinationHost: cfg.Destination.Host,
		Database:        cfg.Source.Database,
		StartTime:       startTime,
		Duration:        time.Since(startTime),
	}

	if dumpResult != nil {
		msg.DumpSizeBytes = dumpResult.SizeBytes
		msg.ArtifactPath = dumpResult.OutputPath
	}

	if runErr != nil {
		msg.FailedStep = failedStep
		msg.ErrorMessage = runErr.Error()
	}

	result, err := s.telegramSvc.SendNotification(ctx, *cfg.Telegram, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}
