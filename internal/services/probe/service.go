// Package probe polls a PostgreSQL server until it accepts connections.
package probe

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/fgeck/goelt-homelab/internal/models"
	"github.com/rs/zerolog"
)

// readyMarker is printed by pg_isready when the server accepts connections.
// A zero exit status alone is not enough; the marker must be present too.
const readyMarker = "accepting connections"

// Service defines the interface for server availability probing.
type Service interface {
	WaitForAvailable(ctx context.Context, host string, settings models.ProbeSettings) bool
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Sleeper allows mocking the inter-retry delay in tests.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its combined output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// DefaultSleeper sleeps on the calling goroutine, aborting early on
// context cancellation.
type DefaultSleeper struct{}

// Sleep waits for d or until ctx is done, whichever comes first.
func (s *DefaultSleeper) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Impl implements the probe Service interface.
type Impl struct {
	executor CommandExecutor
	sleeper  Sleeper
	logger   zerolog.Logger
}

// New creates a new probe service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		sleeper:  &DefaultSleeper{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new probe service with custom collaborators (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor, sleeper Sleeper) *Impl {
	return &Impl{
		executor: executor,
		sleeper:  sleeper,
		logger:   logger,
	}
}

// WaitForAvailable polls host with pg_isready until it reports ready, up to
// settings.MaxRetries attempts with settings.Delay between them. Probe tool
// failures never escape; only the aggregate outcome does. MaxRetries == 0
// returns false without running the tool at all, and no delay follows the
// final failed attempt.
func (s *Impl) WaitForAvailable(ctx context.Context, host string, settings models.ProbeSettings) bool {
	for attempt := 1; attempt <= settings.MaxRetries; attempt++ {
		output, err := s.executor.Execute(ctx, "pg_isready", "-h", host)
		if err == nil && strings.Contains(string(output), readyMarker) {
			s.logger.Info().
				Str("host", host).
				Int("attempt", attempt).
				Msg("PostgreSQL server is available")
			return true
		}

		s.logger.Error().
			Err(err).
			Str("host", host).
			Int("attempt", attempt).
			Str("output", strings.TrimSpace(string(output))).
			Msg("PostgreSQL server is not available")

		if attempt == settings.MaxRetries {
			break
		}

		s.logger.Info().
			Str("host", host).
			Dur("delay", settings.Delay).
			Msg("retrying after delay")

		if err := s.sleeper.Sleep(ctx, settings.Delay); err != nil {
			s.logger.Error().Err(err).Str("host", host).Msg("probe cancelled")
			return false
		}
	}

	s.logger.Error().
		Str("host", host).
		Int("max_retries", settings.MaxRetries).
		Msg("PostgreSQL server is not available after retries")

	return false
}
