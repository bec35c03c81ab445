// Package pgload provides PostgreSQL load operations via psql.
package pgload

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/fgeck/goelt-homelab/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for PostgreSQL load operations.
type Service interface {
	Load(ctx context.Context, conn models.ConnectionConfig, inputPath string) (*models.LoadResult, error)
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	ExecuteWithEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// ExecuteWithEnv runs a command with additional environment variables.
// The extra entries are visible only to the child process.
func (e *DefaultExecutor) ExecuteWithEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

// Impl implements the pgload Service interface.
type Impl struct {
	executor CommandExecutor
	logger   zerolog.Logger
}

// New creates a new pgload service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new pgload service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
	}
}

// Load replays the dump artifact at inputPath into the destination
// database. ON_ERROR_STOP makes psql exit non-zero on the first SQL error
// instead of carrying on.
func (s *Impl) Load(ctx context.Context, conn models.ConnectionConfig, inputPath string) (*models.LoadResult, error) {
	s.logger.Info().
		Str("host", conn.Host).
		Int("port", conn.Port).
		Str("database", conn.Database).
		Str("input", inputPath).
		Msg("starting PostgreSQL load")

	start := time.Now()
	result := &models.LoadResult{
		InputPath: inputPath,
	}

	if _, err := os.Stat(inputPath); err != nil {
		result.Error = fmt.Errorf("dump artifact not readable: %w", err)
		result.Duration = time.Since(start)
		return result, nil
	}

	args := []string{
		"-h", conn.Host,
		"-p", fmt.Sprintf("%d", conn.Port),
		"-U", conn.Username,
		"-d", conn.Database,
		"-v", "ON_ERROR_STOP=1",
		"-w",
		"-f", inputPath,
	}

	env := []string{}
	if conn.Password != "" {
		env = append(env, fmt.Sprintf("PGPASSWORD=%s", conn.Password))
	}

	output, err := s.executor.ExecuteWithEnv(ctx, env, "psql", args...)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("psql failed: %w, output: %s", err, string(output))
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	s.logger.Info().
		Str("input", inputPath).
		Dur("duration", result.Duration).
		Msg("PostgreSQL load completed")

	return result, nil
}
