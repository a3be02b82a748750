package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/danilgotvyansky/cpanel-exporter/internal/config"

	"go.uber.org/zap"
)

// CommandResult holds everything a finished command produced
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// CommandExecutor runs external commands on behalf of the collectors
type CommandExecutor interface {
	Execute(ctx context.Context, command string, args ...string) (*CommandResult, error)
}

type SystemCommandExecutor struct {
	logger  *zap.Logger
	timeout time.Duration
}

func NewSystemCommandExecutor(logger *zap.Logger, cfg *config.Config) *SystemCommandExecutor {
	return &SystemCommandExecutor{
		logger:  logger,
		timeout: cfg.UAPI.CommandTimeout.Duration,
	}
}

// Execute executes a command and returns its output streams and exit status
// Args:
// - ctx: context.Context, bounded further by the configured command timeout
// - command: string
// - args: []string
// Returns:
// - *CommandResult: stdout, stderr and exit code; a non-zero exit is not an error
// - error: error if the command could not be started or was cancelled
func (e *SystemCommandExecutor) Execute(ctx context.Context, command string, args ...string) (*CommandResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children of uapi may inherit the output pipes; do not wait on them forever after a kill
	cmd.WaitDelay = time.Second

	e.logger.Debug("Executing command",
		zap.String("command", command),
		zap.Strings("args", args),
	)

	start := time.Now()
	err := cmd.Run()
	result := &CommandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%s: %w", command, ctxErr)
		} else {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				result.ExitCode = exitErr.ExitCode()
				e.logger.Debug("Command exited with non-zero status",
					zap.String("command", command),
					zap.Strings("args", args),
					zap.Int("exit_code", result.ExitCode),
				)
				return result, nil
			}
		}
		e.logger.Error("Command execution failed",
			zap.String("command", command),
			zap.Strings("args", args),
			zap.Duration("duration", result.Duration),
			zap.Error(err),
		)
		return result, err
	}

	return result, nil
}
