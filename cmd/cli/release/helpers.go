package release

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/mcrelease/internal/releases"
	"github.com/temirov/mcrelease/internal/utils"
)

const (
	runIdentifierLogFieldConstant   = "run_id"
	releaseFailedLogMessageConstant = "release failed"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// OperatorFailure carries the console guidance shown to the operator while keeping the detailed cause for errors.Is and errors.As.
type OperatorFailure struct {
	Message string
	Cause   error
}

// Error returns the operator guidance.
func (failure OperatorFailure) Error() string {
	return failure.Message
}

// Unwrap exposes the detailed cause.
func (failure OperatorFailure) Unwrap() error {
	return failure.Cause
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func commandContext(command *cobra.Command) context.Context {
	if command == nil || command.Context() == nil {
		return context.Background()
	}
	return command.Context()
}

func withRunIdentifier(executionContext context.Context, logger *zap.Logger) *zap.Logger {
	runIdentifier, found := utils.NewCommandContextAccessor().ReleaseRunIdentifier(executionContext)
	if !found || len(strings.TrimSpace(runIdentifier)) == 0 {
		return logger
	}
	return logger.With(zap.String(runIdentifierLogFieldConstant, runIdentifier))
}

func reportFailure(logger *zap.Logger, failure error) error {
	var operatorError releases.OperatorError
	if !errors.As(failure, &operatorError) {
		return failure
	}
	logger.Error(releaseFailedLogMessageConstant, zap.Error(failure))
	return OperatorFailure{Message: operatorError.OperatorMessage(), Cause: failure}
}
