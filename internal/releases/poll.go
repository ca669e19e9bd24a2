package releases

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/mcrelease/internal/nexus"
)

type pollAttempt func(pollContext context.Context) (bool, error)

// poll runs attempt immediately and then once per interval until it reports completion,
// returns a non-retryable error, or the stage deadline passes. Transport errors are retried.
func (run *releaseRun) poll(executionContext context.Context, stage State, timeout time.Duration, attempt pollAttempt) (int, error) {
	stageContext, cancel := context.WithTimeout(executionContext, timeout)
	defer cancel()

	polls := 0
	for {
		if stageContext.Err() != nil {
			return polls, run.pollInterrupted(executionContext, stage, timeout)
		}

		polls++
		completed, attemptError := attempt(stageContext)
		switch {
		case attemptError == nil && completed:
			return polls, nil
		case attemptError == nil:
			run.logger.Debug(pollWaitingLogMessageConstant, zap.String(logFieldStateConstant, string(stage)), zap.Int(logFieldPollConstant, polls))
		case isRetryablePollError(attemptError):
			run.logger.Warn(pollReadFailedLogMessageConstant, zap.String(logFieldStateConstant, string(stage)), zap.Int(logFieldPollConstant, polls), zap.Error(attemptError))
		default:
			return polls, attemptError
		}

		if waitError := run.service.waiter.Wait(stageContext, run.options.PollInterval); waitError != nil {
			return polls, run.pollInterrupted(executionContext, stage, timeout)
		}
	}
}

func (run *releaseRun) pollInterrupted(executionContext context.Context, stage State, timeout time.Duration) error {
	if callerError := executionContext.Err(); callerError != nil {
		return run.stageFailure(stage, callerError)
	}
	return &PollTimeoutError{Stage: stage, Timeout: timeout, ConsoleURL: run.options.ConsoleURL}
}

func isRetryablePollError(pollError error) bool {
	var transportError *nexus.TransportError
	return errors.As(pollError, &transportError)
}
