package releases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/mcrelease/internal/nexus"
	"github.com/temirov/mcrelease/internal/staging"
)

const (
	// DefaultPollInterval separates consecutive locator polls.
	DefaultPollInterval = time.Second
	// DefaultCloseTimeout bounds the wait for a closed repository.
	DefaultCloseTimeout = 10 * time.Minute
	// DefaultPromoteTimeout bounds the wait for promotion to finish.
	DefaultPromoteTimeout = 20 * time.Minute
	// DefaultConsoleURL is the repository manager web console shown in operator messages.
	DefaultConsoleURL = "https://oss.sonatype.org/index.html#stagingRepositories"

	closeDescriptionTemplateConstant   = "Closing repository for %s"
	promoteDescriptionTemplateConstant = "Promoting repository for %s"
	profileFieldNameConstant           = "profile"
	requiredValueMessageConstant       = "value required"
	stateLogMessageConstant            = "release state changed"
	pollReadFailedLogMessageConstant   = "staging repository poll failed; retrying"
	pollWaitingLogMessageConstant      = "staging repository not ready; waiting"
	logFieldStateConstant              = "state"
	logFieldProfileConstant            = "profile"
	logFieldRepositoryIDConstant       = "repository_id"
	logFieldPollConstant               = "poll"
)

// ErrLocatorNotConfigured indicates the service was built without a repository locator.
var ErrLocatorNotConfigured = errors.New("staging repository locator not configured")

// ErrClientNotConfigured indicates the service was built without a staging client.
var ErrClientNotConfigured = errors.New("staging client not configured")

// RepositoryLocator finds staging repositories owned by the caller.
type RepositoryLocator interface {
	Find(executionContext context.Context, profileName string, identity staging.Identity, options staging.FindOptions) ([]nexus.StagingRepository, error)
}

// StagingClient issues the lifecycle mutations.
type StagingClient interface {
	CloseRepository(executionContext context.Context, request nexus.ReleaseRequest) error
	PromoteRepository(executionContext context.Context, request nexus.ReleaseRequest) error
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	Locator RepositoryLocator
	Client  StagingClient
	Waiter  Waiter
	Logger  *zap.Logger
}

// Options configure a single release run. Zero durations select the defaults.
type Options struct {
	ProfileName       string
	Identity          staging.Identity
	DescriptionFilter string
	PollInterval      time.Duration
	CloseTimeout      time.Duration
	PromoteTimeout    time.Duration
	ConsoleURL        string
}

// Result summarizes a release run.
type Result struct {
	State        State
	RepositoryID string
	ClosePolls   int
	PromotePolls int
}

// Service drives one staging repository from located to promoted.
type Service struct {
	locator RepositoryLocator
	client  StagingClient
	waiter  Waiter
	logger  *zap.Logger
}

// NewService validates dependencies and fills optional ones with defaults.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Locator == nil {
		return nil, ErrLocatorNotConfigured
	}
	if dependencies.Client == nil {
		return nil, ErrClientNotConfigured
	}

	waiter := dependencies.Waiter
	if waiter == nil {
		waiter = TimerWaiter{}
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		locator: dependencies.Locator,
		client:  dependencies.Client,
		waiter:  waiter,
		logger:  logger,
	}, nil
}

// Release locates the caller's staging repository, closes it, and promotes it.
// Close and promote are never retried; only the read polls between them are.
func (service *Service) Release(executionContext context.Context, options Options) (Result, error) {
	run := newReleaseRun(service, normalizeOptions(options))
	return run.execute(executionContext)
}

type releaseRun struct {
	service *Service
	options Options
	logger  *zap.Logger
	result  Result
}

func newReleaseRun(service *Service, options Options) *releaseRun {
	return &releaseRun{
		service: service,
		options: options,
		logger:  service.logger.With(zap.String(logFieldProfileConstant, options.ProfileName)),
	}
}

func (run *releaseRun) execute(executionContext context.Context) (Result, error) {
	if len(run.options.ProfileName) == 0 {
		return run.fail(run.stageFailure(StateLocated, nexus.ConfigurationError{Field: profileFieldNameConstant, Message: requiredValueMessageConstant}))
	}

	candidates, locateError := run.service.locator.Find(executionContext, run.options.ProfileName, run.options.Identity, run.findOptions(true))
	if locateError != nil {
		return run.fail(run.stageFailure(StateLocated, locateError))
	}
	if len(candidates) != 1 {
		return run.fail(AmbiguityError{ProfileName: run.options.ProfileName, CandidateCount: len(candidates), ConsoleURL: run.options.ConsoleURL})
	}

	run.result.RepositoryID = candidates[0].RepositoryID
	run.logger = run.logger.With(zap.String(logFieldRepositoryIDConstant, run.result.RepositoryID))
	run.transition(StateLocated)

	run.transition(StateClosing)
	closeRequest := nexus.ReleaseRequest{
		RepositoryID: run.result.RepositoryID,
		ProfileName:  run.options.ProfileName,
		Description:  fmt.Sprintf(closeDescriptionTemplateConstant, run.options.ProfileName),
	}
	if closeError := run.service.client.CloseRepository(executionContext, closeRequest); closeError != nil {
		return run.fail(run.rejection(closeOperationConstant, closeError))
	}

	run.transition(StateWaitingClosed)
	closePolls, closeWaitError := run.poll(executionContext, StateWaitingClosed, run.options.CloseTimeout, run.closedAttempt)
	run.result.ClosePolls = closePolls
	if closeWaitError != nil {
		return run.fail(closeWaitError)
	}

	run.transition(StatePromoting)
	promoteRequest := nexus.ReleaseRequest{
		RepositoryID: run.result.RepositoryID,
		ProfileName:  run.options.ProfileName,
		Description:  fmt.Sprintf(promoteDescriptionTemplateConstant, run.options.ProfileName),
	}
	if promoteError := run.service.client.PromoteRepository(executionContext, promoteRequest); promoteError != nil {
		return run.fail(run.rejection(promoteOperationConstant, promoteError))
	}

	run.transition(StateWaitingPromoted)
	promotePolls, promoteWaitError := run.poll(executionContext, StateWaitingPromoted, run.options.PromoteTimeout, run.promotedAttempt)
	run.result.PromotePolls = promotePolls
	if promoteWaitError != nil {
		return run.fail(promoteWaitError)
	}

	run.transition(StateSucceeded)
	return run.result, nil
}

func (run *releaseRun) closedAttempt(pollContext context.Context) (bool, error) {
	candidates, findError := run.service.locator.Find(pollContext, run.options.ProfileName, run.options.Identity, run.findOptions(true))
	if findError != nil {
		return false, findError
	}
	return len(candidates) > 0, nil
}

func (run *releaseRun) promotedAttempt(pollContext context.Context) (bool, error) {
	candidates, findError := run.service.locator.Find(pollContext, run.options.ProfileName, run.options.Identity, run.findOptions(false))
	if findError != nil {
		return false, findError
	}

	switch len(candidates) {
	case 0:
		return true, nil
	case 1:
		if candidates[0].Notifications > 0 {
			return false, ValidationNotificationError{
				RepositoryID:  run.result.RepositoryID,
				Notifications: candidates[0].Notifications,
				ConsoleURL:    run.options.ConsoleURL,
			}
		}
		return false, nil
	default:
		return false, AmbiguityError{ProfileName: run.options.ProfileName, CandidateCount: len(candidates), ConsoleURL: run.options.ConsoleURL}
	}
}

func (run *releaseRun) findOptions(ignoreTransitioning bool) staging.FindOptions {
	return staging.FindOptions{IgnoreTransitioning: ignoreTransitioning, DescriptionFilter: run.options.DescriptionFilter}
}

func (run *releaseRun) transition(state State) {
	run.result.State = state
	run.logger.Info(stateLogMessageConstant, zap.String(logFieldStateConstant, string(state)))
}

func (run *releaseRun) fail(failure error) (Result, error) {
	var operatorError OperatorError
	if !errors.As(failure, &operatorError) {
		failure = run.stageFailure(run.currentStage(), failure)
	}
	run.result.State = StateFailed
	run.logger.Info(stateLogMessageConstant, zap.String(logFieldStateConstant, string(StateFailed)), zap.Error(failure))
	return run.result, failure
}

func (run *releaseRun) rejection(operation string, cause error) error {
	if contextError := contextFailure(cause); contextError != nil {
		return run.stageFailure(run.result.State, contextError)
	}
	return RemoteRejectionError{Operation: operation, RepositoryID: run.result.RepositoryID, ConsoleURL: run.options.ConsoleURL, Cause: cause}
}

func (run *releaseRun) currentStage() State {
	if len(run.result.State) == 0 {
		return StateLocated
	}
	return run.result.State
}

func (run *releaseRun) stageFailure(stage State, cause error) error {
	return StageFailureError{Stage: stage, ConsoleURL: run.options.ConsoleURL, Cause: cause}
}

func normalizeOptions(options Options) Options {
	options.ProfileName = strings.TrimSpace(options.ProfileName)
	options.DescriptionFilter = strings.TrimSpace(options.DescriptionFilter)
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	if options.CloseTimeout <= 0 {
		options.CloseTimeout = DefaultCloseTimeout
	}
	if options.PromoteTimeout <= 0 {
		options.PromoteTimeout = DefaultPromoteTimeout
	}
	options.ConsoleURL = strings.TrimSpace(options.ConsoleURL)
	if len(options.ConsoleURL) == 0 {
		options.ConsoleURL = DefaultConsoleURL
	}
	return options
}

func contextFailure(failure error) error {
	switch {
	case errors.Is(failure, context.Canceled):
		return context.Canceled
	case errors.Is(failure, context.DeadlineExceeded):
		return context.DeadlineExceeded
	default:
		return nil
	}
}
