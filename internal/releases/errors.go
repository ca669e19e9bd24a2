package releases

import (
	"fmt"
	"time"
)

const (
	noCandidateMessageTemplateConstant         = "no staging repository found for profile %s"
	ambiguousCandidatesMessageTemplateConstant = "ambiguous staging repositories for profile %s (%d candidates): manual resolution required"
	closeRejectedMessageTemplateConstant       = "close rejected for %s: release likely fails Central requirements"
	promoteRejectedMessageTemplateConstant     = "promote rejected for %s"
	rejectionCauseTemplateConstant             = "%s: %v"
	validationMessageTemplateConstant          = "promotion of %s reported %d validation notification(s)"
	pollTimeoutMessageTemplateConstant         = "timed out after %s while %s"
	stageFailureMessageTemplateConstant        = "release failed while %s: %v"
	stageFailureOperatorTemplateConstant       = "release failed while %s"
	operatorMessageTemplateConstant            = "%s; resolve it manually in the repository manager console at %s"
	closeOperationConstant                     = "close"
	promoteOperationConstant                   = "promote"
)

// OperatorError carries a short, actionable summary for the person running the release.
type OperatorError interface {
	error
	OperatorMessage() string
}

// AmbiguityError reports that locating the staging repository did not yield exactly one candidate.
type AmbiguityError struct {
	ProfileName    string
	CandidateCount int
	ConsoleURL     string
}

// Error describes the candidate count problem.
func (ambiguityError AmbiguityError) Error() string {
	if ambiguityError.CandidateCount == 0 {
		return fmt.Sprintf(noCandidateMessageTemplateConstant, ambiguityError.ProfileName)
	}
	return fmt.Sprintf(ambiguousCandidatesMessageTemplateConstant, ambiguityError.ProfileName, ambiguityError.CandidateCount)
}

// OperatorMessage points the operator at the console.
func (ambiguityError AmbiguityError) OperatorMessage() string {
	return withConsoleHint(ambiguityError.Error(), ambiguityError.ConsoleURL)
}

// RemoteRejectionError reports that the repository manager refused a close or promote request.
type RemoteRejectionError struct {
	Operation    string
	RepositoryID string
	ConsoleURL   string
	Cause        error
}

// Error describes the rejection and its cause.
func (rejectionError RemoteRejectionError) Error() string {
	if rejectionError.Cause == nil {
		return rejectionError.summary()
	}
	return fmt.Sprintf(rejectionCauseTemplateConstant, rejectionError.summary(), rejectionError.Cause)
}

// OperatorMessage omits the low-level cause.
func (rejectionError RemoteRejectionError) OperatorMessage() string {
	return withConsoleHint(rejectionError.summary(), rejectionError.ConsoleURL)
}

// Unwrap exposes the transport failure.
func (rejectionError RemoteRejectionError) Unwrap() error {
	return rejectionError.Cause
}

func (rejectionError RemoteRejectionError) summary() string {
	if rejectionError.Operation == closeOperationConstant {
		return fmt.Sprintf(closeRejectedMessageTemplateConstant, rejectionError.RepositoryID)
	}
	return fmt.Sprintf(promoteRejectedMessageTemplateConstant, rejectionError.RepositoryID)
}

// ValidationNotificationError reports validation rule violations observed while waiting for promotion.
type ValidationNotificationError struct {
	RepositoryID  string
	Notifications int
	ConsoleURL    string
}

// Error describes the notification count.
func (validationError ValidationNotificationError) Error() string {
	return fmt.Sprintf(validationMessageTemplateConstant, validationError.RepositoryID, validationError.Notifications)
}

// OperatorMessage points the operator at the console.
func (validationError ValidationNotificationError) OperatorMessage() string {
	return withConsoleHint(validationError.Error(), validationError.ConsoleURL)
}

// PollTimeoutError reports that a wait stage exceeded its deadline.
type PollTimeoutError struct {
	Stage      State
	Timeout    time.Duration
	ConsoleURL string
}

// Error describes the expired stage.
func (timeoutError *PollTimeoutError) Error() string {
	return fmt.Sprintf(pollTimeoutMessageTemplateConstant, timeoutError.Timeout, timeoutError.Stage.Description())
}

// OperatorMessage points the operator at the console.
func (timeoutError *PollTimeoutError) OperatorMessage() string {
	return withConsoleHint(timeoutError.Error(), timeoutError.ConsoleURL)
}

// StageFailureError wraps configuration, transport, and cancellation failures with the stage they interrupted.
type StageFailureError struct {
	Stage      State
	ConsoleURL string
	Cause      error
}

// Error describes the stage and cause.
func (stageError StageFailureError) Error() string {
	return fmt.Sprintf(stageFailureMessageTemplateConstant, stageError.Stage.Description(), stageError.Cause)
}

// OperatorMessage points the operator at the console.
func (stageError StageFailureError) OperatorMessage() string {
	return withConsoleHint(fmt.Sprintf(stageFailureOperatorTemplateConstant, stageError.Stage.Description()), stageError.ConsoleURL)
}

// Unwrap exposes the underlying failure.
func (stageError StageFailureError) Unwrap() error {
	return stageError.Cause
}

func withConsoleHint(message string, consoleURL string) string {
	if len(consoleURL) == 0 {
		return message
	}
	return fmt.Sprintf(operatorMessageTemplateConstant, message, consoleURL)
}
