package trigger

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/temirov/mcrelease/internal/execshell"
	"github.com/temirov/mcrelease/internal/nexus"
)

const (
	// DefaultDeployURL is the OSSRH staging deploy endpoint.
	DefaultDeployURL = "https://oss.sonatype.org/service/local/staging/deploy/maven2/"

	// DeployURLEnvironmentVariable carries the deploy URL into the upload command.
	DeployURLEnvironmentVariable = "STAGING_DEPLOY_URL"
	// UsernameEnvironmentVariable carries the account name into the upload command.
	UsernameEnvironmentVariable = "STAGING_USERNAME"
	// PasswordEnvironmentVariable carries the password into the upload command.
	PasswordEnvironmentVariable = "STAGING_PASSWORD"
	// UserAgentEnvironmentVariable carries the User-Agent the upload must send; releases locate staging repositories by it.
	UserAgentEnvironmentVariable = "STAGING_USER_AGENT"

	uploadCommandFieldNameConstant = "upload_command"
	deployURLFieldNameConstant     = "deploy_url"
	credentialsFieldNameConstant   = "credentials"
	requiredValueMessageConstant   = "value required"
	httpsRequiredMessageConstant   = "must be an absolute https URL"
	httpsSchemeConstant            = "https"
)

// ErrCommandExecutorNotConfigured indicates the uploader was built without an executor.
var ErrCommandExecutorNotConfigured = errors.New("command executor not configured")

// CommandExecutor runs arbitrary commands.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// UploadConfiguration is everything the upload step needs. It is passed by value and never stored.
type UploadConfiguration struct {
	CommandLine      string
	WorkingDirectory string
	DeployURL        string
	Credentials      nexus.Credentials
}

// Uploader runs the build tool command that stages artifacts.
type Uploader struct {
	executor CommandExecutor
}

// NewUploader validates the executor.
func NewUploader(executor CommandExecutor) (*Uploader, error) {
	if executor == nil {
		return nil, ErrCommandExecutorNotConfigured
	}
	return &Uploader{executor: executor}, nil
}

// Upload runs the configured command with the deploy target and credentials exposed only through
// the child process environment.
func (uploader *Uploader) Upload(executionContext context.Context, configuration UploadConfiguration) error {
	commandName, arguments := execshell.ParseCommandLine(configuration.CommandLine)
	if len(commandName) == 0 {
		return nexus.ConfigurationError{Field: uploadCommandFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if configuration.Credentials.IsZero() {
		return nexus.ConfigurationError{Field: credentialsFieldNameConstant, Message: requiredValueMessageConstant}
	}

	deployURL := strings.TrimSpace(configuration.DeployURL)
	if len(deployURL) == 0 {
		deployURL = DefaultDeployURL
	}
	parsedDeployURL, parseError := url.Parse(deployURL)
	if parseError != nil || len(parsedDeployURL.Host) == 0 || !strings.EqualFold(parsedDeployURL.Scheme, httpsSchemeConstant) {
		return nexus.ConfigurationError{Field: deployURLFieldNameConstant, Message: httpsRequiredMessageConstant}
	}

	_, executionError := uploader.executor.Execute(executionContext, execshell.ShellCommand{
		Name: commandName,
		Details: execshell.CommandDetails{
			Arguments:        arguments,
			WorkingDirectory: configuration.WorkingDirectory,
			EnvironmentVariables: map[string]string{
				DeployURLEnvironmentVariable: deployURL,
				UsernameEnvironmentVariable:  configuration.Credentials.Username(),
				PasswordEnvironmentVariable:  configuration.Credentials.Password(),
				UserAgentEnvironmentVariable: configuration.Credentials.UserAgent(),
			},
		},
	})
	return executionError
}
