package release

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/mcrelease/internal/execshell"
	"github.com/temirov/mcrelease/internal/nexus"
	"github.com/temirov/mcrelease/internal/releases"
	"github.com/temirov/mcrelease/internal/secrets"
	"github.com/temirov/mcrelease/internal/staging"
	"github.com/temirov/mcrelease/internal/trigger"
	"github.com/temirov/mcrelease/internal/ui"
	flagutils "github.com/temirov/mcrelease/internal/utils/flags"
)

const (
	profileFieldNameConstant        = "profile"
	passwordSourceFieldNameConstant = "password_source"
	passwordFieldNameConstant       = "password"
	userAgentFieldNameConstant      = "user_agent"
	requiredValueMessageConstant    = "value required"
)

// CommandDependencies replaces collaborators the commands otherwise construct themselves.
type CommandDependencies struct {
	HTTPClient       nexus.HTTPClient
	AddressResolver  staging.AddressResolver
	PasswordResolver secrets.Resolver
	Waiter           releases.Waiter
	GitExecutor      trigger.GitExecutor
	CommandExecutor  trigger.CommandExecutor
}

type stagingSession struct {
	credentials nexus.Credentials
	client      *nexus.Client
	locator     *staging.Locator
}

func (builder *CommandBuilder) openSession(command *cobra.Command, configuration CommandConfiguration, logger *zap.Logger) (*stagingSession, error) {
	credentials, credentialsError := builder.resolveCredentials(command, configuration)
	if credentialsError != nil {
		return nil, credentialsError
	}

	httpClient := builder.Dependencies.HTTPClient
	if httpClient == nil {
		httpClient = nexus.NewDefaultHTTPClient(configuration.Staging.RequestTimeout)
	}

	client, clientError := nexus.NewClient(logger, httpClient, nexus.ClientConfiguration{
		BaseURL:     configuration.Staging.BaseURL,
		Credentials: credentials,
	})
	if clientError != nil {
		return nil, clientError
	}

	addressResolver := builder.Dependencies.AddressResolver
	if addressResolver == nil {
		addressResolver = staging.NewNetworkAddressResolver(logger, staging.NetworkAddressResolverConfiguration{
			EchoServiceURL: configuration.Staging.EchoServiceURL,
		})
	}

	return &stagingSession{
		credentials: credentials,
		client:      client,
		locator:     staging.NewLocator(logger, client, addressResolver),
	}, nil
}

func (builder *CommandBuilder) resolveCredentials(command *cobra.Command, configuration CommandConfiguration) (nexus.Credentials, error) {
	flagValues := flagutils.ResolveStagingFlags(command)
	username := flagutils.SelectString(flagValues.Username, flagValues.UsernameSet, configuration.Staging.Username)
	userAgent := resolveUserAgent(command, configuration)
	passwordSourceValue := flagutils.SelectString(flagValues.PasswordSource, flagValues.PasswordSourceSet, configuration.Staging.PasswordSource)

	passwordSource, parseError := secrets.ParseSource(passwordSourceValue)
	if parseError != nil {
		return nexus.Credentials{}, nexus.ConfigurationError{Field: passwordSourceFieldNameConstant, Message: parseError.Error()}
	}

	passwordResolver := builder.Dependencies.PasswordResolver
	if passwordResolver == nil {
		passwordResolver = secrets.NewResolver(nil, nil)
	}

	password, resolveError := passwordResolver.ResolvePassword(commandContext(command), passwordSource)
	if resolveError != nil {
		return nexus.Credentials{}, nexus.ConfigurationError{Field: passwordFieldNameConstant, Message: resolveError.Error()}
	}

	return nexus.NewCredentials(username, password, userAgent)
}

func resolveUserAgent(command *cobra.Command, configuration CommandConfiguration) string {
	flagValues := flagutils.ResolveStagingFlags(command)
	return flagutils.SelectString(flagValues.UserAgent, flagValues.UserAgentSet, configuration.Staging.UserAgent)
}

func resolveProfile(command *cobra.Command, configuration CommandConfiguration) (string, error) {
	flagValues := flagutils.ResolveStagingFlags(command)
	profile := flagutils.SelectString(flagValues.Profile, flagValues.ProfileSet, configuration.Staging.Profile)
	if len(profile) == 0 {
		return "", nexus.ConfigurationError{Field: profileFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return profile, nil
}

func (builder *CommandBuilder) resolveExecutors(logger *zap.Logger) (trigger.GitExecutor, trigger.CommandExecutor, error) {
	gitExecutor := builder.Dependencies.GitExecutor
	commandExecutor := builder.Dependencies.CommandExecutor
	if gitExecutor != nil && commandExecutor != nil {
		return gitExecutor, commandExecutor, nil
	}

	observers := []execshell.CommandEventObserver{}
	if builder.humanReadableLogging() {
		observers = append(observers, ui.NewConsoleCommandEventLogger(logger))
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), observers...)
	if executorError != nil {
		return nil, nil, executorError
	}

	if gitExecutor == nil {
		gitExecutor = shellExecutor
	}
	if commandExecutor == nil {
		commandExecutor = shellExecutor
	}
	return gitExecutor, commandExecutor, nil
}

func (builder *CommandBuilder) newReleaseService(session *stagingSession, logger *zap.Logger) (*releases.Service, error) {
	return releases.NewService(releases.ServiceDependencies{
		Locator: session.locator,
		Client:  session.client,
		Waiter:  builder.Dependencies.Waiter,
		Logger:  logger,
	})
}

func releaseOptions(profile string, session *stagingSession, configuration CommandConfiguration, descriptionFilter string) releases.Options {
	return releases.Options{
		ProfileName:       profile,
		Identity:          staging.IdentityFromCredentials(session.credentials),
		DescriptionFilter: descriptionFilter,
		PollInterval:      configuration.Release.PollInterval,
		CloseTimeout:      configuration.Release.CloseTimeout,
		PromoteTimeout:    configuration.Release.PromoteTimeout,
		ConsoleURL:        configuration.Staging.ConsoleURL,
	}
}
