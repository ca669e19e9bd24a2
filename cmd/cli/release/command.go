package release

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/mcrelease/internal/nexus"
	"github.com/temirov/mcrelease/internal/staging"
	"github.com/temirov/mcrelease/internal/trigger"
	flagutils "github.com/temirov/mcrelease/internal/utils/flags"
	pathutils "github.com/temirov/mcrelease/internal/utils/path"
)

const (
	releaseCommandUseConstant               = "release"
	releaseCommandShortConstant             = "Close and promote the staging repository uploaded by this machine"
	releaseCommandLongConstant              = "release finds the single open staging repository owned by the configured user, user agent, and caller address, closes it, waits for the repository manager to validate it, then promotes it to the release repository."
	releaseCommandExampleConstant           = "mcrelease release --profile com.example --username deployer --password-source env:OSSRH_PASSWORD"
	publishCommandUseConstant               = "publish"
	publishCommandShortConstant             = "Upload artifacts and release them when the checked out tag is on a release branch"
	publishCommandLongConstant              = "publish checks that the tag at HEAD is reachable from a release branch, runs the configured upload command with the staging credentials in its environment, and then releases the resulting staging repository."
	publishCommandExampleConstant           = "mcrelease publish --profile com.example --username deployer --branch main --branch release"
	dropCommandUseConstant                  = "drop <repository-id>"
	dropCommandShortConstant                = "Discard a staging repository"
	dropCommandExampleConstant              = "mcrelease drop comexample-1001 --username deployer"
	listCommandUseConstant                  = "list"
	listCommandShortConstant                = "List staging repositories owned by this machine"
	listCommandExampleConstant              = "mcrelease list --profile com.example --username deployer --include-transitioning"
	descriptionFilterFlagNameConstant       = "description-filter"
	descriptionFilterFlagUsageConstant      = "Only consider staging repositories with this description"
	tagFlagNameConstant                     = "tag"
	tagFlagUsageConstant                    = "Release tag to check (defaults to the tag at HEAD)"
	branchFlagNameConstant                  = "branch"
	branchFlagUsageConstant                 = "Branch allowed to trigger a release (repeatable)"
	forceFlagNameConstant                   = "force"
	forceFlagUsageConstant                  = "Release even when the tag is not on a release branch"
	skipUploadFlagNameConstant              = "skip-upload"
	skipUploadFlagUsageConstant             = "Release an already uploaded staging repository"
	repositoryFlagNameConstant              = "repository"
	repositoryFlagUsageConstant             = "Path to the project checkout"
	descriptionFlagNameConstant             = "description"
	descriptionFlagUsageConstant            = "Description recorded with the drop"
	includeTransitioningFlagNameConstant    = "include-transitioning"
	includeTransitioningFlagUsageConstant   = "Include repositories the repository manager is still processing"
	releaseSuccessTemplateConstant          = "RELEASED: %s (%s)\n"
	publishSuccessTemplateConstant          = "PUBLISHED: %s -> %s\n"
	publishSkippedUntaggedMessageConstant   = "SKIPPED: HEAD is not tagged\n"
	publishSkippedBranchTemplateConstant    = "SKIPPED: tag %s is not on any of %s\n"
	dropSuccessTemplateConstant             = "DROPPED: %s\n"
	dropDescriptionTemplateConstant         = "Dropping repository %s"
	listEncodeErrorTemplateConstant         = "unable to render staging repositories: %w"
	repositoryIDArgumentFieldNameConstant   = "repository_id"
	publishSkippedLogMessageConstant        = "release trigger not satisfied"
	publishUploadSkippedLogMessageConstant  = "upload skipped"
	logFieldTagConstant                     = "tag"
	logFieldBranchesConstant                = "branches"
	branchListSeparatorConstant             = ", "
	publishUserAgentRequiredMessageConstant = "value required for publish; the upload receives it as STAGING_USER_AGENT and must send it"
)

// CommandBuilder assembles the staging lifecycle commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	Dependencies                 CommandDependencies
}

// Build constructs the release, publish, drop, and list commands.
func (builder *CommandBuilder) Build() ([]*cobra.Command, error) {
	return []*cobra.Command{
		builder.buildReleaseCommand(),
		builder.buildPublishCommand(),
		builder.buildDropCommand(),
		builder.buildListCommand(),
	}, nil
}

func (builder *CommandBuilder) buildReleaseCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     releaseCommandUseConstant,
		Short:   releaseCommandShortConstant,
		Long:    releaseCommandLongConstant,
		Example: releaseCommandExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.runRelease,
	}
	flagutils.BindStagingFlags(command)
	command.Flags().String(descriptionFilterFlagNameConstant, "", descriptionFilterFlagUsageConstant)
	return command
}

func (builder *CommandBuilder) buildPublishCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     publishCommandUseConstant,
		Short:   publishCommandShortConstant,
		Long:    publishCommandLongConstant,
		Example: publishCommandExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.runPublish,
	}
	flagutils.BindStagingFlags(command)
	command.Flags().String(descriptionFilterFlagNameConstant, "", descriptionFilterFlagUsageConstant)
	command.Flags().String(tagFlagNameConstant, "", tagFlagUsageConstant)
	command.Flags().StringSlice(branchFlagNameConstant, nil, branchFlagUsageConstant)
	command.Flags().Bool(forceFlagNameConstant, false, forceFlagUsageConstant)
	command.Flags().Bool(skipUploadFlagNameConstant, false, skipUploadFlagUsageConstant)
	command.Flags().String(repositoryFlagNameConstant, "", repositoryFlagUsageConstant)
	return command
}

func (builder *CommandBuilder) buildDropCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     dropCommandUseConstant,
		Short:   dropCommandShortConstant,
		Example: dropCommandExampleConstant,
		Args:    cobra.ExactArgs(1),
		RunE:    builder.runDrop,
	}
	flagutils.BindStagingFlags(command)
	command.Flags().String(descriptionFlagNameConstant, "", descriptionFlagUsageConstant)
	return command
}

func (builder *CommandBuilder) buildListCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     listCommandUseConstant,
		Short:   listCommandShortConstant,
		Example: listCommandExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.runList,
	}
	flagutils.BindStagingFlags(command)
	command.Flags().String(descriptionFilterFlagNameConstant, "", descriptionFilterFlagUsageConstant)
	command.Flags().Bool(includeTransitioningFlagNameConstant, false, includeTransitioningFlagUsageConstant)
	return command
}

func (builder *CommandBuilder) runRelease(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.commandLogger(command)

	profile, profileError := resolveProfile(command, configuration)
	if profileError != nil {
		return profileError
	}

	session, sessionError := builder.openSession(command, configuration, logger)
	if sessionError != nil {
		return sessionError
	}

	repositoryID, releaseError := builder.release(command, session, configuration, profile, descriptionFilter(command, configuration.Staging.DescriptionFilter), logger)
	if releaseError != nil {
		return releaseError
	}

	fmt.Fprintf(command.OutOrStdout(), releaseSuccessTemplateConstant, repositoryID, profile)
	return nil
}

func (builder *CommandBuilder) runPublish(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.commandLogger(command)
	executionContext := commandContext(command)

	repositoryFlagValue, _ := command.Flags().GetString(repositoryFlagNameConstant)
	repositoryPath, repositoryPathError := pathutils.NewHomeExpander().ExpandAbsolute(
		flagutils.SelectString(repositoryFlagValue, command.Flags().Changed(repositoryFlagNameConstant), configuration.Publish.RepositoryPath),
	)
	if repositoryPathError != nil {
		return repositoryPathError
	}

	branches := configuration.Publish.Branches
	if command.Flags().Changed(branchFlagNameConstant) {
		branchFlagValues, branchFlagError := command.Flags().GetStringSlice(branchFlagNameConstant)
		if branchFlagError != nil {
			return branchFlagError
		}
		branches = sanitizeBranches(branchFlagValues)
	}
	force, _ := command.Flags().GetBool(forceFlagNameConstant)
	skipUpload, _ := command.Flags().GetBool(skipUploadFlagNameConstant)

	profile, profileError := resolveProfile(command, configuration)
	if profileError != nil {
		return profileError
	}
	if len(resolveUserAgent(command, configuration)) == 0 {
		return nexus.ConfigurationError{Field: userAgentFieldNameConstant, Message: publishUserAgentRequiredMessageConstant}
	}

	gitExecutor, commandExecutor, executorError := builder.resolveExecutors(logger)
	if executorError != nil {
		return executorError
	}

	inspector, inspectorError := trigger.NewInspector(gitExecutor)
	if inspectorError != nil {
		return inspectorError
	}

	tagName, _ := command.Flags().GetString(tagFlagNameConstant)
	tagName = strings.TrimSpace(tagName)
	if len(tagName) == 0 {
		currentTag, tagError := inspector.CurrentTag(executionContext, repositoryPath)
		if tagError != nil {
			return tagError
		}
		tagName = currentTag
	}

	if !force {
		if len(tagName) == 0 {
			logger.Info(publishSkippedLogMessageConstant)
			fmt.Fprint(command.OutOrStdout(), publishSkippedUntaggedMessageConstant)
			return nil
		}
		shouldRelease, triggerError := inspector.ShouldRelease(executionContext, repositoryPath, tagName, branches)
		if triggerError != nil {
			return triggerError
		}
		if !shouldRelease {
			logger.Info(publishSkippedLogMessageConstant, zap.String(logFieldTagConstant, tagName), zap.Strings(logFieldBranchesConstant, branches))
			fmt.Fprintf(command.OutOrStdout(), publishSkippedBranchTemplateConstant, tagName, strings.Join(branches, branchListSeparatorConstant))
			return nil
		}
	}

	session, sessionError := builder.openSession(command, configuration, logger)
	if sessionError != nil {
		return sessionError
	}

	if skipUpload {
		logger.Info(publishUploadSkippedLogMessageConstant, zap.String(logFieldTagConstant, tagName))
	} else {
		uploader, uploaderError := trigger.NewUploader(commandExecutor)
		if uploaderError != nil {
			return uploaderError
		}
		uploadError := uploader.Upload(executionContext, trigger.UploadConfiguration{
			CommandLine:      configuration.Publish.UploadCommand,
			WorkingDirectory: repositoryPath,
			DeployURL:        configuration.Publish.DeployURL,
			Credentials:      session.credentials,
		})
		if uploadError != nil {
			return uploadError
		}
	}

	repositoryID, releaseError := builder.release(command, session, configuration, profile, descriptionFilter(command, configuration.Publish.DescriptionFilter), logger)
	if releaseError != nil {
		return releaseError
	}

	fmt.Fprintf(command.OutOrStdout(), publishSuccessTemplateConstant, tagName, repositoryID)
	return nil
}

func (builder *CommandBuilder) runDrop(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.commandLogger(command)

	repositoryID := ""
	if len(arguments) > 0 {
		repositoryID = strings.TrimSpace(arguments[0])
	}
	if len(repositoryID) == 0 {
		return nexus.ConfigurationError{Field: repositoryIDArgumentFieldNameConstant, Message: requiredValueMessageConstant}
	}

	description, _ := command.Flags().GetString(descriptionFlagNameConstant)
	description = strings.TrimSpace(description)
	if len(description) == 0 {
		description = fmt.Sprintf(dropDescriptionTemplateConstant, repositoryID)
	}

	session, sessionError := builder.openSession(command, configuration, logger)
	if sessionError != nil {
		return sessionError
	}

	flagValues := flagutils.ResolveStagingFlags(command)
	dropError := session.client.DropRepository(commandContext(command), nexus.ReleaseRequest{
		RepositoryID: repositoryID,
		ProfileName:  flagutils.SelectString(flagValues.Profile, flagValues.ProfileSet, configuration.Staging.Profile),
		Description:  description,
	})
	if dropError != nil {
		return dropError
	}

	fmt.Fprintf(command.OutOrStdout(), dropSuccessTemplateConstant, repositoryID)
	return nil
}

func (builder *CommandBuilder) runList(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.commandLogger(command)

	profile, profileError := resolveProfile(command, configuration)
	if profileError != nil {
		return profileError
	}

	session, sessionError := builder.openSession(command, configuration, logger)
	if sessionError != nil {
		return sessionError
	}

	includeTransitioning, _ := command.Flags().GetBool(includeTransitioningFlagNameConstant)
	findOptions := staging.DefaultFindOptions()
	findOptions.IgnoreTransitioning = !includeTransitioning
	findOptions.DescriptionFilter = descriptionFilter(command, configuration.Staging.DescriptionFilter)

	repositories, findError := session.locator.Find(commandContext(command), profile, staging.IdentityFromCredentials(session.credentials), findOptions)
	if findError != nil {
		return findError
	}
	if repositories == nil {
		repositories = []nexus.StagingRepository{}
	}

	encoder := yaml.NewEncoder(command.OutOrStdout())
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(repositories); encodeError != nil {
		return fmt.Errorf(listEncodeErrorTemplateConstant, encodeError)
	}
	return encoder.Close()
}

func (builder *CommandBuilder) release(command *cobra.Command, session *stagingSession, configuration CommandConfiguration, profile string, descriptionFilter string, logger *zap.Logger) (string, error) {
	service, serviceError := builder.newReleaseService(session, logger)
	if serviceError != nil {
		return "", serviceError
	}

	result, releaseError := service.Release(commandContext(command), releaseOptions(profile, session, configuration, descriptionFilter))
	if releaseError != nil {
		return "", reportFailure(logger, releaseError)
	}
	return result.RepositoryID, nil
}

func descriptionFilter(command *cobra.Command, configuredFilter string) string {
	flagValue, flagError := command.Flags().GetString(descriptionFilterFlagNameConstant)
	if flagError != nil {
		return strings.TrimSpace(configuredFilter)
	}
	return flagutils.SelectString(flagValue, command.Flags().Changed(descriptionFilterFlagNameConstant), configuredFilter)
}

func (builder *CommandBuilder) commandLogger(command *cobra.Command) *zap.Logger {
	return withRunIdentifier(commandContext(command), resolveLogger(builder.LoggerProvider))
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}
