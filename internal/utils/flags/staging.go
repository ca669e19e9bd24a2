// Package flags provides helpers for binding standardized staging flags to Cobra commands.
package flags

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// ProfileFlagName exposes the shared staging profile flag name.
	ProfileFlagName = "profile"
	// ProfileFlagUsage describes the shared staging profile flag purpose.
	ProfileFlagUsage = "Staging profile name (usually the group id)"
	// UsernameFlagName exposes the shared repository manager username flag name.
	UsernameFlagName = "username"
	// UsernameFlagUsage describes the shared username flag purpose.
	UsernameFlagUsage = "Repository manager username"
	// PasswordSourceFlagName exposes the shared password source flag name.
	PasswordSourceFlagName = "password-source"
	// PasswordSourceFlagUsage describes the shared password source flag purpose.
	PasswordSourceFlagUsage = "Password source (env:NAME or file:/path)"
	// UserAgentFlagName exposes the shared user agent flag name.
	UserAgentFlagName = "user-agent"
	// UserAgentFlagUsage describes the shared user agent flag purpose.
	UserAgentFlagUsage = "User-Agent sent to the repository manager; must match the agent used for the upload"
)

// StagingFlagValues captures staging flag values together with whether each flag was explicitly set.
type StagingFlagValues struct {
	Profile           string
	ProfileSet        bool
	Username          string
	UsernameSet       bool
	PasswordSource    string
	PasswordSourceSet bool
	UserAgent         string
	UserAgentSet      bool
}

// BindStagingFlags attaches the staging identity flags to the provided command.
func BindStagingFlags(command *cobra.Command) {
	if command == nil {
		return
	}

	flagSet := command.Flags()
	flagSet.String(ProfileFlagName, "", ProfileFlagUsage)
	flagSet.String(UsernameFlagName, "", UsernameFlagUsage)
	flagSet.String(PasswordSourceFlagName, "", PasswordSourceFlagUsage)
	flagSet.String(UserAgentFlagName, "", UserAgentFlagUsage)
}

// ResolveStagingFlags reads staging flag values from the command.
func ResolveStagingFlags(command *cobra.Command) StagingFlagValues {
	if command == nil {
		return StagingFlagValues{}
	}

	flagSet := command.Flags()
	values := StagingFlagValues{}
	values.Profile, values.ProfileSet = lookupStringFlag(flagSet, ProfileFlagName)
	values.Username, values.UsernameSet = lookupStringFlag(flagSet, UsernameFlagName)
	values.PasswordSource, values.PasswordSourceSet = lookupStringFlag(flagSet, PasswordSourceFlagName)
	values.UserAgent, values.UserAgentSet = lookupStringFlag(flagSet, UserAgentFlagName)
	return values
}

// SelectString returns the trimmed flag value when the flag was set and non-empty, otherwise the trimmed fallback.
func SelectString(flagValue string, flagSet bool, fallback string) string {
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if flagSet && len(trimmedFlagValue) > 0 {
		return trimmedFlagValue
	}
	return strings.TrimSpace(fallback)
}

func lookupStringFlag(flagSet *pflag.FlagSet, flagName string) (string, bool) {
	if flagSet == nil || flagSet.Lookup(flagName) == nil {
		return "", false
	}
	value, valueError := flagSet.GetString(flagName)
	if valueError != nil {
		return "", false
	}
	return value, flagSet.Changed(flagName)
}
