package release

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mcrelease/internal/nexus"
	"github.com/temirov/mcrelease/internal/releases"
)

func TestSanitizeFillsDefaults(testInstance *testing.T) {
	sanitized := CommandConfiguration{
		Staging: StagingConfiguration{Profile: "  com.example ", Username: " deployer "},
		Publish: PublishConfiguration{Branches: []string{" ", ""}},
	}.Sanitize()

	require.Equal(testInstance, "com.example", sanitized.Staging.Profile)
	require.Equal(testInstance, "deployer", sanitized.Staging.Username)
	require.Equal(testInstance, nexus.DefaultBaseURL, sanitized.Staging.BaseURL)
	require.Equal(testInstance, releases.DefaultConsoleURL, sanitized.Staging.ConsoleURL)
	require.Equal(testInstance, nexus.DefaultRequestTimeout, sanitized.Staging.RequestTimeout)
	require.Equal(testInstance, releases.DefaultCloseTimeout, sanitized.Release.CloseTimeout)
	require.Equal(testInstance, releases.DefaultPromoteTimeout, sanitized.Release.PromoteTimeout)
	require.Equal(testInstance, []string{"main"}, sanitized.Publish.Branches)
	require.Equal(testInstance, defaultUploadCommandConstant, sanitized.Publish.UploadCommand)
}

func TestSanitizeKeepsExplicitValues(testInstance *testing.T) {
	configured := CommandConfiguration{
		Staging: StagingConfiguration{BaseURL: "https://repository.example.com/service/local/staging", PasswordSource: "file:~/.ossrh"},
		Release: PollingConfiguration{PollInterval: 5 * time.Second, CloseTimeout: time.Minute, PromoteTimeout: 2 * time.Minute},
		Publish: PublishConfiguration{Branches: []string{" release ", "main"}, RepositoryPath: "~/project"},
	}

	sanitized := configured.Sanitize()
	require.Equal(testInstance, configured.Staging.BaseURL, sanitized.Staging.BaseURL)
	require.Equal(testInstance, configured.Staging.PasswordSource, sanitized.Staging.PasswordSource)
	require.Equal(testInstance, configured.Release, sanitized.Release)
	require.Equal(testInstance, []string{"release", "main"}, sanitized.Publish.Branches)
	require.Equal(testInstance, "~/project", sanitized.Publish.RepositoryPath)
}

func TestDefaultConfigurationValuesUsePrefix(testInstance *testing.T) {
	prefixed := DefaultConfigurationValues("tools")
	require.Equal(testInstance, nexus.DefaultBaseURL, prefixed["tools.staging.base_url"])
	require.Equal(testInstance, "10m0s", prefixed["tools.release.close_timeout"])

	unprefixed := DefaultConfigurationValues("")
	require.Equal(testInstance, []string{"main"}, unprefixed["publish.branches"])
	require.Len(testInstance, unprefixed, len(prefixed))
}
