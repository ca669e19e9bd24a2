package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mcrelease/internal/utils"
)

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	executionContext := accessor.WithConfigurationFilePath(context.Background(), "/etc/mcrelease/config.yaml")
	executionContext = accessor.WithReleaseRunIdentifier(executionContext, "run-1")

	configurationFilePath, configurationFilePathAvailable := accessor.ConfigurationFilePath(executionContext)
	require.True(testInstance, configurationFilePathAvailable)
	require.Equal(testInstance, "/etc/mcrelease/config.yaml", configurationFilePath)

	runIdentifier, runIdentifierAvailable := accessor.ReleaseRunIdentifier(executionContext)
	require.True(testInstance, runIdentifierAvailable)
	require.Equal(testInstance, "run-1", runIdentifier)
}

func TestCommandContextAccessorMissingValues(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, available := accessor.ReleaseRunIdentifier(context.Background())
	require.False(testInstance, available)

	emptyContext := accessor.WithConfigurationFilePath(context.Background(), "")
	_, available = accessor.ConfigurationFilePath(emptyContext)
	require.False(testInstance, available)
}
