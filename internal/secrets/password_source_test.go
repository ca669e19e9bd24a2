package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mcrelease/internal/secrets"
)

func TestParseSource(testInstance *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedSource secrets.Source
		expectError    bool
	}{
		{name: "bare_environment_name", input: "STAGING_PASSWORD", expectedSource: secrets.Source{Type: secrets.SourceTypeEnvironment, Reference: "STAGING_PASSWORD"}},
		{name: "explicit_environment", input: " ENV: OSSRH_PASSWORD ", expectedSource: secrets.Source{Type: secrets.SourceTypeEnvironment, Reference: "OSSRH_PASSWORD"}},
		{name: "file", input: "file:/run/secrets/ossrh", expectedSource: secrets.Source{Type: secrets.SourceTypeFile, Reference: "/run/secrets/ossrh"}},
		{name: "empty", input: "  ", expectError: true},
		{name: "environment_without_name", input: "env:", expectError: true},
		{name: "file_without_path", input: "file: ", expectError: true},
		{name: "unsupported", input: "vault:secret/ossrh", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			source, parseError := secrets.ParseSource(testCase.input)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedSource, source)
		})
	}
}

func TestParseSourceReportsMissingSource(testInstance *testing.T) {
	_, parseError := secrets.ParseSource("")
	require.ErrorIs(testInstance, parseError, secrets.ErrSourceMissing)
}

func TestResolverResolvesEnvironmentPasswords(testInstance *testing.T) {
	resolver := secrets.NewResolver(func(key string) (string, bool) {
		if key == "OSSRH_PASSWORD" {
			return " s3cret \n", true
		}
		if key == "BLANK" {
			return "   ", true
		}
		return "", false
	}, nil)

	password, resolveError := resolver.ResolvePassword(context.Background(), secrets.Source{Type: secrets.SourceTypeEnvironment, Reference: "OSSRH_PASSWORD"})
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "s3cret", password)

	_, resolveError = resolver.ResolvePassword(context.Background(), secrets.Source{Type: secrets.SourceTypeEnvironment, Reference: "MISSING"})
	require.ErrorContains(testInstance, resolveError, "MISSING is not set")

	_, resolveError = resolver.ResolvePassword(context.Background(), secrets.Source{Type: secrets.SourceTypeEnvironment, Reference: "BLANK"})
	require.Error(testInstance, resolveError)
}

func TestResolverResolvesFilePasswords(testInstance *testing.T) {
	readPaths := []string{}
	resolver := secrets.NewResolver(nil, func(path string) ([]byte, error) {
		readPaths = append(readPaths, path)
		switch path {
		case "/run/secrets/ossrh":
			return []byte("from-file\n"), nil
		case "/run/secrets/empty":
			return []byte("\n"), nil
		default:
			return nil, errors.New("not found")
		}
	})

	password, resolveError := resolver.ResolvePassword(context.Background(), secrets.Source{Type: secrets.SourceTypeFile, Reference: "/run/secrets/ossrh"})
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "from-file", password)

	_, resolveError = resolver.ResolvePassword(context.Background(), secrets.Source{Type: secrets.SourceTypeFile, Reference: "/run/secrets/empty"})
	require.ErrorContains(testInstance, resolveError, "is empty")

	_, resolveError = resolver.ResolvePassword(context.Background(), secrets.Source{Type: secrets.SourceTypeFile, Reference: "/run/secrets/missing"})
	require.ErrorContains(testInstance, resolveError, "unable to read password file")

	require.Equal(testInstance, []string{"/run/secrets/ossrh", "/run/secrets/empty", "/run/secrets/missing"}, readPaths)
}

func TestResolverHonorsCancellation(testInstance *testing.T) {
	resolver := secrets.NewResolver(func(string) (string, bool) { return "value", true }, nil)
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, resolveError := resolver.ResolvePassword(cancelledContext, secrets.Source{Type: secrets.SourceTypeEnvironment, Reference: "ANY"})
	require.ErrorIs(testInstance, resolveError, context.Canceled)
}

func TestSourceString(testInstance *testing.T) {
	require.Equal(testInstance, "env:OSSRH_PASSWORD", secrets.Source{Type: secrets.SourceTypeEnvironment, Reference: "OSSRH_PASSWORD"}.String())
}
