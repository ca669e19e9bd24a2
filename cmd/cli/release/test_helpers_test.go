package release

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/mcrelease/internal/execshell"
	"github.com/temirov/mcrelease/internal/secrets"
)

const (
	testProfileConstant            = "com.example"
	testUsernameConstant           = "deployer"
	testPasswordConstant           = "s3cret"
	testUserAgentConstant          = "mcrelease-test/1.0"
	testRepositoryIDConstant       = "comexample-1001"
	testStagingPathConstant        = "/service/local/staging"
	testListingPathConstant        = testStagingPathConstant + "/profile_repositories"
	testClosePathConstant          = testStagingPathConstant + "/bulk/close"
	testPromotePathConstant        = testStagingPathConstant + "/bulk/promote"
	testDropPathConstant           = testStagingPathConstant + "/bulk/drop"
	testOwnedRepositoryConstant    = `{"repositoryId":"comexample-1001","profileName":"com.example","userId":"deployer","userAgent":"mcrelease-test/1.0","ipAddress":"127.0.0.1","transitioning":false,"notifications":0,"description":"Implicitly created (auto staging)."}`
	testManualRepositoryConstant   = `{"repositoryId":"comexample-1004","profileName":"com.example","userId":"deployer","userAgent":"mcrelease-test/1.0","ipAddress":"127.0.0.1","transitioning":false,"notifications":0,"description":"Manually created"}`
	testBusyRepositoryConstant     = `{"repositoryId":"comexample-1002","profileName":"com.example","userId":"deployer","userAgent":"mcrelease-test/1.0","ipAddress":"127.0.0.1","transitioning":true,"notifications":0}`
	testForeignRepositoryConstant  = `{"repositoryId":"comexample-1003","profileName":"com.example","userId":"someone-else","userAgent":"mcrelease-test/1.0","ipAddress":"127.0.0.1","transitioning":false,"notifications":0}`
	testEmptyListingConstant       = `{"data":[]}`
	testPasswordSourceConstant     = "env:TEST_STAGING_PASSWORD"
	testRepositoryPathConstant     = "/work/project"
	testUploadCommandConstant      = "mvn -B deploy"
	testTagConstant                = "v1.2.3"
	testConsoleURLConstant         = "https://repository.example.com/console"
	testDescribeSubcommandConstant = "describe"
	testBranchSubcommandConstant   = "branch"
)

type recordedStagingRequest struct {
	Method string
	Path   string
	Body   string
}

type stagingServer struct {
	server   *httptest.Server
	mutex    sync.Mutex
	requests []recordedStagingRequest
	listing  func(promoted bool) string
	promoted bool
}

func newStagingServer(testInstance *testing.T, listing func(promoted bool) string) *stagingServer {
	testInstance.Helper()
	fixture := &stagingServer{listing: listing}
	fixture.server = httptest.NewTLSServer(http.HandlerFunc(fixture.handle))
	testInstance.Cleanup(fixture.server.Close)
	return fixture
}

func (fixture *stagingServer) handle(writer http.ResponseWriter, request *http.Request) {
	body, _ := io.ReadAll(request.Body)

	fixture.mutex.Lock()
	defer fixture.mutex.Unlock()
	fixture.requests = append(fixture.requests, recordedStagingRequest{Method: request.Method, Path: request.URL.Path, Body: string(body)})

	switch request.URL.Path {
	case testListingPathConstant:
		_, _ = writer.Write([]byte(fixture.listing(fixture.promoted)))
	case testClosePathConstant, testDropPathConstant:
		writer.WriteHeader(http.StatusCreated)
	case testPromotePathConstant:
		fixture.promoted = true
		writer.WriteHeader(http.StatusCreated)
	default:
		writer.WriteHeader(http.StatusNotFound)
	}
}

func (fixture *stagingServer) recorded() []recordedStagingRequest {
	fixture.mutex.Lock()
	defer fixture.mutex.Unlock()
	return append([]recordedStagingRequest(nil), fixture.requests...)
}

func (fixture *stagingServer) paths() []string {
	paths := []string{}
	for _, request := range fixture.recorded() {
		paths = append(paths, request.Method+" "+request.Path)
	}
	return paths
}

func listingOf(repositories ...string) string {
	listing := `{"data":[`
	for index, repository := range repositories {
		if index > 0 {
			listing += ","
		}
		listing += repository
	}
	return listing + `]}`
}

type staticAddressResolver []string

func (resolver staticAddressResolver) ResolveAddresses(context.Context) []string {
	return resolver
}

type stubPasswordResolver struct {
	password string
	err      error
	sources  []secrets.Source
}

func (resolver *stubPasswordResolver) ResolvePassword(_ context.Context, source secrets.Source) (string, error) {
	resolver.sources = append(resolver.sources, source)
	return resolver.password, resolver.err
}

type immediateWaiter struct{}

func (immediateWaiter) Wait(context.Context, time.Duration) error {
	return nil
}

type scriptedGitExecutor struct {
	currentTag         string
	tagMissing         bool
	containingBranches string
	recorded           []execshell.CommandDetails
}

func (executor *scriptedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	switch details.Arguments[0] {
	case testDescribeSubcommandConstant:
		if executor.tagMissing {
			failedResult := execshell.ExecutionResult{ExitCode: 128, StandardError: "fatal: no tag exactly matches"}
			return execshell.ExecutionResult{}, execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: details},
				Result:  failedResult,
			}
		}
		return execshell.ExecutionResult{StandardOutput: executor.currentTag + "\n"}, nil
	case testBranchSubcommandConstant:
		return execshell.ExecutionResult{StandardOutput: executor.containingBranches}, nil
	default:
		return execshell.ExecutionResult{}, errors.New("unexpected git command")
	}
}

type recordingCommandExecutor struct {
	commands []execshell.ShellCommand
	err      error
}

func (executor *recordingCommandExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.commands = append(executor.commands, command)
	return execshell.ExecutionResult{}, executor.err
}

func newTestBuilder(fixture *stagingServer, logger *zap.Logger, configure func(*CommandConfiguration)) *CommandBuilder {
	configuration := DefaultCommandConfiguration()
	configuration.Staging.Username = testUsernameConstant
	configuration.Staging.UserAgent = testUserAgentConstant
	configuration.Staging.PasswordSource = testPasswordSourceConstant
	configuration.Staging.ConsoleURL = testConsoleURLConstant
	configuration.Publish.RepositoryPath = testRepositoryPathConstant
	configuration.Publish.UploadCommand = testUploadCommandConstant

	dependencies := CommandDependencies{
		AddressResolver:  staticAddressResolver{"127.0.0.1"},
		PasswordResolver: &stubPasswordResolver{password: testPasswordConstant},
		Waiter:           immediateWaiter{},
	}
	if fixture != nil {
		configuration.Staging.BaseURL = fixture.server.URL + testStagingPathConstant
		dependencies.HTTPClient = fixture.server.Client()
	}
	if configure != nil {
		configure(&configuration)
	}

	return &CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return logger },
		ConfigurationProvider: func() CommandConfiguration { return configuration },
		Dependencies:          dependencies,
	}
}

func prepareCommand(testInstance *testing.T, command *cobra.Command, flagValues map[string]string) *bytes.Buffer {
	testInstance.Helper()
	for flagName, flagValue := range flagValues {
		require.NoError(testInstance, command.Flags().Set(flagName, flagValue))
	}
	command.SetContext(context.Background())
	output := &bytes.Buffer{}
	command.SetOut(output)
	return output
}
