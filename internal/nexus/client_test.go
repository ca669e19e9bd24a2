package nexus_test

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/mcrelease/internal/nexus"
)

const (
	testUsernameConstant      = "deployer"
	testPasswordConstant      = "s3cret"
	testUserAgentConstant     = "mcrelease-test/1.0"
	testExpectedAcceptHeader  = "application/json,application/vnd.siesta-error-v1+json,application/vnd.siesta-validation-errors-v1+json"
	testStagingPathPrefix     = "/service/local/staging"
	testProfileListingPayload = `{"data":[{"repositoryId":"comexample-1001","profileId":"12ab","profileName":"com.example","type":"open","userId":"deployer","userAgent":"mcrelease-test/1.0","ipAddress":"127.0.0.1","transitioning":false,"notifications":0,"description":"Implicitly created (auto staging)."}]}`
)

type recordedRequest struct {
	Method      string
	Path        string
	Body        string
	Username    string
	Password    string
	Accept      string
	UserAgent   string
	ContentType string
}

type stagingServerFixture struct {
	server   *httptest.Server
	mutex    sync.Mutex
	requests []recordedRequest
	handler  func(writer http.ResponseWriter, request *http.Request)
}

func newStagingServerFixture(testInstance *testing.T, handler func(writer http.ResponseWriter, request *http.Request)) *stagingServerFixture {
	fixture := &stagingServerFixture{handler: handler}
	fixture.server = httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		bodyBytes, _ := io.ReadAll(request.Body)
		username, password, _ := request.BasicAuth()
		fixture.mutex.Lock()
		fixture.requests = append(fixture.requests, recordedRequest{
			Method:      request.Method,
			Path:        request.URL.Path,
			Body:        string(bodyBytes),
			Username:    username,
			Password:    password,
			Accept:      request.Header.Get("Accept"),
			UserAgent:   request.Header.Get("User-Agent"),
			ContentType: request.Header.Get("Content-Type"),
		})
		fixture.mutex.Unlock()
		fixture.handler(writer, request)
	}))
	testInstance.Cleanup(fixture.server.Close)
	return fixture
}

func (fixture *stagingServerFixture) recorded() []recordedRequest {
	fixture.mutex.Lock()
	defer fixture.mutex.Unlock()
	return append([]recordedRequest{}, fixture.requests...)
}

func (fixture *stagingServerFixture) newClient(testInstance *testing.T) *nexus.Client {
	credentials, credentialsError := nexus.NewCredentials(testUsernameConstant, testPasswordConstant, testUserAgentConstant)
	require.NoError(testInstance, credentialsError)

	client, clientError := nexus.NewClient(zap.NewNop(), fixture.server.Client(), nexus.ClientConfiguration{
		BaseURL:     fixture.server.URL + testStagingPathPrefix,
		Credentials: credentials,
	})
	require.NoError(testInstance, clientError)
	return client
}

func TestClientProfileRepositoriesSendsIdentityHeaders(testInstance *testing.T) {
	fixture := newStagingServerFixture(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(testProfileListingPayload))
	})
	client := fixture.newClient(testInstance)

	repositories, listError := client.ProfileRepositories(context.Background())
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []nexus.StagingRepository{{
		RepositoryID:  "comexample-1001",
		ProfileID:     "12ab",
		ProfileName:   "com.example",
		Type:          "open",
		UserID:        "deployer",
		UserAgent:     "mcrelease-test/1.0",
		IPAddress:     "127.0.0.1",
		Transitioning: false,
		Notifications: 0,
		Description:   "Implicitly created (auto staging).",
	}}, repositories)

	requests := fixture.recorded()
	require.Len(testInstance, requests, 1)
	require.Equal(testInstance, http.MethodGet, requests[0].Method)
	require.Equal(testInstance, testStagingPathPrefix+"/profile_repositories", requests[0].Path)
	require.Equal(testInstance, testUsernameConstant, requests[0].Username)
	require.Equal(testInstance, testPasswordConstant, requests[0].Password)
	require.Equal(testInstance, testExpectedAcceptHeader, requests[0].Accept)
	require.Equal(testInstance, testUserAgentConstant, requests[0].UserAgent)
	require.Empty(testInstance, requests[0].ContentType)
}

func TestClientBulkRequestsProduceExpectedPayloads(testInstance *testing.T) {
	testCases := []struct {
		name         string
		invoke       func(client *nexus.Client) error
		expectedPath string
		expectedBody string
	}{
		{
			name: "close",
			invoke: func(client *nexus.Client) error {
				return client.CloseRepository(context.Background(), nexus.ReleaseRequest{RepositoryID: "comexample-1001", ProfileName: "com.example", Description: "Closing repository for com.example"})
			},
			expectedPath: testStagingPathPrefix + "/bulk/close",
			expectedBody: `{"data":{"description":"Closing repository for com.example","stagedRepositoryIds":["comexample-1001"]}}`,
		},
		{
			name: "promote",
			invoke: func(client *nexus.Client) error {
				return client.PromoteRepository(context.Background(), nexus.ReleaseRequest{RepositoryID: "comexample-1001", ProfileName: "com.example", Description: "Promoting repository for com.example"})
			},
			expectedPath: testStagingPathPrefix + "/bulk/promote",
			expectedBody: `{"data":{"autoDropAfterRelease":true,"description":"Promoting repository for com.example","stagedRepositoryIds":["comexample-1001"]}}`,
		},
		{
			name: "drop",
			invoke: func(client *nexus.Client) error {
				return client.DropRepository(context.Background(), nexus.ReleaseRequest{RepositoryID: "comexample-1001", Description: "Dropping repository"})
			},
			expectedPath: testStagingPathPrefix + "/bulk/drop",
			expectedBody: `{"data":{"description":"Dropping repository","stagedRepositoryIds":["comexample-1001"]}}`,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newStagingServerFixture(testInstance, func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(http.StatusCreated)
			})
			client := fixture.newClient(testInstance)

			require.NoError(testInstance, testCase.invoke(client))

			requests := fixture.recorded()
			require.Len(testInstance, requests, 1)
			require.Equal(testInstance, http.MethodPost, requests[0].Method)
			require.Equal(testInstance, testCase.expectedPath, requests[0].Path)
			require.Equal(testInstance, "application/json", requests[0].ContentType)
			require.JSONEq(testInstance, testCase.expectedBody, requests[0].Body)
			require.Equal(testInstance, testExpectedAcceptHeader, requests[0].Accept)
		})
	}
}

func TestClientBulkRequestRequiresRepositoryID(testInstance *testing.T) {
	fixture := newStagingServerFixture(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusCreated)
	})
	client := fixture.newClient(testInstance)

	closeError := client.CloseRepository(context.Background(), nexus.ReleaseRequest{RepositoryID: "  "})
	var configurationError nexus.ConfigurationError
	require.ErrorAs(testInstance, closeError, &configurationError)
	require.Empty(testInstance, fixture.recorded())
}

func TestClientSurfacesTransportErrors(testInstance *testing.T) {
	testCases := []struct {
		name               string
		statusCode         int
		body               string
		expectedStatusCode int
		expectMalformed    bool
	}{
		{name: "bad_request", statusCode: http.StatusBadRequest, body: `{"errors":[{"id":"*","msg":"Unhandled: Repository: comexample-1001 has invalid state: closed"}]}`, expectedStatusCode: http.StatusBadRequest},
		{name: "server_error", statusCode: http.StatusInternalServerError, body: "", expectedStatusCode: http.StatusInternalServerError},
		{name: "malformed_json", statusCode: http.StatusOK, body: "<html>maintenance</html>", expectedStatusCode: http.StatusOK, expectMalformed: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newStagingServerFixture(testInstance, func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(testCase.statusCode)
				_, _ = writer.Write([]byte(testCase.body))
			})
			client := fixture.newClient(testInstance)

			_, getError := client.Get(context.Background(), "profile_repositories")
			require.Error(testInstance, getError)

			var transportError *nexus.TransportError
			require.ErrorAs(testInstance, getError, &transportError)
			require.Equal(testInstance, testCase.expectedStatusCode, transportError.StatusCode)
			require.Equal(testInstance, http.MethodGet, transportError.Method)
			if testCase.expectMalformed {
				require.ErrorIs(testInstance, getError, nexus.ErrMalformedResponse)
			}
		})
	}
}

func TestClientProfileRepositoriesRejectsUndecodableListing(testInstance *testing.T) {
	fixture := newStagingServerFixture(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"data":"unexpected"}`))
	})
	client := fixture.newClient(testInstance)

	_, listError := client.ProfileRepositories(context.Background())
	require.ErrorIs(testInstance, listError, nexus.ErrMalformedResponse)
}

func TestClientRejectsUntrustedCertificates(testInstance *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	credentials, credentialsError := nexus.NewCredentials(testUsernameConstant, testPasswordConstant, testUserAgentConstant)
	require.NoError(testInstance, credentialsError)

	client, clientError := nexus.NewClient(zap.NewNop(), nil, nexus.ClientConfiguration{BaseURL: server.URL, Credentials: credentials})
	require.NoError(testInstance, clientError)

	_, listError := client.ProfileRepositories(context.Background())
	var transportError *nexus.TransportError
	require.ErrorAs(testInstance, listError, &transportError)
	require.Error(testInstance, transportError.Cause)
	require.Zero(testInstance, transportError.StatusCode)
}

func TestClientPropagatesContextCancellation(testInstance *testing.T) {
	fixture := newStagingServerFixture(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"data":[]}`))
	})
	client := fixture.newClient(testInstance)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, listError := client.ProfileRepositories(cancelledContext)
	require.ErrorIs(testInstance, listError, context.Canceled)
}

func TestNewClientValidatesConfiguration(testInstance *testing.T) {
	credentials, credentialsError := nexus.NewCredentials(testUsernameConstant, testPasswordConstant, "")
	require.NoError(testInstance, credentialsError)

	insecureClient := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}

	testCases := []struct {
		name          string
		httpClient    nexus.HTTPClient
		configuration nexus.ClientConfiguration
		expectedField string
	}{
		{name: "missing_credentials", configuration: nexus.ClientConfiguration{BaseURL: nexus.DefaultBaseURL}, expectedField: "credentials"},
		{name: "plain_http", configuration: nexus.ClientConfiguration{BaseURL: "http://oss.example.org/service/local/staging", Credentials: credentials}, expectedField: "base_url"},
		{name: "relative_url", configuration: nexus.ClientConfiguration{BaseURL: "service/local/staging", Credentials: credentials}, expectedField: "base_url"},
		{name: "insecure_transport", httpClient: insecureClient, configuration: nexus.ClientConfiguration{Credentials: credentials}, expectedField: "http_client"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			client, clientError := nexus.NewClient(nil, testCase.httpClient, testCase.configuration)
			require.Nil(testInstance, client)
			var configurationError nexus.ConfigurationError
			require.ErrorAs(testInstance, clientError, &configurationError)
			require.Equal(testInstance, testCase.expectedField, configurationError.Field)
		})
	}

	defaultClient, defaultClientError := nexus.NewClient(nil, nil, nexus.ClientConfiguration{Credentials: credentials})
	require.NoError(testInstance, defaultClientError)
	require.Equal(testInstance, nexus.DefaultUserAgent(), defaultClient.Credentials().UserAgent())
}

func TestDefaultHTTPClientRefusesDowngradeRedirects(testInstance *testing.T) {
	plainServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"data":[]}`))
	}))
	defer plainServer.Close()

	redirectingServer := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Redirect(writer, request, plainServer.URL+"/profile_repositories", http.StatusFound)
	}))
	defer redirectingServer.Close()

	httpClient := nexus.NewDefaultHTTPClient(0)
	httpClient.Transport.(*http.Transport).TLSClientConfig.RootCAs = redirectingServer.Client().Transport.(*http.Transport).TLSClientConfig.RootCAs

	credentials, credentialsError := nexus.NewCredentials(testUsernameConstant, testPasswordConstant, testUserAgentConstant)
	require.NoError(testInstance, credentialsError)
	client, clientError := nexus.NewClient(zap.NewNop(), httpClient, nexus.ClientConfiguration{BaseURL: redirectingServer.URL, Credentials: credentials})
	require.NoError(testInstance, clientError)

	_, getError := client.Get(context.Background(), "profile_repositories")
	require.Error(testInstance, getError)
	require.True(testInstance, strings.Contains(getError.Error(), "non-https"))
}

func TestTransportErrorMessages(testInstance *testing.T) {
	statusError := &nexus.TransportError{Method: http.MethodPost, URL: "https://oss.example.org/bulk/close", StatusCode: http.StatusBadRequest, Body: strings.Repeat("x", 600)}
	require.Contains(testInstance, statusError.Error(), "returned HTTP 400")
	require.True(testInstance, strings.HasSuffix(statusError.Error(), "..."))
	require.Nil(testInstance, errors.Unwrap(statusError))

	causeError := &nexus.TransportError{Method: http.MethodGet, URL: "https://oss.example.org/profile_repositories", Cause: io.ErrUnexpectedEOF}
	require.ErrorIs(testInstance, causeError, io.ErrUnexpectedEOF)
	require.Contains(testInstance, causeError.Error(), "failed")
}

func TestBulkPayloadFieldOrder(testInstance *testing.T) {
	fixture := newStagingServerFixture(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusCreated)
	})
	client := fixture.newClient(testInstance)
	require.NoError(testInstance, client.PromoteRepository(context.Background(), nexus.ReleaseRequest{RepositoryID: "comexample-1001", Description: "d"}))

	body := fixture.recorded()[0].Body
	require.True(testInstance, json.Valid([]byte(body)))
	require.Less(testInstance, strings.Index(body, "autoDropAfterRelease"), strings.Index(body, "stagedRepositoryIds"))
}
