package nexus

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL points at the OSSRH staging API.
	DefaultBaseURL = "https://oss.sonatype.org/service/local/staging"
	// DefaultRequestTimeout bounds a single HTTP exchange.
	DefaultRequestTimeout = 60 * time.Second

	profileRepositoriesPathConstant      = "profile_repositories"
	bulkClosePathConstant                = "bulk/close"
	bulkPromotePathConstant              = "bulk/promote"
	bulkDropPathConstant                 = "bulk/drop"
	acceptHeaderNameConstant             = "Accept"
	acceptHeaderValueConstant            = "application/json,application/vnd.siesta-error-v1+json,application/vnd.siesta-validation-errors-v1+json"
	contentTypeHeaderNameConstant        = "Content-Type"
	contentTypeHeaderValueConstant       = "application/json"
	userAgentHeaderNameConstant          = "User-Agent"
	httpsSchemeConstant                  = "https"
	baseURLFieldNameConstant             = "base_url"
	credentialsFieldNameConstant         = "credentials"
	httpClientFieldNameConstant          = "http_client"
	httpsRequiredMessageConstant         = "must use https"
	unparsableURLMessageConstant         = "must be an absolute URL"
	insecureTLSMessageConstant           = "must verify server certificates"
	responseBodyLimitConstant            = 32 << 20
	handshakeTimeoutConstant             = 15 * time.Second
	redirectLimitConstant                = 10
	requestLogMessageConstant            = "staging request completed"
	requestFailedLogMessageConstant      = "staging request failed"
	logFieldMethodConstant               = "method"
	logFieldURLConstant                  = "url"
	logFieldStatusCodeConstant           = "status_code"
	logFieldDurationConstant             = "duration"
	logFieldRepositoryIDConstant         = "repository_id"
	logFieldOperationConstant            = "operation"
	bulkRequestLogMessageConstant        = "submitting staging bulk request"
	closeOperationNameConstant           = "close"
	promoteOperationNameConstant         = "promote"
	dropOperationNameConstant            = "drop"
	repositoryIDFieldNameConstant        = "repository_id"
	redirectLimitExceededMessageConstant = "stopped after too many redirects"
	insecureRedirectTemplateConstant     = "refusing redirect to non-https location %s"
	malformedResponseTemplateConstant    = "%w: %v"
)

// ErrMalformedResponse indicates the repository manager returned a body that is not valid JSON.
var ErrMalformedResponse = errors.New("malformed JSON response")

// HTTPClient executes HTTP requests.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// ClientConfiguration describes how to reach the staging API.
type ClientConfiguration struct {
	BaseURL     string
	Credentials Credentials
}

// Client issues authenticated requests against the staging API.
type Client struct {
	logger      *zap.Logger
	httpClient  HTTPClient
	baseURL     *url.URL
	credentials Credentials
}

// NewDefaultHTTPClient builds an HTTP client that verifies certificates, never reuses connections,
// and refuses redirects that leave https.
func NewDefaultHTTPClient(requestTimeout time.Duration) *http.Client {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: handshakeTimeoutConstant,
		DisableKeepAlives:   true,
	}

	return &http.Client{
		Timeout:       requestTimeout,
		Transport:     transport,
		CheckRedirect: rejectInsecureRedirect,
	}
}

// NewClient validates the configuration and constructs a staging API client. A nil httpClient selects NewDefaultHTTPClient.
func NewClient(logger *zap.Logger, httpClient HTTPClient, configuration ClientConfiguration) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if configuration.Credentials.IsZero() {
		return nil, ConfigurationError{Field: credentialsFieldNameConstant, Message: requiredValueMessageConstant}
	}

	baseURLValue := strings.TrimSpace(configuration.BaseURL)
	if len(baseURLValue) == 0 {
		baseURLValue = DefaultBaseURL
	}

	parsedBaseURL, parseError := url.Parse(baseURLValue)
	if parseError != nil || len(parsedBaseURL.Host) == 0 {
		return nil, ConfigurationError{Field: baseURLFieldNameConstant, Message: unparsableURLMessageConstant}
	}
	if !strings.EqualFold(parsedBaseURL.Scheme, httpsSchemeConstant) {
		return nil, ConfigurationError{Field: baseURLFieldNameConstant, Message: httpsRequiredMessageConstant}
	}

	if httpClient == nil {
		httpClient = NewDefaultHTTPClient(DefaultRequestTimeout)
	}
	if skipsCertificateVerification(httpClient) {
		return nil, ConfigurationError{Field: httpClientFieldNameConstant, Message: insecureTLSMessageConstant}
	}

	return &Client{
		logger:      logger,
		httpClient:  httpClient,
		baseURL:     parsedBaseURL,
		credentials: configuration.Credentials,
	}, nil
}

// Credentials returns the identity used by the client.
func (client *Client) Credentials() Credentials {
	return client.credentials
}

// Get issues an authenticated GET for a path relative to the base URL and returns the response body.
func (client *Client) Get(executionContext context.Context, path string) (string, error) {
	return client.execute(executionContext, http.MethodGet, path, nil)
}

// Post issues an authenticated POST carrying a JSON body and returns the response body.
func (client *Client) Post(executionContext context.Context, path string, jsonBody string) (string, error) {
	return client.execute(executionContext, http.MethodPost, path, []byte(jsonBody))
}

// ProfileRepositories lists every staging repository visible to the account.
func (client *Client) ProfileRepositories(executionContext context.Context) ([]StagingRepository, error) {
	responseBody, requestError := client.Get(executionContext, profileRepositoriesPathConstant)
	if requestError != nil {
		return nil, requestError
	}

	var response profileRepositoriesResponse
	if decodeError := json.Unmarshal([]byte(responseBody), &response); decodeError != nil {
		return nil, &TransportError{
			Method: http.MethodGet,
			URL:    client.resolveURL(profileRepositoriesPathConstant),
			Body:   responseBody,
			Cause:  fmt.Errorf(malformedResponseTemplateConstant, ErrMalformedResponse, decodeError),
		}
	}

	return response.Data, nil
}

// CloseRepository seals the staging repository and triggers server-side validation.
func (client *Client) CloseRepository(executionContext context.Context, request ReleaseRequest) error {
	return client.submitBulkRequest(executionContext, closeOperationNameConstant, bulkClosePathConstant, request, nil)
}

// PromoteRepository releases a closed repository and asks the server to drop it afterwards.
func (client *Client) PromoteRepository(executionContext context.Context, request ReleaseRequest) error {
	autoDropAfterRelease := true
	return client.submitBulkRequest(executionContext, promoteOperationNameConstant, bulkPromotePathConstant, request, &autoDropAfterRelease)
}

// DropRepository discards a staging repository. The automatic release never calls it.
func (client *Client) DropRepository(executionContext context.Context, request ReleaseRequest) error {
	return client.submitBulkRequest(executionContext, dropOperationNameConstant, bulkDropPathConstant, request, nil)
}

func (client *Client) submitBulkRequest(executionContext context.Context, operationName string, path string, request ReleaseRequest, autoDropAfterRelease *bool) error {
	repositoryID := strings.TrimSpace(request.RepositoryID)
	if len(repositoryID) == 0 {
		return ConfigurationError{Field: repositoryIDFieldNameConstant, Message: requiredValueMessageConstant}
	}

	payload, encodeError := json.Marshal(bulkRequestEnvelope{Data: bulkRequestData{
		AutoDropAfterRelease: autoDropAfterRelease,
		Description:          request.Description,
		StagedRepositoryIDs:  []string{repositoryID},
	}})
	if encodeError != nil {
		return encodeError
	}

	client.logger.Debug(
		bulkRequestLogMessageConstant,
		zap.String(logFieldOperationConstant, operationName),
		zap.String(logFieldRepositoryIDConstant, repositoryID),
	)

	_, requestError := client.Post(executionContext, path, string(payload))
	return requestError
}

func (client *Client) execute(executionContext context.Context, method string, path string, body []byte) (string, error) {
	requestURL := client.resolveURL(path)

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	request, requestError := http.NewRequestWithContext(executionContext, method, requestURL, bodyReader)
	if requestError != nil {
		return "", &TransportError{Method: method, URL: requestURL, Cause: requestError}
	}

	request.SetBasicAuth(client.credentials.Username(), client.credentials.Password())
	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)
	request.Header.Set(userAgentHeaderNameConstant, client.credentials.UserAgent())
	if method == http.MethodPost {
		request.Header.Set(contentTypeHeaderNameConstant, contentTypeHeaderValueConstant)
	}

	startedAt := time.Now()
	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		client.logger.Debug(
			requestFailedLogMessageConstant,
			zap.String(logFieldMethodConstant, method),
			zap.String(logFieldURLConstant, requestURL),
			zap.Error(responseError),
		)
		return "", &TransportError{Method: method, URL: requestURL, Cause: responseError}
	}
	defer response.Body.Close()

	responseBytes, readError := io.ReadAll(io.LimitReader(response.Body, responseBodyLimitConstant))
	if readError != nil {
		return "", &TransportError{Method: method, URL: requestURL, StatusCode: response.StatusCode, Cause: readError}
	}
	responseBody := string(responseBytes)

	client.logger.Debug(
		requestLogMessageConstant,
		zap.String(logFieldMethodConstant, method),
		zap.String(logFieldURLConstant, requestURL),
		zap.Int(logFieldStatusCodeConstant, response.StatusCode),
		zap.Duration(logFieldDurationConstant, time.Since(startedAt)),
	)

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return "", &TransportError{Method: method, URL: requestURL, StatusCode: response.StatusCode, Body: responseBody}
	}

	if len(strings.TrimSpace(responseBody)) > 0 && !json.Valid(responseBytes) {
		return "", &TransportError{Method: method, URL: requestURL, StatusCode: response.StatusCode, Body: responseBody, Cause: ErrMalformedResponse}
	}

	return responseBody, nil
}

func (client *Client) resolveURL(path string) string {
	return client.baseURL.JoinPath(strings.TrimPrefix(path, "/")).String()
}

func skipsCertificateVerification(httpClient HTTPClient) bool {
	standardClient, isStandardClient := httpClient.(*http.Client)
	if !isStandardClient || standardClient == nil {
		return false
	}
	transport, isStandardTransport := standardClient.Transport.(*http.Transport)
	if !isStandardTransport || transport == nil || transport.TLSClientConfig == nil {
		return false
	}
	return transport.TLSClientConfig.InsecureSkipVerify
}

func rejectInsecureRedirect(request *http.Request, via []*http.Request) error {
	if len(via) >= redirectLimitConstant {
		return errors.New(redirectLimitExceededMessageConstant)
	}
	if !strings.EqualFold(request.URL.Scheme, httpsSchemeConstant) {
		return fmt.Errorf(insecureRedirectTemplateConstant, request.URL.Redacted())
	}
	return nil
}
