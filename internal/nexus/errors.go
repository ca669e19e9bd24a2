package nexus

import (
	"fmt"
	"strings"
)

const (
	configurationErrorTemplateConstant           = "invalid %s: %s"
	transportStatusErrorTemplateConstant         = "%s %s returned HTTP %d%s"
	transportCauseErrorTemplateConstant          = "%s %s failed: %v"
	transportBodySuffixTemplateConstant          = ": %s"
	transportBodyPreviewLimitConstant            = 512
	transportBodyPreviewTruncationSuffixConstant = "..."
)

// ConfigurationError reports missing or invalid settings detected before any network call.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error describes the configuration problem.
func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Field, configurationError.Message)
}

// TransportError reports a network, TLS, HTTP status, or response decoding failure.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Cause      error
}

// Error describes the transport failure.
func (transportError *TransportError) Error() string {
	if transportError.Cause != nil {
		return fmt.Sprintf(transportCauseErrorTemplateConstant, transportError.Method, transportError.URL, transportError.Cause)
	}
	bodySuffix := ""
	if bodyPreview := previewBody(transportError.Body); len(bodyPreview) > 0 {
		bodySuffix = fmt.Sprintf(transportBodySuffixTemplateConstant, bodyPreview)
	}
	return fmt.Sprintf(transportStatusErrorTemplateConstant, transportError.Method, transportError.URL, transportError.StatusCode, bodySuffix)
}

// Unwrap exposes the underlying cause.
func (transportError *TransportError) Unwrap() error {
	return transportError.Cause
}

func previewBody(body string) string {
	trimmedBody := strings.TrimSpace(body)
	if len(trimmedBody) <= transportBodyPreviewLimitConstant {
		return trimmedBody
	}
	return trimmedBody[:transportBodyPreviewLimitConstant] + transportBodyPreviewTruncationSuffixConstant
}
