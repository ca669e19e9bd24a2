package nexus

import (
	"fmt"
	"runtime"
	"strings"
)

const (
	usernameFieldNameConstant        = "username"
	passwordFieldNameConstant        = "password"
	requiredValueMessageConstant     = "value required"
	defaultUserAgentTemplateConstant = "mcrelease (Go %s)"
	goVersionPrefixConstant          = "go"
)

// Credentials identify the caller to the repository manager. The value is immutable once constructed.
type Credentials struct {
	username  string
	password  string
	userAgent string
}

// NewCredentials validates the username and password eagerly. An empty user agent selects DefaultUserAgent.
func NewCredentials(username string, password string, userAgent string) (Credentials, error) {
	trimmedUsername := strings.TrimSpace(username)
	if len(trimmedUsername) == 0 {
		return Credentials{}, ConfigurationError{Field: usernameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(password) == 0 {
		return Credentials{}, ConfigurationError{Field: passwordFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedUserAgent := strings.TrimSpace(userAgent)
	if len(trimmedUserAgent) == 0 {
		trimmedUserAgent = DefaultUserAgent()
	}

	return Credentials{username: trimmedUsername, password: password, userAgent: trimmedUserAgent}, nil
}

// DefaultUserAgent identifies the running tool and Go runtime.
func DefaultUserAgent() string {
	return fmt.Sprintf(defaultUserAgentTemplateConstant, strings.TrimPrefix(runtime.Version(), goVersionPrefixConstant))
}

// Username returns the repository manager account name.
func (credentials Credentials) Username() string {
	return credentials.username
}

// Password returns the repository manager password.
func (credentials Credentials) Password() string {
	return credentials.password
}

// UserAgent returns the agent string sent with every request.
func (credentials Credentials) UserAgent() string {
	return credentials.userAgent
}

// IsZero reports whether the credentials were never constructed through NewCredentials.
func (credentials Credentials) IsZero() bool {
	return len(credentials.username) == 0
}

// String hides the password so credentials can be logged safely.
func (credentials Credentials) String() string {
	return credentials.username + "@" + credentials.userAgent
}
