package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/mcrelease/internal/nexus"
)

const (
	// DefaultEchoServiceURL reports the public address of the caller as plain text.
	DefaultEchoServiceURL = "https://checkip.amazonaws.com"
	// DefaultEchoLookupTimeout bounds the external address lookup.
	DefaultEchoLookupTimeout = 5 * time.Second

	echoResponseLimitConstant        = 256
	interfaceLookupFailedLogConstant = "local interface enumeration failed; continuing without local addresses"
	externalLookupFailedLogConstant  = "external address lookup failed; continuing without it"
	logFieldEchoServiceConstant      = "echo_service"
	echoStatusTemplateConstant       = "echo service returned HTTP %d"
	echoUnparsableTemplateConstant   = "echo service returned %q, which is not an IP address"
	disabledEchoServiceConstant      = "-"
)

var errEchoServiceDisabled = errors.New("echo service disabled")

// InterfaceAddressFunc enumerates local interface addresses.
type InterfaceAddressFunc func() ([]net.Addr, error)

// NetworkAddressResolverConfiguration controls where caller addresses come from.
type NetworkAddressResolverConfiguration struct {
	EchoServiceURL     string
	EchoLookupTimeout  time.Duration
	HTTPClient         nexus.HTTPClient
	InterfaceAddresses InterfaceAddressFunc
}

// NetworkAddressResolver combines local interface addresses with a best-effort external lookup.
type NetworkAddressResolver struct {
	logger             *zap.Logger
	echoServiceURL     string
	echoLookupTimeout  time.Duration
	httpClient         nexus.HTTPClient
	interfaceAddresses InterfaceAddressFunc
}

// NewNetworkAddressResolver fills unset configuration with defaults. An echo service URL of "-" disables the external lookup.
func NewNetworkAddressResolver(logger *zap.Logger, configuration NetworkAddressResolverConfiguration) *NetworkAddressResolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	echoServiceURL := strings.TrimSpace(configuration.EchoServiceURL)
	if len(echoServiceURL) == 0 {
		echoServiceURL = DefaultEchoServiceURL
	}

	echoLookupTimeout := configuration.EchoLookupTimeout
	if echoLookupTimeout <= 0 {
		echoLookupTimeout = DefaultEchoLookupTimeout
	}

	httpClient := configuration.HTTPClient
	if httpClient == nil {
		httpClient = nexus.NewDefaultHTTPClient(echoLookupTimeout)
	}

	interfaceAddresses := configuration.InterfaceAddresses
	if interfaceAddresses == nil {
		interfaceAddresses = net.InterfaceAddrs
	}

	return &NetworkAddressResolver{
		logger:             logger,
		echoServiceURL:     echoServiceURL,
		echoLookupTimeout:  echoLookupTimeout,
		httpClient:         httpClient,
		interfaceAddresses: interfaceAddresses,
	}
}

// ResolveAddresses never fails; lookup problems are logged and the remaining addresses are returned.
func (resolver *NetworkAddressResolver) ResolveAddresses(executionContext context.Context) []string {
	addresses := make([]string, 0, 4)

	interfaceAddresses, interfaceError := resolver.interfaceAddresses()
	if interfaceError != nil {
		resolver.logger.Warn(interfaceLookupFailedLogConstant, zap.Error(interfaceError))
	}
	for _, interfaceAddress := range interfaceAddresses {
		if ipAddress := addressIP(interfaceAddress); ipAddress != nil {
			addresses = append(addresses, ipAddress.String())
		}
	}

	externalAddress, externalError := resolver.lookupExternalAddress(executionContext)
	switch {
	case errors.Is(externalError, errEchoServiceDisabled):
	case externalError != nil:
		resolver.logger.Warn(
			externalLookupFailedLogConstant,
			zap.String(logFieldEchoServiceConstant, resolver.echoServiceURL),
			zap.Error(externalError),
		)
	default:
		addresses = append(addresses, externalAddress)
	}

	return addresses
}

func (resolver *NetworkAddressResolver) lookupExternalAddress(executionContext context.Context) (string, error) {
	if resolver.echoServiceURL == disabledEchoServiceConstant {
		return "", errEchoServiceDisabled
	}

	lookupContext, cancel := context.WithTimeout(executionContext, resolver.echoLookupTimeout)
	defer cancel()

	request, requestError := http.NewRequestWithContext(lookupContext, http.MethodGet, resolver.echoServiceURL, nil)
	if requestError != nil {
		return "", requestError
	}

	response, responseError := resolver.httpClient.Do(request)
	if responseError != nil {
		return "", responseError
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf(echoStatusTemplateConstant, response.StatusCode)
	}

	body, readError := io.ReadAll(io.LimitReader(response.Body, echoResponseLimitConstant))
	if readError != nil {
		return "", readError
	}

	trimmedBody := strings.TrimSpace(string(body))
	parsedAddress := net.ParseIP(trimmedBody)
	if parsedAddress == nil {
		return "", fmt.Errorf(echoUnparsableTemplateConstant, trimmedBody)
	}
	return parsedAddress.String(), nil
}

func addressIP(address net.Addr) net.IP {
	switch typedAddress := address.(type) {
	case *net.IPNet:
		return typedAddress.IP
	case *net.IPAddr:
		return typedAddress.IP
	default:
		return net.ParseIP(address.String())
	}
}
