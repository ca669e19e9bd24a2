package staging

import (
	"context"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/mcrelease/internal/nexus"
)

const (
	locatorLogMessageConstant           = "filtered staging repositories"
	addressesLogMessageConstant         = "resolved caller addresses"
	logFieldProfileConstant             = "profile"
	logFieldListedCountConstant         = "listed"
	logFieldMatchedCountConstant        = "matched"
	logFieldIgnoreTransitioningConstant = "ignore_transitioning"
	logFieldAddressesConstant           = "addresses"
	profileNameFieldNameConstant        = "profile"
	usernameFieldNameConstant           = "username"
	userAgentFieldNameConstant          = "user_agent"
	requiredValueMessageConstant        = "value required"
)

// RepositoryLister returns the full profile repository listing.
type RepositoryLister interface {
	ProfileRepositories(executionContext context.Context) ([]nexus.StagingRepository, error)
}

// AddressResolver reports the network addresses the repository manager may have recorded for this machine.
type AddressResolver interface {
	ResolveAddresses(executionContext context.Context) []string
}

// Identity describes the uploader a staging repository must belong to.
type Identity struct {
	Username  string
	UserAgent string
}

// IdentityFromCredentials derives the locator identity from client credentials.
func IdentityFromCredentials(credentials nexus.Credentials) Identity {
	return Identity{Username: credentials.Username(), UserAgent: credentials.UserAgent()}
}

// FindOptions tunes the in-memory filters applied to the listing.
type FindOptions struct {
	IgnoreTransitioning bool
	DescriptionFilter   string
}

// DefaultFindOptions excludes repositories that are mid-transition.
func DefaultFindOptions() FindOptions {
	return FindOptions{IgnoreTransitioning: true}
}

// Locator filters the staging listing down to repositories owned by the caller.
type Locator struct {
	logger          *zap.Logger
	lister          RepositoryLister
	addressResolver AddressResolver

	addressesOnce sync.Once
	addresses     map[string]struct{}
}

// NewLocator constructs a Locator. Caller addresses are resolved on first use and reused afterwards.
func NewLocator(logger *zap.Logger, lister RepositoryLister, addressResolver AddressResolver) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{logger: logger, lister: lister, addressResolver: addressResolver}
}

// Find lists the profile repositories once and returns those matching the profile, identity, and caller addresses.
func (locator *Locator) Find(executionContext context.Context, profileName string, identity Identity, options FindOptions) ([]nexus.StagingRepository, error) {
	trimmedProfileName := strings.TrimSpace(profileName)
	if len(trimmedProfileName) == 0 {
		return nil, nexus.ConfigurationError{Field: profileNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(identity.Username)) == 0 {
		return nil, nexus.ConfigurationError{Field: usernameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(identity.UserAgent)) == 0 {
		return nil, nexus.ConfigurationError{Field: userAgentFieldNameConstant, Message: requiredValueMessageConstant}
	}

	repositories, listError := locator.lister.ProfileRepositories(executionContext)
	if listError != nil {
		return nil, listError
	}

	callerAddresses := locator.callerAddresses(executionContext)
	descriptionFilter := strings.TrimSpace(options.DescriptionFilter)

	matches := make([]nexus.StagingRepository, 0, 1)
	for _, repository := range repositories {
		if repository.ProfileName != trimmedProfileName {
			continue
		}
		if repository.UserID != identity.Username || repository.UserAgent != identity.UserAgent {
			continue
		}
		if options.IgnoreTransitioning && repository.Transitioning {
			continue
		}
		if len(descriptionFilter) > 0 && strings.TrimSpace(repository.Description) != descriptionFilter {
			continue
		}
		if _, knownAddress := callerAddresses[normalizeAddress(repository.IPAddress)]; !knownAddress {
			continue
		}
		matches = append(matches, repository)
	}

	locator.logger.Debug(
		locatorLogMessageConstant,
		zap.String(logFieldProfileConstant, trimmedProfileName),
		zap.Int(logFieldListedCountConstant, len(repositories)),
		zap.Int(logFieldMatchedCountConstant, len(matches)),
		zap.Bool(logFieldIgnoreTransitioningConstant, options.IgnoreTransitioning),
	)

	return matches, nil
}

// callerAddresses resolves once per locator, detached from the caller's deadline. The echo lookup carries its own timeout.
func (locator *Locator) callerAddresses(executionContext context.Context) map[string]struct{} {
	locator.addressesOnce.Do(func() {
		locator.addresses = make(map[string]struct{})
		if locator.addressResolver == nil {
			return
		}
		resolvedAddresses := locator.addressResolver.ResolveAddresses(context.WithoutCancel(executionContext))
		for _, address := range resolvedAddresses {
			normalizedAddress := normalizeAddress(address)
			if len(normalizedAddress) == 0 {
				continue
			}
			locator.addresses[normalizedAddress] = struct{}{}
		}
		locator.logger.Debug(addressesLogMessageConstant, zap.Strings(logFieldAddressesConstant, resolvedAddresses))
	})
	return locator.addresses
}

func normalizeAddress(address string) string {
	trimmedAddress := strings.TrimSpace(address)
	parsedAddress := net.ParseIP(trimmedAddress)
	if parsedAddress == nil {
		return trimmedAddress
	}
	return parsedAddress.String()
}
