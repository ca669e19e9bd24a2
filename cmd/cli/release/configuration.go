package release

import (
	"strings"
	"time"

	"github.com/temirov/mcrelease/internal/nexus"
	"github.com/temirov/mcrelease/internal/releases"
	"github.com/temirov/mcrelease/internal/staging"
	"github.com/temirov/mcrelease/internal/trigger"
)

const (
	defaultPasswordSourceConstant           = "env:OSSRH_PASSWORD"
	defaultUploadCommandConstant            = "mvn -B deploy"
	defaultRepositoryPathConstant           = "."
	defaultPublishDescriptionFilterConstant = "Implicitly created (auto staging)."
)

// StagingConfiguration describes how to reach and authenticate against the repository manager.
type StagingConfiguration struct {
	BaseURL           string        `mapstructure:"base_url"`
	ConsoleURL        string        `mapstructure:"console_url"`
	Profile           string        `mapstructure:"profile"`
	Username          string        `mapstructure:"username"`
	PasswordSource    string        `mapstructure:"password_source"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	EchoServiceURL    string        `mapstructure:"echo_service_url"`
	DescriptionFilter string        `mapstructure:"description_filter"`
}

// PollingConfiguration bounds the waits between close and promotion.
type PollingConfiguration struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	CloseTimeout   time.Duration `mapstructure:"close_timeout"`
	PromoteTimeout time.Duration `mapstructure:"promote_timeout"`
}

// PublishConfiguration controls the trigger check and upload that precede a release.
// DescriptionFilter defaults to the description implicit staging gives the repositories an upload creates.
type PublishConfiguration struct {
	RepositoryPath    string   `mapstructure:"repository_path"`
	Branches          []string `mapstructure:"branches"`
	UploadCommand     string   `mapstructure:"upload_command"`
	DeployURL         string   `mapstructure:"deploy_url"`
	DescriptionFilter string   `mapstructure:"description_filter"`
}

// CommandConfiguration groups every setting the release commands read.
type CommandConfiguration struct {
	Staging StagingConfiguration `mapstructure:"staging"`
	Release PollingConfiguration `mapstructure:"release"`
	Publish PublishConfiguration `mapstructure:"publish"`
}

// DefaultCommandConfiguration returns the settings used when nothing is configured.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Staging: StagingConfiguration{
			BaseURL:        nexus.DefaultBaseURL,
			ConsoleURL:     releases.DefaultConsoleURL,
			PasswordSource: defaultPasswordSourceConstant,
			RequestTimeout: nexus.DefaultRequestTimeout,
			EchoServiceURL: staging.DefaultEchoServiceURL,
		},
		Release: PollingConfiguration{
			PollInterval:   releases.DefaultPollInterval,
			CloseTimeout:   releases.DefaultCloseTimeout,
			PromoteTimeout: releases.DefaultPromoteTimeout,
		},
		Publish: PublishConfiguration{
			RepositoryPath:    defaultRepositoryPathConstant,
			Branches:          trigger.DefaultCandidateBranches(),
			UploadCommand:     defaultUploadCommandConstant,
			DeployURL:         trigger.DefaultDeployURL,
			DescriptionFilter: defaultPublishDescriptionFilterConstant,
		},
	}
}

// DefaultConfigurationValues exposes the defaults as flattened keys rooted at the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	keyPrefix := strings.TrimSpace(prefix)
	if len(keyPrefix) > 0 {
		keyPrefix += "."
	}

	return map[string]any{
		keyPrefix + "staging.base_url":           defaults.Staging.BaseURL,
		keyPrefix + "staging.console_url":        defaults.Staging.ConsoleURL,
		keyPrefix + "staging.profile":            defaults.Staging.Profile,
		keyPrefix + "staging.username":           defaults.Staging.Username,
		keyPrefix + "staging.password_source":    defaults.Staging.PasswordSource,
		keyPrefix + "staging.user_agent":         defaults.Staging.UserAgent,
		keyPrefix + "staging.request_timeout":    defaults.Staging.RequestTimeout.String(),
		keyPrefix + "staging.echo_service_url":   defaults.Staging.EchoServiceURL,
		keyPrefix + "staging.description_filter": defaults.Staging.DescriptionFilter,
		keyPrefix + "release.poll_interval":      defaults.Release.PollInterval.String(),
		keyPrefix + "release.close_timeout":      defaults.Release.CloseTimeout.String(),
		keyPrefix + "release.promote_timeout":    defaults.Release.PromoteTimeout.String(),
		keyPrefix + "publish.repository_path":    defaults.Publish.RepositoryPath,
		keyPrefix + "publish.branches":           defaults.Publish.Branches,
		keyPrefix + "publish.upload_command":     defaults.Publish.UploadCommand,
		keyPrefix + "publish.deploy_url":         defaults.Publish.DeployURL,
		keyPrefix + "publish.description_filter": defaults.Publish.DescriptionFilter,
	}
}

// Sanitize trims string settings and replaces unset values with defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Staging.BaseURL = fallbackString(sanitized.Staging.BaseURL, defaults.Staging.BaseURL)
	sanitized.Staging.ConsoleURL = fallbackString(sanitized.Staging.ConsoleURL, defaults.Staging.ConsoleURL)
	sanitized.Staging.Profile = strings.TrimSpace(sanitized.Staging.Profile)
	sanitized.Staging.Username = strings.TrimSpace(sanitized.Staging.Username)
	sanitized.Staging.PasswordSource = fallbackString(sanitized.Staging.PasswordSource, defaults.Staging.PasswordSource)
	sanitized.Staging.UserAgent = strings.TrimSpace(sanitized.Staging.UserAgent)
	sanitized.Staging.RequestTimeout = fallbackDuration(sanitized.Staging.RequestTimeout, defaults.Staging.RequestTimeout)
	sanitized.Staging.EchoServiceURL = fallbackString(sanitized.Staging.EchoServiceURL, defaults.Staging.EchoServiceURL)
	sanitized.Staging.DescriptionFilter = strings.TrimSpace(sanitized.Staging.DescriptionFilter)

	sanitized.Release.PollInterval = fallbackDuration(sanitized.Release.PollInterval, defaults.Release.PollInterval)
	sanitized.Release.CloseTimeout = fallbackDuration(sanitized.Release.CloseTimeout, defaults.Release.CloseTimeout)
	sanitized.Release.PromoteTimeout = fallbackDuration(sanitized.Release.PromoteTimeout, defaults.Release.PromoteTimeout)

	sanitized.Publish.RepositoryPath = fallbackString(sanitized.Publish.RepositoryPath, defaults.Publish.RepositoryPath)
	sanitized.Publish.Branches = sanitizeBranches(sanitized.Publish.Branches)
	if len(sanitized.Publish.Branches) == 0 {
		sanitized.Publish.Branches = defaults.Publish.Branches
	}
	sanitized.Publish.UploadCommand = fallbackString(sanitized.Publish.UploadCommand, defaults.Publish.UploadCommand)
	sanitized.Publish.DeployURL = fallbackString(sanitized.Publish.DeployURL, defaults.Publish.DeployURL)
	sanitized.Publish.DescriptionFilter = strings.TrimSpace(sanitized.Publish.DescriptionFilter)

	return sanitized
}

func fallbackString(value string, fallback string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return fallback
	}
	return trimmedValue
}

func fallbackDuration(value time.Duration, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

func sanitizeBranches(branches []string) []string {
	sanitized := make([]string, 0, len(branches))
	for _, branch := range branches {
		trimmedBranch := strings.TrimSpace(branch)
		if len(trimmedBranch) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmedBranch)
	}
	return sanitized
}
