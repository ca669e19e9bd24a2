package trigger

import (
	"context"
	"errors"
	"strings"

	"github.com/temirov/mcrelease/internal/execshell"
)

const (
	// DefaultCandidateBranch is the branch a release tag must be reachable from when none are configured.
	DefaultCandidateBranch = "main"

	gitBranchSubcommandConstant    = "branch"
	gitAllFlagConstant             = "--all"
	gitReferenceFormatFlagConstant = "--format=%(refname)"
	gitContainsFlagConstant        = "--contains"
	gitDescribeSubcommandConstant  = "describe"
	gitTagsFlagConstant            = "--tags"
	gitExactMatchFlagConstant      = "--exact-match"
	gitHeadReferenceConstant       = "HEAD"
	tagReferencePrefixConstant     = "refs/tags/"
	localBranchPrefixConstant      = "refs/heads/"
	remoteBranchPrefixConstant     = "refs/remotes/"
	referenceSeparatorConstant     = "/"
	remoteHeadBranchNameConstant   = "HEAD"
)

// ErrGitExecutorNotConfigured indicates the inspector was built without a git executor.
var ErrGitExecutorNotConfigured = errors.New("git executor not configured")

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Inspector answers release-trigger questions about a local checkout.
type Inspector struct {
	executor GitExecutor
}

// NewInspector validates the executor.
func NewInspector(executor GitExecutor) (*Inspector, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &Inspector{executor: executor}, nil
}

// DefaultCandidateBranches returns the branch list used when none is configured.
func DefaultCandidateBranches() []string {
	return []string{DefaultCandidateBranch}
}

// ShouldRelease reports whether the tag is reachable from any candidate branch, local or remote.
// An empty tag never releases. An empty candidate list selects DefaultCandidateBranches.
func (inspector *Inspector) ShouldRelease(executionContext context.Context, repositoryPath string, tagName string, candidateBranches []string) (bool, error) {
	trimmedTagName := strings.TrimPrefix(strings.TrimSpace(tagName), tagReferencePrefixConstant)
	if len(trimmedTagName) == 0 {
		return false, nil
	}

	candidates := normalizeBranches(candidateBranches)
	if len(candidates) == 0 {
		candidates = DefaultCandidateBranches()
	}

	result, executionError := inspector.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitBranchSubcommandConstant, gitAllFlagConstant, gitReferenceFormatFlagConstant, gitContainsFlagConstant, tagReferencePrefixConstant + trimmedTagName},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return false, executionError
	}

	containingBranches := make(map[string]struct{})
	for _, branchName := range parseBranchReferences(result.StandardOutput) {
		containingBranches[branchName] = struct{}{}
	}

	for _, candidate := range candidates {
		if _, contained := containingBranches[candidate]; contained {
			return true, nil
		}
	}
	return false, nil
}

// CurrentTag returns the tag pointing exactly at HEAD, or an empty string when there is none.
func (inspector *Inspector) CurrentTag(executionContext context.Context, repositoryPath string) (string, error) {
	result, executionError := inspector.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitDescribeSubcommandConstant, gitTagsFlagConstant, gitExactMatchFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		var failedError execshell.CommandFailedError
		if errors.As(executionError, &failedError) {
			return "", nil
		}
		return "", executionError
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

func parseBranchReferences(output string) []string {
	branchNames := make([]string, 0)
	for _, line := range strings.Split(output, "\n") {
		reference := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(reference, localBranchPrefixConstant):
			branchNames = append(branchNames, strings.TrimPrefix(reference, localBranchPrefixConstant))
		case strings.HasPrefix(reference, remoteBranchPrefixConstant):
			remoteAndBranch := strings.TrimPrefix(reference, remoteBranchPrefixConstant)
			separatorIndex := strings.Index(remoteAndBranch, referenceSeparatorConstant)
			if separatorIndex < 0 {
				continue
			}
			branchName := remoteAndBranch[separatorIndex+1:]
			if len(branchName) == 0 || branchName == remoteHeadBranchNameConstant {
				continue
			}
			branchNames = append(branchNames, branchName)
		}
	}
	return branchNames
}

func normalizeBranches(branches []string) []string {
	normalized := make([]string, 0, len(branches))
	for _, branch := range branches {
		trimmedBranch := strings.TrimPrefix(strings.TrimSpace(branch), localBranchPrefixConstant)
		if len(trimmedBranch) == 0 {
			continue
		}
		normalized = append(normalized, trimmedBranch)
	}
	return normalized
}
