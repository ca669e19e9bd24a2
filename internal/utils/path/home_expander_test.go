package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/mcrelease/internal/utils/path"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	homeDirectory := filepath.Join(string(filepath.Separator), "home", "releaser")
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return homeDirectory, nil
	})

	testCases := []struct {
		name         string
		input        string
		expectedPath string
	}{
		{name: "empty", input: "", expectedPath: ""},
		{name: "tilde_only", input: "~", expectedPath: homeDirectory},
		{name: "tilde_prefix", input: " ~/.m2/password ", expectedPath: filepath.Join(homeDirectory, ".m2", "password")},
		{name: "absolute", input: "/etc/mcrelease/password", expectedPath: "/etc/mcrelease/password"},
		{name: "tilde_user_form_untouched", input: "~other/file", expectedPath: "~other/file"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.input))
		})
	}
}

func TestHomeExpanderFallsBackWhenHomeUnavailable(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home")
	})
	require.Equal(testInstance, "~/file", expander.Expand("~/file"))
}

func TestHomeExpanderExpandAbsolute(testInstance *testing.T) {
	expander := pathutils.NewHomeExpander()

	absolutePath, absoluteError := expander.ExpandAbsolute("relative/project")
	require.NoError(testInstance, absoluteError)
	require.True(testInstance, filepath.IsAbs(absolutePath))

	emptyPath, emptyError := expander.ExpandAbsolute("   ")
	require.NoError(testInstance, emptyError)
	require.Empty(testInstance, emptyPath)
}
