package nxcli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocessArgsPackageNameInsertsInstall(t *testing.T) {
	assert.Equal(t,
		[]string{"install", "ripgrep"},
		PreprocessArgs([]string{"ripgrep"}))
}

func TestPreprocessArgsTypoLikeTokenInsertsInstall(t *testing.T) {
	assert.Equal(t,
		[]string{"install", "upgade", "--dry-run"},
		PreprocessArgs([]string{"upgade", "--dry-run"}))
}

func TestPreprocessArgsKnownCommandsPassThrough(t *testing.T) {
	for _, command := range []string{"rebuild", "search", "uninstall", "secrets", "rm", "upgrade"} {
		got := PreprocessArgs([]string{command, "x"})
		assert.Equal(t, command, got[0], command)
		assert.Len(t, got, 2)
	}
}

func TestPreprocessArgsFlagPassesThrough(t *testing.T) {
	assert.Equal(t, []string{"--help"}, PreprocessArgs([]string{"--help"}))
}

func TestPreprocessArgsEmpty(t *testing.T) {
	assert.Empty(t, PreprocessArgs(nil))
}

func TestNormalizeSourceFilter(t *testing.T) {
	testCases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"nix", "nxs", true},
		{"nxs", "nxs", true},
		{"BREW", "brews", true},
		{"homebrew", "brews", true},
		{"cask", "casks", true},
		{"mas", "mas", true},
		{"service", "services", true},
		{"flakehub", "", false},
	}
	for _, tc := range testCases {
		got, ok := normalizeSourceFilter(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestRenderExamplesCapsAtFour(t *testing.T) {
	assert.Equal(t, "a, b", renderExamples([]string{"b", "a"}))
	assert.Equal(t, "a, b, c, d, ...", renderExamples([]string{"e", "d", "c", "b", "a"}))
}

func TestRootCmdKnowsEveryContractCommand(t *testing.T) {
	root := RootCmd()
	for _, name := range []string{
		"install", "remove", "search", "where", "list", "info",
		"status", "installed", "undo", "update", "test", "rebuild", "upgrade", "secret",
	} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing command %s", name)
	}
}
