package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNix(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestDiscoverFindsTaggedFiles(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", "# nx: cli tools and utilities\n{ pkgs }: []")
	writeNix(t, root, "home/services.nix", "# nx: services and daemons\n{ ... }: {}")
	writeNix(t, root, "home/shell.nix", "{ ... }: {}")

	cf := Discover(root)

	assert.Len(t, cf.ByPurpose(), 2)
	assert.Contains(t, cf.ByPurpose(), "cli tools and utilities")
	assert.Contains(t, cf.ByPurpose(), "services and daemons")
	assert.Len(t, cf.AllFiles(), 3)
}

func TestKeywordMatchingResolvesCorrectFile(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", "# nx: cli tools and utilities\n[]")
	writeNix(t, root, "packages/nix/languages.nix", "# nx: language runtimes\n[]")

	cf := Discover(root)

	assert.Equal(t, filepath.Join(root, "packages/nix/cli.nix"), cf.Packages())
	assert.Equal(t, filepath.Join(root, "packages/nix/languages.nix"), cf.Languages())
}

func TestFallbackWhenNoTagsMatch(t *testing.T) {
	root := t.TempDir()
	cf := Discover(root)

	assert.Equal(t, filepath.Join(root, "packages/nix/cli.nix"), cf.Packages())
	assert.Equal(t, filepath.Join(root, "packages/nix/languages.nix"), cf.Languages())
	assert.Equal(t, filepath.Join(root, "home/services.nix"), cf.Services())
	assert.Equal(t, filepath.Join(root, "system/darwin.nix"), cf.Darwin())
	assert.Equal(t, filepath.Join(root, "packages/homebrew/brews.nix"), cf.HomebrewBrews())
	assert.Equal(t, filepath.Join(root, "packages/homebrew/casks.nix"), cf.HomebrewCasks())
	assert.Equal(t, filepath.Join(root, "packages/homebrew/taps.nix"), cf.HomebrewTaps())
}

func TestDefaultNixAndCommonNixExcluded(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "home/default.nix", "# nx: should be ignored\n{}")
	writeNix(t, root, "home/common.nix", "# nx: also ignored\n{}")
	writeNix(t, root, "home/shell.nix", "# nx: shell config\n{}")

	cf := Discover(root)

	require.Len(t, cf.AllFiles(), 1)
	assert.True(t, filepath.Base(cf.AllFiles()[0]) == "shell.nix")
	assert.Len(t, cf.ByPurpose(), 1)
}

func TestKeywordMatchIsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "system/darwin.nix", "# nx: MacOS System Configuration\n{}")

	cf := Discover(root)
	assert.Equal(t, filepath.Join(root, "system/darwin.nix"), cf.Darwin())
}

func TestReadPurposeCommentExtraction(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "test.nix")
	require.NoError(t, os.WriteFile(path, []byte("# nx: formula manifest for homebrew\n{ ... }: {}"), 0o644))
	assert.Equal(t, "formula manifest for homebrew", readPurposeComment(path))

	noTag := filepath.Join(root, "plain.nix")
	require.NoError(t, os.WriteFile(noTag, []byte("{ pkgs, ... }:\n{}"), 0o644))
	assert.Equal(t, "", readPurposeComment(noTag))
}

func TestAmbiguousKeywordMatchesAreDeterministic(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/a.nix", "# nx: cli tools alpha\n[]")
	writeNix(t, root, "packages/nix/z.nix", "# nx: cli tools zeta\n[]")

	first := Discover(root).Packages()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Discover(root).Packages())
	}
}
