package finder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNix(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

const cliManifest = `{ pkgs }:
[
  neovim
  python3
  ripgrep
  pyyaml
]
`

func TestFindPackageUsesAliasNormalization(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", cliManifest)

	for _, aliased := range []string{"nvim", "python", "rg", "py-yaml"} {
		_, found, err := FindPackage(aliased, root)
		require.NoError(t, err)
		assert.True(t, found, "alias %s should resolve to a canonical package", aliased)
	}
}

func TestFindPackageReturnsLocation(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", cliManifest)

	loc, found, err := FindPackage("ripgrep", root)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 5, loc.Line)
	assert.Equal(t, "cli.nix", filepath.Base(loc.Path))
}

func TestFindPackageSkipsCommentLines(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", `{ pkgs }:
[
  # ripgrep
  fd
]
`)
	_, found, err := FindPackage("ripgrep", root)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAliasRHSDoesNotFalsePositive(t *testing.T) {
	root := t.TempDir()
	// `vim = "nvim";` declares an alias named vim; it must not count as a
	// declaration of nvim.
	writeNix(t, root, "home/shell.nix", `{
  programs.zsh.shellAliases = {
    vim = "nvim";
  };
}
`)
	_, found, err := FindPackage("nvim", root)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindPackageFuzzyExactWins(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", cliManifest)

	match, err := FindPackageFuzzy("ripgrep", root)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "ripgrep", match.Name)
}

func TestFindPackageFuzzyPrefix(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/languages.nix", `{ pkgs }:
home.packages = with pkgs; [
  lua5_4
];
`)
	match, err := FindPackageFuzzy("lua", root)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "lua5_4", match.Name)
}

func TestFindPackageFuzzySubstringViaAlias(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", cliManifest)

	match, err := FindPackageFuzzy("rg", root)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "ripgrep", match.Name)
}

func TestFindPackageFuzzyMissReturnsNil(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", cliManifest)

	match, err := FindPackageFuzzy("not-a-real-pkg", root)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFuzzyTieBreaksShortestThenLexicographic(t *testing.T) {
	name, ok := fuzzyMatch("lu", []string{"lua5_4x", "lua5_4", "lua5_1"})
	assert.True(t, ok)
	assert.Equal(t, "lua5_1", name)
}

func TestScanPackagesBuckets(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", `{ pkgs }:
{
  home.packages = with pkgs; [
    ripgrep
    fd  # finder
  ];
}
`)
	writeNix(t, root, "packages/homebrew/brews.nix", `[
  "mas"
  "gh"
]
`)
	writeNix(t, root, "packages/homebrew/casks.nix", `[
  "firefox"
]
`)
	writeNix(t, root, "system/darwin.nix", `{
  homebrew.masApps = {
    "Xcode" = 497799835;
  };
}
`)
	writeNix(t, root, "home/services.nix", `{
  launchd.user.agents.syncthing = { };
}
`)

	buckets, err := ScanPackages(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ripgrep", "fd"}, buckets.Nxs)
	assert.ElementsMatch(t, []string{"mas", "gh"}, buckets.Brews)
	assert.Equal(t, []string{"firefox"}, buckets.Casks)
	assert.Equal(t, []string{"Xcode"}, buckets.Mas)
	assert.Equal(t, []string{"syncthing"}, buckets.Services)
}

func TestScanIncludesDefaultNixServices(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "home/darwin/default.nix", `{ lib, ... }:
{
  launchd.agents.sops-nix.config.EnvironmentVariables.PATH =
    lib.mkForce "/usr/bin:/bin";
}
`)
	buckets, err := ScanPackages(root)
	require.NoError(t, err)
	assert.Contains(t, buckets.Services, "sops-nix")
}

func TestScanExcludesCommonNix(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "home/common.nix", `{
  launchd.agents.ignored-common = { };
}
`)
	buckets, err := ScanPackages(root)
	require.NoError(t, err)
	assert.NotContains(t, buckets.Services, "ignored-common")
}

func TestIndexRebuildsOnlyOnSignatureChange(t *testing.T) {
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", cliManifest)

	ix := NewIndex(root)
	_, err := ix.Buckets()
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Rebuilds)

	// Unchanged signatures: no rebuild.
	_, err = ix.Buckets()
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Rebuilds)

	// Touch a file with new content (size change guarantees a new
	// signature even on coarse mtime filesystems).
	path := filepath.Join(root, "packages/nix/cli.nix")
	require.NoError(t, os.WriteFile(path, []byte(cliManifest+"# trailing\n"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Second)))

	_, err = ix.Buckets()
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Rebuilds)

	_, err = ix.Buckets()
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Rebuilds)
}
