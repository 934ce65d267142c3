package edit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2nix/nx/internal/plan"
	"github.com/b2nix/nx/internal/sources"
)

const nixManifestFixture = `{ pkgs, ... }:
{
  home.packages = with pkgs; [
    # === CLI tools ===
    bat
    fd  # file finder
    ripgrep
  ];
}
`

const brewManifestFixture = `# nx: formula manifest
[
  "gh"
  "mas"
]
`

const darwinFixture = `{ ... }:
{
  homebrew = {
    masApps = {
      "Keynote" = 409183694;
      "Xcode" = 497799835;
    };
  };
}
`

const languagesFixture = `{ pkgs, ... }:
{
  home.packages = with pkgs; [
    (python3.withPackages (ps: with ps; [
      requests
    ]))
    (lua5_4.withPackages (ps: with ps; [
      lpeg
    ]))
  ];
}
`

func writeTarget(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.nix")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readTarget(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func nixPlan(target, token string) *plan.InstallPlan {
	return &plan.InstallPlan{
		SourceResult:  sources.Result{Name: token, Source: sources.Nxs, Attr: token},
		PackageToken:  token,
		TargetFile:    target,
		InsertionMode: plan.NixManifest,
	}
}

func brewPlan(target, token string) *plan.InstallPlan {
	return &plan.InstallPlan{
		SourceResult:  sources.Result{Name: token, Source: sources.Homebrew, Attr: token},
		PackageToken:  token,
		TargetFile:    target,
		InsertionMode: plan.HomebrewManifest,
	}
}

func masPlan(target, token string) *plan.InstallPlan {
	return &plan.InstallPlan{
		SourceResult:  sources.Result{Name: token, Source: sources.Mas, Attr: token},
		PackageToken:  token,
		TargetFile:    target,
		InsertionMode: plan.MasApps,
	}
}

func langPlan(target, bare, interpreter string) *plan.InstallPlan {
	return &plan.InstallPlan{
		SourceResult:  sources.Result{Name: bare, Source: sources.Nxs, Attr: bare},
		PackageToken:  bare,
		TargetFile:    target,
		InsertionMode: plan.LanguageWithPackages,
		LanguageInfo:  &sources.LanguageInfo{BareName: bare, Interpreter: interpreter},
	}
}

// --- nix manifest

func TestNixManifestAlphabeticalInsertion(t *testing.T) {
	target := writeTarget(t, nixManifestFixture)

	outcome, err := Apply(nixPlan(target, "eza"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)

	content := readTarget(t, target)
	assert.Contains(t, content, "    bat\n    eza\n    fd  # file finder\n")
}

func TestNixManifestInsertAtEnd(t *testing.T) {
	target := writeTarget(t, nixManifestFixture)

	outcome, err := Apply(nixPlan(target, "zoxide"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)
	assert.Contains(t, readTarget(t, target), "    ripgrep\n    zoxide\n  ];")
}

func TestNixManifestInsertIsIdempotent(t *testing.T) {
	target := writeTarget(t, nixManifestFixture)

	outcome, err := Apply(nixPlan(target, "ripgrep"))
	require.NoError(t, err)
	assert.False(t, outcome.FileChanged)
	assert.Equal(t, nixManifestFixture, readTarget(t, target))
}

func TestNixManifestCommentAwareIdempotence(t *testing.T) {
	target := writeTarget(t, nixManifestFixture)

	// `fd  # file finder` declares fd despite the trailing comment.
	outcome, err := Apply(nixPlan(target, "fd"))
	require.NoError(t, err)
	assert.False(t, outcome.FileChanged)
}

func TestNixManifestRemove(t *testing.T) {
	target := writeTarget(t, nixManifestFixture)

	outcome, err := Remove(nixPlan(target, "fd"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)

	content := readTarget(t, target)
	assert.NotContains(t, content, "fd  # file finder")
	assert.Contains(t, content, "bat")
	assert.Contains(t, content, "ripgrep")
}

func TestNixManifestRemoveMissingIsNoop(t *testing.T) {
	target := writeTarget(t, nixManifestFixture)

	outcome, err := Remove(nixPlan(target, "absent"))
	require.NoError(t, err)
	assert.False(t, outcome.FileChanged)
	assert.Equal(t, nixManifestFixture, readTarget(t, target))
}

func TestRemoveThenInstallRoundTrips(t *testing.T) {
	target := writeTarget(t, nixManifestFixture)

	_, err := Remove(nixPlan(target, "fd"))
	require.NoError(t, err)
	outcome, err := Apply(nixPlan(target, "fd"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)

	// Whitespace-equivalent restore for a token declared alone on its
	// line: only the dropped trailing comment differs.
	assert.Contains(t, readTarget(t, target), "    bat\n    fd\n    ripgrep\n")
}

func TestEnvironmentSystemPackagesListSupported(t *testing.T) {
	target := writeTarget(t, `{ pkgs, ... }:
{
  environment.systemPackages = [
    pkgs.git
    vim
  ];
}
`)
	outcome, err := Apply(nixPlan(target, "tmux"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)
	assert.Contains(t, readTarget(t, target), "tmux")
}

// --- homebrew manifest

func TestHomebrewManifestQuotedInsertion(t *testing.T) {
	target := writeTarget(t, brewManifestFixture)

	outcome, err := Apply(brewPlan(target, "jq"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)
	assert.Contains(t, readTarget(t, target), "  \"gh\"\n  \"jq\"\n  \"mas\"\n")
}

func TestHomebrewManifestIdempotent(t *testing.T) {
	target := writeTarget(t, brewManifestFixture)

	outcome, err := Apply(brewPlan(target, "gh"))
	require.NoError(t, err)
	assert.False(t, outcome.FileChanged)
}

func TestHomebrewManifestRemove(t *testing.T) {
	target := writeTarget(t, brewManifestFixture)

	outcome, err := Remove(brewPlan(target, "mas"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)
	assert.NotContains(t, readTarget(t, target), `"mas"`)
}

// --- masApps

func TestMasAppInsertionSorted(t *testing.T) {
	target := writeTarget(t, darwinFixture)

	outcome, err := Apply(masPlan(target, "Numbers"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)
	assert.Contains(t, readTarget(t, target),
		"      \"Keynote\" = 409183694;\n      \"Numbers\" = 0;\n      \"Xcode\" = 497799835;\n")
}

func TestMasAppIdempotent(t *testing.T) {
	target := writeTarget(t, darwinFixture)

	outcome, err := Apply(masPlan(target, "Xcode"))
	require.NoError(t, err)
	assert.False(t, outcome.FileChanged)
}

func TestMasAppCreatesBlockInsideHomebrew(t *testing.T) {
	target := writeTarget(t, `{ ... }:
{
  homebrew = {
    brews = [
      "mas"
    ];
  };
}
`)
	outcome, err := Apply(masPlan(target, "Xcode"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)

	content := readTarget(t, target)
	assert.Contains(t, content, "masApps = {")
	assert.Contains(t, content, "\"Xcode\" = 0;")
}

func TestMasAppCreatesTopLevelBlockWithoutHomebrew(t *testing.T) {
	target := writeTarget(t, `{ ... }:
{
  system.defaults.dock.autohide = true;
}
`)
	outcome, err := Apply(masPlan(target, "Xcode"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)

	content := readTarget(t, target)
	assert.Contains(t, content, "homebrew.masApps = {")
	assert.Contains(t, content, "\"Xcode\" = 0;")
}

func TestMasAppRemove(t *testing.T) {
	target := writeTarget(t, darwinFixture)

	outcome, err := Remove(masPlan(target, "Keynote"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)
	assert.NotContains(t, readTarget(t, target), "Keynote")
	assert.Contains(t, readTarget(t, target), "Xcode")
}

// --- withPackages

func TestLanguageInsertTargetsCorrectRuntime(t *testing.T) {
	target := writeTarget(t, languagesFixture)

	outcome, err := Apply(langPlan(target, "httpx", "python3"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)

	content := readTarget(t, target)
	assert.Contains(t, content, "      httpx\n      requests\n")
	// The lua block is untouched.
	assert.Contains(t, content, "(lua5_4.withPackages (ps: with ps; [\n      lpeg\n")
}

func TestLanguageInsertIdempotent(t *testing.T) {
	target := writeTarget(t, languagesFixture)

	outcome, err := Apply(langPlan(target, "requests", "python3"))
	require.NoError(t, err)
	assert.False(t, outcome.FileChanged)
}

func TestLanguageRemove(t *testing.T) {
	target := writeTarget(t, languagesFixture)

	outcome, err := Remove(langPlan(target, "lpeg", "lua5_4"))
	require.NoError(t, err)
	assert.True(t, outcome.FileChanged)
	assert.NotContains(t, readTarget(t, target), "lpeg")
	assert.Contains(t, readTarget(t, target), "requests")
}

func TestLanguageMissingRuntimeBlockErrors(t *testing.T) {
	target := writeTarget(t, languagesFixture)

	_, err := Apply(langPlan(target, "rails", "ruby"))
	assert.Error(t, err)
}

func TestApplyMissingFileErrors(t *testing.T) {
	p := nixPlan(filepath.Join(t.TempDir(), "missing.nix"), "ripgrep")
	_, err := Apply(p)
	assert.Error(t, err)
}
