package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2nix/nx/internal/config"
	"github.com/b2nix/nx/internal/sources"
)

func writeNix(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func testConfig(t *testing.T) *config.Files {
	t.Helper()
	root := t.TempDir()
	writeNix(t, root, "packages/nix/cli.nix", "# nx: cli tools and utilities\n[]")
	writeNix(t, root, "packages/nix/languages.nix", "# nx: language runtimes\n[]")
	writeNix(t, root, "packages/nix/dev.nix", "# nx: developer tooling\n[]")
	writeNix(t, root, "packages/homebrew/brews.nix", "# nx: formula manifest\n[]")
	writeNix(t, root, "packages/homebrew/casks.nix", "# nx: cask manifest\n[]")
	writeNix(t, root, "system/darwin.nix", "# nx: macos system\n{}")
	writeNix(t, root, "home/services.nix", "# nx: services\n{}")
	return config.Discover(root)
}

func sr(name string, source sources.Source, attr string) sources.Result {
	return sources.Result{Name: name, Source: source, Attr: attr, Confidence: 1.0}
}

func TestRouteCaskToCasksFile(t *testing.T) {
	cf := testConfig(t)
	p, err := Build(sr("firefox", sources.Cask, "firefox"), cf, nil)
	require.NoError(t, err)
	assert.Equal(t, HomebrewManifest, p.InsertionMode)
	assert.True(t, strings.HasSuffix(p.TargetFile, "packages/homebrew/casks.nix"))
	assert.True(t, p.IsCask)
}

func TestRouteBrewToBrewsFile(t *testing.T) {
	cf := testConfig(t)
	p, err := Build(sr("htop", sources.Homebrew, "htop"), cf, nil)
	require.NoError(t, err)
	assert.Equal(t, HomebrewManifest, p.InsertionMode)
	assert.True(t, strings.HasSuffix(p.TargetFile, "packages/homebrew/brews.nix"))
	assert.True(t, p.IsBrew)
}

func TestRouteMasToDarwin(t *testing.T) {
	cf := testConfig(t)
	p, err := Build(sr("Xcode", sources.Mas, "Xcode"), cf, nil)
	require.NoError(t, err)
	assert.Equal(t, MasApps, p.InsertionMode)
	assert.True(t, strings.HasSuffix(p.TargetFile, "system/darwin.nix"))
	assert.True(t, p.IsMas)
}

func TestRoutePythonPackageToLanguages(t *testing.T) {
	cf := testConfig(t)
	p, err := Build(sr("pyyaml", sources.Nxs, "python3Packages.pyyaml"), cf, nil)
	require.NoError(t, err)
	assert.Equal(t, LanguageWithPackages, p.InsertionMode)
	assert.True(t, strings.HasSuffix(p.TargetFile, "packages/nix/languages.nix"))
	require.NotNil(t, p.LanguageInfo)
	assert.Equal(t, "pyyaml", p.LanguageInfo.BareName)
	assert.Equal(t, "python3", p.LanguageInfo.Interpreter)
}

func TestRouteLuaPackageToLanguages(t *testing.T) {
	cf := testConfig(t)
	p, err := Build(sr("lpeg", sources.Nxs, "luaPackages.lpeg"), cf, nil)
	require.NoError(t, err)
	assert.Equal(t, LanguageWithPackages, p.InsertionMode)
	require.NotNil(t, p.LanguageInfo)
	assert.Equal(t, "lua5_4", p.LanguageInfo.Interpreter)
}

func TestRouteMCPToolToCliNoWarning(t *testing.T) {
	cf := testConfig(t)
	for _, name := range []string{"server-mcp", "mcp-server-git"} {
		p, err := Build(sr(name, sources.Nxs, name), cf, nil)
		require.NoError(t, err)
		assert.Equal(t, NixManifest, p.InsertionMode)
		assert.True(t, strings.HasSuffix(p.TargetFile, "packages/nix/cli.nix"))
		assert.Empty(t, p.RoutingWarning)
	}
}

func TestRouteGeneralNixToCliWithWarning(t *testing.T) {
	cf := testConfig(t)
	p, err := Build(sr("ripgrep", sources.Nxs, "ripgrep"), cf, nil)
	require.NoError(t, err)
	assert.Equal(t, NixManifest, p.InsertionMode)
	assert.True(t, strings.HasSuffix(p.TargetFile, "packages/nix/cli.nix"))
	assert.Contains(t, p.RoutingWarning, "fallback")
}

type stubRouter struct {
	answer string
	err    error
}

func (s stubRouter) Route(string, []string, *config.Files) (string, error) {
	return s.answer, s.err
}

func TestRouterMayPickAnyCandidate(t *testing.T) {
	cf := testConfig(t)
	dev := filepath.Join(cf.RepoRoot(), "packages/nix/dev.nix")
	p, err := Build(sr("delve", sources.Nxs, "delve"), cf, stubRouter{answer: dev})
	require.NoError(t, err)
	assert.Equal(t, dev, p.TargetFile)
	assert.Empty(t, p.RoutingWarning)
}

func TestRouterOutsideCandidateSetFallsBack(t *testing.T) {
	cf := testConfig(t)
	p, err := Build(sr("delve", sources.Nxs, "delve"), cf, stubRouter{answer: "/somewhere/else.nix"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.TargetFile, "packages/nix/cli.nix"))
	assert.Contains(t, p.RoutingWarning, "ambiguous")
}

func TestRouterNeverPicksLanguagesForGeneralNix(t *testing.T) {
	cf := testConfig(t)
	languages := cf.Languages()
	p, err := Build(sr("delve", sources.Nxs, "delve"), cf, stubRouter{answer: languages})
	require.NoError(t, err)
	assert.NotEqual(t, languages, p.TargetFile)
	assert.Contains(t, p.RoutingWarning, "ambiguous")
}

func TestCandidatesExcludeLanguagesManifest(t *testing.T) {
	cf := testConfig(t)
	candidates := Candidates(cf)
	assert.NotEmpty(t, candidates)
	for _, candidate := range candidates {
		assert.NotEqual(t, cf.Languages(), candidate)
		assert.Equal(t, filepath.Dir(cf.Packages()), filepath.Dir(candidate))
	}
}

func TestMissingAttrErrors(t *testing.T) {
	cf := testConfig(t)
	for _, source := range []sources.Source{sources.Nxs, sources.Unstable, sources.Nur, sources.FlakeInput} {
		_, err := Build(sr("pkg", source, ""), cf, nil)
		assert.Error(t, err, string(source))
	}
}

func TestNonNixSourcesAllowMissingAttr(t *testing.T) {
	cf := testConfig(t)
	p, err := Build(sources.Result{Name: "firefox", Source: sources.Cask}, cf, nil)
	require.NoError(t, err)
	assert.Equal(t, "firefox", p.PackageToken)
}

func TestPackageTokenPrefersAttr(t *testing.T) {
	cf := testConfig(t)
	p, err := Build(sr("rg", sources.Nxs, "ripgrep"), cf, nil)
	require.NoError(t, err)
	assert.Equal(t, "ripgrep", p.PackageToken)
}

func TestIsMCPTool(t *testing.T) {
	assert.True(t, IsMCPTool("server-mcp"))
	assert.True(t, IsMCPTool("MCP-tools"))
	assert.True(t, IsMCPTool("mcp-server-git"))
	assert.False(t, IsMCPTool("ripgrep"))
	assert.False(t, IsMCPTool("mcptools"))
	assert.False(t, IsMCPTool("amcp"))
}
