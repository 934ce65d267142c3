package sysops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brewOutdatedFixture = `{
  "formulae": [
    {"name": "ripgrep", "installed_versions": ["14.1.0"], "current_version": "14.1.1"},
    {"name": "zz-partial", "installed_versions": [], "current_version": "1.0"},
    {"name": "", "installed_versions": ["1.0"], "current_version": "1.1"}
  ],
  "casks": [
    {"name": "firefox", "installed_versions": "132.0", "current_version": "133.0"},
    {"name": "aa-cask", "installed_versions": "1.0", "current_version": "2.0"}
  ]
}`

func TestBrewParseExtractsFormulaeAndCasks(t *testing.T) {
	results := parseBrewOutdatedJSON(brewOutdatedFixture)
	require.Len(t, results, 3)

	// Sorted by name; incomplete entries are dropped.
	assert.Equal(t, "aa-cask", results[0].Name)
	assert.True(t, results[0].IsCask)
	assert.Equal(t, "firefox", results[1].Name)
	assert.Equal(t, "ripgrep", results[2].Name)
	assert.False(t, results[2].IsCask)
	assert.Equal(t, "14.1.0", results[2].InstalledVersion)
	assert.Equal(t, "14.1.1", results[2].CurrentVersion)
}

func TestBrewParseInvalidJSONReturnsEmpty(t *testing.T) {
	assert.Empty(t, parseBrewOutdatedJSON("not json"))
	assert.Empty(t, parseBrewOutdatedJSON("{}"))
	assert.Empty(t, parseBrewOutdatedJSON(`{"formulae": [], "casks": []}`))
}

func TestBrewInfoParseExtractsFormulaMetadata(t *testing.T) {
	payload := `{
  "formulae": [
    {"name": "ripgrep", "desc": "Search tool", "homepage": "https://github.com/BurntSushi/ripgrep"}
  ]
}`
	meta := parseBrewInfoJSON(payload, false)
	require.Contains(t, meta, "ripgrep")
	assert.Equal(t, "Search tool", meta["ripgrep"].Description)
	assert.Equal(t, "https://github.com/BurntSushi/ripgrep", meta["ripgrep"].Homepage)
}

func TestBrewInfoParseExtractsCaskMetadata(t *testing.T) {
	payload := `{
  "casks": [
    {"token": "firefox", "desc": "Web browser", "homepage": "https://www.mozilla.org/"}
  ]
}`
	meta := parseBrewInfoJSON(payload, true)
	require.Contains(t, meta, "firefox")
	assert.Equal(t, "Web browser", meta["firefox"].Description)
}

func TestBrewInfoParseInvalidReturnsEmpty(t *testing.T) {
	assert.Empty(t, parseBrewInfoJSON("oops", false))
}

func TestBrewCompareURLUsesNormalizedVersions(t *testing.T) {
	url := brewCompareURL("https://github.com/BurntSushi/ripgrep", "v14.1.0", "14.1.1")
	assert.Equal(t, "https://github.com/BurntSushi/ripgrep/compare/14.1.0...14.1.1", url)
}

func TestBrewCompareURLNonGithubHomepage(t *testing.T) {
	assert.Empty(t, brewCompareURL("https://example.com/project", "1.0", "1.1"))
	assert.Empty(t, brewCompareURL("", "1.0", "1.1"))
}

func TestGithubOwnerRepo(t *testing.T) {
	testCases := []struct {
		url   string
		owner string
		repo  string
		ok    bool
	}{
		{"https://github.com/BurntSushi/ripgrep", "BurntSushi", "ripgrep", true},
		{"http://github.com/owner/repo.git", "owner", "repo", true},
		{"https://github.com/owner/repo?tab=readme", "owner", "repo", true},
		{"https://github.com/owner/repo/tree/main", "owner", "repo", true},
		{"https://gitlab.com/owner/repo", "", "", false},
		{"github.com/owner/repo", "", "", false},
		{"https://github.com/owner", "", "", false},
	}
	for _, tc := range testCases {
		owner, repo, ok := githubOwnerRepo(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
		if tc.ok {
			assert.Equal(t, tc.owner, owner, tc.url)
			assert.Equal(t, tc.repo, repo, tc.url)
		}
	}
}

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, "1.2.3", normalizeVersion("v1.2.3"))
	assert.Equal(t, "1.2.3", normalizeVersion("  1.2.3 "))
}

func TestVersionJumpNote(t *testing.T) {
	major := &brewOutdatedPackage{InstalledVersion: "1.9.0", CurrentVersion: "2.0.0"}
	assert.Equal(t, "  (major)", versionJumpNote(major))

	minor := &brewOutdatedPackage{InstalledVersion: "1.9.0", CurrentVersion: "1.10.0"}
	assert.Empty(t, versionJumpNote(minor))

	unparseable := &brewOutdatedPackage{InstalledVersion: "latest", CurrentVersion: "2024"}
	assert.Empty(t, versionJumpNote(unparseable))
}
