package sysops

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2nix/nx/internal/lock"
)

func sampleChange() *lock.InputChange {
	return &lock.InputChange{
		Name:   "home-manager",
		Owner:  "nix-community",
		Repo:   "home-manager",
		OldRev: "aaaaaaaaaaaaaaaaaaaa",
		NewRev: "1111111111111111111111",
	}
}

func TestFlakeCompareEndpointUsesShortRevs(t *testing.T) {
	endpoint, ok := flakeCompareEndpoint(sampleChange())
	require.True(t, ok)
	assert.Equal(t, "repos/nix-community/home-manager/compare/aaaaaaa...1111111", endpoint)
}

func TestFlakeCompareEndpointEmptyRevs(t *testing.T) {
	change := sampleChange()
	change.OldRev = ""
	_, ok := flakeCompareEndpoint(change)
	assert.False(t, ok)
}

func TestParseCompareJSONExtractsSubjects(t *testing.T) {
	payload := `{
  "total_commits": 12,
  "commits": [
    {"commit": {"message": "first change\n\nbody text"}},
    {"commit": {"message": "second change"}},
    {"commit": {"message": ""}},
    {"commit": {"message": "third change"}},
    {"commit": {"message": "fourth change"}}
  ]
}`
	summary := parseCompareJSON(payload)
	require.NotNil(t, summary)
	assert.Equal(t, 12, summary.TotalCommits)
	assert.Equal(t, []string{"first change", "second change", "third change"}, summary.CommitSubjects)
}

func TestParseCompareJSONInvalidReturnsNil(t *testing.T) {
	assert.Nil(t, parseCompareJSON("not json"))
	assert.Nil(t, parseCompareJSON(`{"commits": []}`))
}

func TestCompareSummaryFormat(t *testing.T) {
	one := &compareSummary{TotalCommits: 1, CommitSubjects: []string{"fix"}}
	assert.Equal(t, "1 commit: fix", one.Format())

	many := &compareSummary{TotalCommits: 3}
	assert.Equal(t, "3 commits", many.Format())
}

func TestShouldUseDetailedAISummary(t *testing.T) {
	assert.True(t, shouldUseDetailedAISummary("nixpkgs", 2))
	assert.True(t, shouldUseDetailedAISummary("obscure", 51))
	assert.False(t, shouldUseDetailedAISummary("obscure", 5))
}

func TestMaybeAISummaryGate(t *testing.T) {
	called := false
	out := maybeAISummary(true, func() string { called = true; return "x" })
	assert.Empty(t, out)
	assert.False(t, called)

	out = maybeAISummary(false, func() string { return "x" })
	assert.Equal(t, "x", out)
}

func TestParseAISummaryOutput(t *testing.T) {
	raw := "\n - first line\n\n* second line\nthird line\n"
	assert.Equal(t, "first line second line", parseAISummaryOutput(raw, 2, 400))
	assert.Empty(t, parseAISummaryOutput("\n\n", 2, 400))
}

func TestTruncateSummary(t *testing.T) {
	long := strings.Repeat("word ", 50)
	short := truncateSummary(long, 20)
	assert.LessOrEqual(t, len(short), 20)
	assert.True(t, strings.HasSuffix(short, "..."))
	assert.Equal(t, "tiny", truncateSummary("tiny", 20))
}

func TestBuildSummaryPromptCapsCommits(t *testing.T) {
	commits := make([]string, 50)
	for i := range commits {
		commits[i] = "c"
	}
	prompt := buildSummaryPrompt("target", commits, 30, "Summarize %s.")
	assert.Equal(t, 30, strings.Count(prompt, "- c"))
	assert.Contains(t, prompt, "Summarize target.")
}
