package plan

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2nix/nx/internal/sources"
)

func TestSelectAvailablePassesWhenChosenAvailable(t *testing.T) {
	chosen := sources.Result{Name: "ripgrep", Source: sources.Nxs, Attr: "ripgrep"}
	got, err := SelectAvailable(chosen, nil, func(string) (bool, string) { return true, "" })
	require.NoError(t, err)
	assert.Equal(t, chosen, got)
}

func TestSelectAvailableSkipsCheckForNonNixSources(t *testing.T) {
	chosen := sources.Result{Name: "firefox", Source: sources.Cask, Attr: "firefox"}
	called := false
	got, err := SelectAvailable(chosen, nil, func(string) (bool, string) {
		called = true
		return false, "nope"
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, chosen, got)
}

func TestSelectAvailableFallsBackToSameSourceCandidate(t *testing.T) {
	chosen := sources.Result{Name: "tool", Source: sources.Nxs, Attr: "tool-gui"}
	ranked := []sources.Result{
		chosen,
		{Name: "tool", Source: sources.Homebrew, Attr: "tool"}, // other source, skipped
		{Name: "tool", Source: sources.Nxs, Attr: "tool-cli"},
	}
	got, err := SelectAvailable(chosen, ranked, func(attr string) (bool, string) {
		return attr == "tool-cli", "not here"
	})
	require.NoError(t, err)
	assert.Equal(t, "tool-cli", got.Attr)
	assert.Equal(t, sources.Nxs, got.Source)
}

func TestSelectAvailableNoCandidateErrors(t *testing.T) {
	chosen := sources.Result{Name: "tool", Source: sources.Nxs, Attr: "tool-gui"}
	_, err := SelectAvailable(chosen, []sources.Result{chosen}, func(string) (bool, string) {
		return false, "unsupported platform"
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlatformUnavailable))
}
