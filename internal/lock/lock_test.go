package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureLock = `{
  "nodes": {
    "home-manager": {
      "locked": {
        "lastModified": 1700000000,
        "owner": "nix-community",
        "repo": "home-manager",
        "rev": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
        "type": "github"
      }
    },
    "nixpkgs_2": {
      "locked": {
        "lastModified": 1700000001,
        "owner": "NixOS",
        "repo": "nixpkgs",
        "rev": "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
        "type": "github"
      }
    },
    "flakehub-input": {
      "locked": {
        "lastModified": 1700000002,
        "rev": "cccccccccccccccccccccccccccccccccccccccc",
        "type": "tarball",
        "url": "https://api.flakehub.com/f/pinned/DeterminateSystems/nuenv/0.1.0/018c6d7e/source.tar.gz"
      }
    },
    "binary-artifact": {
      "locked": {
        "type": "file",
        "url": "https://example.com/binary.tar.gz"
      }
    },
    "root": {
      "inputs": {
        "home-manager": "home-manager",
        "nixpkgs": "nixpkgs_2",
        "flakehub-input": "flakehub-input",
        "binary-artifact": "binary-artifact",
        "follows-ref": ["nixpkgs"]
      }
    }
  }
}`

const fixtureLockUpdated = `{
  "nodes": {
    "home-manager": {
      "locked": {
        "lastModified": 1700100000,
        "owner": "nix-community",
        "repo": "home-manager",
        "rev": "1111111111111111111111111111111111111111",
        "type": "github"
      }
    },
    "nixpkgs_2": {
      "locked": {
        "lastModified": 1700000001,
        "owner": "NixOS",
        "repo": "nixpkgs",
        "rev": "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
        "type": "github"
      }
    },
    "new-input": {
      "locked": {
        "lastModified": 1700200000,
        "owner": "new-org",
        "repo": "new-repo",
        "rev": "dddddddddddddddddddddddddddddddddddddddd",
        "type": "github"
      }
    },
    "root": {
      "inputs": {
        "home-manager": "home-manager",
        "nixpkgs": "nixpkgs_2",
        "new-input": "new-input"
      }
    }
  }
}`

func parseFixture(t *testing.T, content string) map[string]Input {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flake.lock")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	inputs, err := ParseFlakeLock(path)
	require.NoError(t, err)
	return inputs
}

func TestParseExtractsGithubInputs(t *testing.T) {
	inputs := parseFixture(t, fixtureLock)
	require.Contains(t, inputs, "home-manager")

	hm := inputs["home-manager"]
	assert.Equal(t, "nix-community", hm.Owner)
	assert.Equal(t, "home-manager", hm.Repo)
	assert.Equal(t, KindGithub, hm.Kind)
	assert.Equal(t, int64(1700000000), hm.LastModified)
	assert.True(t, hm.Rev[:4] == "aaaa")
}

func TestParseHandlesIndirection(t *testing.T) {
	inputs := parseFixture(t, fixtureLock)
	// root.inputs "nixpkgs" points at the "nixpkgs_2" node.
	require.Contains(t, inputs, "nixpkgs")
	assert.Equal(t, "NixOS", inputs["nixpkgs"].Owner)
	assert.Equal(t, "nixpkgs", inputs["nixpkgs"].Repo)
}

func TestParseExtractsFlakeHubTarball(t *testing.T) {
	inputs := parseFixture(t, fixtureLock)
	require.Contains(t, inputs, "flakehub-input")

	fh := inputs["flakehub-input"]
	assert.Equal(t, "DeterminateSystems", fh.Owner)
	assert.Equal(t, "nuenv", fh.Repo)
	assert.Equal(t, KindTarball, fh.Kind)
}

func TestParseSkipsFileKind(t *testing.T) {
	inputs := parseFixture(t, fixtureLock)
	assert.NotContains(t, inputs, "binary-artifact")
}

func TestParseSkipsFollowsRefs(t *testing.T) {
	inputs := parseFixture(t, fixtureLock)
	assert.NotContains(t, inputs, "follows-ref")
}

func TestLoadMissingLockReturnsEmpty(t *testing.T) {
	inputs, err := LoadFlakeLock(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, inputs)
}

func TestDiffDetectsChangedInputs(t *testing.T) {
	old := parseFixture(t, fixtureLock)
	new := parseFixture(t, fixtureLockUpdated)

	diff := DiffLocks(old, new)
	require.Len(t, diff.Changed, 1)
	change := diff.Changed[0]
	assert.Equal(t, "home-manager", change.Name)
	assert.True(t, change.OldRev[:4] == "aaaa")
	assert.True(t, change.NewRev[:4] == "1111")
}

func TestDiffDetectsAddedAndRemovedInputs(t *testing.T) {
	old := parseFixture(t, fixtureLock)
	new := parseFixture(t, fixtureLockUpdated)

	diff := DiffLocks(old, new)
	assert.Contains(t, diff.Added, "new-input")
	assert.Contains(t, diff.Removed, "flakehub-input")
}

func TestDiffUnchangedInputsNotInChanged(t *testing.T) {
	old := parseFixture(t, fixtureLock)
	new := parseFixture(t, fixtureLockUpdated)

	for _, change := range DiffLocks(old, new).Changed {
		assert.NotEqual(t, "nixpkgs", change.Name)
	}
}

func TestDiffIsReflexive(t *testing.T) {
	inputs := parseFixture(t, fixtureLock)
	diff := DiffLocks(inputs, inputs)

	want := &Diff{}
	if !cmp.Equal(want, diff) {
		t.Errorf("reflexive diff not empty: %s", cmp.Diff(want, diff))
	}
}

func TestShortRev(t *testing.T) {
	assert.Equal(t, "aaaaaaa", ShortRev("aaaaaaaaaaaaaaaaaaaa"))
	assert.Equal(t, "abc", ShortRev("abc"))
}
