// Package config discovers the nix-darwin configuration repository and the
// purpose-tagged manifests inside it.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/envir"
	"github.com/b2nix/nx/internal/nxcli/usererr"
)

// FindRepoRoot resolves the configuration repo root:
// B2NIX_REPO_ROOT env override, then the enclosing git toplevel when it
// contains a flake.nix, then ~/.nix-config.
func FindRepoRoot() (string, error) {
	if envRoot := os.Getenv(envir.NxRepoRoot); envRoot != "" {
		if resolved, err := filepath.EvalSymlinks(envRoot); err == nil {
			return resolved, nil
		}
		return envRoot, nil
	}

	if out, err := cmdutil.RunCaptured("git", []string{"rev-parse", "--show-toplevel"}, ""); err == nil && out.Code == 0 {
		root := strings.TrimSpace(out.Stdout)
		if root != "" && fileExists(filepath.Join(root, "flake.nix")) {
			return root, nil
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		fallback := filepath.Join(home, ".nix-config")
		if fileExists(fallback) {
			return fallback, nil
		}
	}

	return "", usererr.New("Could not find nix-config repository")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
