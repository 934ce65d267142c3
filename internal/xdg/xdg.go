package xdg

import (
	"os"
	"path/filepath"

	"github.com/b2nix/nx/internal/envir"
)

// CacheSubpath resolves a path under the user cache directory, honoring
// XDG_CACHE_HOME and falling back to ~/.cache.
func CacheSubpath(subpath string) string {
	return filepath.Join(cacheDir(), subpath)
}

func cacheDir() string {
	if dir := os.Getenv(envir.XDGCacheHome); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	return filepath.Join(home, ".cache")
}
