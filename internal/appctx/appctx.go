// Package appctx builds the per-invocation application context: repo
// root, config files, cache handle, and global output flags. It is
// constructed once before any command runs and is immutable afterwards.
package appctx

import (
	"path/filepath"

	"github.com/b2nix/nx/internal/cache"
	"github.com/b2nix/nx/internal/config"
	"github.com/b2nix/nx/internal/debug"
	"github.com/b2nix/nx/internal/envir"
	"github.com/b2nix/nx/internal/finder"
	"github.com/b2nix/nx/internal/ux"
)

// GlobalFlags are the root-level output options.
type GlobalFlags struct {
	Plain   bool
	Unicode bool
	Minimal bool
	Verbose bool
	JSON    bool
}

type Context struct {
	RepoRoot      string
	Config        *config.Files
	FlakeLockPath string
	Cache         *cache.Cache
	Index         *finder.Index
	Printer       *ux.Printer
	Flags         GlobalFlags
	AutoRefresh   bool
}

// New locates the repo and wires the context. The cache is loaded lazily
// via its handle; the index rebuilds on demand.
func New(flags GlobalFlags) (*Context, error) {
	repoRoot, err := config.FindRepoRoot()
	if err != nil {
		return nil, err
	}
	return NewAt(repoRoot, flags), nil
}

// NewAt builds a context for an explicit repo root (used by tests).
func NewAt(repoRoot string, flags GlobalFlags) *Context {
	if flags.Verbose {
		debug.Enable()
	}
	style := ux.StyleFromEnv(flags.Plain, flags.Unicode, flags.Minimal)
	return &Context{
		RepoRoot:      repoRoot,
		Config:        config.Discover(repoRoot),
		FlakeLockPath: filepath.Join(repoRoot, "flake.lock"),
		Cache:         cache.Load(repoRoot),
		Index:         finder.NewIndex(repoRoot),
		Printer:       ux.NewPrinter(style),
		Flags:         flags,
		AutoRefresh:   envir.AutoRefreshEnabled(),
	}
}

// WantsJSON combines the root --json flag with a per-command one.
func (c *Context) WantsJSON(local bool) bool {
	return local || c.Flags.JSON
}

func (c *Context) Style() ux.Style {
	return ux.StyleFromEnv(c.Flags.Plain, c.Flags.Unicode, c.Flags.Minimal)
}
