package envir

// Environment variables read by nx. All of them are read once, while the
// AppContext is being constructed.
const (
	// NxRepoRoot overrides repository discovery entirely.
	NxRepoRoot = "B2NIX_REPO_ROOT"

	// NxAutoRefresh opts out of the local-install auto-rebuild hint when set
	// to 0/false/no.
	NxAutoRefresh = "NX_RS_AUTO_REFRESH"

	// NxDebug enables debug logging without --verbose.
	NxDebug = "NX_DEBUG"

	// NoColor forces plain output per the no-color.org convention.
	NoColor = "NO_COLOR"

	XDGCacheHome = "XDG_CACHE_HOME"

	Home = "HOME"
)
