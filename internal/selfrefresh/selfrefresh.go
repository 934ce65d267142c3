// Package selfrefresh rebuilds a locally go-installed nx binary before
// heavy system commands when its source tree is newer than the binary.
// NX_RS_AUTO_REFRESH=0|false|no opts out.
package selfrefresh

import (
	"os"
	"path/filepath"
	"time"

	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/ux"
)

// MaybeRefresh rebuilds the binary when needed. The enabled flag comes
// from the AppContext (NX_RS_AUTO_REFRESH is read once at construction).
// Returns (exitCode, true) when command flow should stop now.
func MaybeRefresh(enabled bool, sourceRoot string, printer *ux.Printer) (int, bool) {
	if !enabled {
		return 0, false
	}

	currentExe, err := os.Executable()
	if err != nil || !isLocalGoNx(currentExe) {
		return 0, false
	}
	if _, err := os.Stat(filepath.Join(sourceRoot, "go.mod")); err != nil {
		return 0, false
	}
	if !isBinaryStale(currentExe, sourceRoot) {
		return 0, false
	}

	printer.Action("Refreshing local nx binary")
	printer.Detail("go install ./cmd/nx")

	out, err := cmdutil.RunCaptured("go", []string{"install", "./cmd/nx"}, sourceRoot)
	if err != nil || out.Code != 0 {
		printer.Error("Failed to refresh local nx binary")
		return 1, true
	}

	printer.Success("Local nx binary refreshed")
	printer.Detail("Re-run your command to continue")
	return 0, true
}

func isLocalGoNx(binaryPath string) bool {
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	expected := filepath.Join(home, "go", "bin", "nx")
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		expected = filepath.Join(gobin, "nx")
	}
	return pathsEquivalent(binaryPath, expected)
}

func pathsEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	aResolved, errA := filepath.EvalSymlinks(a)
	bResolved, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && aResolved == bResolved
}

func isBinaryStale(binaryPath, sourceRoot string) bool {
	info, err := os.Stat(binaryPath)
	if err != nil {
		return false
	}
	latest, ok := latestSourceModified(sourceRoot)
	return ok && latest.After(info.ModTime())
}

func latestSourceModified(sourceRoot string) (time.Time, bool) {
	var latest time.Time
	found := false

	update := func(path string) {
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if !found || info.ModTime().After(latest) {
			latest = info.ModTime()
			found = true
		}
	}

	update(filepath.Join(sourceRoot, "go.mod"))
	update(filepath.Join(sourceRoot, "go.sum"))
	for _, dir := range []string{"cmd", "internal"} {
		_ = filepath.Walk(filepath.Join(sourceRoot, dir), func(path string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				update(path)
			}
			return nil
		})
	}
	return latest, found
}
