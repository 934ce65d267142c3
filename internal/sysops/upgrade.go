package sysops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/lock"
)

// UpgradeOptions are the per-run switches of the four-phase upgrade flow.
type UpgradeOptions struct {
	DryRun      bool
	NoAI        bool
	SkipBrew    bool
	SkipRebuild bool
	SkipCommit  bool
	Passthrough []string
}

// cacheCorruptionIndicators are the nix fetcher-cache failure signatures
// that warrant deleting the cache and retrying exactly once.
var cacheCorruptionIndicators = []string{
	"failed to insert entry: invalid object specified",
	"error: adding a file to a tree builder",
}

// Upgrade runs flake update → brew → rebuild → commit. Any phase failure
// short-circuits the remaining phases and exits 1.
func Upgrade(opts *UpgradeOptions, ctx *appctx.Context) int {
	if opts.DryRun {
		ctx.Printer.DryRunBanner()
	}

	flakeChanges, ok := runFlakePhase(opts, ctx)
	if !ok {
		return 1
	}

	if !opts.SkipBrew {
		runBrewPhase(opts, ctx)
	}

	if opts.DryRun {
		ctx.Printer.Detail("Dry run complete - no changes made")
		return 0
	}

	if !opts.SkipRebuild {
		if Rebuild(nil, ctx) != 0 {
			return 1
		}
	}

	if !opts.SkipCommit && len(flakeChanges) > 0 {
		commitFlakeLock(ctx, flakeChanges)
	}

	return 0
}

// runFlakePhase loads the old lock, streams the update, reloads, and diffs
// at input level. Dry runs skip the update entirely.
func runFlakePhase(opts *UpgradeOptions, ctx *appctx.Context) ([]lock.InputChange, bool) {
	oldInputs, err := lock.LoadFlakeLock(ctx.RepoRoot)
	if err != nil {
		oldInputs = map[string]lock.Input{}
	}

	newInputs := oldInputs
	if !opts.DryRun {
		if !streamNixUpdate(opts, ctx) {
			ctx.Printer.Error("Flake update failed")
			return nil, false
		}
		newInputs, err = lock.LoadFlakeLock(ctx.RepoRoot)
		if err != nil {
			newInputs = map[string]lock.Input{}
		}
	}

	diff := lock.DiffLocks(oldInputs, newInputs)
	if diff.Empty() {
		ctx.Printer.Success("All flake inputs up to date")
		return nil, true
	}

	if len(diff.Changed) > 0 {
		ctx.Printer.Blank()
		ctx.Printer.Detail("Flake Inputs Changed (%d)", len(diff.Changed))
		for _, change := range diff.Changed {
			ctx.Printer.Blank()
			ctx.Printer.Detail("%s", change.Name)
			ctx.Printer.Detail("  %s/%s %s → %s",
				change.Owner, change.Repo,
				lock.ShortRev(change.OldRev), lock.ShortRev(change.NewRev))

			if summary := fetchFlakeCompareSummary(&change); summary != nil {
				ctx.Printer.Detail("  summary: %s", summary.Format())
				if ai := maybeAISummary(opts.NoAI, func() string {
					return summarizeFlakeChangeAI(&change, summary)
				}); ai != "" {
					ctx.Printer.Detail("  ai summary: %s", ai)
				}
			} else {
				ctx.Printer.Warn("Failed to fetch comparison from GitHub")
			}
		}
	}
	if len(diff.Added) > 0 {
		ctx.Printer.Detail("Added: %s", strings.Join(diff.Added, ", "))
	}
	if len(diff.Removed) > 0 {
		ctx.Printer.Detail("Removed: %s", strings.Join(diff.Removed, ", "))
	}

	return diff.Changed, true
}

// streamNixUpdate runs `nix flake update` with GitHub token injection and
// corruption-aware retry: the cache-corruption signature deletes
// ~/.cache/nix/fetcher-cache-v4.sqlite and retries exactly once; fd
// exhaustion clears the tarball pack cache and retries.
func streamNixUpdate(opts *UpgradeOptions, ctx *appctx.Context) bool {
	args := append([]string{"flake", "update"}, opts.Passthrough...)
	if token := ghAuthToken(); token != "" {
		args = append(args, "--option", "access-tokens", "github.com="+token)
	}

	retriedCacheCorruption := false
	for attempt := 0; attempt < 3; attempt++ {
		if attempt == 0 {
			ctx.Printer.Action("Updating flake inputs")
		} else {
			ctx.Printer.Action("Retrying flake update")
		}

		code, output, err := cmdutil.RunStreamingCollecting("nix", args, ctx.RepoRoot, func(line string) {
			ctx.Printer.StreamLine(line, streamIndent, 80)
		})
		if err != nil {
			ctx.Printer.Error("%v", err)
			return false
		}
		if code == 0 {
			return true
		}
		if attempt >= 2 {
			return false
		}

		if isFDExhaustion(output) {
			ctx.Printer.Warn("Nix hit file descriptor limits, clearing cache and retrying")
			clearTarballPackCache()
			clearFetcherCache()
			continue
		}
		if !retriedCacheCorruption && isCacheCorruption(output) {
			retriedCacheCorruption = true
			clearFetcherCache()
			ctx.Printer.Warn("Nix cache corruption detected, clearing cache and retrying")
			continue
		}
		return false
	}
	return false
}

func isCacheCorruption(output string) bool {
	for _, indicator := range cacheCorruptionIndicators {
		if strings.Contains(output, indicator) {
			return true
		}
	}
	return false
}

// ghAuthToken fetches a GitHub token from the gh CLI; empty when gh is
// missing or unauthenticated.
func ghAuthToken() string {
	out, err := cmdutil.RunCaptured("gh", []string{"auth", "token"}, "")
	if err != nil || out.Code != 0 {
		return ""
	}
	return strings.TrimSpace(out.Stdout)
}

func clearFetcherCache() {
	cachePath := filepath.Join(homeDir(), ".cache/nix/fetcher-cache-v4.sqlite")
	_ = os.Remove(cachePath)
}

// clearTarballPackCache recreates the empty pack directory so nix can
// write fresh packfiles.
func clearTarballPackCache() {
	packDir := filepath.Join(homeDir(), ".cache/nix/tarball-cache-v2/objects/pack")
	if info, err := os.Stat(packDir); err == nil && info.IsDir() {
		_ = os.RemoveAll(packDir)
		_ = os.MkdirAll(packDir, 0o755)
	}
}

// commitFlakeLock commits flake.lock with a message naming the changed
// inputs (capped at 5).
func commitFlakeLock(ctx *appctx.Context, flakeChanges []lock.InputChange) {
	message := buildUpgradeCommitMessage(flakeChanges)
	_, _ = cmdutil.RunCaptured("git", []string{"-C", ctx.RepoRoot, "add", "flake.lock"}, "")
	out, err := cmdutil.RunCaptured("git", []string{"-C", ctx.RepoRoot, "commit", "-m", message}, "")
	switch {
	case err == nil && out.Code == 0:
		ctx.Printer.Success("Committed: %s %s", commitShortSHA(ctx.RepoRoot), message)
	case err == nil && (strings.Contains(strings.ToLower(out.Stdout), "nothing to commit") ||
		strings.Contains(strings.ToLower(out.Stderr), "nothing to commit")):
		ctx.Printer.Detail("No changes to commit")
	default:
		ctx.Printer.Error("Commit failed")
	}
}

func commitShortSHA(repoRoot string) string {
	out, err := cmdutil.RunCaptured("git", []string{"-C", repoRoot, "rev-parse", "--short", "HEAD"}, "")
	if err != nil || out.Code != 0 {
		return ""
	}
	return strings.TrimSpace(out.Stdout)
}

func buildUpgradeCommitMessage(flakeChanges []lock.InputChange) string {
	if len(flakeChanges) == 0 {
		return "Update flake inputs"
	}
	var names []string
	for i, change := range flakeChanges {
		if i == 5 {
			break
		}
		names = append(names, change.Name)
	}
	if len(flakeChanges) > 5 {
		names = append(names, fmt.Sprintf("+%d more", len(flakeChanges)-5))
	}
	return "Update flake (" + strings.Join(names, ", ") + ")"
}
