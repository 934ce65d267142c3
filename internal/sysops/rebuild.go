package sysops

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/cmdutil"
)

// darwinRebuild must be invoked by absolute path, passed directly to sudo
// argv (never wrapped in a login shell) so a sudoers NOPASSWD rule scoped
// to that path matches.
const darwinRebuild = "/run/current-system/sw/bin/darwin-rebuild"

// Rebuild runs the full preflight sequence then darwin-rebuild switch.
func Rebuild(passthrough []string, ctx *appctx.Context) int {
	if code := checkGitPreflight(ctx); code != 0 {
		return code
	}
	if code := checkFlake(ctx); code != 0 {
		return code
	}
	return doRebuild(passthrough, ctx)
}

// checkGitPreflight rejects untracked .nix files under the manifest roots:
// flake evaluation silently ignores them, which makes rebuilds lie.
func checkGitPreflight(ctx *appctx.Context) int {
	ctx.Printer.Action("Checking tracked nix files")
	args := []string{
		"-C", ctx.RepoRoot,
		"ls-files", "--others", "--exclude-standard", "--",
		"home", "packages", "system", "hosts",
	}
	out, err := cmdutil.RunCaptured("git", args, "")
	if err != nil {
		ctx.Printer.Error("Git preflight failed: %v", err)
		return 1
	}
	if out.Code != 0 {
		ctx.Printer.Error("Git preflight failed")
		if detail := out.FirstNonEmptyOutput(); detail != "" {
			ctx.Printer.Detail("%s", detail)
		}
		return 1
	}

	var untracked []string
	for _, line := range strings.Split(out.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if filepath.Ext(line) == ".nix" {
			untracked = append(untracked, line)
		}
	}
	sort.Strings(untracked)

	if len(untracked) == 0 {
		ctx.Printer.Success("Git preflight passed")
		return 0
	}

	ctx.Printer.Error("Untracked .nix files would be ignored by flake evaluation")
	ctx.Printer.Blank()
	ctx.Printer.Detail("Track these files before rebuild:")
	for _, relPath := range untracked {
		ctx.Printer.Detail("- %s", relPath)
	}
	ctx.Printer.Blank()
	ctx.Printer.Detail("Run: git -C %q add <files>", ctx.RepoRoot)
	return 1
}

func checkFlake(ctx *appctx.Context) int {
	ctx.Printer.Action("Checking flake")
	out, err := cmdutil.RunCaptured("nix", []string{"flake", "check", ctx.RepoRoot}, "")
	if err != nil {
		ctx.Printer.Error("Flake check failed: %v", err)
		return 1
	}
	if out.Code != 0 {
		ctx.Printer.Error("Flake check failed")
		if detail := out.FirstNonEmptyOutput(); detail != "" {
			ctx.Printer.Detail("%s", detail)
		}
		return 1
	}
	ctx.Printer.Success("Flake check passed")
	return 0
}

func doRebuild(passthrough []string, ctx *appctx.Context) int {
	for attempt := 0; attempt < 3; attempt++ {
		if attempt == 0 {
			ctx.Printer.Action("Rebuilding system")
		} else {
			ctx.Printer.Action("Retrying rebuild")
		}
		ctx.Printer.Blank()

		args := append([]string{darwinRebuild, "switch", "--flake", ctx.RepoRoot}, passthrough...)
		code, output, err := cmdutil.RunStreamingCollecting("sudo", args, "", func(line string) {
			ctx.Printer.StreamLine(line, streamIndent, 80)
		})
		if err != nil {
			ctx.Printer.Error("Rebuild failed")
			ctx.Printer.Error("%v", err)
			return 1
		}
		if code == 0 {
			ctx.Printer.Blank()
			ctx.Printer.Success("System rebuilt")
			return 0
		}
		if attempt >= 2 || !isFDExhaustion(output) {
			break
		}
		ctx.Printer.Warn("Nix hit file descriptor limits, clearing cache and retrying")
		clearRootTarballPackCache()
	}

	ctx.Printer.Error("Rebuild failed")
	return 1
}

func isFDExhaustion(output string) bool {
	return strings.Contains(output, "Too many open files") ||
		strings.Contains(output, "too many open files")
}

// clearRootTarballPackCache drops root's stale nix packfiles, which hold
// open file descriptors across rebuild attempts.
func clearRootTarballPackCache() {
	packDir := "/var/root/.cache/nix/tarball-cache-v2/objects/pack"
	_, _ = cmdutil.RunCaptured("sudo", []string{"rm", "-rf", packDir}, "")
	_, _ = cmdutil.RunCaptured("sudo", []string{"mkdir", "-p", packDir}, "")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/"
	}
	return home
}
