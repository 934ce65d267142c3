package sysops

import (
	"strings"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/ux"
)

// Undo reverts unstaged modifications to tracked files via git checkout,
// after a confirmation that defaults to no. Always exits 0.
func Undo(ctx *appctx.Context) int {
	modified, err := gitModifiedFiles(ctx.RepoRoot)
	if err != nil {
		ctx.Printer.Error("git status failed: %v", err)
		return 0
	}

	if len(modified) == 0 {
		ctx.Printer.Blank()
		ctx.Printer.Detail("Nothing to undo.")
		return 0
	}

	ctx.Printer.Blank()
	ctx.Printer.Detail("Undo Changes (%d files)", len(modified))
	for _, file := range modified {
		ctx.Printer.Detail("%s", file)
		if summary := gitDiffStat(file, ctx.RepoRoot); summary != "" {
			ctx.Printer.Detail("  %s", summary)
		}
	}

	ctx.Printer.Blank()
	if !ux.Confirm("Revert all changes?", false) {
		ctx.Printer.Detail("Cancelled.")
		return 0
	}

	for _, file := range modified {
		_, _ = cmdutil.RunCaptured("git", []string{"checkout", "--", file}, ctx.RepoRoot)
	}
	ctx.Printer.Success("Reverted %d files", len(modified))
	return 0
}

// gitModifiedFiles parses `git status --porcelain` for unstaged
// modifications (the " M" prefix); staged-only and untracked entries are
// left alone.
func gitModifiedFiles(repoRoot string) ([]string, error) {
	out, err := cmdutil.RunCaptured("git", []string{"status", "--porcelain"}, repoRoot)
	if err != nil {
		return nil, err
	}

	var modified []string
	for _, line := range strings.Split(out.Stdout, "\n") {
		if strings.HasPrefix(line, " M") && len(line) > 3 {
			modified = append(modified, line[3:])
		}
	}
	return modified, nil
}

func gitDiffStat(file, repoRoot string) string {
	out, err := cmdutil.RunCaptured("git", []string{"diff", "--stat", file}, repoRoot)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(out.Stdout, "\n") {
		if strings.Contains(line, "insertion") || strings.Contains(line, "deletion") || strings.Contains(line, "changed") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
