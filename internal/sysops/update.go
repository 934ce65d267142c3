// Package sysops orchestrates the system-level commands: flake update,
// darwin-rebuild with preflight checks, and the phased upgrade flow.
package sysops

import (
	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/cmdutil"
)

const streamIndent = "  "

// Update streams `nix flake update` under the repo root with passthrough
// args. Returns the subprocess exit code mapped to 0/1.
func Update(passthrough []string, ctx *appctx.Context) int {
	ctx.Printer.Action("Updating flake inputs")

	args := append([]string{"flake", "update"}, passthrough...)
	code, err := cmdutil.RunStreaming("nix", args, ctx.RepoRoot, func(line string) {
		ctx.Printer.StreamLine(line, streamIndent, 80)
	})
	if err != nil {
		ctx.Printer.Error("%v", err)
		return 1
	}

	if code == 0 {
		ctx.Printer.Blank()
		ctx.Printer.Success("Flake inputs updated")
		ctx.Printer.Detail("Run 'nx rebuild' to rebuild, or 'nx upgrade' for full upgrade")
		return 0
	}

	ctx.Printer.Error("Flake update failed")
	return 1
}
