package nxcli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/edit"
	"github.com/b2nix/nx/internal/finder"
	"github.com/b2nix/nx/internal/nxcli/usererr"
	"github.com/b2nix/nx/internal/plan"
	"github.com/b2nix/nx/internal/sources"
	"github.com/b2nix/nx/internal/ux"
)

type removeFlags struct {
	yes    bool
	dryRun bool
	model  string
}

func removeCmd(flags *rootFlags) *cobra.Command {
	local := &removeFlags{}
	command := &cobra.Command{
		Use:     "remove <package>...",
		Aliases: []string{"rm", "uninstall"},
		Short:   "Remove package(s) from nix config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usererr.NewArgError("No packages specified")
			}
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}

			if local.dryRun {
				ctx.Printer.DryRunBanner()
			}

			// remove always exits 0, including per-item misses.
			for _, pkg := range args {
				removeOne(pkg, local, ctx)
			}
			return nil
		},
	}
	command.Flags().BoolVarP(&local.yes, "yes", "y", false, "skip confirmation prompts")
	command.Flags().BoolVarP(&local.dryRun, "dry-run", "n", false, "show what would change without editing")
	command.Flags().StringVar(&local.model, "model", "", "model for assistant-backed engines")
	return command
}

func removeOne(pkg string, local *removeFlags, ctx *appctx.Context) {
	loc, found, err := finder.FindPackage(pkg, ctx.RepoRoot)
	if err != nil {
		ctx.Printer.Error("remove lookup failed: %v", err)
		return
	}
	if !found {
		ctx.Printer.Error("%s not found", pkg)
		return
	}

	ctx.Printer.Action("Removing %s", pkg)
	ctx.Printer.Detail("Location: %s", relativeLocation(loc, ctx.RepoRoot))
	if loc.Line > 0 {
		showSnippet(loc.Path, loc.Line, 1, snippetRemove, true)
	}

	if local.dryRun {
		ctx.Printer.Blank()
		ctx.Printer.Detail("Would remove %s", pkg)
		return
	}

	// Destructive: default answer is no.
	if !local.yes && !ux.Confirm(fmt.Sprintf("Remove %s?", pkg), false) {
		ctx.Printer.Detail("Cancelled.")
		return
	}

	removePlan, err := removalPlan(pkg, loc.Path, ctx)
	if err != nil {
		ctx.Printer.Error("%v", err)
		return
	}

	outcome, err := edit.Remove(removePlan)
	if err != nil {
		ctx.Printer.Error("edit failed: %v", err)
		return
	}
	if !outcome.FileChanged {
		ctx.Printer.Detail("%s was not declared in an editable list", pkg)
		return
	}
	ctx.Printer.Success("Removed %s", pkg)
	ctx.Printer.Detail("Run: nx rebuild")
}

// removalPlan reconstructs the insertion mode from which bucket declares
// the package, then points the plan at the manifest that actually holds
// the declaration rather than the routing default.
func removalPlan(pkg, targetFile string, ctx *appctx.Context) (*plan.InstallPlan, error) {
	buckets, err := ctx.Index.Buckets()
	if err != nil {
		return nil, err
	}

	result := sources.Result{Name: pkg, Attr: pkg, Source: sources.Nxs, Confidence: 1.0}
	switch {
	case lo.Contains(buckets.Brews, pkg):
		result.Source = sources.Homebrew
	case lo.Contains(buckets.Casks, pkg):
		result.Source = sources.Cask
	case lo.Contains(buckets.Mas, pkg):
		result.Source = sources.Mas
	}

	p, err := plan.Build(result, ctx.Config, plan.DeterministicRouter{})
	if err != nil {
		return nil, err
	}
	p.TargetFile = targetFile
	return p, nil
}
