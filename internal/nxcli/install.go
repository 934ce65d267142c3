package nxcli

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/edit"
	"github.com/b2nix/nx/internal/fileutil"
	"github.com/b2nix/nx/internal/lock"
	"github.com/b2nix/nx/internal/nxcli/usererr"
	"github.com/b2nix/nx/internal/plan"
	"github.com/b2nix/nx/internal/search"
	"github.com/b2nix/nx/internal/sources"
	"github.com/b2nix/nx/internal/sysops"
	"github.com/b2nix/nx/internal/ux"
)

type installFlags struct {
	yes          bool
	dryRun       bool
	rebuild      bool
	cask         bool
	mas          bool
	service      bool
	bleedingEdge bool
	nur          bool
	source       string
	explain      bool
	engine       string
	model        string
}

func installCmd(flags *rootFlags) *cobra.Command {
	local := &installFlags{}
	command := &cobra.Command{
		Use:   "install <package>...",
		Short: "Install package(s) into nix config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usererr.NewArgError("No packages specified")
			}
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}
			return runInstall(args, local, ctx)
		},
	}

	fs := command.Flags()
	fs.BoolVarP(&local.yes, "yes", "y", false, "skip confirmation prompts")
	fs.BoolVarP(&local.dryRun, "dry-run", "n", false, "show what would change without editing")
	fs.BoolVar(&local.rebuild, "rebuild", false, "rebuild the system after installing")
	fs.BoolVar(&local.cask, "cask", false, "install as a Homebrew cask")
	fs.BoolVar(&local.mas, "mas", false, "install from the Mac App Store")
	fs.BoolVar(&local.service, "service", false, "treat as a service package")
	fs.BoolVar(&local.bleedingEdge, "bleeding-edge", false, "prefer NUR and unstable sources")
	fs.BoolVar(&local.nur, "nur", false, "include the NUR community repository")
	fs.StringVar(&local.source, "source", "", "force a specific source")
	fs.BoolVar(&local.explain, "explain", false, "explain routing decisions")
	fs.StringVar(&local.engine, "engine", "", "edit engine (direct, claude, codex)")
	fs.StringVar(&local.model, "model", "", "model for assistant-backed engines")
	return command
}

// runInstall processes packages strictly sequentially: one package's full
// resolve → plan → edit pipeline completes before the next begins, which
// keeps file-edit order and prompt order deterministic.
func runInstall(packages []string, local *installFlags, ctx *appctx.Context) error {
	engine, err := edit.SelectEngine(local.engine, local.model)
	if err != nil {
		return usererr.WithUserMessage(err, "invalid --engine")
	}

	if local.dryRun {
		ctx.Printer.DryRunBanner()
	}

	prefs := &sources.Preferences{
		BleedingEdge: local.bleedingEdge,
		NUR:          local.nur,
		ForceSource:  local.source,
		IsCask:       local.cask,
		IsMas:        local.mas,
	}

	var router plan.Router
	if local.engine == "claude" || local.engine == "codex" {
		router = edit.NewAIRouter(local.engine, local.model)
	}

	anyFailed := false
	anyInstalled := false
	for _, pkg := range packages {
		switch installOne(pkg, prefs, local, engine, router, ctx) {
		case installOK:
			anyInstalled = true
		case installSkipped:
		case installFailed:
			anyFailed = true
		}
	}

	if anyFailed {
		return exitWith(1)
	}
	if anyInstalled && !local.dryRun && local.rebuild {
		if sysops.Rebuild(nil, ctx) != 0 {
			return exitWith(1)
		}
	}
	return nil
}

type installOutcome int

const (
	installOK installOutcome = iota
	installSkipped
	installFailed
)

func installOne(pkg string, prefs *sources.Preferences, local *installFlags, engine edit.Engine, router plan.Router, ctx *appctx.Context) installOutcome {
	ctx.Printer.Action("Installing %s", pkg)

	warn := warnFunc(ctx)
	stop := ux.SearchSpinner(ctx.Style(), fmt.Sprintf("searching sources for %s", pkg))
	results, err := search.Resolve(pkg, prefs, ctx, warn)
	stop()
	if err != nil {
		ctx.Printer.Error("install lookup failed: %v", err)
		return installFailed
	}

	if len(results) == 0 {
		ctx.Printer.Error("%s not found", pkg)
		return installFailed
	}

	// Already installed: report the location, touch nothing.
	if results[0].Source == sources.Installed {
		loc := fileutil.ParseLocation(results[0].Location)
		ctx.Printer.Success("%s already installed at %s", pkg, relativeLocation(loc, ctx.RepoRoot))
		return installSkipped
	}

	chosen, ok := chooseResult(results, local, ctx)
	if !ok {
		ctx.Printer.Detail("Cancelled.")
		return installSkipped
	}

	// Platform fallback within the same source before planning.
	chosen, err = plan.SelectAvailable(chosen, results, sources.CheckNixAvailable)
	if err != nil {
		if errors.Is(err, plan.ErrPlatformUnavailable) {
			ctx.Printer.Warn("skipping %s: %v", pkg, err)
			return installFailed
		}
		ctx.Printer.Error("%v", err)
		return installFailed
	}

	installPlan, err := plan.Build(chosen, ctx.Config, router)
	if err != nil {
		ctx.Printer.Error("%v", err)
		return installFailed
	}
	if installPlan.RoutingWarning != "" && (local.explain || ctx.Flags.Verbose) {
		ctx.Printer.Warn("%s", installPlan.RoutingWarning)
	}

	// Flake-input gate: the non-interactive engine refuses; the
	// interactive one prompts unless --yes; dry runs only report.
	if installPlan.RequiresFlakeInput() {
		if !gateFlakeInput(installPlan, local, engine, ctx) {
			return installFailed
		}
	}

	if local.dryRun {
		ctx.Printer.Detail("Would add %s to %s (%s)",
			installPlan.PackageToken,
			fileutil.RelativePath(installPlan.TargetFile, ctx.RepoRoot),
			installPlan.InsertionMode)
		return installSkipped
	}

	outcome, err := engine.Apply(installPlan)
	if err != nil {
		ctx.Printer.Error("edit failed: %v", err)
		return installFailed
	}
	if !outcome.FileChanged {
		ctx.Printer.Success("%s already present in %s",
			installPlan.PackageToken,
			fileutil.RelativePath(installPlan.TargetFile, ctx.RepoRoot))
		return installSkipped
	}

	loc := fileutil.Location{Path: installPlan.TargetFile, Line: outcome.LineNumber}
	ctx.Printer.Success("Added %s to %s", installPlan.PackageToken, relativeLocation(loc, ctx.RepoRoot))
	if outcome.LineNumber > 0 {
		showSnippet(installPlan.TargetFile, outcome.LineNumber, 1, snippetAdd, false)
	}
	if !local.rebuild {
		ctx.Printer.Detail("Run: nx rebuild")
	}
	return installOK
}

// chooseResult presents the numbered prompt when multiple alternatives
// exist. Empty input means option 1; --yes and --dry-run take option 1
// without prompting.
func chooseResult(results []sources.Result, local *installFlags, ctx *appctx.Context) (sources.Result, bool) {
	if len(results) == 1 || local.yes || local.dryRun {
		return results[0], true
	}

	ctx.Printer.Blank()
	for i, result := range results {
		desc := result.Description
		if result.Version != "" {
			desc = fmt.Sprintf("%s (%s)", desc, result.Version)
		}
		ctx.Printer.Detail("%d. [%s] %s  %s", i+1, result.Source, result.Attr, desc)
	}

	idx, err := ux.SelectOption(len(results))
	if err != nil {
		return sources.Result{}, false
	}
	return results[idx], true
}

// gateFlakeInput enforces the engine contract for plans that must add a
// flake input. Returns true when the install may proceed.
func gateFlakeInput(p *plan.InstallPlan, local *installFlags, engine edit.Engine, ctx *appctx.Context) bool {
	flakePath := filepath.Join(ctx.RepoRoot, "flake.nix")

	if local.dryRun {
		ctx.Printer.Detail("Would add flake input %s to flake.nix", p.SourceResult.FlakeURL)
		return true
	}

	if !engine.Interactive() {
		ctx.Printer.Error("installing %s requires adding a flake input; rerun with --engine claude", p.PackageToken)
		return false
	}

	if !local.yes {
		if !ux.Confirm(fmt.Sprintf("Add flake input %s?", p.SourceResult.FlakeURL), false) {
			ctx.Printer.Detail("Cancelled.")
			return false
		}
	}

	result, err := lock.AddFlakeInput(flakePath, p.SourceResult.FlakeURL, "")
	if err != nil {
		ctx.Printer.Error("adding flake input failed: %v", err)
		return false
	}
	if result.Added {
		ctx.Printer.Success("Added flake input %s", result.InputName)
	}
	return true
}

// warnFunc adapts the printer into the orchestrator's warning sink;
// --minimal suppresses at the printer level.
func warnFunc(ctx *appctx.Context) func(string) {
	if ctx.Printer.Minimal() {
		return nil
	}
	return func(message string) {
		ctx.Printer.Warn("%s", message)
	}
}
