package nxcli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/selfrefresh"
	"github.com/b2nix/nx/internal/sysops"
)

// refreshLocalBinary rebuilds a stale locally-installed nx before heavy
// system commands; NX_RS_AUTO_REFRESH (read at context build) opts out.
func refreshLocalBinary(ctx *appctx.Context) (int, bool) {
	return selfrefresh.MaybeRefresh(ctx.AutoRefresh, filepath.Join(ctx.RepoRoot, "scripts", "nx"), ctx.Printer)
}

func undoCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert modified tracked files via git checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}
			return exitWith(sysops.Undo(ctx))
		},
	}
}

func updateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "update [-- passthrough...]",
		Short: "Run nix flake update",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}
			return exitWith(sysops.Update(args, ctx))
		},
	}
}

func testCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run repo quality checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}
			return exitWith(sysops.Test(ctx))
		},
	}
}

func rebuildCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild [-- passthrough...]",
		Short: "Run darwin-rebuild switch with preflight checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}
			if code, stop := refreshLocalBinary(ctx); stop {
				return exitWith(code)
			}
			return exitWith(sysops.Rebuild(args, ctx))
		},
	}
}

func upgradeCmd(flags *rootFlags) *cobra.Command {
	opts := &sysops.UpgradeOptions{}
	command := &cobra.Command{
		Use:   "upgrade [-- passthrough...]",
		Short: "Run full upgrade flow (flake, brew, rebuild, commit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}
			if code, stop := refreshLocalBinary(ctx); stop {
				return exitWith(code)
			}
			opts.Passthrough = args
			return exitWith(sysops.Upgrade(opts, ctx))
		},
	}
	fs := command.Flags()
	fs.BoolVarP(&opts.DryRun, "dry-run", "n", false, "show what would change without running")
	fs.BoolVar(&opts.NoAI, "no-ai", false, "skip assistant-backed change summaries")
	fs.BoolVar(&opts.SkipBrew, "skip-brew", false, "skip the Homebrew phase")
	fs.BoolVar(&opts.SkipRebuild, "skip-rebuild", false, "skip the rebuild phase")
	fs.BoolVar(&opts.SkipCommit, "skip-commit", false, "skip committing flake.lock")
	return command
}
