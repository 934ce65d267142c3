package nxcli

import (
	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/finder"
	"github.com/b2nix/nx/internal/nxcli/usererr"
)

func whereCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "where <package>",
		Short: "Show where a package is declared",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usererr.NewArgError("No package specified")
			}
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}

			// Always exits 0, including not-found.
			pkg := args[0]
			loc, found, err := finder.FindPackage(pkg, ctx.RepoRoot)
			if err != nil {
				ctx.Printer.Error("where lookup failed: %v", err)
				return nil
			}
			if !found {
				ctx.Printer.Error("%s not found", pkg)
				ctx.Printer.Blank()
				ctx.Printer.Detail("Try: nx info %s", pkg)
				return nil
			}

			ctx.Printer.Success("%s at %s", pkg, relativeLocation(loc, ctx.RepoRoot))
			if loc.Line > 0 {
				showSnippet(loc.Path, loc.Line, 2, snippetAdd, false)
			}
			return nil
		},
	}
}
