package nxcli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/nxcli/usererr"
	"github.com/b2nix/nx/internal/search"
	"github.com/b2nix/nx/internal/sources"
	"github.com/b2nix/nx/internal/ux"
)

type searchFlags struct {
	bleedingEdge bool
	nur          bool
	json         bool
}

func searchCmd(flags *rootFlags) *cobra.Command {
	local := &searchFlags{}
	command := &cobra.Command{
		Use:   "search <package>",
		Short: "Search package sources without installing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usererr.NewArgError("No package specified")
			}
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}

			pkg := args[0]
			prefs := &sources.Preferences{
				BleedingEdge: local.bleedingEdge,
				NUR:          local.nur,
			}

			stop := ux.SearchSpinner(ctx.Style(), fmt.Sprintf("searching sources for %s", pkg))
			results, err := search.Resolve(pkg, prefs, ctx, warnFunc(ctx))
			stop()
			if err != nil {
				ctx.Printer.Error("search failed: %v", err)
				return exitWith(1)
			}

			if ctx.WantsJSON(local.json) {
				if results == nil {
					results = []sources.Result{}
				}
				text, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return exitWith(1)
				}
				fmt.Println(string(text))
				return nil
			}

			if len(results) == 0 {
				ctx.Printer.Error("%s not found in any source", pkg)
				return nil
			}

			ctx.Printer.Blank()
			for _, result := range results {
				if result.Source == sources.Installed {
					ctx.Printer.Success("%s already installed at %s", pkg, result.Location)
					continue
				}
				line := fmt.Sprintf("[%s] %s", result.Source, result.Attr)
				if result.Version != "" {
					line += " " + result.Version
				}
				if result.Description != "" {
					line += "  " + result.Description
				}
				ctx.Printer.Detail("%s", line)
			}
			return nil
		},
	}
	command.Flags().BoolVar(&local.bleedingEdge, "bleeding-edge", false, "prefer NUR and unstable sources")
	command.Flags().BoolVar(&local.nur, "nur", false, "include the NUR community repository")
	command.Flags().BoolVar(&local.json, "json", false, "JSON output")
	return command
}
