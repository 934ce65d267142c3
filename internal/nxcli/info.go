package nxcli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/finder"
	"github.com/b2nix/nx/internal/nxcli/usererr"
	"github.com/b2nix/nx/internal/queryinfo"
	"github.com/b2nix/nx/internal/search"
	"github.com/b2nix/nx/internal/sources"
)

type infoFlags struct {
	json         bool
	bleedingEdge bool
	verbose      bool
}

type infoJSONOutput struct {
	Name          string                    `json:"name"`
	Installed     bool                      `json:"installed"`
	Location      *string                   `json:"location"`
	Sources       []sources.Result          `json:"sources"`
	HMModule      *queryinfo.ConfigOption   `json:"hm_module,omitempty"`
	DarwinService *queryinfo.ConfigOption   `json:"darwin_service,omitempty"`
	FlakeHub      []queryinfo.FlakeHubInfo  `json:"flakehub,omitempty"`
}

func infoCmd(flags *rootFlags) *cobra.Command {
	local := &infoFlags{}
	command := &cobra.Command{
		Use:   "info <package>",
		Short: "Show package metadata and source candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usererr.NewArgError("No package specified")
			}
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}

			// info always exits 0, including not-found.
			pkg := args[0]
			loc, found, err := finder.FindPackage(pkg, ctx.RepoRoot)
			if err != nil {
				ctx.Printer.Error("info lookup failed: %v", err)
				return nil
			}

			prefs := &sources.Preferences{BleedingEdge: local.bleedingEdge}

			if ctx.WantsJSON(local.json) {
				out := infoJSONOutput{
					Name:      pkg,
					Installed: found,
					Sources:   []sources.Result{},
				}
				if found {
					rel := relativeLocation(loc, ctx.RepoRoot)
					out.Location = &rel
				} else {
					// Quiet search: warnings would pollute the JSON stream.
					results, err := search.Resolve(pkg, prefs, ctx, nil)
					if err == nil {
						out.Sources = results
					}
				}
				out.HMModule = queryinfo.HMModuleInfo(pkg, ctx.RepoRoot)
				out.DarwinService = queryinfo.DarwinServiceInfo(pkg, ctx.RepoRoot)
				if local.bleedingEdge {
					out.FlakeHub = queryinfo.SearchFlakeHub(pkg)
				}
				text, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					ctx.Printer.Error("info json rendering failed: %v", err)
					return nil
				}
				fmt.Println(string(text))
				return nil
			}

			status := "not installed"
			if found {
				status = "installed"
			}
			fmt.Printf("\n  %s (%s)\n", pkg, status)

			if found {
				fmt.Printf("  Location: %s\n", relativeLocation(loc, ctx.RepoRoot))
				if loc.Line > 0 {
					showSnippet(loc.Path, loc.Line, 1, snippetAdd, false)
				}
			} else {
				ctx.Printer.Error("%s not found", pkg)
				ctx.Printer.Blank()
				ctx.Printer.Detail("Try: nx %s", pkg)
			}

			if module := queryinfo.HMModuleInfo(pkg, ctx.RepoRoot); module != nil {
				fmt.Printf("\n  home-manager module: %s (enabled: %t)\n", module.Path, module.Enabled)
				fmt.Printf("    %s\n", module.Example)
			}
			if service := queryinfo.DarwinServiceInfo(pkg, ctx.RepoRoot); service != nil {
				fmt.Printf("\n  nix-darwin service: %s (enabled: %t)\n", service.Path, service.Enabled)
				fmt.Printf("    %s\n", service.Example)
			}
			if local.bleedingEdge {
				for _, flake := range queryinfo.SearchFlakeHub(pkg) {
					fmt.Printf("  flakehub: %s %s\n", flake.Name, flake.Description)
				}
			}
			return nil
		},
	}
	command.Flags().BoolVar(&local.json, "json", false, "JSON output")
	command.Flags().BoolVar(&local.bleedingEdge, "bleeding-edge", false, "include FlakeHub lookup")
	command.Flags().BoolVar(&local.verbose, "verbose", false, "verbose output")
	return command
}
