package nxcli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/finder"
	"github.com/b2nix/nx/internal/nxcli/usererr"
)

type installedFlags struct {
	json         bool
	showLocation bool
}

// installedEntry is the per-query JSON payload; queries are top-level
// keys, never nested.
type installedEntry struct {
	Match    *string `json:"match"`
	Location *string `json:"location"`
}

func installedCmd(flags *rootFlags) *cobra.Command {
	local := &installedFlags{}
	command := &cobra.Command{
		Use:   "installed <package>...",
		Short: "Check whether package(s) are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usererr.NewArgError("No package specified")
			}
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}

			type result struct {
				query   string
				matched *finder.Match
			}
			var results []result
			for _, query := range args {
				matched, err := finder.FindPackageFuzzy(query, ctx.RepoRoot)
				if err != nil {
					ctx.Printer.Error("installed lookup failed: %v", err)
					return exitWith(1)
				}
				results = append(results, result{query: query, matched: matched})
			}

			allInstalled := true
			if ctx.WantsJSON(local.json) {
				payload := map[string]installedEntry{}
				for _, r := range results {
					entry := installedEntry{}
					if r.matched != nil {
						name := r.matched.Name
						loc := relativeLocation(r.matched.Location, ctx.RepoRoot)
						entry.Match = &name
						entry.Location = &loc
					} else {
						allInstalled = false
					}
					payload[r.query] = entry
				}
				text, err := json.Marshal(payload)
				if err != nil {
					ctx.Printer.Error("installed json rendering failed: %v", err)
					return exitWith(1)
				}
				fmt.Println(string(text))
				if allInstalled {
					return nil
				}
				return exitWith(2)
			}

			if len(results) == 1 {
				r := results[0]
				if r.matched == nil {
					return exitWith(2)
				}
				if local.showLocation {
					rel := relativeLocation(r.matched.Location, ctx.RepoRoot)
					if r.matched.Name != r.query {
						ctx.Printer.Success("%s → %s (%s)", r.query, r.matched.Name, rel)
					} else {
						ctx.Printer.Success("%s (%s)", r.matched.Name, rel)
					}
				}
				return nil
			}

			installedCount := 0
			for _, r := range results {
				if r.matched != nil {
					installedCount++
				}
			}
			ctx.Printer.Blank()
			ctx.Printer.Detail("Package Check (%d/%d installed)", installedCount, len(results))
			for _, r := range results {
				if r.matched == nil {
					ctx.Printer.Warn("%s is not installed", r.query)
					allInstalled = false
					continue
				}
				if r.matched.Name != r.query {
					ctx.Printer.Success("%s → %s", r.query, r.matched.Name)
				} else {
					ctx.Printer.Success("%s", r.query)
				}
				ctx.Printer.Detail("  %s", relativeLocation(r.matched.Location, ctx.RepoRoot))
			}
			if allInstalled {
				return nil
			}
			return exitWith(2)
		},
	}
	command.Flags().BoolVar(&local.json, "json", false, "JSON output")
	command.Flags().BoolVar(&local.showLocation, "show-location", false, "print the declaring manifest")
	return command
}
