package nxcli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/finder"
)

const validSourcesText = "  Valid sources: brew, brews, cask, casks, homebrew, mas, nix, nxs, service,\n  services"

type listFlags struct {
	json    bool
	plain   bool
	verbose bool
}

func listCmd(flags *rootFlags) *cobra.Command {
	local := &listFlags{}
	command := &cobra.Command{
		Use:   "list [source]",
		Short: "List installed packages by source",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}

			buckets, err := ctx.Index.Buckets()
			if err != nil {
				ctx.Printer.Error("package scan failed: %v", err)
				return exitWith(1)
			}

			var filter string
			if len(args) > 0 {
				normalized, ok := normalizeSourceFilter(args[0])
				if !ok {
					ctx.Printer.Error("Unknown source: %s", args[0])
					fmt.Println(validSourcesText)
					return exitWith(1)
				}
				filter = normalized
			}

			if ctx.WantsJSON(local.json) {
				return renderListJSON(buckets, filter)
			}
			printList(buckets, filter)
			return nil
		},
	}
	command.Flags().BoolVar(&local.json, "json", false, "JSON output")
	command.Flags().BoolVar(&local.plain, "plain", false, "plain output")
	command.Flags().BoolVar(&local.verbose, "verbose", false, "include counts per source")
	return command
}

func normalizeSourceFilter(value string) (string, bool) {
	switch strings.ToLower(value) {
	case "nix", "nxs":
		return "nxs", true
	case "brew", "brews", "homebrew":
		return "brews", true
	case "cask", "casks":
		return "casks", true
	case "mas":
		return "mas", true
	case "service", "services":
		return "services", true
	}
	return "", false
}

func sourceValues(source string, buckets *finder.Buckets) []string {
	switch source {
	case "nxs":
		return buckets.Nxs
	case "brews":
		return buckets.Brews
	case "casks":
		return buckets.Casks
	case "mas":
		return buckets.Mas
	case "services":
		return buckets.Services
	}
	return nil
}

func renderListJSON(buckets *finder.Buckets, filter string) error {
	var payload any
	if filter != "" {
		values := sourceValues(filter, buckets)
		if values == nil {
			values = []string{}
		}
		payload = map[string][]string{filter: values}
	} else {
		payload = buckets
	}
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return exitWith(1)
	}
	fmt.Println(string(text))
	return nil
}

func printList(buckets *finder.Buckets, filter string) {
	groups := [][]string{buckets.Nxs, buckets.Brews, buckets.Casks, buckets.Mas, buckets.Services}
	if filter != "" {
		groups = [][]string{sourceValues(filter, buckets)}
	}
	for _, group := range groups {
		packages := append([]string(nil), group...)
		sort.Strings(packages)
		for _, pkg := range packages {
			fmt.Printf("  %s\n", pkg)
		}
	}
}
