package nxcli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func statusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show package distribution summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext(flags)
			if err != nil {
				return err
			}

			buckets, err := ctx.Index.Buckets()
			if err != nil {
				ctx.Printer.Error("package scan failed: %v", err)
				return nil // status always exits 0
			}

			fmt.Printf("\n  Package Status (%d packages installed)\n\n", buckets.Total())

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Source", "Count", "Examples")
			for _, row := range []struct {
				label    string
				packages []string
			}{
				{"nxs", buckets.Nxs},
				{"homebrew", buckets.Brews},
				{"casks", buckets.Casks},
				{"Mac App Store", buckets.Mas},
				{"services", buckets.Services},
			} {
				if len(row.packages) == 0 {
					continue
				}
				_ = table.Append(row.label, strconv.Itoa(len(row.packages)), renderExamples(row.packages))
			}
			_ = table.Render()
			return nil
		},
	}
}

// renderExamples shows up to four package names, sorted, with an ellipsis
// when more exist.
func renderExamples(packages []string) string {
	sorted := append([]string(nil), packages...)
	sort.Strings(sorted)

	limit := 4
	if len(sorted) < limit {
		limit = len(sorted)
	}
	examples := strings.Join(sorted[:limit], ", ")
	if len(packages) > 4 {
		examples += ", ..."
	}
	return examples
}
