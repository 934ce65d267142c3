// Package nxcli maps parsed commands onto the core operations and
// enforces the exit-code and confirmation contracts.
package nxcli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/debug"
	"github.com/b2nix/nx/internal/nxcli/usererr"
)

// knownCommands gates the bare-token install rewrite: any first token not
// in this set (and not a flag) is treated as a package name. Typo
// suggestions for near-miss commands are intentionally not offered.
var knownCommands = []string{
	"install", "remove", "rm", "uninstall",
	"secret", "secrets",
	"search", "where", "list", "info", "status", "installed",
	"undo", "update", "test", "rebuild", "upgrade",
	"help", "completion",
}

type rootFlags struct {
	appctx.GlobalFlags
}

// exitCodeErr carries an explicit exit code through cobra without a
// message of its own (the command already printed).
type exitCodeErr struct{ code int }

func (e *exitCodeErr) Error() string { return fmt.Sprintf("exit %d", e.code) }

func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return &exitCodeErr{code: code}
}

func RootCmd() *cobra.Command {
	flags := &rootFlags{}
	command := &cobra.Command{
		Use:   "nx",
		Short: "Multi-source package installer for nix-darwin",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.Verbose {
				debug.Enable()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	command.AddCommand(installCmd(flags))
	command.AddCommand(removeCmd(flags))
	command.AddCommand(searchCmd(flags))
	command.AddCommand(whereCmd(flags))
	command.AddCommand(listCmd(flags))
	command.AddCommand(infoCmd(flags))
	command.AddCommand(statusCmd(flags))
	command.AddCommand(installedCmd(flags))
	command.AddCommand(undoCmd(flags))
	command.AddCommand(updateCmd(flags))
	command.AddCommand(testCmd(flags))
	command.AddCommand(rebuildCmd(flags))
	command.AddCommand(upgradeCmd(flags))
	command.AddCommand(secretCmd(flags))

	pflags := command.PersistentFlags()
	pflags.BoolVar(&flags.Plain, "plain", false, "use plain output formatting")
	pflags.BoolVar(&flags.Unicode, "unicode", false, "force unicode/emoji output")
	pflags.BoolVar(&flags.Minimal, "minimal", false, "minimal output (less context)")
	pflags.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output")
	pflags.BoolVar(&flags.JSON, "json", false, "JSON output when supported")

	return command
}

// PreprocessArgs inserts "install" before a first non-flag token that is
// not a known command, so `nx ripgrep` means `nx install ripgrep`.
func PreprocessArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	first := args[0]
	if strings.HasPrefix(first, "-") {
		return args
	}
	for _, known := range knownCommands {
		if first == known {
			return args
		}
	}
	return append([]string{"install"}, args...)
}

func Execute(ctx context.Context, args []string) int {
	defer debug.Recover()

	cmd := RootCmd()
	cmd.SetArgs(PreprocessArgs(args))
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	codeErr := &exitCodeErr{}
	if errors.As(err, &codeErr) {
		return codeErr.code
	}

	fmt.Fprintf(os.Stderr, "x %v\n", err)
	return usererr.ExitCode(err)
}

func Main() {
	os.Exit(Execute(context.Background(), os.Args[1:]))
}

// newContext builds the AppContext for a command invocation.
func newContext(flags *rootFlags) (*appctx.Context, error) {
	return appctx.New(flags.GlobalFlags)
}
