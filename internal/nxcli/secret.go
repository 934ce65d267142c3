package nxcli

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/nxcli/usererr"
)

var secretKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func secretCmd(flags *rootFlags) *cobra.Command {
	command := &cobra.Command{
		Use:     "secret",
		Aliases: []string{"secrets"},
		Short:   "Manage encrypted secrets via sops",
	}
	command.AddCommand(secretAddCmd(flags))
	return command
}

type secretAddFlags struct {
	name       string
	value      string
	valueStdin bool
}

func secretAddCmd(flags *rootFlags) *cobra.Command {
	local := &secretAddFlags{}
	command := &cobra.Command{
		Use:   "add [key]",
		Short: "Add or update a secret key/value",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := local.name
			if key == "" && len(args) > 0 {
				key = args[0]
			}
			if key == "" {
				return usererr.NewArgError("No secret key specified")
			}
			if !secretKeyRe.MatchString(key) {
				return usererr.NewArgError("Secret keys use lowercase letters, digits, and underscores")
			}

			value := local.value
			if local.valueStdin {
				raw, err := io.ReadAll(os.Stdin)
				if err != nil {
					return usererr.WithUserMessage(err, "reading secret from stdin")
				}
				value = strings.TrimRight(string(raw), "\n")
			}
			if value == "" {
				return usererr.NewArgError("No secret value; pass --value or --value-stdin")
			}

			ctx, err := newContext(flags)
			if err != nil {
				return err
			}

			secretsFile := filepath.Join(ctx.RepoRoot, "secrets", "secrets.yaml")
			if _, err := os.Stat(secretsFile); err != nil {
				ctx.Printer.Error("secrets file not found at %s", secretsFile)
				return exitWith(1)
			}
			if !cmdutil.Exists("sops") {
				ctx.Printer.Error("sops not found on PATH")
				return exitWith(1)
			}

			out, err := cmdutil.RunCaptured("sops",
				[]string{"set", secretsFile, `["`+key+`"]`, `"`+value+`"`}, ctx.RepoRoot)
			if err != nil {
				ctx.Printer.Error("sops failed: %v", err)
				return exitWith(1)
			}
			if out.Code != 0 {
				ctx.Printer.Error("sops failed")
				if detail := out.FirstNonEmptyOutput(); detail != "" {
					ctx.Printer.Detail("%s", detail)
				}
				return exitWith(1)
			}

			ctx.Printer.Success("Secret %s updated", key)
			return nil
		},
	}
	command.Flags().StringVar(&local.name, "name", "", "secret key name (alternative to positional)")
	command.Flags().StringVar(&local.value, "value", "", "secret value (prefer --value-stdin)")
	command.Flags().BoolVar(&local.valueStdin, "value-stdin", false, "read secret value from stdin")
	return command
}
