package sysops

import (
	"os"
	"path/filepath"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/ux"
)

type testStep struct {
	label   string
	program string
	args    []string
	dir     string
}

// Test runs the repo quality checks: the nx tool's own vet/test suite when
// its source tree lives in the repo, then a flake check. Exits 1 on the
// first failing step.
func Test(ctx *appctx.Context) int {
	var steps []testStep

	toolDir := filepath.Join(ctx.RepoRoot, "scripts", "nx")
	if info, err := os.Stat(toolDir); err == nil && info.IsDir() {
		steps = append(steps,
			testStep{label: "vet", program: "go", args: []string{"vet", "./..."}, dir: toolDir},
			testStep{label: "tests", program: "go", args: []string{"test", "./..."}, dir: toolDir},
		)
	}
	steps = append(steps, testStep{
		label: "flake check", program: "nix",
		args: []string{"flake", "check", ctx.RepoRoot},
	})

	for _, step := range steps {
		if !runTestStep(step, ctx.Printer) {
			return 1
		}
	}
	return 0
}

func runTestStep(step testStep, printer *ux.Printer) bool {
	printer.Action("Running %s", step.label)
	printer.Blank()

	code, err := cmdutil.RunStreaming(step.program, step.args, step.dir, func(line string) {
		printer.StreamLine(line, streamIndent, 80)
	})
	if err != nil {
		printer.Error("%s failed", step.label)
		printer.Error("%v", err)
		return false
	}
	if code != 0 {
		printer.Error("%s failed", step.label)
		return false
	}

	printer.Blank()
	printer.Success("%s passed", step.label)
	return true
}
