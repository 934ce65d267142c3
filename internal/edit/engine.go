package edit

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/debug"
	"github.com/b2nix/nx/internal/plan"
)

// Engine applies an InstallPlan to its target manifest. Each plan is
// consumed by exactly one engine.
type Engine interface {
	Name() string
	// Interactive engines may prompt; the turbo engine never does and
	// refuses plans that require flake-input additions.
	Interactive() bool
	Apply(p *plan.InstallPlan) (*Outcome, error)
	Remove(p *plan.InstallPlan) (*Outcome, error)
}

// DirectEngine is the deterministic file editor.
type DirectEngine struct{}

func (DirectEngine) Name() string        { return "direct" }
func (DirectEngine) Interactive() bool   { return false }
func (DirectEngine) Apply(p *plan.InstallPlan) (*Outcome, error)  { return Apply(p) }
func (DirectEngine) Remove(p *plan.InstallPlan) (*Outcome, error) { return Remove(p) }

// aiEngine shells out to an assistant CLI for the edit, falling back to
// the direct editor when the assistant is unavailable or fails. The edit
// prompt constrains the assistant to the plan's target file.
type aiEngine struct {
	program     string
	model       string
	interactive bool
}

// NewClaudeEngine is the interactive assistant-backed engine.
func NewClaudeEngine(model string) Engine {
	return &aiEngine{program: "claude", model: model, interactive: true}
}

// NewCodexEngine is the non-interactive ("turbo") assistant-backed engine.
func NewCodexEngine(model string) Engine {
	return &aiEngine{program: "codex", model: model, interactive: false}
}

// SelectEngine maps the --engine flag to an engine. Empty means direct.
func SelectEngine(name, model string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", "direct", "none":
		return DirectEngine{}, nil
	case "claude", "interactive":
		return NewClaudeEngine(model), nil
	case "codex", "turbo":
		return NewCodexEngine(model), nil
	}
	return nil, errors.Errorf("unknown engine %q (want direct, claude, or codex)", name)
}

func (e *aiEngine) Name() string      { return e.program }
func (e *aiEngine) Interactive() bool { return e.interactive }

func (e *aiEngine) Apply(p *plan.InstallPlan) (*Outcome, error) {
	if out, err := e.run(p, "add"); err == nil {
		return out, nil
	}
	debug.Log("%s engine failed, falling back to direct editor", e.program)
	return Apply(p)
}

func (e *aiEngine) Remove(p *plan.InstallPlan) (*Outcome, error) {
	if out, err := e.run(p, "remove"); err == nil {
		return out, nil
	}
	debug.Log("%s engine failed, falling back to direct editor", e.program)
	return Remove(p)
}

func (e *aiEngine) run(p *plan.InstallPlan, verb string) (*Outcome, error) {
	if !cmdutil.Exists(e.program) {
		return nil, errors.Errorf("%s not found on PATH", e.program)
	}

	prompt := fmt.Sprintf(
		"%s the package '%s' in the nix manifest %s using insertion mode %s. "+
			"Edit only that file, keep the existing formatting and alphabetical order, "+
			"and make no other changes.",
		strings.ToUpper(verb[:1])+verb[1:], p.PackageToken, p.TargetFile, p.InsertionMode)

	var args []string
	switch e.program {
	case "claude":
		args = []string{"--print", "-p", prompt}
		if e.model != "" {
			args = append([]string{"--model", e.model}, args...)
		}
	default:
		model := e.model
		if model == "" {
			model = defaultCodexModel
		}
		args = []string{"exec", "-m", model, "--full-auto", prompt}
	}

	out, err := cmdutil.RunCaptured(e.program, args, "")
	if err != nil {
		return nil, err
	}
	if out.Code != 0 {
		return nil, errors.Errorf("%s exited %d", e.program, out.Code)
	}
	return &Outcome{FileChanged: true}, nil
}

const defaultCodexModel = "gpt-5-codex"
