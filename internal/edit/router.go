package edit

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/config"
	"github.com/b2nix/nx/internal/fileutil"
)

// AIRouter delegates the general-nix routing decision to an assistant CLI
// constrained to the candidate set. The planner validates the returned
// path; anything outside the candidates is treated as ambiguous and falls
// back to the default manifest.
type AIRouter struct {
	program string
	model   string
}

func NewAIRouter(program, model string) *AIRouter {
	if program == "" {
		program = "claude"
	}
	return &AIRouter{program: program, model: model}
}

func (r *AIRouter) Route(token string, candidates []string, cf *config.Files) (string, error) {
	if !cmdutil.Exists(r.program) {
		return "", errors.Errorf("%s not found on PATH", r.program)
	}

	rels := make([]string, len(candidates))
	for i, candidate := range candidates {
		rels[i] = fileutil.RelativePath(candidate, cf.RepoRoot())
	}
	prompt := fmt.Sprintf(
		"Which manifest should the package '%s' be added to? "+
			"Answer with exactly one of these paths and nothing else:\n%s",
		token, strings.Join(rels, "\n"))

	var args []string
	if r.program == "claude" {
		args = []string{"--print", "-p", prompt}
		if r.model != "" {
			args = append([]string{"--model", r.model}, args...)
		}
	} else {
		args = []string{"exec", "-m", r.model, "--full-auto", prompt}
	}

	out, err := cmdutil.RunCaptured(r.program, args, "")
	if err != nil {
		return "", err
	}
	if out.Code != 0 {
		return "", errors.Errorf("%s exited %d", r.program, out.Code)
	}

	answer := strings.TrimSpace(out.Stdout)
	for i, rel := range rels {
		if answer == rel || strings.HasSuffix(answer, rel) {
			return candidates[i], nil
		}
	}
	// Not in the candidate set: the planner records a routing warning.
	return answer, nil
}
