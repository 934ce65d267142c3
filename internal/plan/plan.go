// Package plan turns a chosen search result into a fully-specified
// InstallPlan: which manifest to edit and how to insert the package.
package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/b2nix/nx/internal/config"
	"github.com/b2nix/nx/internal/sources"
)

// InsertionMode is the tagged variant describing how a manifest is edited.
type InsertionMode string

const (
	// NixManifest appends a bare identifier to a nix package list.
	NixManifest InsertionMode = "nix_manifest"
	// LanguageWithPackages augments a `<interp>.withPackages (ps: [...])`.
	LanguageWithPackages InsertionMode = "language_with_packages"
	// HomebrewManifest appends a double-quoted string to a brew/cask list.
	HomebrewManifest InsertionMode = "homebrew_manifest"
	// MasApps adds a `"Name" = <id>;` entry to the masApps attrset.
	MasApps InsertionMode = "mas_apps"
)

// InstallPlan is consumed by exactly one EditEngine and then discarded.
//
// Invariant: for nxs/unstable/nur/flake-input results, SourceResult.Attr is
// non-empty (enforced in Build).
type InstallPlan struct {
	SourceResult   sources.Result
	PackageToken   string
	TargetFile     string
	InsertionMode  InsertionMode
	IsBrew         bool
	IsCask         bool
	IsMas          bool
	LanguageInfo   *sources.LanguageInfo
	RoutingWarning string
}

// RequiresFlakeInput reports whether applying this plan needs a flake.nix
// input addition first.
func (p *InstallPlan) RequiresFlakeInput() bool {
	return p.SourceResult.RequiresFlakeMod && p.SourceResult.FlakeURL != ""
}

// Router picks the target manifest for general nix packages. The decision
// procedure may be delegated (AI router); any returned path outside the
// candidate set falls back to the default packages manifest with a warning
// recorded on the plan.
type Router interface {
	// Route returns the chosen manifest for token among candidates.
	Route(token string, candidates []string, cf *config.Files) (string, error)
}

// DeterministicRouter always picks the default packages manifest.
type DeterministicRouter struct{}

func (DeterministicRouter) Route(_ string, _ []string, cf *config.Files) (string, error) {
	return cf.Packages(), nil
}

// Candidates is the general-nix candidate set: every .nix manifest in the
// same directory as the default packages manifest, minus the languages
// manifest. The languages manifest is never a general-nix target.
func Candidates(cf *config.Files) []string {
	packagesDir := filepath.Dir(cf.Packages())
	languages := cf.Languages()

	var out []string
	for _, file := range cf.AllFiles() {
		if filepath.Dir(file) != packagesDir || file == languages {
			continue
		}
		out = append(out, file)
	}
	if len(out) == 0 {
		out = []string{cf.Packages()}
	}
	return out
}

// IsMCPTool detects model-context servers by naming convention; these are
// always routed to the general CLI bucket.
func IsMCPTool(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "-mcp") || strings.HasPrefix(lower, "mcp-")
}

// Build validates and routes a chosen result into an InstallPlan.
func Build(sr sources.Result, cf *config.Files, router Router) (*InstallPlan, error) {
	if sr.Source.RequiresAttr() && sr.Attr == "" {
		return nil, errors.Errorf(
			"missing resolved attribute for '%s' (source: %s); refusing unsafe install",
			sr.Name, sr.Source)
	}

	token := sr.Attr
	if token == "" {
		token = sr.Name
	}

	langInfo, isLang := sources.DetectLanguagePackage(token)

	p := &InstallPlan{
		SourceResult: sr,
		PackageToken: token,
	}

	switch {
	case sr.Source == sources.Cask:
		p.TargetFile = cf.HomebrewCasks()
		p.InsertionMode = HomebrewManifest
		p.IsCask = true
	case sr.Source == sources.Homebrew:
		p.TargetFile = cf.HomebrewBrews()
		p.InsertionMode = HomebrewManifest
		p.IsBrew = true
	case sr.Source == sources.Mas:
		p.TargetFile = cf.Darwin()
		p.InsertionMode = MasApps
		p.IsMas = true
	case isLang:
		p.TargetFile = cf.Languages()
		p.InsertionMode = LanguageWithPackages
		p.LanguageInfo = langInfo
	default:
		p.InsertionMode = NixManifest
		target, warning := routeGeneralNix(token, cf, router)
		p.TargetFile = target
		p.RoutingWarning = warning
	}

	return p, nil
}

func routeGeneralNix(token string, cf *config.Files, router Router) (target, warning string) {
	fallback := cf.Packages()

	// MCP tools are forced to the default packages manifest.
	if IsMCPTool(token) {
		return fallback, ""
	}
	if router == nil {
		router = DeterministicRouter{}
	}

	candidates := Candidates(cf)
	chosen, err := router.Route(token, candidates, cf)
	if err != nil {
		return fallback, fmt.Sprintf("routing '%s' failed (%v); using %s", token, err, fallback)
	}
	for _, candidate := range candidates {
		if chosen == candidate {
			if _, isDeterministic := router.(DeterministicRouter); isDeterministic && chosen == fallback {
				return chosen, fmt.Sprintf("routed '%s' to fallback %s", token, fallback)
			}
			return chosen, ""
		}
	}
	return fallback, fmt.Sprintf("ambiguous routing decision '%s' for '%s'; using %s", chosen, token, fallback)
}
