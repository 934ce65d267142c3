// Package sources queries the upstream package providers (nixpkgs, flake
// input overlays, NUR, Homebrew, Mac App Store) and ranks their results.
package sources

import (
	"sort"
	"strings"

	"github.com/b2nix/nx/internal/alias"
)

// Source is the tagged provider variant attached to every search result.
type Source string

const (
	Nxs        Source = "nxs"
	Unstable   Source = "unstable"
	FlakeInput Source = "flake-input"
	Nur        Source = "nur"
	Homebrew   Source = "homebrew"
	Cask       Source = "cask"
	Mas        Source = "mas"
	// Installed is synthetic: the package is already declared in the repo
	// and short-circuits any search.
	Installed Source = "installed"
)

// ParseSource resolves user-supplied --source values, including aliases.
func ParseSource(raw string) (Source, bool) {
	switch strings.ToLower(raw) {
	case "nxs", "nix", "nixpkgs":
		return Nxs, true
	case "unstable":
		return Unstable, true
	case "nur":
		return Nur, true
	case "brew", "brews", "homebrew":
		return Homebrew, true
	case "cask", "casks":
		return Cask, true
	case "mas":
		return Mas, true
	case "flake-input":
		return FlakeInput, true
	}
	return "", false
}

// RequiresAttr reports whether a result from this source must carry a
// resolved nix attribute path before it can be planned.
func (s Source) RequiresAttr() bool {
	switch s {
	case Nxs, Unstable, Nur, FlakeInput:
		return true
	}
	return false
}

// Result is one candidate from one source.
type Result struct {
	Name        string  `json:"name"`
	Source      Source  `json:"source"`
	Attr        string  `json:"attr,omitempty"`
	PName       string  `json:"pname,omitempty"`
	Version     string  `json:"version,omitempty"`
	Description string  `json:"description,omitempty"`
	Homepage    string  `json:"homepage,omitempty"`
	License     string  `json:"license,omitempty"`
	Broken      bool    `json:"broken,omitempty"`
	Insecure    bool    `json:"insecure,omitempty"`
	Platforms   []string `json:"platforms,omitempty"`
	Confidence  float64 `json:"confidence"`

	// RequiresFlakeMod marks results that need a new flake input (NUR).
	RequiresFlakeMod bool   `json:"requires_flake_mod,omitempty"`
	FlakeURL         string `json:"flake_url,omitempty"`

	// Location is set only on synthetic Installed results.
	Location string `json:"location,omitempty"`
}

// Preferences steer source selection and ranking.
type Preferences struct {
	BleedingEdge bool
	NUR          bool
	ForceSource  string
	IsCask       bool
	IsMas        bool
}

// priority orders sources for ranking; lower sorts first. BleedingEdge
// promotes NUR above nixpkgs. ForceSource never reaches ranking: a forced
// search returns one source's results unranked (force wins absolutely).
func priority(s Source, prefs *Preferences) int {
	base := map[Source]int{
		Installed:  0,
		FlakeInput: 1,
		Nxs:        2,
		Nur:        3,
		Homebrew:   4,
		Cask:       5,
		Mas:        6,
	}
	p, ok := base[s]
	if !ok {
		return 99
	}
	if prefs != nil && prefs.BleedingEdge {
		switch s {
		case Nur:
			return base[Nxs]
		case Nxs:
			return base[Nur]
		}
	}
	return p
}

// SortResults orders by (source priority, descending confidence, attr) —
// the total order imposed before user confirmation.
func SortResults(results []Result, prefs *Preferences) {
	sort.SliceStable(results, func(i, j int) bool {
		pi, pj := priority(results[i].Source, prefs), priority(results[j].Source, prefs)
		if pi != pj {
			return pi < pj
		}
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Attr < results[j].Attr
	})
}

// Deduplicate keeps the highest-confidence entry per (source, attr).
func Deduplicate(results []Result) []Result {
	type key struct {
		source Source
		attr   string
	}
	best := map[key]int{}
	var out []Result
	for _, r := range results {
		k := key{r.Source, r.Attr}
		if idx, ok := best[k]; ok {
			if r.Confidence > out[idx].Confidence {
				out[idx] = r
			}
			continue
		}
		best[k] = len(out)
		out = append(out, r)
	}
	return out
}

// scoreMatch rates how well an attr path and pname match the resolved
// query name. Results below 0.3 are discarded.
func scoreMatch(resolved, attrPath, pname string) float64 {
	query := strings.ToLower(resolved)
	last := strings.ToLower(lastAttrSegment(attrPath))
	pnameLower := strings.ToLower(pname)

	switch {
	case last == query || pnameLower == query:
		return 1.0
	case strings.HasPrefix(last, query) || strings.HasPrefix(pnameLower, query):
		return 0.8
	case strings.Contains(last, query) || strings.Contains(pnameLower, query):
		return 0.6
	case strings.Contains(query, last) && last != "":
		return 0.4
	}
	return 0.1
}

func lastAttrSegment(attrPath string) string {
	if idx := strings.LastIndexByte(attrPath, '.'); idx >= 0 {
		return attrPath[idx+1:]
	}
	return attrPath
}

// searchNameVariants yields the raw token and its alias-normalized form.
func searchNameVariants(name string) []string {
	normalized := alias.Normalize(name)
	if normalized == strings.ToLower(name) {
		return []string{name}
	}
	return []string{normalized, name}
}
