package sources

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/b2nix/nx/internal/alias"
	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/debug"
)

const (
	nixpkgsStable   = "nixpkgs"
	nixpkgsUnstable = "github:nixos/nixpkgs/nixos-unstable"
	nurFlake        = "github:nix-community/NUR"
)

// nixSearchEntry mirrors one value of `nix search --json` output.
type nixSearchEntry struct {
	PName       string `json:"pname"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// SearchNxs queries nixpkgs, preferring the unstable channel first when
// requested (forced `unstable` source or bleeding edge).
func SearchNxs(name string, preferUnstable bool) []Result {
	targets := []string{nixpkgsStable, nixpkgsUnstable}
	if preferUnstable {
		targets = []string{nixpkgsUnstable, nixpkgsStable}
	}
	return searchNixSource(name, targets, Nxs, false, "")
}

// SearchNur queries the community user repository. NUR results require a
// flake input modification before they can be realized.
func SearchNur(name string) []Result {
	return searchNixSource(name, []string{nurFlake}, Nur, true, nurFlake)
}

func searchNixSource(name string, targets []string, source Source, requiresFlakeMod bool, flakeURL string) []Result {
	if !cmdutil.Exists("nix") {
		return nil
	}

	resolved := normalizedQuery(name)
	seenAttrs := map[string]bool{}
	type entry struct {
		attrPath string
		nixSearchEntry
	}
	var allEntries []entry

	for _, searchName := range searchNameVariants(name) {
		for _, target := range targets {
			out, err := cmdutil.RunCaptured("nix", []string{"search", "--json", target, searchName}, "")
			if err != nil || out.Code != 0 {
				continue
			}
			parsed := map[string]nixSearchEntry{}
			if err := json.Unmarshal([]byte(out.Stdout), &parsed); err != nil {
				debug.Log("nix search parse failed for %s: %v", searchName, err)
				continue
			}
			for attrPath, e := range parsed {
				if attrPath != "" && !seenAttrs[attrPath] {
					seenAttrs[attrPath] = true
					allEntries = append(allEntries, entry{attrPath, e})
				}
			}
			break // got results for this variant, move to the next
		}
	}

	var results []Result
	for _, e := range allEntries {
		score := scoreMatch(resolved, e.attrPath, e.PName)
		if score < 0.3 {
			continue
		}
		results = append(results, Result{
			Name:             name,
			Source:           source,
			Attr:             cleanAttrPath(e.attrPath),
			PName:            e.PName,
			Version:          e.Version,
			Description:      truncateDescription(e.Description, 100),
			Confidence:       score,
			RequiresFlakeMod: requiresFlakeMod,
			FlakeURL:         flakeURL,
		})
	}

	SortResults(results, nil)
	if len(results) > 5 {
		results = results[:5]
	}
	return results
}

func normalizedQuery(name string) string {
	return alias.Normalize(name)
}

// cleanAttrPath strips the `legacyPackages.<system>.` / `packages.<system>.`
// prefix nix search prepends to flake outputs.
func cleanAttrPath(attrPath string) string {
	for _, prefix := range []string{"legacyPackages.", "packages."} {
		rest, ok := strings.CutPrefix(attrPath, prefix)
		if !ok {
			continue
		}
		if idx := strings.IndexByte(rest, '.'); idx >= 0 {
			return rest[idx+1:]
		}
	}
	return attrPath
}

func truncateDescription(desc string, limit int) string {
	if len(desc) <= limit {
		return desc
	}
	return desc[:limit-3] + "..."
}

// overlayPackages maps well-known package names to the flake-input overlay
// that provides them when present in flake.lock.
var overlayPackages = map[string]string{
	"rust":   "fenix",
	"rustc":  "fenix",
	"cargo":  "fenix",
	"neovim": "neovim-nightly-overlay",
	"nvim":   "neovim-nightly-overlay",
	"zig":    "zig-overlay",
	"emacs":  "emacs-overlay",
	"nodejs": "nodejs-overlay",
	"helix":  "helix",
	"nixd":   "nixd",
}

// SearchFlakeInputs checks the repo's existing flake inputs for overlays
// that already provide name. No subprocess: a local flake.lock read only.
func SearchFlakeInputs(name, flakeLockPath string) []Result {
	raw, err := os.ReadFile(flakeLockPath)
	if err != nil {
		return nil
	}
	var lock struct {
		Nodes map[string]json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(raw, &lock); err != nil {
		return nil
	}

	overlayToPkgs := map[string][]string{}
	for pkg, overlay := range overlayPackages {
		overlayToPkgs[overlay] = append(overlayToPkgs[overlay], pkg)
	}

	searchName := strings.ToLower(normalizedQuery(name))
	var results []Result
	for inputName := range lock.Nodes {
		if inputName == "root" {
			continue
		}
		for _, pkg := range overlayToPkgs[inputName] {
			pkgLower := strings.ToLower(pkg)
			if !strings.Contains(searchName, pkgLower) && !strings.Contains(pkgLower, searchName) {
				continue
			}
			confidence := 0.7
			if pkgLower == searchName {
				confidence = 0.9
			}
			results = append(results, Result{
				Name:        name,
				Source:      FlakeInput,
				Attr:        pkg,
				Confidence:  confidence,
				Description: fmt.Sprintf("From %s overlay", inputName),
			})
		}
	}
	return results
}

// CheckNixAvailable evaluates an attr's meta.platforms and rejects only
// when the value is an explicit string list that excludes this host.
// Permissive when nix is missing or evaluation fails.
func CheckNixAvailable(attr string) (bool, string) {
	if !cmdutil.Exists("nix") {
		return true, ""
	}
	out, err := cmdutil.RunCaptured("nix", []string{"eval", "--json", nixpkgsStable + "#" + attr + ".meta.platforms"}, "")
	if err != nil || out.Code != 0 {
		return true, ""
	}
	var platforms json.RawMessage = []byte(out.Stdout)
	return checkPlatforms(platforms, CurrentSystem())
}

// checkPlatforms is the pure half of the availability check. Non-list or
// structured platform specs are treated permissively.
func checkPlatforms(platforms json.RawMessage, system string) (bool, string) {
	var list []any
	if err := json.Unmarshal(platforms, &list); err != nil {
		return true, ""
	}
	sawString := false
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			// Structured platform attrsets are not an explicit exclusion.
			return true, ""
		}
		sawString = true
		if s == system {
			return true, ""
		}
	}
	if !sawString {
		return true, ""
	}
	return false, fmt.Sprintf("not available on %s", system)
}

// CurrentSystem renders the nix system tag for this host (aarch64-darwin).
func CurrentSystem() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}
	return arch + "-" + runtime.GOOS
}

// ValidateLanguageOverride confirms a language package attr exists and is
// available on this platform before the language shortcut is taken.
func ValidateLanguageOverride(name string) (bool, string) {
	if !cmdutil.Exists("nix") {
		return false, "nix command unavailable"
	}
	found := false
	for _, target := range []string{nixpkgsStable, nixpkgsUnstable} {
		out, err := cmdutil.RunCaptured("nix", []string{"eval", "--json", target + "#" + name + ".name"}, "")
		if err == nil && out.Code == 0 {
			found = true
			break
		}
	}
	if !found {
		return false, "attribute not found in nixpkgs"
	}
	return CheckNixAvailable(name)
}
