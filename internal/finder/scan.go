// Package finder parses declarations across every manifest in the repo and
// answers "where is this package already declared?".
package finder

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Buckets holds installed package names grouped by declaration source.
type Buckets struct {
	Nxs      []string `json:"nxs"`
	Brews    []string `json:"brews"`
	Casks    []string `json:"casks"`
	Mas      []string `json:"mas"`
	Services []string `json:"services"`
}

// Total counts packages across all buckets.
func (b *Buckets) Total() int {
	return len(b.Nxs) + len(b.Brews) + len(b.Casks) + len(b.Mas) + len(b.Services)
}

// All flattens the buckets in source order, deduplicated.
func (b *Buckets) All() []string {
	var out []string
	seen := map[string]bool{}
	for _, bucket := range [][]string{b.Nxs, b.Brews, b.Casks, b.Mas, b.Services} {
		for _, name := range bucket {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

var (
	nixListRes = []*regexp.Regexp{
		regexp.MustCompile(`(?s)home\.packages\s*=\s*(?:with\s+\w+;\s*)?\[(.*?)\];`),
		regexp.MustCompile(`(?s)environment\.systemPackages\s*=\s*(?:with\s+\w+;\s*)?\[(.*?)\];`),
	}
	brewsRe      = regexp.MustCompile(`(?s)(?:homebrew\.)?brews\s*=\s*\[(.*?)\];`)
	casksRe      = regexp.MustCompile(`(?s)(?:homebrew\.)?casks\s*=\s*\[(.*?)\];`)
	masRe        = regexp.MustCompile(`(?s)(?:homebrew\.)?masApps\s*=\s*\{(.*?)\};`)
	launchdRe    = regexp.MustCompile(`launchd\.(?:user\.)?agents\.([a-zA-Z0-9_-]+)`)
	quotedItemRe = regexp.MustCompile(`"([^"]+)"`)
	nixIdentRe   = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_.-]*)`)
)

var nixKeywords = map[string]bool{
	"with": true, "pkgs": true, "lib": true, "config": true,
	"in": true, "let": true, "inherit": true, "rec": true,
}

// ScanPackages parses every manifest under the four roots into buckets.
func ScanPackages(repoRoot string) (*Buckets, error) {
	out := &Buckets{}
	seen := struct{ nxs, brews, casks, mas, services map[string]bool }{
		map[string]bool{}, map[string]bool{}, map[string]bool{}, map[string]bool{}, map[string]bool{},
	}

	for _, nixFile := range CollectNixFiles(repoRoot) {
		raw, err := os.ReadFile(nixFile)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", nixFile)
		}
		content := string(raw)

		for _, re := range nixListRes {
			for _, captures := range re.FindAllStringSubmatch(content, -1) {
				collectListIdents(captures[1], &out.Nxs, seen.nxs)
			}
		}
		collectHomebrewItems(nixFile, content, "brews.nix", brewsRe, &out.Brews, seen.brews)
		collectHomebrewItems(nixFile, content, "casks.nix", casksRe, &out.Casks, seen.casks)
		for _, captures := range masRe.FindAllStringSubmatch(content, -1) {
			for _, item := range quotedItemRe.FindAllStringSubmatch(captures[1], -1) {
				pushUnique(item[1], &out.Mas, seen.mas)
			}
		}
		for _, captures := range launchdRe.FindAllStringSubmatch(content, -1) {
			pushUnique(captures[1], &out.Services, seen.services)
		}
	}

	return out, nil
}

// CollectNixFiles lists .nix files for package/service scanning. Only
// common.nix is skipped; default.nix is included here (it may declare
// launchd services) even though routing excludes it.
func CollectNixFiles(repoRoot string) []string {
	var out []string
	for _, dirName := range []string{"home", "system", "hosts", "packages"} {
		dirPath := filepath.Join(repoRoot, dirName)
		if _, err := os.Stat(dirPath); err != nil {
			continue
		}
		_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".nix" {
				return nil
			}
			if filepath.Base(path) == "common.nix" {
				return nil
			}
			out = append(out, path)
			return nil
		})
	}
	sort.Strings(out)
	return out
}

// collectHomebrewItems gathers quoted tokens. A dedicated manifest
// (packages/homebrew/{brews,casks}.nix) is treated as all-items even when
// the list is not introduced by a `brews =` assignment.
func collectHomebrewItems(nixFile, content, dedicatedName string, re *regexp.Regexp, out *[]string, seen map[string]bool) {
	parent := filepath.Base(filepath.Dir(nixFile))
	if filepath.Base(nixFile) == dedicatedName && parent == "homebrew" {
		for _, item := range quotedItemRe.FindAllStringSubmatch(content, -1) {
			pushUnique(item[1], out, seen)
		}
		return
	}
	for _, captures := range re.FindAllStringSubmatch(content, -1) {
		for _, item := range quotedItemRe.FindAllStringSubmatch(captures[1], -1) {
			pushUnique(item[1], out, seen)
		}
	}
}

func collectListIdents(block string, out *[]string, seen map[string]bool) {
	for _, line := range strings.Split(block, "\n") {
		token, ok := extractPackageName(line)
		if ok {
			pushUnique(token, out, seen)
		}
	}
}

func extractPackageName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "", trimmed == "[", trimmed == "]", trimmed == "{":
		return "", false
	case strings.HasPrefix(trimmed, "#"),
		strings.HasPrefix(trimmed, "inputs."),
		strings.HasPrefix(trimmed, "++"):
		return "", false
	}
	captures := nixIdentRe.FindStringSubmatch(trimmed)
	if captures == nil || nixKeywords[captures[1]] {
		return "", false
	}
	return captures[1], true
}

func pushUnique(item string, out *[]string, seen map[string]bool) {
	if !seen[item] {
		seen[item] = true
		*out = append(*out, item)
	}
}
