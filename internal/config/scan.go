package config

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// manifestRoots are the directories scanned for .nix manifests.
var manifestRoots = []string{"home", "system", "hosts", "packages"}

const purposePrefix = "# nx:"

// Files maps purpose comments to manifest paths and resolves the standard
// routing targets with deterministic fallbacks.
//
// default.nix and common.nix are never routing targets; the finder scans
// them separately for package discovery.
type Files struct {
	repoRoot  string
	byPurpose map[string]string
	allFiles  []string
}

// Discover walks the four manifest roots and reads each file's first-line
// `# nx:` purpose tag. Unreadable files are skipped silently.
func Discover(repoRoot string) *Files {
	cf := &Files{
		repoRoot:  repoRoot,
		byPurpose: map[string]string{},
	}

	for _, dirName := range manifestRoots {
		dirPath := filepath.Join(repoRoot, dirName)
		if _, err := os.Stat(dirPath); err != nil {
			continue
		}
		_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".nix" {
				return nil
			}
			base := filepath.Base(path)
			if base == "default.nix" || base == "common.nix" {
				return nil
			}
			cf.allFiles = append(cf.allFiles, path)
			if purpose := readPurposeComment(path); purpose != "" {
				// First tagged file wins for a repeated purpose; stable
				// because the walk order is sorted below.
				if _, exists := cf.byPurpose[purpose]; !exists {
					cf.byPurpose[purpose] = path
				}
			}
			return nil
		})
	}

	sort.Strings(cf.allFiles)
	return cf
}

func (cf *Files) RepoRoot() string { return cf.repoRoot }

// AllFiles lists every routable manifest, sorted.
func (cf *Files) AllFiles() []string { return cf.allFiles }

func (cf *Files) ByPurpose() map[string]string { return cf.byPurpose }

// Packages is the default CLI-tools manifest, the deterministic routing
// fallback for general nix packages.
func (cf *Files) Packages() string {
	return cf.findByKeywords("cli tools", "utilities").orDefault(cf.repoRoot, "packages/nix/cli.nix")
}

func (cf *Files) Languages() string {
	return cf.findByKeywords("language", "runtimes", "toolchains").orDefault(cf.repoRoot, "packages/nix/languages.nix")
}

func (cf *Files) Services() string {
	return cf.findByKeywords("services", "daemons").orDefault(cf.repoRoot, "home/services.nix")
}

func (cf *Files) Darwin() string {
	return cf.findByKeywords("macos system").orDefault(cf.repoRoot, "system/darwin.nix")
}

func (cf *Files) HomebrewBrews() string {
	return cf.findByKeywords("formula manifest", "brews").orDefault(cf.repoRoot, "packages/homebrew/brews.nix")
}

func (cf *Files) HomebrewCasks() string {
	return cf.findByKeywords("cask manifest", "gui apps").orDefault(cf.repoRoot, "packages/homebrew/casks.nix")
}

func (cf *Files) HomebrewTaps() string {
	return cf.findByKeywords("taps manifest").orDefault(cf.repoRoot, "packages/homebrew/taps.nix")
}

type keywordHit string

func (h keywordHit) orDefault(root, rel string) string {
	if h != "" {
		return string(h)
	}
	return filepath.Join(root, rel)
}

// findByKeywords returns the path of the first purpose containing any of
// the keywords (case-insensitive), trying keywords in order. Ties across
// purposes resolve by sorted purpose text.
func (cf *Files) findByKeywords(keywords ...string) keywordHit {
	purposes := make([]string, 0, len(cf.byPurpose))
	for purpose := range cf.byPurpose {
		purposes = append(purposes, purpose)
	}
	sort.Strings(purposes)

	for _, keyword := range keywords {
		lower := strings.ToLower(keyword)
		for _, purpose := range purposes {
			if strings.Contains(strings.ToLower(purpose), lower) {
				return keywordHit(cf.byPurpose[purpose])
			}
		}
	}
	return ""
}

func readPurposeComment(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return ""
	}
	line := strings.TrimSpace(scanner.Text())
	rest, ok := strings.CutPrefix(line, purposePrefix)
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}
