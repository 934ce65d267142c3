package finder

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/b2nix/nx/internal/alias"
	"github.com/b2nix/nx/internal/fileutil"
)

// Match pairs a resolved package name with where it is declared.
type Match struct {
	Name     string
	Location fileutil.Location
}

// Index caches the scanned buckets for one repo root, valid while the set
// of (path, mtime, size) signatures is unchanged. Rebuilds is incremented
// exactly once per rescan; tests key off it.
type Index struct {
	repoRoot   string
	signatures map[string]fileSig
	buckets    *Buckets
	Rebuilds   int
}

type fileSig struct {
	mtimeNs int64
	size    int64
}

func NewIndex(repoRoot string) *Index {
	return &Index{repoRoot: repoRoot}
}

// Buckets returns the current package buckets, rescanning manifests only
// when a file signature changed since the last access.
func (ix *Index) Buckets() (*Buckets, error) {
	current := signatures(ix.repoRoot)
	if ix.buckets != nil && sigsEqual(ix.signatures, current) {
		return ix.buckets, nil
	}

	buckets, err := ScanPackages(ix.repoRoot)
	if err != nil {
		return nil, err
	}
	ix.buckets = buckets
	ix.signatures = current
	ix.Rebuilds++
	return buckets, nil
}

func signatures(repoRoot string) map[string]fileSig {
	out := map[string]fileSig{}
	for _, path := range CollectNixFiles(repoRoot) {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		out[path] = fileSig{mtimeNs: info.ModTime().UnixNano(), size: info.Size()}
	}
	return out
}

func sigsEqual(a, b map[string]fileSig) bool {
	if len(a) != len(b) {
		return false
	}
	for path, sig := range a {
		if b[path] != sig {
			return false
		}
	}
	return true
}

// FindPackage locates name (alias-normalized first, raw second) across all
// manifests. Returns the zero Location and false when not declared.
func FindPackage(name, repoRoot string) (fileutil.Location, bool, error) {
	mapped := alias.Normalize(name)
	loc, found, err := findPackageExact(mapped, repoRoot)
	if err != nil || found {
		return loc, found, err
	}
	if strings.EqualFold(mapped, name) {
		return fileutil.Location{}, false, nil
	}
	return findPackageExact(name, repoRoot)
}

// FindPackageFuzzy tries FindPackage, then falls back to prefix and
// substring matching over every installed package. Ties break by shortest
// candidate, then lexicographic.
func FindPackageFuzzy(name, repoRoot string) (*Match, error) {
	if loc, found, err := FindPackage(name, repoRoot); err != nil {
		return nil, err
	} else if found {
		return &Match{Name: alias.Normalize(name), Location: loc}, nil
	}

	buckets, err := ScanPackages(repoRoot)
	if err != nil {
		return nil, err
	}
	candidate, ok := fuzzyMatch(name, buckets.All())
	if !ok {
		return nil, nil
	}
	loc, found, err := findPackageExact(candidate, repoRoot)
	if err != nil || !found {
		return nil, err
	}
	return &Match{Name: candidate, Location: loc}, nil
}

func findPackageExact(name, repoRoot string) (fileutil.Location, bool, error) {
	patterns, err := buildPatterns(regexp.QuoteMeta(name))
	if err != nil {
		return fileutil.Location{}, false, err
	}

	for _, filePath := range CollectNixFiles(repoRoot) {
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return fileutil.Location{}, false, errors.Wrapf(err, "reading %s", filePath)
		}
		for lineIdx, line := range strings.Split(string(raw), "\n") {
			if strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
				continue
			}
			if isAliasRHSFor(line, name) {
				continue
			}
			for _, pattern := range patterns {
				if pattern.MatchString(line) {
					outputPath := filePath
					if resolved, err := filepath.EvalSymlinks(filePath); err == nil {
						outputPath = resolved
					}
					return fileutil.Location{Path: outputPath, Line: lineIdx + 1}, true, nil
				}
			}
		}
	}
	return fileutil.Location{}, false, nil
}

func buildPatterns(escapedName string) ([]*regexp.Regexp, error) {
	raw := []string{
		fmt.Sprintf(`(?i)^\s+%s\s*(#.*)?$`, escapedName),
		fmt.Sprintf(`(?i)^\s+pkgs\.%s\b`, escapedName),
		fmt.Sprintf(`(?i)^\s*"%s"`, escapedName),
		fmt.Sprintf(`(?i)^\s*programs\.%s(?:\.enable|\s*=)`, escapedName),
		fmt.Sprintf(`(?i)^\s*services\.%s(?:\.enable|\s*=)`, escapedName),
		fmt.Sprintf(`(?i)^\s*launchd\.(?:user\.)?agents\.%s\s*=`, escapedName),
	}
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, "invalid search pattern")
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// isAliasRHSFor guards against attribute aliases like `vim = "nvim";`:
// the quoted right-hand side must not count as a declaration of name.
func isAliasRHSFor(line, name string) bool {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return false
	}
	return strings.Contains(line[idx+1:], `"`+name+`"`)
}

func fuzzyMatch(query string, candidates []string) (string, bool) {
	queryLower := strings.ToLower(query)

	for _, candidate := range candidates {
		if strings.EqualFold(candidate, query) {
			return candidate, true
		}
	}

	if best, ok := bestByTie(candidates, func(c string) bool {
		return strings.HasPrefix(strings.ToLower(c), queryLower)
	}); ok {
		return best, true
	}

	return bestByTie(candidates, func(c string) bool {
		return strings.Contains(strings.ToLower(c), queryLower)
	})
}

// bestByTie filters candidates by pred and picks the shortest, breaking
// remaining ties lexicographically.
func bestByTie(candidates []string, pred func(string) bool) (string, bool) {
	var hits []string
	for _, c := range candidates {
		if pred(c) {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	sort.Slice(hits, func(i, j int) bool {
		if len(hits[i]) != len(hits[j]) {
			return len(hits[i]) < len(hits[j])
		}
		return hits[i] < hits[j]
	})
	return hits[0], true
}
