// Package fileutil holds path helpers shared by the finder, the command
// layer, and the editors.
package fileutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Location is a file path with an optional 1-based line number, rendered as
// "path" or "path:line". Parsing tolerates colons inside the path itself.
type Location struct {
	Path string
	Line int // 0 means unknown
}

// ParseLocation splits a "path:line" string. A non-numeric suffix is kept
// as part of the path.
func ParseLocation(value string) Location {
	idx := strings.LastIndexByte(value, ':')
	if idx < 0 {
		return Location{Path: value}
	}
	suffix := value[idx+1:]
	if suffix == "" || !allDigits(suffix) {
		return Location{Path: value}
	}
	line := 0
	fmt.Sscanf(suffix, "%d", &line)
	return Location{Path: value[:idx], Line: line}
}

func (l Location) String() string {
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.Path, l.Line)
	}
	return l.Path
}

// Relative re-renders the location with its path stripped of repoRoot.
// Idempotent: an already-relative location is returned unchanged.
func (l Location) Relative(repoRoot string) Location {
	rel := l
	rel.Path = RelativePath(l.Path, repoRoot)
	return rel
}

// RelativePath strips repoRoot (raw or resolved) from path, returning path
// unchanged when it is not under the root.
func RelativePath(path, repoRoot string) string {
	prefixes := []string{repoRoot}
	if resolved, err := filepath.EvalSymlinks(repoRoot); err == nil && resolved != repoRoot {
		prefixes = append(prefixes, resolved)
	}
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(path, strings.TrimSuffix(prefix, "/")+"/"); ok {
			return rest
		}
	}
	return path
}

func allDigits(s string) bool {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
