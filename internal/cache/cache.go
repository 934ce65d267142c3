// Package cache persists per-source search results keyed by normalized
// name, source, and the locked revision of the source's flake input.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/b2nix/nx/internal/alias"
	"github.com/b2nix/nx/internal/debug"
	"github.com/b2nix/nx/internal/sources"
	"github.com/b2nix/nx/internal/xdg"
)

const (
	schemaVersion = 1
	cacheFileName = "packages_v4.json"
	cacheSubDir   = "nx"
)

// getAllOrder is the retrieval order for GetAll, independent of search
// ranking.
var getAllOrder = []sources.Source{sources.Nxs, sources.Nur, sources.Homebrew, sources.Cask}

type envelope struct {
	SchemaVersion int                         `json:"schema_version"`
	Entries       map[string][]sources.Result `json:"entries"`
}

// Cache is a single-process artifact: one owner, atomic replace on flush,
// no cross-process locking.
type Cache struct {
	path      string
	revisions map[string]string
	entries   map[string][]sources.Result
}

// Load reads the cache (or initializes empty state) for a repo root. Any
// I/O, parse, or schema error silently degrades to an empty cache.
func Load(repoRoot string) *Cache {
	return LoadAt(repoRoot, xdg.CacheSubpath(cacheSubDir))
}

// LoadAt is Load with an explicit cache directory, used by tests.
func LoadAt(repoRoot, cacheDir string) *Cache {
	_ = os.MkdirAll(cacheDir, 0o755)
	return &Cache{
		path:      filepath.Join(cacheDir, cacheFileName),
		revisions: loadRevisions(repoRoot),
		entries:   loadEntries(filepath.Join(cacheDir, cacheFileName)),
	}
}

// Revision returns the 12-char truncated locked revision for a source's
// flake input. Homebrew sources are not flake-pinned and key on "".
func (c *Cache) Revision(source sources.Source) string {
	switch source {
	case sources.Homebrew, sources.Cask:
		return ""
	}
	input := string(source)
	if rev, ok := c.revisions[input]; ok {
		return rev
	}
	return "unknown"
}

func (c *Cache) key(name string, source sources.Source) string {
	return alias.Normalize(name) + "|" + string(source) + "|" + c.Revision(source)
}

// Get returns the cached results for one (name, source) pair.
func (c *Cache) Get(name string, source sources.Source) []sources.Result {
	return c.entries[c.key(name, source)]
}

// GetAll returns cached results for every source in retrieval order.
//
// Guardrail: entries covering only Homebrew (formula or cask) with no nix
// source present return empty, forcing a fresh search so a user is not
// pinned to Homebrew once a nix-native source appears.
func (c *Cache) GetAll(name string) []sources.Result {
	var out []sources.Result
	hasNixSource := false
	for _, source := range getAllOrder {
		results := c.Get(name, source)
		if len(results) == 0 {
			continue
		}
		out = append(out, results...)
		if source == sources.Nxs || source == sources.Nur {
			hasNixSource = true
		}
	}
	if len(out) > 0 && !hasNixSource {
		return nil
	}
	return out
}

// Set stores results for one (name, source) pair and flushes. Results
// without a resolved attr are skipped for attr-requiring sources.
func (c *Cache) Set(name string, source sources.Source, results []sources.Result) error {
	kept := make([]sources.Result, 0, len(results))
	for _, r := range results {
		if r.Source.RequiresAttr() && r.Attr == "" {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil
	}
	c.entries[c.key(name, source)] = kept
	return c.save()
}

// SetMany groups results by source, keeping the highest-confidence entry
// per (source, attr), and flushes once.
func (c *Cache) SetMany(name string, results []sources.Result) error {
	bySource := map[sources.Source][]sources.Result{}
	for _, r := range sources.Deduplicate(results) {
		if r.Source.RequiresAttr() && r.Attr == "" {
			continue
		}
		bySource[r.Source] = append(bySource[r.Source], r)
	}
	for source, group := range bySource {
		c.entries[c.key(name, source)] = group
	}
	if len(bySource) == 0 {
		return nil
	}
	return c.save()
}

// Invalidate drops cached entries for a name, optionally limited to one
// source.
func (c *Cache) Invalidate(name string, source *sources.Source) error {
	normalized := alias.Normalize(name)
	dropped := false
	for key := range c.entries {
		cachedName, cachedSource, ok := splitKey(key)
		if !ok || cachedName != normalized {
			continue
		}
		if source != nil && cachedSource != string(*source) {
			continue
		}
		delete(c.entries, key)
		dropped = true
	}
	if !dropped {
		return nil
	}
	return c.save()
}

// Clear empties the cache.
func (c *Cache) Clear() error {
	c.entries = map[string][]sources.Result{}
	return c.save()
}

// save writes atomically: temp file in the same directory, then rename.
// Readers see either the old or new content, never a partial file.
func (c *Cache) save() error {
	data, err := json.MarshalIndent(envelope{SchemaVersion: schemaVersion, Entries: c.entries}, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), cacheFileName+".*")
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp.Name(), c.path))
}

func splitKey(key string) (name, source string, ok bool) {
	name, rest, found := strings.Cut(key, "|")
	if !found {
		return "", "", false
	}
	source, _, found = strings.Cut(rest, "|")
	if !found {
		return "", "", false
	}
	return name, source, true
}

func loadEntries(path string) map[string][]sources.Result {
	empty := map[string][]sources.Result{}
	raw, err := os.ReadFile(path)
	if err != nil {
		return empty
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		debug.Log("discarding corrupt cache at %s: %v", path, err)
		return empty
	}
	if env.SchemaVersion != schemaVersion {
		debug.Log("discarding cache with schema %d (want %d)", env.SchemaVersion, schemaVersion)
		return empty
	}
	if env.Entries == nil {
		return empty
	}
	return env.Entries
}

// loadRevisions extracts 12-char truncated revisions per input from
// flake.lock. The nixpkgs node doubles as the nxs revision.
func loadRevisions(repoRoot string) map[string]string {
	out := map[string]string{}
	raw, err := os.ReadFile(filepath.Join(repoRoot, "flake.lock"))
	if err != nil {
		return out
	}
	var lock struct {
		Nodes map[string]struct {
			Locked struct {
				Rev string `json:"rev"`
			} `json:"locked"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(raw, &lock); err != nil {
		out["nxs"] = "unknown"
		return out
	}
	for name, node := range lock.Nodes {
		if name == "root" || node.Locked.Rev == "" {
			continue
		}
		out[name] = truncateRev(node.Locked.Rev)
		if name == "nixpkgs" {
			out["nxs"] = truncateRev(node.Locked.Rev)
		}
	}
	return out
}

func truncateRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
