// Package search is the orchestrator combining the finder, the cache, and
// the source adapters into one resolution pipeline.
package search

import (
	"fmt"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/debug"
	"github.com/b2nix/nx/internal/finder"
	"github.com/b2nix/nx/internal/sources"
)

// Resolve runs the full shortcut chain for one package name:
//
//  1. already installed (finder hit, no network)
//  2. forced source (--source; force wins absolutely, ignoring ranking)
//  3. explicit --cask / --mas synthetic result
//  4. language-package override (validated against nix)
//  5. cache hit under (normalized name, source, revision)
//  6. parallel primary search + homebrew alternatives, ranked and deduped
//
// warn receives non-fatal source warnings; pass nil to suppress (quiet
// paths and --minimal).
func Resolve(name string, prefs *sources.Preferences, ctx *appctx.Context, warn func(string)) ([]sources.Result, error) {
	// 1. Installed short-circuit.
	if loc, found, err := finder.FindPackage(name, ctx.RepoRoot); err != nil {
		return nil, err
	} else if found {
		return []sources.Result{{
			Name:       name,
			Source:     sources.Installed,
			Location:   loc.String(),
			Confidence: 1.0,
		}}, nil
	}

	// 2. Forced source.
	if prefs.ForceSource != "" {
		return searchForced(name, prefs), nil
	}

	// 3. Explicit cask / mas targets are synthesized without remote query.
	if prefs.IsCask {
		return []sources.Result{{
			Name: name, Source: sources.Cask, Attr: name,
			Description: "GUI application (cask)", Confidence: 1.0,
		}}, nil
	}
	if prefs.IsMas {
		debug.Log("mas result for %q is synthetic; name is not validated against the App Store", name)
		return []sources.Result{{
			Name: name, Source: sources.Mas, Attr: name,
			Description: "Mac App Store app", Confidence: 1.0,
		}}, nil
	}

	// 4. Language override bypasses general ranking entirely.
	if info, ok := sources.DetectLanguagePackage(name); ok {
		valid, reason := sources.ValidateLanguageOverride(name)
		if valid {
			return []sources.Result{{
				Name:        name,
				Source:      sources.Nxs,
				Attr:        name,
				Description: fmt.Sprintf("%s package", info.Interpreter),
				Confidence:  1.0,
			}}, nil
		}
		if warn != nil && reason != "" && reason != "nix command unavailable" {
			warn(fmt.Sprintf("skipping language override '%s': %s", name, reason))
		}
	}

	// 5. Cache.
	if cached := ctx.Cache.GetAll(name); len(cached) > 0 {
		return cached, nil
	}

	// 6. Parallel primary search, then the cheap homebrew alternatives.
	results := sources.ParallelSearch(name, prefs, ctx.FlakeLockPath, warn)
	results = append(results, sources.SearchHomebrew(name, false, false)...)
	results = append(results, sources.SearchHomebrew(name, true, false)...)

	sources.SortResults(results, prefs)
	results = sources.Deduplicate(results)

	if len(results) > 0 {
		if err := ctx.Cache.SetMany(name, results); err != nil {
			debug.Log("cache write failed for %q: %v", name, err)
		}
	}
	return results, nil
}

func searchForced(name string, prefs *sources.Preferences) []sources.Result {
	source, ok := sources.ParseSource(prefs.ForceSource)
	if !ok {
		return nil
	}
	switch source {
	case sources.Unstable:
		return sources.SearchNxs(name, true)
	case sources.Nxs:
		return sources.SearchNxs(name, false)
	case sources.Nur:
		return sources.SearchNur(name)
	case sources.Homebrew:
		return sources.SearchHomebrew(name, prefs.IsCask, true)
	case sources.Cask:
		return sources.SearchHomebrew(name, true, false)
	case sources.Mas:
		return []sources.Result{{
			Name: name, Source: sources.Mas, Attr: name,
			Description: "Mac App Store app", Confidence: 1.0,
		}}
	}
	return nil
}
