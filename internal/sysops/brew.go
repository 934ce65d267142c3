package sysops

import (
	"encoding/json"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"golang.org/x/sync/errgroup"

	"github.com/b2nix/nx/internal/appctx"
	"github.com/b2nix/nx/internal/cmdutil"
)

// brewOutdatedPackage is one entry of `brew outdated --json`, enriched
// with `brew info --json=v2` metadata.
type brewOutdatedPackage struct {
	Name             string
	InstalledVersion string
	CurrentVersion   string
	IsCask           bool
	Homepage         string
	Description      string
	ChangelogURL     string
}

type brewPackageMetadata struct {
	Homepage    string
	Description string
}

// runBrewPhase checks outdated packages, prints their version deltas and
// changelogs, then upgrades them (unless dry-run). Never fatal: brew
// failures degrade to warnings, the upgrade flow continues.
func runBrewPhase(opts *UpgradeOptions, ctx *appctx.Context) {
	ctx.Printer.Action("Checking Homebrew updates")

	outdated := enrichBrewOutdated(brewOutdated())
	if len(outdated) == 0 {
		ctx.Printer.Success("All Homebrew packages up to date")
		return
	}

	ctx.Printer.Blank()
	ctx.Printer.Detail("Homebrew Outdated (%d)", len(outdated))

	for i := range outdated {
		pkg := &outdated[i]
		ctx.Printer.Blank()
		ctx.Printer.Detail("%s", pkg.Name)
		ctx.Printer.Detail("  %s → %s%s", pkg.InstalledVersion, pkg.CurrentVersion, versionJumpNote(pkg))

		switch {
		case pkg.ChangelogURL != "":
			ctx.Printer.Detail("  %s", pkg.ChangelogURL)
		case pkg.Homepage != "":
			ctx.Printer.Detail("  %s", pkg.Homepage)
		}

		if ai := maybeAISummary(opts.NoAI, func() string {
			summary := fetchBrewCompareSummary(pkg)
			if summary == nil {
				return ""
			}
			return summarizeBrewChangeAI(pkg, summary)
		}); ai != "" {
			ctx.Printer.Detail("  ai summary: %s", ai)
		}
	}

	if opts.DryRun {
		return
	}

	ctx.Printer.Action("Upgrading %d Homebrew packages", len(outdated))
	ctx.Printer.Blank()

	args := []string{"upgrade"}
	for _, pkg := range outdated {
		args = append(args, pkg.Name)
	}
	code, err := cmdutil.RunStreaming("brew", args, "", func(line string) {
		ctx.Printer.StreamLine(line, streamIndent, 80)
	})
	ctx.Printer.Blank()
	switch {
	case err != nil:
		ctx.Printer.Error("%v", err)
	case code == 0:
		ctx.Printer.Success("Homebrew packages upgraded")
	default:
		ctx.Printer.Warn("Some Homebrew upgrades may have failed")
	}
}

// versionJumpNote flags major-version jumps, which deserve a closer look
// at the changelog before upgrading.
func versionJumpNote(pkg *brewOutdatedPackage) string {
	oldV, errOld := goversion.NewVersion(normalizeVersion(pkg.InstalledVersion))
	newV, errNew := goversion.NewVersion(normalizeVersion(pkg.CurrentVersion))
	if errOld != nil || errNew != nil {
		return ""
	}
	if len(oldV.Segments()) > 0 && len(newV.Segments()) > 0 && newV.Segments()[0] > oldV.Segments()[0] {
		return "  (major)"
	}
	return ""
}

// brewOutdated fetches outdated packages; empty on any brew failure, which
// skips the rest of the phase including metadata fetches.
func brewOutdated() []brewOutdatedPackage {
	out, err := cmdutil.RunCaptured("brew", []string{"outdated", "--json"}, "")
	if err != nil || out.Code != 0 {
		return nil
	}
	return parseBrewOutdatedJSON(out.Stdout)
}

func parseBrewOutdatedJSON(jsonStr string) []brewOutdatedPackage {
	var data struct {
		Formulae []struct {
			Name              string   `json:"name"`
			InstalledVersions []string `json:"installed_versions"`
			CurrentVersion    string   `json:"current_version"`
		} `json:"formulae"`
		Casks []struct {
			Name              string `json:"name"`
			InstalledVersions string `json:"installed_versions"`
			CurrentVersion    string `json:"current_version"`
		} `json:"casks"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return nil
	}

	var results []brewOutdatedPackage
	for _, formula := range data.Formulae {
		installed := ""
		if len(formula.InstalledVersions) > 0 {
			installed = formula.InstalledVersions[0]
		}
		if formula.Name == "" || installed == "" || formula.CurrentVersion == "" {
			continue
		}
		results = append(results, brewOutdatedPackage{
			Name:             formula.Name,
			InstalledVersion: installed,
			CurrentVersion:   formula.CurrentVersion,
		})
	}
	for _, cask := range data.Casks {
		if cask.Name == "" || cask.InstalledVersions == "" || cask.CurrentVersion == "" {
			continue
		}
		results = append(results, brewOutdatedPackage{
			Name:             cask.Name,
			InstalledVersion: cask.InstalledVersions,
			CurrentVersion:   cask.CurrentVersion,
			IsCask:           true,
		})
	}

	// Deterministic report order.
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// enrichBrewOutdated attaches homepage/description and changelog URLs,
// fetching formula and cask metadata concurrently.
func enrichBrewOutdated(packages []brewOutdatedPackage) []brewOutdatedPackage {
	if len(packages) == 0 {
		return packages
	}

	var formulae, casks []string
	for _, pkg := range packages {
		if pkg.IsCask {
			casks = append(casks, pkg.Name)
		} else {
			formulae = append(formulae, pkg.Name)
		}
	}

	var formulaMeta, caskMeta map[string]brewPackageMetadata
	var group errgroup.Group
	group.Go(func() error {
		formulaMeta = brewInfoMetadata(formulae, false)
		return nil
	})
	group.Go(func() error {
		caskMeta = brewInfoMetadata(casks, true)
		return nil
	})
	_ = group.Wait()

	for i := range packages {
		pkg := &packages[i]
		meta, ok := formulaMeta[pkg.Name]
		if pkg.IsCask {
			meta, ok = caskMeta[pkg.Name]
		}
		if ok {
			pkg.Homepage = meta.Homepage
			pkg.Description = meta.Description
		}
		pkg.ChangelogURL = brewCompareURL(pkg.Homepage, pkg.InstalledVersion, pkg.CurrentVersion)
	}
	return packages
}

func brewInfoMetadata(packageNames []string, isCask bool) map[string]brewPackageMetadata {
	if len(packageNames) == 0 {
		return map[string]brewPackageMetadata{}
	}

	args := []string{"info", "--json=v2"}
	if isCask {
		args = append(args, "--cask")
	}
	args = append(args, packageNames...)

	out, err := cmdutil.RunCaptured("brew", args, "")
	if err != nil || out.Code != 0 {
		return map[string]brewPackageMetadata{}
	}
	return parseBrewInfoJSON(out.Stdout, isCask)
}

func parseBrewInfoJSON(jsonStr string, isCask bool) map[string]brewPackageMetadata {
	var data struct {
		Formulae []map[string]any `json:"formulae"`
		Casks    []map[string]any `json:"casks"`
	}
	results := map[string]brewPackageMetadata{}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return results
	}

	entries, nameKey := data.Formulae, "name"
	if isCask {
		entries, nameKey = data.Casks, "token"
	}
	for _, entry := range entries {
		name, _ := entry[nameKey].(string)
		if name == "" {
			continue
		}
		homepage, _ := entry["homepage"].(string)
		desc, _ := entry["desc"].(string)
		results[name] = brewPackageMetadata{Homepage: homepage, Description: desc}
	}
	return results
}

func brewCompareURL(homepage, installedVersion, currentVersion string) string {
	owner, repo, ok := githubOwnerRepo(homepage)
	if !ok {
		return ""
	}
	oldV := normalizeVersion(installedVersion)
	newV := normalizeVersion(currentVersion)
	if oldV == "" || newV == "" {
		return ""
	}
	return "https://github.com/" + owner + "/" + repo + "/compare/" + oldV + "..." + newV
}

func githubOwnerRepo(url string) (owner, repo string, ok bool) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(url), "/")
	withoutScheme, found := strings.CutPrefix(trimmed, "https://")
	if !found {
		withoutScheme, found = strings.CutPrefix(trimmed, "http://")
	}
	if !found {
		return "", "", false
	}
	path, found := strings.CutPrefix(withoutScheme, "github.com/")
	if !found {
		return "", "", false
	}

	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 2 {
		return "", "", false
	}
	owner = strings.TrimSpace(parts[0])
	repoPart := strings.TrimSpace(parts[1])
	if owner == "" || repoPart == "" {
		return "", "", false
	}
	repoPart, _, _ = strings.Cut(repoPart, "?")
	repoPart, _, _ = strings.Cut(repoPart, "#")
	repo = strings.TrimSpace(strings.TrimSuffix(repoPart, ".git"))
	if repo == "" {
		return "", "", false
	}
	return owner, repo, true
}

func normalizeVersion(version string) string {
	return strings.TrimPrefix(strings.TrimSpace(version), "v")
}
