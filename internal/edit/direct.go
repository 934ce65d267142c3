// Package edit applies install plans to manifests. The direct engine does
// deterministic line-based edits that preserve surrounding formatting and
// insert alphabetically when a conventional order is detectable.
package edit

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/b2nix/nx/internal/plan"
)

// Outcome reports what an engine did to the target file.
type Outcome struct {
	FileChanged bool
	LineNumber  int // 1-indexed; 0 when unchanged
}

// Apply inserts the plan's package into its target manifest. Idempotent:
// a token that is already present leaves the file untouched.
func Apply(p *plan.InstallPlan) (*Outcome, error) {
	return applyPlan(p, dispatchInsert)
}

// Remove deletes the plan's package from its target manifest. Idempotent
// in the same way.
func Remove(p *plan.InstallPlan) (*Outcome, error) {
	return applyPlan(p, dispatchRemove)
}

type transform func(content string, p *plan.InstallPlan) (string, int, error)

func applyPlan(p *plan.InstallPlan, apply transform) (*Outcome, error) {
	raw, err := os.ReadFile(p.TargetFile)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", p.TargetFile)
	}
	newContent, lineNumber, err := apply(string(raw), p)
	if err != nil {
		return nil, err
	}
	if lineNumber == 0 {
		return &Outcome{}, nil
	}
	if err := os.WriteFile(p.TargetFile, []byte(newContent), 0o644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", p.TargetFile)
	}
	return &Outcome{FileChanged: true, LineNumber: lineNumber}, nil
}

func dispatchInsert(content string, p *plan.InstallPlan) (string, int, error) {
	switch p.InsertionMode {
	case plan.NixManifest:
		return insertNixManifest(content, p.PackageToken)
	case plan.LanguageWithPackages:
		if p.LanguageInfo == nil {
			return "", 0, errors.New("invalid install plan: language info required for withPackages insertion")
		}
		return insertLanguagePackage(content, p.LanguageInfo.BareName, p.LanguageInfo.Interpreter)
	case plan.HomebrewManifest:
		return insertHomebrewManifest(content, p.PackageToken)
	case plan.MasApps:
		newContent, line := insertMasApp(content, p.PackageToken)
		return newContent, line, nil
	}
	return "", 0, errors.Errorf("unknown insertion mode %q", p.InsertionMode)
}

func dispatchRemove(content string, p *plan.InstallPlan) (string, int, error) {
	switch p.InsertionMode {
	case plan.NixManifest:
		return removeNixManifest(content, p.PackageToken)
	case plan.LanguageWithPackages:
		if p.LanguageInfo == nil {
			return "", 0, errors.New("invalid install plan: language info required for withPackages removal")
		}
		return removeLanguagePackage(content, p.LanguageInfo.BareName, p.LanguageInfo.Interpreter)
	case plan.HomebrewManifest:
		return removeHomebrewManifest(content, p.PackageToken)
	case plan.MasApps:
		return removeMasApp(content, p.PackageToken)
	}
	return "", 0, errors.Errorf("unknown insertion mode %q", p.InsertionMode)
}

// --- Inserters. Each returns (newContent, 1-indexed line) on insertion or
// (content, 0) when the token is already present.

func insertNixManifest(content, token string) (string, int, error) {
	if nixManifestContains(content, token) {
		return content, 0, nil
	}

	bracketStart, bracketEnd, ok := findBracketRegion(content, "home.packages")
	if !ok {
		bracketStart, bracketEnd, ok = findBracketRegion(content, "environment.systemPackages")
	}
	if !ok {
		return "", 0, errors.New("no home.packages or environment.systemPackages list found")
	}

	lines := splitLines(content)
	indent := detectIndentInRegion(lines, bracketStart, bracketEnd, "    ")
	insertAt := findAlphaPosition(lines, bracketStart+1, bracketEnd, token)
	return spliceInLine(content, lines, insertAt, indent+token), insertAt + 1, nil
}

func insertLanguagePackage(content, bareName, interpreter string) (string, int, error) {
	if langPackageContains(content, bareName, interpreter) {
		return content, 0, nil
	}

	lines := splitLines(content)
	blockStart, blockEnd, ok := findWithPackagesBlock(lines, interpreter)
	if !ok {
		return "", 0, errors.Errorf("no %s.withPackages block found", interpreter)
	}

	indent := detectIndentInRegion(lines, blockStart, blockEnd, "      ")
	insertAt := findAlphaPosition(lines, blockStart+1, blockEnd, bareName)
	return spliceInLine(content, lines, insertAt, indent+bareName), insertAt + 1, nil
}

func insertHomebrewManifest(content, token string) (string, int, error) {
	if homebrewManifestContains(content, token) {
		return content, 0, nil
	}

	bracketStart, bracketEnd, ok := findTopLevelBrackets(content)
	if !ok {
		return "", 0, errors.New("no bracket list found in homebrew manifest")
	}

	lines := splitLines(content)
	indent := detectIndentInRegion(lines, bracketStart, bracketEnd, "  ")
	insertAt := findAlphaPositionQuoted(lines, bracketStart+1, bracketEnd, token)
	return spliceInLine(content, lines, insertAt, indent+`"`+token+`"`), insertAt + 1, nil
}

// insertMasApp adds `"Name" = 0;` to the masApps attrset, creating the
// block (inside `homebrew = { ... }` when present, else at top level) if
// absent. The 0 is a placeholder: App Store ID lookup is outside
// deterministic editing scope.
func insertMasApp(content, token string) (string, int) {
	lines := splitLines(content)
	if blockStart, blockEnd, ok := findMasAppsBlock(lines); ok {
		if _, found := findQuotedLine(lines, blockStart+1, blockEnd, token); found {
			return content, 0
		}
		indent := detectIndentInRegion(lines, blockStart, blockEnd, "    ")
		insertAt := findAlphaPositionQuoted(lines, blockStart+1, blockEnd, token)
		return spliceInLine(content, lines, insertAt, indent+`"`+token+`" = 0;`), insertAt + 1
	}

	if start, end, ok := findAttrsetBlock(lines, "homebrew"); ok {
		indent := detectIndentInRegion(lines, start, end, "    ")
		return insertMasBlock(content, lines, token, end, indent+"masApps = {", indent+"  ")
	}

	indent := detectTopLevelIndent(lines, "  ")
	insertAt := findTopLevelInsert(lines)
	return insertMasBlock(content, lines, token, insertAt, indent+"homebrew.masApps = {", indent+"  ")
}

func insertMasBlock(content string, lines []string, token string, insertAt int, keyLine, itemIndent string) (string, int) {
	entryLine := itemIndent + `"` + token + `" = 0;`
	closeIndent := itemIndent[:max(0, len(itemIndent)-2)]
	block := []string{keyLine, entryLine, closeIndent + "};"}

	var out strings.Builder
	for _, line := range lines[:insertAt] {
		out.WriteString(line)
		out.WriteByte('\n')
	}
	for _, line := range block {
		out.WriteString(line)
		out.WriteByte('\n')
	}
	for _, line := range lines[insertAt:] {
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return matchTrailingNewline(content, out.String()), insertAt + 2
}

// --- Removers. Each returns (newContent, 1-indexed line) on removal or
// (content, 0) when the token is absent.

func removeNixManifest(content, token string) (string, int, error) {
	if !nixManifestContains(content, token) {
		return content, 0, nil
	}

	bracketStart, bracketEnd, ok := findBracketRegion(content, "home.packages")
	if !ok {
		bracketStart, bracketEnd, ok = findBracketRegion(content, "environment.systemPackages")
	}
	if !ok {
		return "", 0, errors.New("no home.packages or environment.systemPackages list found")
	}

	lines := splitLines(content)
	idx, found := findIdentLine(lines, bracketStart+1, bracketEnd, token)
	if !found {
		return content, 0, nil
	}
	return spliceOutLine(content, lines, idx), idx + 1, nil
}

func removeLanguagePackage(content, bareName, interpreter string) (string, int, error) {
	if !langPackageContains(content, bareName, interpreter) {
		return content, 0, nil
	}

	lines := splitLines(content)
	blockStart, blockEnd, ok := findWithPackagesBlock(lines, interpreter)
	if !ok {
		return "", 0, errors.Errorf("no %s.withPackages block found", interpreter)
	}
	idx, found := findIdentLine(lines, blockStart+1, blockEnd, bareName)
	if !found {
		return content, 0, nil
	}
	return spliceOutLine(content, lines, idx), idx + 1, nil
}

func removeHomebrewManifest(content, token string) (string, int, error) {
	if !homebrewManifestContains(content, token) {
		return content, 0, nil
	}

	bracketStart, bracketEnd, ok := findTopLevelBrackets(content)
	if !ok {
		return "", 0, errors.New("no bracket list found in homebrew manifest")
	}
	lines := splitLines(content)
	idx, found := findQuotedLine(lines, bracketStart+1, bracketEnd, token)
	if !found {
		return content, 0, nil
	}
	return spliceOutLine(content, lines, idx), idx + 1, nil
}

func removeMasApp(content, token string) (string, int, error) {
	lines := splitLines(content)
	blockStart, blockEnd, ok := findMasAppsBlock(lines)
	if !ok {
		return content, 0, nil
	}
	idx, found := findQuotedLine(lines, blockStart+1, blockEnd, token)
	if !found {
		return content, 0, nil
	}
	return spliceOutLine(content, lines, idx), idx + 1, nil
}
