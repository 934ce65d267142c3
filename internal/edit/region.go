package edit

import "strings"

// Line-region helpers for the direct editor. All indices are 0-based line
// numbers; public results are converted to 1-based by the callers.

func splitLines(content string) []string {
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

// spliceInLine rebuilds content with newLine inserted before index
// insertAt, preserving the original trailing-newline behavior.
func spliceInLine(content string, lines []string, insertAt int, newLine string) string {
	var out strings.Builder
	out.Grow(len(content) + len(newLine) + 1)
	for _, line := range lines[:insertAt] {
		out.WriteString(line)
		out.WriteByte('\n')
	}
	out.WriteString(newLine)
	out.WriteByte('\n')
	for _, line := range lines[insertAt:] {
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return matchTrailingNewline(content, out.String())
}

func spliceOutLine(content string, lines []string, removeIdx int) string {
	var out strings.Builder
	out.Grow(len(content))
	for i, line := range lines {
		if i == removeIdx {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return matchTrailingNewline(content, out.String())
}

func matchTrailingNewline(original, rebuilt string) string {
	if !strings.HasSuffix(original, "\n") {
		return strings.TrimSuffix(rebuilt, "\n")
	}
	return rebuilt
}

// findBracketRegion locates the `[ ... ];` region opened on the line that
// contains key.
func findBracketRegion(content, key string) (start, end int, ok bool) {
	lines := splitLines(content)
	for i, line := range lines {
		if !strings.Contains(line, key) || !strings.Contains(line, "[") {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			if strings.Contains(lines[j], "];") {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// findTopLevelBrackets locates the bare `[` ... `]` list that homebrew
// manifests (brews.nix, casks.nix) consist of.
func findTopLevelBrackets(content string) (start, end int, ok bool) {
	lines := splitLines(content)
	startIdx := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") || strings.HasSuffix(trimmed, "[") {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return 0, 0, false
	}
	for j := startIdx + 1; j < len(lines); j++ {
		if strings.HasPrefix(strings.TrimSpace(lines[j]), "]") {
			return startIdx, j, true
		}
	}
	return 0, 0, false
}

// findMasAppsBlock locates the `masApps = { ... };` region.
func findMasAppsBlock(lines []string) (start, end int, ok bool) {
	for i, line := range lines {
		if !strings.Contains(line, "masApps") {
			continue
		}
		blockStart := -1
		if strings.Contains(line, "{") {
			blockStart = i
		} else {
			for j := i + 1; j < len(lines); j++ {
				if strings.Contains(lines[j], "{") {
					blockStart = j
					break
				}
			}
		}
		if blockStart < 0 {
			return 0, 0, false
		}
		for j := blockStart + 1; j < len(lines); j++ {
			if strings.Contains(lines[j], "};") {
				return blockStart, j, true
			}
		}
	}
	return 0, 0, false
}

// findAttrsetBlock locates `key = { ... };` by brace counting, rejecting
// dotted forms like `key.sub = ...`.
func findAttrsetBlock(lines []string, key string) (start, end int, ok bool) {
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, key) ||
			strings.HasPrefix(trimmed, key+".") ||
			!strings.Contains(line, "=") ||
			!strings.Contains(line, "{") {
			continue
		}
		depth := braceDelta(line)
		if depth <= 0 {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			depth += braceDelta(lines[j])
			if depth == 0 {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func braceDelta(line string) int {
	return strings.Count(line, "{") - strings.Count(line, "}")
}

// findWithPackagesBlock locates the `[ ... ]` list of
// `<interpreter>.withPackages (ps: [ ... ])`. Multiple interpreter blocks
// may exist in one manifest.
func findWithPackagesBlock(lines []string, interpreter string) (start, end int, ok bool) {
	pattern := interpreter + ".withPackages"
	for i, line := range lines {
		if !strings.Contains(line, pattern) {
			continue
		}
		listStart := -1
		if strings.Contains(line, "[") {
			listStart = i
		} else if i+1 < len(lines) && strings.Contains(lines[i+1], "[") {
			listStart = i + 1
		} else {
			continue
		}
		for j := listStart + 1; j < len(lines); j++ {
			trimmed := strings.TrimSpace(lines[j])
			if strings.HasPrefix(trimmed, "]") || strings.HasPrefix(trimmed, ")") || strings.Contains(trimmed, "]))") {
				return listStart, j, true
			}
		}
	}
	return 0, 0, false
}

func detectIndentInRegion(lines []string, start, end int, fallback string) string {
	for _, line := range lines[start+1 : end] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if indentLen := len(line) - len(strings.TrimLeft(line, " \t")); indentLen > 0 {
			return line[:indentLen]
		}
	}
	return fallback
}

func detectTopLevelIndent(lines []string, fallback string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") ||
			trimmed == "{" || trimmed == "}" || strings.HasSuffix(trimmed, ":") {
			continue
		}
		if indentLen := len(line) - len(strings.TrimLeft(line, " \t")); indentLen > 0 {
			return line[:indentLen]
		}
	}
	return fallback
}

// findTopLevelInsert picks the line of the final closing `}` so a new
// block lands inside the file's outermost attrset.
func findTopLevelInsert(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "}" {
			return i
		}
	}
	return len(lines)
}

// findAlphaPosition returns the line index where token sorts among the
// region's bare identifiers, skipping blanks and comment lines. Falls
// through to the closing bracket when token sorts last.
func findAlphaPosition(lines []string, start, end int, token string) int {
	tokenLower := strings.ToLower(token)
	for i := start; i < end; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		ident := extractBareIdent(trimmed)
		if ident != "" && strings.ToLower(ident) > tokenLower {
			return i
		}
	}
	return end
}

func findAlphaPositionQuoted(lines []string, start, end int, token string) int {
	tokenLower := strings.ToLower(token)
	for i := start; i < end; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if existing, ok := extractQuotedValue(trimmed); ok && strings.ToLower(existing) > tokenLower {
			return i
		}
	}
	return end
}

func findIdentLine(lines []string, start, end int, token string) (int, bool) {
	for i := start; i < end; i++ {
		if extractBareIdent(strings.TrimSpace(lines[i])) == token {
			return i, true
		}
	}
	return 0, false
}

func findQuotedLine(lines []string, start, end int, token string) (int, bool) {
	for i := start; i < end; i++ {
		if existing, ok := extractQuotedValue(strings.TrimSpace(lines[i])); ok && existing == token {
			return i, true
		}
	}
	return 0, false
}

func nixManifestContains(content, token string) bool {
	for _, line := range splitLines(content) {
		if extractBareIdent(strings.TrimSpace(line)) == token {
			return true
		}
	}
	return false
}

func langPackageContains(content, bareName, interpreter string) bool {
	lines := splitLines(content)
	blockStart, blockEnd, ok := findWithPackagesBlock(lines, interpreter)
	if !ok {
		return false
	}
	for i := blockStart; i < blockEnd; i++ {
		if extractBareIdent(strings.TrimSpace(lines[i])) == bareName {
			return true
		}
	}
	return false
}

func homebrewManifestContains(content, token string) bool {
	quoted := `"` + token + `"`
	for _, line := range splitLines(content) {
		beforeComment, _, _ := strings.Cut(strings.TrimSpace(line), "#")
		if strings.Contains(beforeComment, quoted) {
			return true
		}
	}
	return false
}

// extractBareIdent pulls the identifier off a manifest line, dropping any
// trailing `# comment`.
func extractBareIdent(trimmed string) string {
	beforeComment, _, _ := strings.Cut(trimmed, "#")
	fields := strings.Fields(beforeComment)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func extractQuotedValue(trimmed string) (string, bool) {
	start := strings.IndexByte(trimmed, '"')
	if start < 0 {
		return "", false
	}
	rest := trimmed[start+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
