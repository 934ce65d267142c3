package lock

import (
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// InputEditResult reports what AddFlakeInput did.
type InputEditResult struct {
	InputName string
	Added     bool // false when the input already existed (no-op)
}

var (
	inputsOpeningRe = regexp.MustCompile(`\binputs\s*=\s*\{`)
	flakeAttrRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// AddFlakeInput inserts `<name>.url = "<url>";` into flake.nix's inputs
// block. Idempotent: a second call with the same input is a no-op.
func AddFlakeInput(flakePath, flakeURL, inputName string) (*InputEditResult, error) {
	raw, err := os.ReadFile(flakePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("flake.nix not found")
		}
		return nil, errors.Wrapf(err, "reading %s", flakePath)
	}
	content := string(raw)

	resolved := inputName
	if resolved == "" {
		resolved = deriveInputName(flakeURL)
	}

	if inputExists(content, resolved) {
		return &InputEditResult{InputName: resolved, Added: false}, nil
	}

	trailingNewline := strings.HasSuffix(content, "\n")
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	startIdx := -1
	for idx, line := range lines {
		if inputsOpeningRe.MatchString(line) {
			startIdx = idx
			break
		}
	}
	if startIdx < 0 {
		return nil, errors.New("inputs block not found")
	}
	endIdx, ok := findBlockEnd(lines, startIdx)
	if !ok {
		return nil, errors.New("inputs block end not found")
	}

	baseIndent := lines[startIdx][:len(lines[startIdx])-len(strings.TrimLeft(lines[startIdx], " \t"))]
	newLine := baseIndent + "  " + formatInputAttr(resolved) + `.url = "` + flakeURL + `";`
	lines = append(lines[:endIdx], append([]string{newLine}, lines[endIdx:]...)...)

	updated := strings.Join(lines, "\n")
	if trailingNewline {
		updated += "\n"
	}
	if err := os.WriteFile(flakePath, []byte(updated), 0o644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", flakePath)
	}

	return &InputEditResult{InputName: resolved, Added: true}, nil
}

func inputExists(content, inputName string) bool {
	escaped := regexp.QuoteMeta(inputName)
	pattern := regexp.MustCompile(`(?m)^\s*("` + escaped + `"|` + escaped + `)\.url\s*=`)
	return pattern.MatchString(content)
}

func findBlockEnd(lines []string, startIdx int) (int, bool) {
	depth := 0
	for idx := startIdx; idx < len(lines); idx++ {
		depth += strings.Count(lines[idx], "{")
		depth -= strings.Count(lines[idx], "}")
		if depth == 0 && idx > startIdx {
			return idx, true
		}
	}
	return 0, false
}

// deriveInputName guesses a stable input name from a flake URL:
// flakehub.com/f/<org>/<name> takes <name>, github:owner/repo takes repo.
func deriveInputName(flakeURL string) string {
	url := strings.TrimSuffix(strings.TrimSpace(flakeURL), "/")
	name := ""

	if strings.Contains(url, "flakehub.com") {
		parts := strings.Split(url, "/")
		for idx, part := range parts {
			if part == "f" && idx+2 < len(parts) {
				name = parts[idx+2]
				break
			}
		}
	}

	if name == "" && strings.Contains(url, ":") && strings.Contains(url, "/") {
		_, suffix, _ := strings.Cut(url, ":")
		if idx := strings.LastIndexByte(suffix, '/'); idx >= 0 {
			name = suffix[idx+1:]
		} else {
			name = suffix
		}
	}

	if name == "" {
		if idx := strings.LastIndexByte(url, '/'); idx >= 0 {
			name = url[idx+1:]
		} else {
			name = url
		}
	}

	var normalized strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'A' && ch <= 'Z':
			normalized.WriteRune(ch + ('a' - 'A'))
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '_', ch == '.', ch == '-':
			normalized.WriteRune(ch)
		default:
			normalized.WriteRune('-')
		}
	}
	trimmed := strings.Trim(normalized.String(), "-")
	if trimmed == "" {
		return "input"
	}
	return trimmed
}

func formatInputAttr(name string) string {
	if flakeAttrRe.MatchString(name) {
		return name
	}
	return `"` + name + `"`
}
