package nxcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/b2nix/nx/internal/fileutil"
)

type snippetMode int

const (
	snippetAdd snippetMode = iota
	snippetRemove
)

// relativeLocation renders a location relative to the repo root for
// display.
func relativeLocation(loc fileutil.Location, repoRoot string) string {
	return loc.Relative(repoRoot).String()
}

// showSnippet prints a boxed excerpt of the manifest around lineNum, with
// a +/- marker on the target line.
func showSnippet(filePath string, lineNum, context int, mode snippetMode, preview bool) {
	if lineNum == 0 {
		return
	}
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return
	}

	lines := strings.Split(string(raw), "\n")
	start := lineNum - context - 1
	if start < 0 {
		start = 0
	}
	end := lineNum + context
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return
	}

	fileName := filepath.Base(filePath)
	headerSuffix := ""
	if preview {
		headerSuffix = " (preview)"
	}

	fmt.Println()
	fmt.Printf("  ┌── %s%s ───\n", fileName, headerSuffix)
	for offset, line := range lines[start:end] {
		number := start + offset + 1
		marker := " "
		if number == lineNum {
			if mode == snippetAdd {
				marker = "+"
			} else {
				marker = "-"
			}
		}
		fmt.Printf("  │ %s %4d │ %s\n", marker, number, line)
	}
	fmt.Printf("  └%s\n", strings.Repeat("─", 40))
}
