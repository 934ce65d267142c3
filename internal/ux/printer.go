// Package ux renders nx's terminal output: glyph-prefixed status lines,
// indented command streams, and interactive prompts.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/b2nix/nx/internal/envir"
)

type glyphSet struct {
	action  string
	success string
	warn    string
	err     string
	dryRun  string
}

var (
	unicodeGlyphs = glyphSet{action: "➜", success: "✔", warn: "!", err: "✘", dryRun: "~"}
	minimalGlyphs = glyphSet{action: ">", success: "+", warn: "!", err: "x", dryRun: "~"}
)

// Style controls glyph selection and color. Plain wins over Unicode.
type Style struct {
	Plain   bool
	Unicode bool
	Minimal bool
}

// StyleFromEnv applies NO_COLOR and TTY detection on top of the flags.
func StyleFromEnv(plain, unicode, minimal bool) Style {
	if envir.NoColorRequested() || !isatty.IsTerminal(os.Stdout.Fd()) {
		plain = true
	}
	return Style{Plain: plain, Unicode: unicode, Minimal: minimal}
}

type Printer struct {
	style Style
	out   io.Writer
	errW  io.Writer
}

func NewPrinter(style Style) *Printer {
	if style.Plain {
		color.NoColor = true
	}
	return &Printer{style: style, out: os.Stdout, errW: os.Stderr}
}

// NewPrinterTo is used by tests to capture output.
func NewPrinterTo(style Style, out, errW io.Writer) *Printer {
	return &Printer{style: style, out: out, errW: errW}
}

func (p *Printer) glyphs() glyphSet {
	if p.style.Unicode && !p.style.Plain {
		return unicodeGlyphs
	}
	return minimalGlyphs
}

func (p *Printer) Minimal() bool { return p.style.Minimal }

func (p *Printer) Action(format string, a ...any) {
	fmt.Fprintf(p.out, "\n%s %s\n", p.glyphs().action, fmt.Sprintf(format, a...))
}

func (p *Printer) Success(format string, a ...any) {
	color.New(color.FgHiGreen).Fprint(p.out, p.glyphs().success)
	fmt.Fprintf(p.out, " %s\n", fmt.Sprintf(format, a...))
}

func (p *Printer) Warn(format string, a ...any) {
	if p.style.Minimal {
		return
	}
	color.New(color.FgHiYellow).Fprint(p.errW, p.glyphs().warn)
	fmt.Fprintf(p.errW, " %s\n", fmt.Sprintf(format, a...))
}

func (p *Printer) Error(format string, a ...any) {
	color.New(color.FgHiRed).Fprint(p.errW, p.glyphs().err)
	fmt.Fprintf(p.errW, " %s\n", fmt.Sprintf(format, a...))
}

func (p *Printer) DryRunBanner() {
	fmt.Fprintf(p.out, "\n%s Dry Run (no changes will be made)\n", p.glyphs().dryRun)
}

func (p *Printer) Detail(format string, a ...any) {
	fmt.Fprintf(p.out, "  %s\n", fmt.Sprintf(format, a...))
}

func (p *Printer) Blank() {
	fmt.Fprintln(p.out)
}

// StreamLine prints one line of child-process output, wrapping long lines
// and repeating the indent on continuations.
func (p *Printer) StreamLine(text, indent string, width int) {
	trimmed := strings.TrimRight(text, " \t")
	if trimmed == "" {
		fmt.Fprintln(p.out)
		return
	}
	maxContent := width - len(indent)
	if maxContent < 20 {
		maxContent = 20
	}
	for _, segment := range wrappedSegments(trimmed, maxContent) {
		fmt.Fprintf(p.out, "%s%s\n", indent, segment)
	}
}

func wrappedSegments(line string, maxContent int) []string {
	runes := []rune(line)
	if len(runes) <= maxContent {
		return []string{line}
	}

	var out []string
	for len(runes) > maxContent {
		split := maxContent
		for i := maxContent; i > 0; i-- {
			if runes[i] == ' ' {
				split = i
				break
			}
		}
		if split == 0 {
			split = 1
		}
		out = append(out, strings.TrimRight(string(runes[:split]), " "))
		rest := strings.TrimLeft(string(runes[split:]), " ")
		if rest == "" {
			return out
		}
		runes = []rune(rest)
	}
	return append(out, string(runes))
}
