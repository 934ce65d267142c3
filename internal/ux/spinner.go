package ux

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// SearchSpinner returns a started spinner for long searches, or a stop
// func that does nothing when output is plain, minimal, or not a TTY.
func SearchSpinner(style Style, suffix string) (stop func()) {
	if style.Plain || style.Minimal || !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}
