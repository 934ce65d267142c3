// Package usererr carries errors meant to be shown to the user verbatim,
// together with the process exit code the command layer should return.
package usererr

import (
	"fmt"

	"github.com/pkg/errors"
)

type combined struct {
	source      error
	userMessage string
	exitCode    int
}

// New creates a user error that exits with code 1.
func New(msg string, args ...any) error {
	return errors.WithStack(&combined{
		userMessage: fmt.Sprintf(msg, args...),
		exitCode:    1,
	})
}

// NewArgError creates a parser-shaped error that exits with code 2
// (missing or invalid arguments).
func NewArgError(msg string, args ...any) error {
	return errors.WithStack(&combined{
		userMessage: fmt.Sprintf(msg, args...),
		exitCode:    2,
	})
}

// WithUserMessage wraps source so the user sees msg instead of the raw chain.
func WithUserMessage(source error, msg string, args ...any) error {
	if source == nil {
		return nil
	}
	return &combined{
		source:      source,
		userMessage: fmt.Sprintf(msg, args...),
		exitCode:    1,
	}
}

func HasUserMessage(err error) bool {
	c := &combined{}
	return errors.As(err, &c) // note double pointer
}

// ExitCode extracts the exit code carried by err, defaulting to 1 for any
// non-nil error and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	c := &combined{}
	if errors.As(err, &c) {
		return c.exitCode
	}
	return 1
}

func (c *combined) Error() string {
	if c.source == nil {
		return c.userMessage
	}
	return c.userMessage + ": " + c.source.Error()
}

// Is uses the source error for comparisons.
func (c *combined) Is(target error) bool {
	return errors.Is(c.source, target)
}

func (c *combined) Unwrap() error { return errors.Cause(c.source) }
