// Package parser feeds CRI log files and streams through cri.Parse one line
// at a time.
package parser

import (
	"fmt"

	"github.com/ccollicutt/crilog/pkg/cri"
)

// ParsedLine is a successfully parsed line with its location.
type ParsedLine struct {
	// Entry is the parsed CRI entry.
	Entry *cri.LogEntry

	// Source is the file path (or stream name) this line came from.
	Source string

	// LineNum is the 1-based line number in the source.
	LineNum int
}

// LineError describes a line that cri.Parse rejected.
type LineError struct {
	Source  string
	LineNum int
	Raw     string

	// Err is the *cri.ParseError returned for the line.
	Err error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.LineNum, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Kind returns the parse error kind, or 0 if Err is not a *cri.ParseError.
func (e *LineError) Kind() cri.ErrorKind {
	if perr, ok := e.Err.(*cri.ParseError); ok {
		return perr.Kind
	}
	return 0
}

// ErrorHandler decides what happens to a malformed line. Returning nil
// skips the line; returning an error stops the source and Next returns it.
type ErrorHandler func(*LineError) error

// FailOnError is an ErrorHandler that stops at the first malformed line.
func FailOnError(e *LineError) error {
	return e
}
