package output

import (
	"context"
	"fmt"
	"io"
)

// RawFormatter writes entries back out as CRI lines, one per line. Lines
// that failed to parse are not written. Useful for normalizing whitespace
// or for merging several container logs into one CRI stream.
type RawFormatter struct {
	opts FormatOptions
}

// NewRawFormatter creates a new raw formatter.
func NewRawFormatter(opts FormatOptions) *RawFormatter {
	return &RawFormatter{opts: opts}
}

// Name returns the format name.
func (f *RawFormatter) Name() string {
	return "raw"
}

// Format renders each entry with cri.LogEntry.String.
func (f *RawFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return nil
	}
	for i := range report.Entries {
		e := &report.Entries[i]
		if e.entry == nil {
			return fmt.Errorf("entry %s:%d has no parsed form", e.Source, e.Line)
		}
		if _, err := fmt.Fprintln(w, e.entry.String()); err != nil {
			return err
		}
	}
	return nil
}
