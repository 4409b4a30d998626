package output

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatSummary(report, w)
	}

	for i := range report.Entries {
		f.formatEntry(&report.Entries[i], w)
	}

	if len(report.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Malformed lines: %d\n", len(report.Errors))
		for _, fault := range report.Errors {
			fmt.Fprintf(w, "  - %s:%d: %s\n", fault.Source, fault.Line, fault.Error)
		}
	}

	fmt.Fprintln(w, "---")
	return f.formatSummary(report, w)
}

func (f *TextFormatter) formatEntry(e *Entry, w io.Writer) {
	fmt.Fprintf(w, "%s [%s] %s %s\n",
		e.Timestamp.Format(time.RFC3339Nano), e.Stream, e.Tag, e.Message)
	if f.opts.Verbose {
		fmt.Fprintf(w, "    Source: %s:%d\n", e.Source, e.Line)
	}
}

func (f *TextFormatter) formatSummary(report *Report, w io.Writer) error {
	s := report.Summary
	fmt.Fprintf(w, "Summary: %d lines parsed (%d stdout, %d stderr, %d partial), %d malformed\n",
		s.LinesParsed, s.Stdout, s.Stderr, s.Partial, s.Malformed)

	if s.Malformed > 0 {
		kinds := make([]string, 0, len(s.MalformedByKind))
		for k := range s.MalformedByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", k, s.MalformedByKind[k])
		}
	}

	if f.opts.Verbose && !f.opts.Quiet {
		fmt.Fprintf(w, "Sources: %d\n", len(report.Metadata.Sources))
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(time.Millisecond))
	}

	return nil
}
