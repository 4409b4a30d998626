// Package output provides report building and formatting for parsed CRI logs.
package output

import (
	"time"

	"github.com/ccollicutt/crilog/pkg/cri"
	"github.com/ccollicutt/crilog/pkg/parser"
)

// Report is the complete output of a parse run.
type Report struct {
	Summary  Summary     `json:"summary"`
	Entries  []Entry     `json:"entries"`
	Errors   []LineFault `json:"errors"`
	Metadata Metadata    `json:"metadata"`

	summaryOnly bool
}

// Entry is the serialized form of a parsed line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Stream    string    `json:"stream"`
	Tag       string    `json:"tag"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Line      int       `json:"line"`

	entry *cri.LogEntry
}

// LogEntry returns the parsed entry this record was built from. It is nil
// for records decoded from JSON.
func (e *Entry) LogEntry() *cri.LogEntry {
	return e.entry
}

// LineFault records a malformed line.
type LineFault struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Kind   string `json:"kind"`
	Value  string `json:"value,omitempty"`
	Error  string `json:"error"`
	Raw    string `json:"raw"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// LinesParsed is the number of lines that parsed successfully and
	// passed any filters.
	LinesParsed int `json:"lines_parsed"`

	Stdout  int `json:"stdout"`
	Stderr  int `json:"stderr"`
	Partial int `json:"partial"`

	// Malformed is the number of lines rejected by the parser.
	Malformed int `json:"malformed"`

	// MalformedByKind counts malformed lines per parse error kind.
	MalformedByKind map[string]int `json:"malformed_by_kind,omitempty"`
}

// Metadata provides context about the run.
type Metadata struct {
	ConfigFile string        `json:"config_file,omitempty"`
	Sources    []string      `json:"sources"`
	Since      *time.Time    `json:"since,omitempty"`
	ParsedAt   time.Time     `json:"parsed_at"`
	Duration   time.Duration `json:"duration"`
}

// NewReport creates an empty report for the given sources.
func NewReport(sources []string, configFile string) *Report {
	return &Report{
		Entries: []Entry{},
		Errors:  []LineFault{},
		Metadata: Metadata{
			ConfigFile: configFile,
			Sources:    sources,
		},
	}
}

// SummaryOnly stops the report from keeping entries. Counts and malformed
// lines are still recorded.
func (r *Report) SummaryOnly() {
	r.summaryOnly = true
	r.Entries = r.Entries[:0]
}

// AddLine records a parsed line.
func (r *Report) AddLine(line *parser.ParsedLine) {
	e := line.Entry
	if !r.summaryOnly {
		r.Entries = append(r.Entries, Entry{
			Timestamp: e.Timestamp(),
			Stream:    e.Stream().String(),
			Tag:       e.Tag(),
			Message:   e.Message(),
			Source:    line.Source,
			Line:      line.LineNum,
			entry:     e,
		})
	}

	r.Summary.LinesParsed++
	if e.IsStdout() {
		r.Summary.Stdout++
	} else {
		r.Summary.Stderr++
	}
	if e.IsPartial() {
		r.Summary.Partial++
	}
}

// AddError records a malformed line.
func (r *Report) AddError(lineErr *parser.LineError) {
	fault := LineFault{
		Source: lineErr.Source,
		Line:   lineErr.LineNum,
		Kind:   lineErr.Kind().String(),
		Error:  lineErr.Err.Error(),
		Raw:    lineErr.Raw,
	}
	if perr, ok := lineErr.Err.(*cri.ParseError); ok {
		fault.Value = perr.Value
	}
	r.Errors = append(r.Errors, fault)

	r.Summary.Malformed++
	if r.Summary.MalformedByKind == nil {
		r.Summary.MalformedByKind = make(map[string]int)
	}
	r.Summary.MalformedByKind[fault.Kind]++
}

// Finish stamps the run time and duration.
func (r *Report) Finish(start time.Time) {
	r.Metadata.ParsedAt = time.Now()
	r.Metadata.Duration = r.Metadata.ParsedAt.Sub(start)
}

// HasErrors returns true if any malformed lines were recorded.
func (r *Report) HasErrors() bool {
	return r.Summary.Malformed > 0
}
