// Package detector checks whether a log file is in CRI format.
package detector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ccollicutt/crilog/pkg/cri"
)

// DefaultThreshold is the fraction of sampled lines that must parse for a
// file to count as CRI.
const DefaultThreshold = 0.9

// DetectionResult holds the result of analyzing a sample of lines.
type DetectionResult struct {
	SampledLines int     // Number of non-blank lines sampled
	ParsedLines  int     // Number of lines cri.Parse accepted
	Confidence   float64 // ParsedLines / SampledLines
	Threshold    float64 // Confidence needed for IsCRI

	Stdout  int
	Stderr  int
	Partial int

	// Failures groups rejected lines by parse error kind, most frequent first.
	Failures []KindCount

	// Hints lists known non-CRI formats matched by rejected lines, most
	// frequent first.
	Hints []FormatMatch

	// SampleLine is the first line that parsed, if any.
	SampleLine string
	// SampleEntry is SampleLine parsed.
	SampleEntry *cri.LogEntry
}

// KindCount is the number of sampled lines rejected with one error kind.
type KindCount struct {
	Kind    cri.ErrorKind
	Count   int
	Example string // First line rejected with this kind
	Error   string // Error returned for Example
}

// FormatMatch is a known non-CRI format that matched rejected lines.
type FormatMatch struct {
	Format     *KnownFormat
	MatchCount int
	SampleLine string
}

// IsCRI reports whether the sample met the confidence threshold.
func (r *DetectionResult) IsCRI() bool {
	return r.SampledLines > 0 && r.Confidence >= r.Threshold
}

// BestHint returns the most frequent non-CRI format match, or nil.
func (r *DetectionResult) BestHint() *FormatMatch {
	if len(r.Hints) == 0 {
		return nil
	}
	return &r.Hints[0]
}

// Detector samples log lines and runs them through cri.Parse.
type Detector struct {
	formats    []*KnownFormat
	sampleSize int
	threshold  float64
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithThreshold sets the confidence needed for IsCRI (default 0.9).
func WithThreshold(t float64) Option {
	return func(d *Detector) {
		if t > 0 && t <= 1 {
			d.threshold = t
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: 100,
		threshold:  DefaultThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SampleSize returns the configured number of lines to sample.
func (d *Detector) SampleSize() int {
	return d.sampleSize
}

// DetectFromFile samples a log file and returns the detection result.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines analyzes a slice of log lines. Blank lines are ignored
// and at most the sample size is examined.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{Threshold: d.threshold}

	failures := make(map[cri.ErrorKind]*KindCount)
	hints := make(map[string]*FormatMatch)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if result.SampledLines >= d.sampleSize {
			break
		}
		result.SampledLines++

		entry, err := cri.Parse(line)
		if err == nil {
			result.ParsedLines++
			switch {
			case entry.IsStdout():
				result.Stdout++
			case entry.IsStderr():
				result.Stderr++
			}
			if entry.IsPartial() {
				result.Partial++
			}
			if result.SampleEntry == nil {
				result.SampleLine = line
				result.SampleEntry = entry
			}
			continue
		}

		kind := cri.ErrorKind(0)
		if perr, ok := err.(*cri.ParseError); ok {
			kind = perr.Kind
		}
		if failures[kind] == nil {
			failures[kind] = &KindCount{Kind: kind, Example: line, Error: err.Error()}
		}
		failures[kind].Count++

		for _, format := range d.formats {
			if !format.Pattern.MatchString(line) {
				continue
			}
			if hints[format.Name] == nil {
				hints[format.Name] = &FormatMatch{Format: format, SampleLine: line}
			}
			hints[format.Name].MatchCount++
		}
	}

	if result.SampledLines > 0 {
		result.Confidence = float64(result.ParsedLines) / float64(result.SampledLines)
	}

	for _, f := range failures {
		result.Failures = append(result.Failures, *f)
	}
	sort.Slice(result.Failures, func(i, j int) bool {
		if result.Failures[i].Count != result.Failures[j].Count {
			return result.Failures[i].Count > result.Failures[j].Count
		}
		return result.Failures[i].Kind < result.Failures[j].Kind
	})

	for _, h := range hints {
		result.Hints = append(result.Hints, *h)
	}
	sort.Slice(result.Hints, func(i, j int) bool {
		if result.Hints[i].MatchCount != result.Hints[j].MatchCount {
			return result.Hints[i].MatchCount > result.Hints[j].MatchCount
		}
		// For the same count, prefer longer patterns (more specific)
		return len(result.Hints[i].Format.PatternStr) > len(result.Hints[j].Format.PatternStr)
	})

	return result
}

// sampleFile reads up to sampleSize non-blank lines from a file.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	// #nosec G304 - path is provided by user via CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for len(lines) < d.sampleSize && scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return lines, nil
}
