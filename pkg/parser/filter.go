package parser

import (
	"context"
	"time"

	"github.com/ccollicutt/crilog/pkg/cri"
)

// FilterOptions selects which entries a FilteredSource passes through.
// Zero values disable the corresponding check.
type FilterOptions struct {
	Streams []cri.StreamType
	Tags    []string
	Since   time.Time
}

// FilteredSource wraps a LogSource and drops entries not selected by its
// options.
type FilteredSource struct {
	src     LogSource
	streams map[cri.StreamType]bool
	tags    map[string]bool
	since   time.Time
}

// NewFilteredSource wraps src with the given filter.
func NewFilteredSource(src LogSource, opts FilterOptions) *FilteredSource {
	f := &FilteredSource{src: src, since: opts.Since}
	if len(opts.Streams) > 0 {
		f.streams = make(map[cri.StreamType]bool, len(opts.Streams))
		for _, s := range opts.Streams {
			f.streams[s] = true
		}
	}
	if len(opts.Tags) > 0 {
		f.tags = make(map[string]bool, len(opts.Tags))
		for _, t := range opts.Tags {
			f.tags[t] = true
		}
	}
	return f
}

// Next returns the next selected line.
func (f *FilteredSource) Next(ctx context.Context) (*ParsedLine, error) {
	for {
		line, err := f.src.Next(ctx)
		if err != nil {
			return nil, err
		}
		if f.accept(line.Entry) {
			return line, nil
		}
	}
}

// Close closes the wrapped source.
func (f *FilteredSource) Close() error {
	return f.src.Close()
}

func (f *FilteredSource) accept(e *cri.LogEntry) bool {
	if f.streams != nil && !f.streams[e.Stream()] {
		return false
	}
	if f.tags != nil && !f.tags[e.Tag()] {
		return false
	}
	if !f.since.IsZero() && e.Timestamp().Before(f.since) {
		return false
	}
	return true
}
