package parser

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ccollicutt/crilog/pkg/cri"
)

// LogSource provides an iterator over parsed CRI lines.
// Implementations must be safe for sequential access (not concurrent).
type LogSource interface {
	// Next returns the next parsed line.
	// Returns io.EOF when no more lines are available.
	// Malformed lines go to the source's ErrorHandler.
	Next(ctx context.Context) (*ParsedLine, error)

	// Close releases any resources held by the source.
	Close() error
}

// Option configures a FileSource or ReaderSource.
type Option func(*lineParser)

// WithErrorHandler sets the policy for malformed lines (default: skip).
func WithErrorHandler(h ErrorHandler) Option {
	return func(p *lineParser) {
		p.onError = h
	}
}

// lineParser is the per-line step shared by the sources.
type lineParser struct {
	onError ErrorHandler
}

func newLineParser(opts []Option) *lineParser {
	p := &lineParser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// parse returns (nil, nil) for lines that should be skipped.
func (p *lineParser) parse(raw, source string, lineNum int) (*ParsedLine, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	entry, err := cri.Parse(raw)
	if err == nil {
		return &ParsedLine{Entry: entry, Source: source, LineNum: lineNum}, nil
	}

	lineErr := &LineError{Source: source, LineNum: lineNum, Raw: raw, Err: err}
	if p.onError != nil {
		if herr := p.onError(lineErr); herr != nil {
			return nil, herr
		}
	}

	log.Debug().
		Str("source", source).
		Int("line", lineNum).
		Err(err).
		Msg("skipping malformed CRI line")
	return nil, nil
}
