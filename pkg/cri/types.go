// Package cri parses container runtime (CRI) log lines.
//
// A CRI log line has the form:
//
//	2016-10-06T00:17:09.669794202Z stdout P log content 1
//
// i.e. an RFC 3339 timestamp, the stream the line was written to, a tag
// (F for a full line, P for a partial one) and the message.
package cri

import (
	"fmt"
	"strings"
	"time"
)

// StreamType identifies the process stream that produced a log line.
type StreamType int

const (
	Stdout StreamType = iota
	Stderr
)

// String returns the CRI token for the stream.
func (s StreamType) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// ParseStreamType maps a CRI stream token to a StreamType.
// Matching is case-sensitive.
func ParseStreamType(s string) (StreamType, error) {
	switch s {
	case "stdout":
		return Stdout, nil
	case "stderr":
		return Stderr, nil
	default:
		return 0, fmt.Errorf("unknown stream type %q", s)
	}
}

// Conventional CRI tags.
const (
	TagFull    = "F"
	TagPartial = "P"
)

// LogEntry is a single parsed CRI log line. It is immutable once returned
// by Parse.
type LogEntry struct {
	timestamp time.Time
	stream    StreamType
	tag       string
	message   string
}

// Timestamp returns the entry timestamp with its original UTC offset.
func (e *LogEntry) Timestamp() time.Time {
	return e.timestamp
}

// Stream returns the stream the entry was written to.
func (e *LogEntry) Stream() StreamType {
	return e.stream
}

// IsStdout reports whether the entry came from stdout.
func (e *LogEntry) IsStdout() bool {
	return e.stream == Stdout
}

// IsStderr reports whether the entry came from stderr.
func (e *LogEntry) IsStderr() bool {
	return e.stream == Stderr
}

// Tag returns the tag token verbatim.
func (e *LogEntry) Tag() string {
	return e.tag
}

// IsPartial reports whether the entry carries the partial-line tag.
func (e *LogEntry) IsPartial() bool {
	return e.tag == TagPartial
}

// IsFull reports whether the entry carries the full-line tag.
func (e *LogEntry) IsFull() bool {
	return e.tag == TagFull
}

// Message returns the message text.
func (e *LogEntry) Message() string {
	return e.message
}

// String renders the entry back into CRI line form.
func (e *LogEntry) String() string {
	var sb strings.Builder
	sb.WriteString(e.timestamp.Format(time.RFC3339Nano))
	sb.WriteByte(' ')
	sb.WriteString(e.stream.String())
	sb.WriteByte(' ')
	sb.WriteString(e.tag)
	if e.message != "" {
		sb.WriteByte(' ')
		sb.WriteString(e.message)
	}
	return sb.String()
}
