package cri

import (
	"errors"
	"strings"
	"time"
)

var errFractionSeparator = errors.New("fractional seconds must follow '.'")

// Parse parses one CRI log line.
//
// Fields are consumed left to right and the first problem found is
// returned, so a line with both a bad timestamp and a bad stream reports
// the timestamp. Whitespace runs separate tokens; the message is the
// remaining tokens joined by single spaces and may be empty.
func Parse(line string) (*LogEntry, error) {
	fields := strings.Fields(line)

	if len(fields) < 1 {
		return nil, &ParseError{Kind: MissingTimestamp}
	}
	ts, err := parseTimestamp(fields[0])
	if err != nil {
		return nil, &ParseError{Kind: TimestampFormat, Value: fields[0], err: err}
	}

	if len(fields) < 2 {
		return nil, &ParseError{Kind: MissingStreamType}
	}
	stream, err := ParseStreamType(fields[1])
	if err != nil {
		return nil, &ParseError{Kind: InvalidStreamType, Value: fields[1]}
	}

	if len(fields) < 3 {
		return nil, &ParseError{Kind: MissingLogTag}
	}

	return &LogEntry{
		timestamp: ts,
		stream:    stream,
		tag:       fields[2],
		message:   strings.Join(fields[3:], " "),
	}, nil
}

// parseTimestamp parses an RFC 3339 timestamp. time.Parse also accepts a
// comma before the fraction and rejects a lowercase "t" or "z", both of
// which differ from RFC 3339 section 5.6.
func parseTimestamp(s string) (time.Time, error) {
	if len(s) > 19 && s[19] == ',' {
		return time.Time{}, errFractionSeparator
	}
	if len(s) > 10 && s[10] == 't' {
		s = s[:10] + "T" + s[11:]
	}
	if strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "Z"
	}
	return time.Parse(time.RFC3339Nano, s)
}
