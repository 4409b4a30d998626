package cri

import "errors"

// ErrorKind classifies why a line could not be parsed.
type ErrorKind int

const (
	MissingTimestamp ErrorKind = iota + 1
	TimestampFormat
	MissingStreamType
	InvalidStreamType
	MissingLogTag
)

// String returns the snake_case name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case MissingTimestamp:
		return "missing_timestamp"
	case TimestampFormat:
		return "timestamp_format"
	case MissingStreamType:
		return "missing_stream_type"
	case InvalidStreamType:
		return "invalid_stream_type"
	case MissingLogTag:
		return "missing_log_tag"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per ErrorKind. A *ParseError matches the sentinel of
// its kind with errors.Is.
var (
	ErrMissingTimestamp  = errors.New("missing timestamp in log entry")
	ErrTimestampFormat   = errors.New("timestamp format error")
	ErrMissingStreamType = errors.New("missing stream type")
	ErrInvalidStreamType = errors.New("invalid stream type")
	ErrMissingLogTag     = errors.New("missing log tag")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case MissingTimestamp:
		return ErrMissingTimestamp
	case TimestampFormat:
		return ErrTimestampFormat
	case MissingStreamType:
		return ErrMissingStreamType
	case InvalidStreamType:
		return ErrInvalidStreamType
	case MissingLogTag:
		return ErrMissingLogTag
	default:
		return nil
	}
}

// ParseError is returned by Parse when a line is malformed.
type ParseError struct {
	Kind ErrorKind

	// Value is the offending token for TimestampFormat and
	// InvalidStreamType. Empty for the other kinds.
	Value string

	err error
}

func (e *ParseError) Error() string {
	msg := "unknown parse error"
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Value != "" {
		return msg + ": " + e.Value
	}
	return msg
}

// Unwrap returns the underlying cause, if any (usually a *time.ParseError
// for TimestampFormat).
func (e *ParseError) Unwrap() error {
	return e.err
}

// Is matches the sentinel error of the same kind.
func (e *ParseError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}
