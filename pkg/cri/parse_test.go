package cri

import (
	"errors"
	"testing"
	"time"
)

func TestParse_Stdout(t *testing.T) {
	entry, err := Parse("2016-10-06T00:17:09.669794202Z stdout P log content 1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := time.Date(2016, 10, 6, 0, 17, 9, 669794202, time.UTC)
	if !entry.Timestamp().Equal(want) {
		t.Errorf("Timestamp() = %v, want %v", entry.Timestamp(), want)
	}
	if !entry.IsStdout() {
		t.Error("IsStdout() = false, want true")
	}
	if entry.IsStderr() {
		t.Error("IsStderr() = true, want false")
	}
	if entry.Tag() != "P" {
		t.Errorf("Tag() = %q, want %q", entry.Tag(), "P")
	}
	if !entry.IsPartial() {
		t.Error("IsPartial() = false, want true")
	}
	if entry.Message() != "log content 1" {
		t.Errorf("Message() = %q, want %q", entry.Message(), "log content 1")
	}
}

func TestParse_Stderr(t *testing.T) {
	entry, err := Parse("2016-10-06T00:17:09.669794203Z stderr F log content 2")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !entry.IsStderr() {
		t.Error("IsStderr() = false, want true")
	}
	if entry.Stream() != Stderr {
		t.Errorf("Stream() = %v, want %v", entry.Stream(), Stderr)
	}
	if entry.Tag() != "F" {
		t.Errorf("Tag() = %q, want %q", entry.Tag(), "F")
	}
	if !entry.IsFull() {
		t.Error("IsFull() = false, want true")
	}
	if entry.Message() != "log content 2" {
		t.Errorf("Message() = %q, want %q", entry.Message(), "log content 2")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantKind  ErrorKind
		wantValue string
		sentinel  error
	}{
		{
			name:     "empty line",
			line:     "",
			wantKind: MissingTimestamp,
			sentinel: ErrMissingTimestamp,
		},
		{
			name:     "whitespace only",
			line:     "   ",
			wantKind: MissingTimestamp,
			sentinel: ErrMissingTimestamp,
		},
		{
			name:      "bad timestamp",
			line:      "not-a-timestamp stdout P msg",
			wantKind:  TimestampFormat,
			wantValue: "not-a-timestamp",
			sentinel:  ErrTimestampFormat,
		},
		{
			name:      "timestamp without offset",
			line:      "2016-10-06T00:17:09 stdout P msg",
			wantKind:  TimestampFormat,
			wantValue: "2016-10-06T00:17:09",
			sentinel:  ErrTimestampFormat,
		},
		{
			name:      "invalid month",
			line:      "2016-13-06T00:17:09Z stdout P msg",
			wantKind:  TimestampFormat,
			wantValue: "2016-13-06T00:17:09Z",
			sentinel:  ErrTimestampFormat,
		},
		{
			name:      "comma before fraction",
			line:      "2016-10-06T00:17:09,5Z stdout P msg",
			wantKind:  TimestampFormat,
			wantValue: "2016-10-06T00:17:09,5Z",
			sentinel:  ErrTimestampFormat,
		},
		{
			name:      "lowercase date separator with bad time",
			line:      "2016-10-06t25:17:09z stdout P msg",
			wantKind:  TimestampFormat,
			wantValue: "2016-10-06t25:17:09z",
			sentinel:  ErrTimestampFormat,
		},
		{
			name:     "timestamp only",
			line:     "2016-10-06T00:17:09.669794202Z",
			wantKind: MissingStreamType,
			sentinel: ErrMissingStreamType,
		},
		{
			name:      "unknown stream",
			line:      "2016-10-06T00:17:09.669794202Z unknown P msg",
			wantKind:  InvalidStreamType,
			wantValue: "unknown",
			sentinel:  ErrInvalidStreamType,
		},
		{
			name:      "stream is case sensitive",
			line:      "2016-10-06T00:17:09.669794202Z STDOUT P msg",
			wantKind:  InvalidStreamType,
			wantValue: "STDOUT",
			sentinel:  ErrInvalidStreamType,
		},
		{
			name:     "missing tag",
			line:     "2016-10-06T00:17:09.669794202Z stdout",
			wantKind: MissingLogTag,
			sentinel: ErrMissingLogTag,
		},
		{
			name:      "timestamp reported before stream",
			line:      "yesterday bogus P msg",
			wantKind:  TimestampFormat,
			wantValue: "yesterday",
			sentinel:  ErrTimestampFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := Parse(tt.line)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", tt.line, entry)
			}
			if entry != nil {
				t.Errorf("Parse(%q) returned non-nil entry with error", tt.line)
			}

			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %v is not a *ParseError", err)
			}
			if perr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", perr.Kind, tt.wantKind)
			}
			if perr.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", perr.Value, tt.wantValue)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
		})
	}
}

func TestParse_EmptyMessage(t *testing.T) {
	entry, err := Parse("2016-10-06T00:17:09.669794202Z stdout P")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if entry.Message() != "" {
		t.Errorf("Message() = %q, want empty", entry.Message())
	}
}

func TestParse_CollapsesWhitespace(t *testing.T) {
	entry, err := Parse("  2016-10-06T00:17:09.669794202Z  stdout \t P   a    b  ")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if entry.Message() != "a b" {
		t.Errorf("Message() = %q, want %q", entry.Message(), "a b")
	}
}

func TestParse_PreservesOffset(t *testing.T) {
	entry, err := Parse("2024-01-15T10:30:00.5+05:30 stderr F hello")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, offset := entry.Timestamp().Zone()
	if offset != 5*3600+30*60 {
		t.Errorf("offset = %d, want %d", offset, 5*3600+30*60)
	}
	if entry.Timestamp().Hour() != 10 {
		t.Errorf("Hour() = %d, want 10 (not normalized)", entry.Timestamp().Hour())
	}
}

func TestParse_LowercaseSeparators(t *testing.T) {
	want := time.Date(2016, 10, 6, 0, 17, 9, 500000000, time.UTC)

	for _, ts := range []string{
		"2016-10-06t00:17:09.5z",
		"2016-10-06T00:17:09.5z",
		"2016-10-06t00:17:09.5Z",
		"2016-10-06t02:17:09.5+02:00",
	} {
		entry, err := Parse(ts + " stdout F m")
		if err != nil {
			t.Errorf("Parse(%q) error = %v", ts, err)
			continue
		}
		if !entry.Timestamp().Equal(want) {
			t.Errorf("Parse(%q) timestamp = %v, want %v", ts, entry.Timestamp(), want)
		}
	}
}

func TestParse_OpaqueTag(t *testing.T) {
	entry, err := Parse("2024-01-15T10:30:00Z stdout custom-tag msg")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if entry.Tag() != "custom-tag" {
		t.Errorf("Tag() = %q, want %q", entry.Tag(), "custom-tag")
	}
	if entry.IsPartial() || entry.IsFull() {
		t.Error("custom tag should be neither partial nor full")
	}
}

func TestParse_StreamPredicatesExclusive(t *testing.T) {
	lines := []string{
		"2016-10-06T00:17:09.669794202Z stdout P a",
		"2016-10-06T00:17:09.669794202Z stderr F b",
	}
	for _, line := range lines {
		entry, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", line, err)
		}
		if entry.IsStdout() == entry.IsStderr() {
			t.Errorf("%q: IsStdout() = %v, IsStderr() = %v", line, entry.IsStdout(), entry.IsStderr())
		}
	}
}

func TestStreamType_RoundTrip(t *testing.T) {
	for _, s := range []StreamType{Stdout, Stderr} {
		got, err := ParseStreamType(s.String())
		if err != nil {
			t.Fatalf("ParseStreamType(%q) error = %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseStreamType(%q) = %v, want %v", s.String(), got, s)
		}
	}

	if _, err := ParseStreamType("Stdout"); err == nil {
		t.Error("ParseStreamType(\"Stdout\") expected error")
	}
}

func TestLogEntry_StringRoundTrip(t *testing.T) {
	lines := []string{
		"2016-10-06T00:17:09.669794202Z stdout P log content 1",
		"2016-10-06T00:17:09.669794203Z stderr F log content 2",
		"2024-01-15T10:30:00+02:00 stdout F",
	}

	for _, line := range lines {
		entry, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", line, err)
		}
		if entry.String() != line {
			t.Errorf("String() = %q, want %q", entry.String(), line)
		}

		again, err := Parse(entry.String())
		if err != nil {
			t.Fatalf("re-Parse(%q) error = %v", entry.String(), err)
		}
		if !again.Timestamp().Equal(entry.Timestamp()) ||
			again.Stream() != entry.Stream() ||
			again.Tag() != entry.Tag() ||
			again.Message() != entry.Message() {
			t.Errorf("round trip mismatch: %q vs %q", again, entry)
		}
	}
}

func TestParseError_Message(t *testing.T) {
	tests := []struct {
		err  *ParseError
		want string
	}{
		{&ParseError{Kind: MissingTimestamp}, "missing timestamp in log entry"},
		{&ParseError{Kind: TimestampFormat, Value: "x"}, "timestamp format error: x"},
		{&ParseError{Kind: MissingStreamType}, "missing stream type"},
		{&ParseError{Kind: InvalidStreamType, Value: "y"}, "invalid stream type: y"},
		{&ParseError{Kind: MissingLogTag}, "missing log tag"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseError_UnwrapsTimeError(t *testing.T) {
	_, err := Parse("2016-10-06 stdout P msg")
	var terr *time.ParseError
	if !errors.As(err, &terr) {
		t.Errorf("errors.As(%v, *time.ParseError) = false", err)
	}
	if errors.Is(err, ErrInvalidStreamType) {
		t.Error("timestamp error should not match ErrInvalidStreamType")
	}
}

func TestErrorKind_String(t *testing.T) {
	if MissingLogTag.String() != "missing_log_tag" {
		t.Errorf("String() = %q", MissingLogTag.String())
	}
	if ErrorKind(0).String() != "unknown" {
		t.Errorf("zero kind String() = %q, want unknown", ErrorKind(0).String())
	}
}
