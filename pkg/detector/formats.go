package detector

import "regexp"

// KnownFormat is a container log format that is not CRI but is often
// mistaken for it. Patterns are only tried against lines that cri.Parse
// rejected.
type KnownFormat struct {
	Name       string         // Human-readable name
	Pattern    *regexp.Regexp // Compiled regex (set during init)
	PatternStr string         // Pattern string
	Hint       string         // What to do about it
	Examples   []string       // Example lines
}

// DefaultFormats returns the built-in non-CRI formats to recognize.
func DefaultFormats() []*KnownFormat {
	formats := []*KnownFormat{
		{
			Name:       "Docker json-file",
			PatternStr: `^\{.*"log":".*"stream":"(stdout|stderr)".*"time":"[^"]+"\}$`,
			Hint:       "Docker's json-file driver; read the log through the CRI runtime or convert it first",
			Examples:   []string{`{"log":"hello\n","stream":"stdout","time":"2024-01-15T10:30:00.123456789Z"}`},
		},
		{
			Name:       "kubectl logs --timestamps",
			PatternStr: `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2}) \S`,
			Hint:       "timestamp present but no stream/tag; kubectl strips them, read the node's /var/log/pods files instead",
			Examples:   []string{"2024-01-15T10:30:00.123456789Z hello world"},
		},
		{
			Name:       "journald short-iso",
			PatternStr: `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[+-]\d{4} \S+ \S+(\[\d+\])?: `,
			Hint:       "systemd journal export; not a container runtime log",
			Examples:   []string{"2024-01-15T10:30:00+0000 node1 kubelet[812]: started"},
		},
		{
			Name:       "Syslog (BSD)",
			PatternStr: `^\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2} `,
			Hint:       "host syslog; not a container runtime log",
			Examples:   []string{"Jan 15 10:30:00 node1 kubelet: started"},
		},
		{
			Name:       "Space-separated datetime",
			PatternStr: `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`,
			Hint:       "timestamp is not RFC 3339 (missing T separator and offset); likely raw application output",
			Examples:   []string{"2024-01-15 10:30:00 INFO started"},
		},
	}

	for _, f := range formats {
		f.Pattern = regexp.MustCompile(f.PatternStr)
	}

	return formats
}
