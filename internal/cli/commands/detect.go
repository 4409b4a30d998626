package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/crilog/pkg/config"
	"github.com/ccollicutt/crilog/pkg/detector"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	Threshold   float64
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Check whether a log file is in CRI format",
		Long: `Sample a log file and check whether its lines are in the CRI format.

Reports how many sampled lines parsed, the stdout/stderr/partial mix, and
why the rest were rejected. When the file looks like another common
container log format (Docker json-file, kubectl --timestamps, journald,
syslog) a hint is shown.

Optionally generates a starter config file with --write-config.

Example:
  crilog detect /var/log/pods/default_web-0_*/app/0.log
  crilog detect --sample 500 /var/log/containers/web-0.log
  crilog detect -w crilog.yaml /var/log/pods/default_web-0_*/app/0.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 100, "Number of lines to sample")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", detector.DefaultThreshold, "Fraction of lines that must parse")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show every rejection kind and format hint, not just the first")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Check file exists
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	d := detector.New(
		detector.WithSampleSize(opts.SampleSize),
		detector.WithThreshold(opts.Threshold),
	)

	result, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	out := cmd.OutOrStdout()

	// Write config file if requested
	if opts.WriteConfig != "" {
		if err := writeStarterConfig(result, logFile, opts.WriteConfig); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote starter config to: %s\n\n", opts.WriteConfig)
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(out, result, logFile, opts)
	case "text", "":
		return outputDetectText(out, result, logFile, opts)
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== CRI Format Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Lines parsed: %d\n", result.ParsedLines)
	fmt.Fprintln(w)

	if result.SampledLines == 0 {
		fmt.Fprintln(w, "File is empty.")
		return nil
	}

	if result.IsCRI() {
		fmt.Fprintf(w, "Format: CRI (%.1f%% of lines parsed)\n", result.Confidence*100)
		fmt.Fprintf(w, "Streams: %d stdout, %d stderr\n", result.Stdout, result.Stderr)
		fmt.Fprintf(w, "Partial lines: %d\n", result.Partial)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Sample line:\n  %s\n", result.SampleLine)
		e := result.SampleEntry
		fmt.Fprintf(w, "Parsed as: %s [%s] tag=%s\n", e.Timestamp().Format("2006-01-02 15:04:05.000 -07:00"), e.Stream(), e.Tag())
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "Format: not CRI (%.1f%% of lines parsed, %.0f%% needed)\n",
			result.Confidence*100, result.Threshold*100)
		fmt.Fprintln(w)
	}

	if len(result.Failures) > 0 {
		fmt.Fprintln(w, "--- Rejected lines ---")
		failures := result.Failures
		if !opts.ShowAll {
			failures = failures[:1]
		}
		for _, f := range failures {
			fmt.Fprintf(w, "%s: %d line(s)\n", f.Kind, f.Count)
			fmt.Fprintf(w, "  example: %s\n", truncate(f.Example, 100))
			fmt.Fprintf(w, "  error:   %s\n", f.Error)
		}
		fmt.Fprintln(w)
	}

	if hint := result.BestHint(); hint != nil {
		fmt.Fprintf(w, "Looks like: %s (%d line(s))\n", hint.Format.Name, hint.MatchCount)
		fmt.Fprintf(w, "Hint: %s\n", hint.Format.Hint)
		if opts.ShowAll && len(result.Hints) > 1 {
			fmt.Fprintln(w, "--- Other formats matched ---")
			for i, m := range result.Hints[1:] {
				fmt.Fprintf(w, "%d. %s (%d line(s))\n", i+2, m.Format.Name, m.MatchCount)
			}
		}
		fmt.Fprintln(w)
	}

	return nil
}

// JSONFailure represents a rejection kind in JSON output.
type JSONFailure struct {
	Kind    string `json:"kind"`
	Count   int    `json:"count"`
	Example string `json:"example"`
	Error   string `json:"error"`
}

// JSONHint represents a non-CRI format match in JSON output.
type JSONHint struct {
	Name       string `json:"name"`
	Pattern    string `json:"pattern"`
	Hint       string `json:"hint"`
	MatchCount int    `json:"match_count"`
	SampleLine string `json:"sample_line"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File         string        `json:"file"`
	IsCRI        bool          `json:"is_cri"`
	Confidence   float64       `json:"confidence"`
	Threshold    float64       `json:"threshold"`
	SampledLines int           `json:"sampled_lines"`
	ParsedLines  int           `json:"parsed_lines"`
	Stdout       int           `json:"stdout"`
	Stderr       int           `json:"stderr"`
	Partial      int           `json:"partial"`
	SampleLine   string        `json:"sample_line,omitempty"`
	Failures     []JSONFailure `json:"failures"`
	Hints        []JSONHint    `json:"hints"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	output := JSONOutput{
		File:         logFile,
		IsCRI:        result.IsCRI(),
		Confidence:   result.Confidence,
		Threshold:    result.Threshold,
		SampledLines: result.SampledLines,
		ParsedLines:  result.ParsedLines,
		Stdout:       result.Stdout,
		Stderr:       result.Stderr,
		Partial:      result.Partial,
		SampleLine:   result.SampleLine,
		Failures:     make([]JSONFailure, 0, len(result.Failures)),
		Hints:        make([]JSONHint, 0, len(result.Hints)),
	}

	for _, f := range result.Failures {
		output.Failures = append(output.Failures, JSONFailure{
			Kind:    f.Kind.String(),
			Count:   f.Count,
			Example: f.Example,
			Error:   f.Error,
		})
	}

	hints := result.Hints
	if !opts.ShowAll && len(hints) > 1 {
		hints = hints[:1] // Only show best match
	}
	for _, h := range hints {
		output.Hints = append(output.Hints, JSONHint{
			Name:       h.Format.Name,
			Pattern:    h.Format.PatternStr,
			Hint:       h.Format.Hint,
			MatchCount: h.MatchCount,
			SampleLine: h.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// writeStarterConfig generates a starter config file for a CRI log file.
func writeStarterConfig(result *detector.DetectionResult, logFile, configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if !result.IsCRI() {
		return fmt.Errorf("cannot generate config: %s is not in CRI format", logFile)
	}

	content, err := generateStarterConfig(result, logFile)
	if err != nil {
		return err
	}

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

const starterConfigHeader = `# crilog configuration
# Generated by: crilog detect
# Detected: CRI (%.0f%% of %d sampled lines parsed)
#
# Add more log files, globs or directories under log_sources, e.g.
#   - /var/log/pods/*/*/*.log
#
# Optional filters:
#   streams: [stderr]
#   tags: [F]
#   time_range: 24h
#
# Optional webhooks:
#   webhooks:
#     - name: alerts
#       url: https://example.com/hooks/crilog
#       token: ${CRILOG_WEBHOOK_TOKEN}
#       trigger: on_errors

`

// generateStarterConfig renders a config for logFile.
func generateStarterConfig(result *detector.DetectionResult, logFile string) ([]byte, error) {
	// Get absolute path for log file if possible
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}

	cfg := config.DefaultConfig()
	cfg.LogSources = []string{absLogFile}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("rendering config: %w", err)
	}

	header := fmt.Sprintf(starterConfigHeader, result.Confidence*100, result.SampledLines)
	return append([]byte(header), body...), nil
}
