package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/crilog/pkg/config"
	"github.com/ccollicutt/crilog/pkg/detector"
	"github.com/ccollicutt/crilog/pkg/parser"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose    bool
	SampleSize int
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Log source file existence and accessibility
- Whether each log file is actually in CRI format
- Webhook configuration

Exits 1 if any check fails.

Example:
  crilog diagnose crilog.yaml
  crilog diagnose -v crilog.yaml  # verbose output, probes webhooks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 100, "Number of lines to sample per log file")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		return printDiagnostics(w, results, opts)
	}

	// 2. Parse config file
	cfg, raw, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		return printDiagnostics(w, results, opts)
	}

	// 3. Check log sources
	files, logResults := checkLogSources(cfg)
	results = append(results, logResults...)

	// 4. Check the files are CRI
	results = append(results, checkCRIFormat(ctx, files, opts)...)

	// 5. Check webhooks configuration
	results = append(results, checkWebhooks(cfg, raw, opts)...)

	return printDiagnostics(w, results, opts)
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'crilog detect <log-file> --write-config crilog.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'crilog detect <log-file> --write-config crilog.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

// checkConfigParseable returns the loaded config and the config as written,
// before environment expansion.
func checkConfigParseable(ctx context.Context, path string) (*config.Config, *config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read config file: %v", err)
		return nil, nil, result
	}

	raw := &config.Config{}
	if err := yaml.Unmarshal(data, raw); err != nil {
		result.Status = "error"
		result.Message = "YAML syntax error"
		result.Details = []string{err.Error()}
		result.Suggests = []string{"Check indentation and quoting"}
		return nil, nil, result
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = "Invalid configuration"
		result.Details = []string{err.Error()}
		return nil, nil, result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Valid (on_error: %s)", cfg.OnError)
	if len(cfg.Streams) > 0 {
		result.Details = append(result.Details, "Streams: "+strings.Join(cfg.Streams, ", "))
	}
	if len(cfg.Tags) > 0 {
		result.Details = append(result.Details, "Tags: "+strings.Join(cfg.Tags, ", "))
	}
	if cfg.TimeRange > 0 {
		result.Details = append(result.Details, fmt.Sprintf("Time range: %s", cfg.TimeRange))
	}
	return cfg, raw, result
}

// checkLogSources reports each log source pattern and returns the files that
// exist and can be read.
func checkLogSources(cfg *config.Config) ([]string, []DiagnosticResult) {
	var files []string
	results := []DiagnosticResult{}

	for _, pattern := range cfg.LogSources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", pattern),
		}

		if pattern == stdinSource {
			result.Status = "warning"
			result.Message = "Standard input cannot be checked"
			results = append(results, result)
			continue
		}

		matched, err := parser.ExpandGlobs([]string{pattern})
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Invalid pattern: %v", err)
			results = append(results, result)
			continue
		}

		var readable, missing []string
		for _, f := range matched {
			file, err := os.Open(f) // #nosec G304 -- log paths come from the config
			if err != nil {
				missing = append(missing, fmt.Sprintf("%s: %v", f, err))
				continue
			}
			_ = file.Close()
			readable = append(readable, f)
		}

		switch {
		case len(readable) == 0:
			result.Status = "error"
			result.Message = "No readable files match"
			result.Details = missing
			result.Suggests = []string{
				"Check the path; pod logs live under /var/log/pods/<namespace>_<pod>_<uid>/<container>/",
				"Reading /var/log/pods usually requires root",
			}
		case len(missing) > 0:
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d readable, %d not readable", len(readable), len(missing))
			result.Details = missing
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("%d file(s)", len(readable))
			result.Details = readable
		}

		files = append(files, readable...)
		results = append(results, result)
	}

	return files, results
}

func checkCRIFormat(ctx context.Context, files []string, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}
	d := detector.New(detector.WithSampleSize(opts.SampleSize))

	for _, f := range files {
		result := DiagnosticResult{
			Check: fmt.Sprintf("CRI Format: %s", f),
		}

		det, err := d.DetectFromFile(ctx, f)
		if err != nil {
			result.Status = "error"
			result.Message = err.Error()
			results = append(results, result)
			continue
		}

		switch {
		case det.SampledLines == 0:
			result.Status = "warning"
			result.Message = "File is empty"
		case det.IsCRI():
			result.Status = "ok"
			result.Message = fmt.Sprintf("%d/%d sampled lines parsed", det.ParsedLines, det.SampledLines)
			if det.ParsedLines < det.SampledLines {
				result.Status = "warning"
			}
		default:
			result.Status = "error"
			result.Message = fmt.Sprintf("Not CRI: only %d/%d sampled lines parsed", det.ParsedLines, det.SampledLines)
		}

		for _, kc := range det.Failures {
			result.Details = append(result.Details,
				fmt.Sprintf("%s x%d: %s", kc.Kind, kc.Count, truncate(kc.Example, 80)))
		}
		if hint := det.BestHint(); hint != nil && !det.IsCRI() {
			result.Suggests = append(result.Suggests,
				fmt.Sprintf("Looks like %s: %s", hint.Format.Name, hint.Format.Hint))
		}

		results = append(results, result)
	}

	return results
}

func checkWebhooks(cfg, raw *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for i, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check:   fmt.Sprintf("Webhook: %s", name),
			Status:  "ok",
			Message: fmt.Sprintf("Trigger: %s", wh.Trigger),
		}

		// Config validation already rejected bad URLs and triggers
		if i < len(raw.Webhooks) {
			written := raw.Webhooks[i].Token
			if strings.HasPrefix(written, "$") && wh.Token == "" {
				result.Status = "warning"
				result.Message = "Token env var is not set"
				result.Details = []string{fmt.Sprintf("Token: %s", written)}
			}
		}
		if wh.Trigger == config.WebhookTriggerNever {
			result.Status = "warning"
			result.Message = "Trigger is never; webhook is disabled"
		}

		if opts.Verbose && result.Status == "ok" {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
			if wh.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may only accept POST (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) error {
	fmt.Fprintln(w, "=== crilog Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	switch {
	case errCount > 0:
		fmt.Fprintln(w, "\nFix the errors above before parsing.")
		ExitCode = 1
	case warnCount > 0:
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	default:
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}

	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
