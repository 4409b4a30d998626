package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/crilog/pkg/config"
	"github.com/ccollicutt/crilog/pkg/output"
	"github.com/ccollicutt/crilog/pkg/parser"
	"github.com/ccollicutt/crilog/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// stdinSource is the log source name that reads standard input.
const stdinSource = "-"

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Config  string
	Output  string
	OnError string
	Streams []string
	Tags    []string
	Since   time.Duration
	Verbose bool
	Quiet   bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [log-file|glob|dir|-]...",
		Short: "Parse CRI container log files",
		Long: `Parse container logs written in the CRI format used by containerd and
CRI-O under /var/log/pods:

  <RFC 3339 timestamp> <stdout|stderr> <tag> <message>

Multiple files are merged in timestamp order. A directory expands to the
*.log files it contains. With no arguments, or "-", standard input is read.
Log sources, filters and webhooks may also come from --config.
CRILOG_LOG_SOURCES (comma separated) and CRILOG_ON_ERROR override the
config file, or the defaults when there is none. Arguments and flags
override both.

Malformed lines are handled by --on-error:
  skip   - drop them silently
  report - drop them and list them in the report (default)
  fail   - stop at the first one

Blank and whitespace-only lines are ignored under every policy and are
never counted as malformed, so missing_timestamp is not reported for them.

Exit codes:
  0 - All lines parsed
  1 - Malformed lines found
  2 - Configuration or runtime error

Example:
  crilog parse /var/log/pods/default_web-0_*/app/0.log
  crilog parse --stream stderr --since 1h /var/log/pods/default_web-0_*/app/
  kubectl exec node-shell -- cat 0.log | crilog parse -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "Configuration file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|raw)")
	cmd.Flags().StringVar(&opts.OnError, "on-error", "", "Malformed line policy (skip|report|fail), default report")
	cmd.Flags().StringSliceVar(&opts.Streams, "stream", nil, "Only show entries from these streams (stdout|stderr)")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "Only show entries with these tags (e.g. F)")
	cmd.Flags().DurationVar(&opts.Since, "since", 0, "Only show entries newer than this (e.g. 30m, 24h)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Include sources and timing in output")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Only output the summary")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook URL to POST the report summary to")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook authentication")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_errors", "When to fire webhook (on_errors|always|never)")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	cfg, err := resolveConfig(ctx, args, opts)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	report := output.NewReport(cfg.LogSources, opts.Config)
	if opts.Quiet {
		report.SummaryOnly()
	}

	var since time.Time
	if cfg.TimeRange > 0 {
		since = start.Add(-cfg.TimeRange)
		report.Metadata.Since = &since
	}

	src, err := openSources(cmd.InOrStdin(), cfg, errorHandler(cfg.OnError, report))
	if err != nil {
		return err
	}
	defer src.Close()

	filtered := parser.NewFilteredSource(src, parser.FilterOptions{
		Streams: cfg.StreamTypes(),
		Tags:    cfg.Tags,
		Since:   since,
	})

	aborted := false
	for {
		line, err := filtered.Next(ctx)
		if err == io.EOF {
			break
		}
		var lineErr *parser.LineError
		if errors.As(err, &lineErr) && cfg.OnError == config.ErrorPolicyFail {
			log.Error().
				Str("source", lineErr.Source).
				Int("line", lineErr.LineNum).
				Str("kind", lineErr.Kind().String()).
				Msg("stopping at malformed line")
			aborted = true
			break
		}
		if err != nil {
			return fmt.Errorf("reading logs: %w", err)
		}
		report.AddLine(line)
	}

	report.Finish(start)

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	sendWebhooks(ctx, cfg, report)

	if aborted || report.HasErrors() {
		ExitCode = 1
	}

	return nil
}

// resolveConfig loads the config file if given and applies command-line
// overrides on top of it.
func resolveConfig(ctx context.Context, args []string, opts *ParseOptions) (*config.Config, error) {
	cfg := config.FromEnvironment()
	if opts.Config != "" {
		loaded, err := config.Load(ctx, opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.LogSources = args
	}
	if len(cfg.LogSources) == 0 {
		cfg.LogSources = []string{stdinSource}
	}

	if opts.OnError != "" {
		policy, err := config.ParseErrorPolicy(opts.OnError)
		if err != nil {
			return nil, fmt.Errorf("--on-error: %w", err)
		}
		cfg.OnError = policy
	}
	if len(opts.Streams) > 0 {
		cfg.Streams = opts.Streams
	}
	if len(opts.Tags) > 0 {
		cfg.Tags = opts.Tags
	}
	if opts.Since > 0 {
		cfg.TimeRange = opts.Since
	}

	if opts.WebhookURL != "" {
		cfg.Webhooks = append(cfg.Webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// errorHandler maps the malformed line policy onto a parser.ErrorHandler.
func errorHandler(policy config.ErrorPolicy, report *output.Report) parser.ErrorHandler {
	switch policy {
	case config.ErrorPolicySkip:
		return nil
	case config.ErrorPolicyFail:
		return func(e *parser.LineError) error {
			report.AddError(e)
			return parser.FailOnError(e)
		}
	default:
		return func(e *parser.LineError) error {
			report.AddError(e)
			return nil
		}
	}
}

// openSources builds one LogSource over every configured source. More than
// one source is merged by timestamp.
func openSources(stdin io.Reader, cfg *config.Config, handler parser.ErrorHandler) (parser.LogSource, error) {
	opts := []parser.Option{parser.WithErrorHandler(handler)}

	var patterns []string
	useStdin := false
	for _, s := range cfg.LogSources {
		if s == stdinSource {
			useStdin = true
			continue
		}
		patterns = append(patterns, s)
	}

	files, err := parser.ExpandGlobs(patterns)
	if err != nil {
		return nil, fmt.Errorf("expanding log sources: %w", err)
	}

	var sources []parser.LogSource
	if useStdin {
		sources = append(sources, parser.NewReaderSource("stdin", stdin, opts...))
	}
	for _, f := range files {
		sources = append(sources, parser.NewFileSource([]string{f}, opts...))
	}

	if len(sources) == 0 {
		return nil, errors.New("no log files matched")
	}

	log.Debug().Strs("files", files).Bool("stdin", useStdin).Msg("opening log sources")

	if len(sources) == 1 {
		return sources[0], nil
	}
	return parser.NewMergedSource(sources...), nil
}

// sendWebhooks sends the report to every webhook whose trigger fires.
// Failures are logged but don't fail the run.
func sendWebhooks(ctx context.Context, cfg *config.Config, report *output.Report) {
	if len(cfg.Webhooks) == 0 {
		return
	}

	client := webhook.NewClient()

	for _, wh := range cfg.Webhooks {
		if !webhook.ShouldSend(wh.Trigger, report) {
			continue
		}

		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})

		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		if resp.Success() {
			log.Info().
				Str("webhook", name).
				Int("status", resp.StatusCode).
				Dur("duration", resp.Duration).
				Msg("webhook sent")
		} else {
			log.Warn().Str("webhook", name).Err(resp.Error).Msg("webhook failed")
		}
	}
}
