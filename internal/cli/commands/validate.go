package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/crilog/pkg/config"
	"github.com/ccollicutt/crilog/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a crilog configuration file without parsing any logs.

Checks:
  - YAML syntax
  - Required fields
  - on_error policy, stream and tag filters
  - Webhook URLs and triggers
  - Log source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Log sources: %d pattern(s)\n", len(cfg.LogSources))
	fmt.Fprintf(w, "  On error:    %s\n", cfg.OnError)
	if len(cfg.Streams) > 0 {
		fmt.Fprintf(w, "  Streams:     %s\n", strings.Join(cfg.Streams, ", "))
	}
	if len(cfg.Tags) > 0 {
		fmt.Fprintf(w, "  Tags:        %s\n", strings.Join(cfg.Tags, ", "))
	}
	if cfg.TimeRange > 0 {
		fmt.Fprintf(w, "  Time range:  %s\n", cfg.TimeRange)
	}
	fmt.Fprintf(w, "  Webhooks:    %d\n", len(cfg.Webhooks))

	for i, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}
		fmt.Fprintf(w, "  %d. %s [%s]\n", i+1, name, wh.Trigger)
	}

	// Check if log sources exist (warnings only)
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		fmt.Fprintf(w, "\nWarning: Error expanding log source patterns: %v\n", err)
		return nil
	}

	var found []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			fmt.Fprintf(w, "\nWarning: %s: %v\n", f, err)
			continue
		}
		found = append(found, f)
	}

	if len(found) == 0 {
		fmt.Fprintf(w, "\nWarning: No files match log source patterns\n")
	} else {
		fmt.Fprintf(w, "\nLog files matched: %d\n", len(found))
		for _, f := range found {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}

	return nil
}
