// Package cli provides the command-line interface for crilog.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/crilog/internal/cli/commands"
	"github.com/ccollicutt/crilog/internal/cli/plugins"
	"github.com/ccollicutt/crilog/internal/logging"
)

// Execute runs the root command against the process arguments and stdio
// and returns the exit code.
func Execute() int {
	return ExecuteWith(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// ExecuteWith runs the root command with the given arguments and streams
// and returns the exit code: 0 clean, 1 malformed lines or failed checks,
// 2 configuration or runtime error.
func ExecuteWith(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	commands.ExitCode = 0

	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// An unknown first word may be a plugin
	potentialCommand := pluginCandidate(rootCmd, args)
	if potentialCommand != "" {
		if pluginPath, err := plugins.FindPlugin(potentialCommand); err == nil {
			return plugins.Execute(pluginPath, args[1:])
		}
		// Plugin not found - fall through to Cobra which reports the error
	}

	if err := rootCmd.Execute(); err != nil {
		if potentialCommand != "" {
			_, _ = fmt.Fprintln(stderr, plugins.FormatNotFoundError(potentialCommand))
			return 2
		}
		// SilenceErrors prevents Cobra from printing this
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return commands.ExitCode
}

// pluginCandidate returns the first argument if it names no built-in
// command, or "" otherwise.
func pluginCandidate(rootCmd *cobra.Command, args []string) string {
	if len(args) == 0 {
		return ""
	}
	name := args[0]
	if name == "" || name[0] == '-' || isBuiltinCommand(rootCmd, name) {
		return ""
	}
	return name
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Also check for special commands like help and completion
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "crilog",
		Short: "Parse CRI container log files",
		Long: `crilog parses container logs in the CRI format written by containerd and
CRI-O, one entry per line:

  2016-10-06T00:17:09.669794202Z stdout F log content

Each line carries an RFC 3339 timestamp, the stream (stdout or stderr), a
tag (F for a full line, P for a partial one) and the message. crilog
reports entries, filters them, and flags lines that do not follow the format.

PLUGINS:
  crilog supports plugins for extended functionality. Plugins are standalone
  binaries named crilog-<command> that are automatically discovered and invoked.

  Plugin locations (searched in order):
    1. Same directory as the crilog binary
    2. ~/.crilog/plugins/
    3. Anywhere in PATH

  Known plugins:
    follow   Tail log files as they are written
    join     Reassemble partial (P) lines`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch logFormat {
			case "text", "json":
			default:
				return fmt.Errorf("unknown log format %q (use text or json)", logFormat)
			}
			logging.Init(cmd.ErrOrStderr(), logging.ParseLevel(logLevel), logFormat == "json")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Diagnostic log level (debug|info|warn|error|disabled)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Diagnostic log format on stderr (text|json)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
