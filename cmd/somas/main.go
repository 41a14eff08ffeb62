package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-somas/internal/analysis"
	"github.com/alnah/go-somas/internal/apierr"
	"github.com/alnah/go-somas/internal/cli"
	"github.com/alnah/go-somas/internal/config"
	"github.com/alnah/go-somas/internal/dispatch"
	"github.com/alnah/go-somas/internal/interrupt"
	"github.com/alnah/go-somas/internal/lang"
	"github.com/alnah/go-somas/internal/ledger"
	"github.com/alnah/go-somas/internal/preset"
	"github.com/alnah/go-somas/internal/prompt"
	"github.com/alnah/go-somas/internal/provider"
	"github.com/alnah/go-somas/internal/secret"
	"github.com/alnah/go-somas/internal/source"
	"github.com/alnah/go-somas/internal/template"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitUsage       = 2
	ExitSetup       = 3
	ExitValidation  = 4
	ExitProvider    = 5
	ExitUnavailable = 6
	ExitInterrupt   = interrupt.ExitCode
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels ctx, a second one exits immediately.
	handler, ctx := interrupt.NewHandler(context.Background())

	env := cli.DefaultEnv()
	rootCmd := newRootCmd(env)

	err := rootCmd.ExecuteContext(ctx)
	handler.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := exitCode(err)
		// Child processes killed by the cancellation surface as other errors.
		if handler.Interrupted() {
			code = ExitInterrupt
		}
		os.Exit(code)
	}
}

// newRootCmd wires the subcommands around env. The logger is built once
// flags are parsed so --verbose applies to every subcommand.
func newRootCmd(env *cli.Env) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:     "somas",
		Short:   "Generate structured analysis prompts for videos and transcripts",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env.Logger = cli.NewLogger(env.Stderr, verbose)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = env.Logger.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output")

	rootCmd.AddCommand(cli.PromptCmd(env))
	rootCmd.AddCommand(cli.SendCmd(env))
	rootCmd.AddCommand(cli.ModelsCmd(env))
	rootCmd.AddCommand(cli.PresetsCmd(env))
	rootCmd.AddCommand(cli.HistoryCmd(env))
	rootCmd.AddCommand(cli.RateCmd(env))
	rootCmd.AddCommand(cli.ChannelCmd(env))
	rootCmd.AddCommand(cli.KeyCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Provider errors are checked before setup: a rejected key arrives wrapped
	// in ErrDispatchFailed, not ErrAPIKeyMissing.
	if errors.Is(err, cli.ErrDispatchFailed) || errors.Is(err, dispatch.ErrBusy) ||
		errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, apierr.ErrBadRequest) || errors.Is(err, apierr.ErrServer) ||
		errors.Is(err, apierr.ErrTransport) || errors.Is(err, apierr.ErrMalformedResponse) {
		return ExitProvider
	}

	if errors.Is(err, cli.ErrAPIKeyMissing) || errors.Is(err, cli.ErrNoProvider) ||
		errors.Is(err, source.ErrToolMissing) || errors.Is(err, provider.ErrEmptyAPIKey) ||
		errors.Is(err, provider.ErrInvalidDefinition) || errors.Is(err, preset.ErrInvalid) ||
		errors.Is(err, dispatch.ErrNoClient) {
		return ExitSetup
	}

	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrOutputExists) ||
		errors.Is(err, cli.ErrIncompleteTimeRange) || errors.Is(err, prompt.ErrNoSource) ||
		errors.Is(err, prompt.ErrTimeRangeOnManual) || errors.Is(err, analysis.ErrInvalidPerspective) ||
		errors.Is(err, analysis.ErrInvalidTimeRange) || errors.Is(err, analysis.ErrEmptyTranscript) ||
		errors.Is(err, preset.ErrUnknown) || errors.Is(err, provider.ErrUnknown) ||
		errors.Is(err, template.ErrUnknown) || errors.Is(err, template.ErrMissingVariable) ||
		errors.Is(err, lang.ErrInvalid) || errors.Is(err, config.ErrUnknownKey) ||
		errors.Is(err, config.ErrInvalidValue) || errors.Is(err, source.ErrInvalidURL) ||
		errors.Is(err, secret.ErrEmptySecret) || errors.Is(err, cli.ErrInvalidLimit) ||
		errors.Is(err, ledger.ErrInvalidRating) || errors.Is(err, ledger.ErrAmbiguousID) ||
		errors.Is(err, ledger.ErrNotFound) || errors.Is(err, ledger.ErrUnrated) {
		return ExitValidation
	}

	if errors.Is(err, source.ErrUnavailable) {
		return ExitUnavailable
	}

	// Cobra doesn't expose typed errors, so we check for known message patterns.
	// This runs last: provider messages quoted in wrapped errors can contain
	// the same phrases.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts at most 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
