// Package cli implements the tide command-line interface.
//
// This package uses global variables to manage CLI state, which is the
// standard pattern for Cobra-based CLI applications. The globals are
// initialized in PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tidewallet/tide/internal/config"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

var (
	// Global flags
	homeDir string
	verbose bool

	// Global state initialized in PersistentPreRunE
	cfg    *config.Config
	logger *config.Logger
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tide",
	Short: "A self-custodial multi-chain wallet CLI",
	Long: `Tide is a terminal-based self-custodial cryptocurrency wallet.

The seed phrase is encrypted under your PIN and never leaves this machine.
Accounts derive deterministically for Ethereum and Bitcoin; transfers sign
locally and broadcast over JSON-RPC.

Example:
  tide init
  tide accounts --index 0
  tide send --to 0x... --amount 0.1`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "wallet data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(os.Stderr, err)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return walleterr.ExitCode(err)
}

// initGlobals loads configuration and opens the logger.
func initGlobals() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err = cfg.NewLoggerFromConfig()
	if err != nil {
		logger = config.NullLogger()
	}
	return nil
}

func cleanup() {
	releaseSession()
	if logger != nil {
		_ = logger.Close()
	}
}

// printError renders an error with its suggestion, if any.
func printError(w io.Writer, err error) {
	outln(w, "Error: %v", err)

	var we *walleterr.WalletError
	if walleterr.As(err, &we) && we.Suggestion != "" {
		outln(w, "Hint: %s", we.Suggestion)
	}
}

// out writes formatted text without a trailing newline.
func out(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// outln writes a formatted line.
func outln(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
