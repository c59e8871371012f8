// Package cli implements the coinwatch command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coinwatch/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the per-invocation state built by the root command's pre-run.
type app struct {
	flags rootFlags
	// logLevelSet records an explicit --log-level, which beats log_level
	// from config.
	logLevelSet bool
	logger      *slog.Logger
	stderr      io.Writer
}

// NewRootCmd creates the top-level "coinwatch" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "coinwatch",
		Short: "Local-first crypto watchlist and price alerts",
		Long: `coinwatch keeps a watchlist and price alerts on this machine until you
log in, then moves them to your account and serves everything from the API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stderr = cmd.ErrOrStderr()
			a.logLevelSet = cmd.Flags().Changed("log-level")
			logger, err := newLogger(a.stderr, a.flags.logLevel)
			if err != nil {
				return userError("%s", err)
			}
			a.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $"+paths.EnvConfigDir+" or the platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newWatchlistCmd(a))
	root.AddCommand(newAlertCmd(a))
	root.AddCommand(newLoginCmd(a))
	root.AddCommand(newLogoutCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newSyncCmd(a))
	root.AddCommand(newServeCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:]))
}

func run(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
