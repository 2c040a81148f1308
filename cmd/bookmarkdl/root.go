package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"bookmarkdl/pkg/config"
	bderrors "bookmarkdl/pkg/errors"
	"bookmarkdl/pkg/logger"
	"bookmarkdl/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool

	// cfg is loaded once per invocation in PersistentPreRunE
	cfg *config.Config
)

// rootCmd runs the full pipeline when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "bookmarkdl",
	Short: "Collect your saved bookmarks and download them with yt-dlp",
	Long: `bookmarkdl opens a browser, lets you log in and open your bookmarks,
collects every bookmarked item by scrolling until the list stops growing,
saves the links to a backup file and downloads each one with yt-dlp.

Features:
  - Manual login hand-off with remembered sessions
  - Scroll-until-stable link collection
  - Backup file that can be resumed with 'bookmarkdl download --from-file'
  - Sequential downloads with a per-item timeout
  - Run history and desktop notifications`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runPipeline,
}

// setup loads configuration and initializes logging and the terminal UI
func setup(cmd *cobra.Command, args []string) error {
	ui.SetNoColor(noColor)
	if quiet {
		ui.SetOutput(io.Discard)
	}

	flags := flagOverrides(cmd)
	switch {
	case quiet:
		flags["log-level"] = "error"
	case verbose:
		flags["log-level"] = "debug"
	}

	var err error
	cfg, err = config.Load(configFile, flags)
	if err != nil {
		return bderrors.New(bderrors.ErrorTypeConfig, "failed to load configuration", err)
	}

	if err := logger.Initialize(&cfg.Logging, logger.Options{NoColor: noColor}); err != nil {
		return bderrors.New(bderrors.ErrorTypeConfig, "failed to initialize logging", err)
	}
	logger.WithField("version", version).Debug("bookmarkdl starting")

	if showsLogo(cmd) {
		ui.PrintLogo()
	}
	return nil
}

func showsLogo(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "bookmarkdl", "run", "collect", "download", "extract":
		return true
	}
	return false
}

// flagOverrides collects the configuration flags the user actually set
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()

	for _, name := range []string{"output", "backup-file", "start-url", "profile", "tool", "log-level"} {
		if fs.Changed(name) {
			if v, err := fs.GetString(name); err == nil {
				flags[name] = v
			}
		}
	}
	for _, name := range []string{"headless", "notifications"} {
		if fs.Changed(name) {
			if v, err := fs.GetBool(name); err == nil {
				flags[name] = v
			}
		}
	}
	for _, name := range []string{"max-stall-attempts", "max-total-attempts"} {
		if fs.Changed(name) {
			if v, err := fs.GetInt(name); err == nil {
				flags[name] = v
			}
		}
	}
	if fs.Changed("item-timeout") {
		if v, err := fs.GetDuration("item-timeout"); err == nil {
			flags["item-timeout"] = v
		}
	}
	return flags
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(reportError(err))
	}
}

// reportError prints err for the user and returns the process exit code:
// 130 on interrupt, 1 for fatal errors and no valid URLs, 2 when the run
// stopped on a contained failure
func reportError(err error) int {
	ui.SetOutput(os.Stderr)

	switch {
	case errors.Is(err, bderrors.ErrInterrupted):
		ui.PrintWarning("\nProcess interrupted")
		return 130
	case errors.Is(err, bderrors.ErrNoValidURLs):
		ui.PrintError("\nNo valid bookmark URLs found!")
		fmt.Fprintln(os.Stderr, "This might happen if:")
		fmt.Fprintln(os.Stderr, "1. The page structure is different than expected")
		fmt.Fprintln(os.Stderr, "2. You're not on the bookmarks page")
		fmt.Fprintln(os.Stderr, "3. The bookmarks are loaded dynamically")
		fmt.Fprintln(os.Stderr, "\nTry scrolling more on the bookmarks page and run again.")
		return 1
	case bderrors.IsFatal(bderrors.TypeOf(err)):
		ui.PrintError("Error", err)
		return 1
	default:
		// the run stopped on a contained failure, such as an unreadable saved page
		ui.PrintWarning("Run ended early", err)
		return 2
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.bookmarkdl.yaml or ~/.config/bookmarkdl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs")

	addPipelineFlags(rootCmd)

	rootCmd.SetVersionTemplate(`bookmarkdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
