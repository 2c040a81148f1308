package main

import (
	"fmt"

	"bookmarkdl/pkg/auth"
	"bookmarkdl/pkg/history"
	"bookmarkdl/pkg/logger"
	"bookmarkdl/pkg/scraper"
	"bookmarkdl/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Pipeline flags
	relogin       bool
	fromFile      string
	extractFetch  bool
	noHistory     bool
	notifications bool
)

// runCmd is the full pipeline, also reachable as the bare root command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Log in, collect bookmarks and download them",
	Long: `Run the full pipeline:

  1. launch a browser and restore the remembered session, or wait for you to log in
  2. open the bookmarks listing (start_url) or wait for you to open it
  3. scroll and collect item links until the list stops growing
  4. save every link to the backup file
  5. download each valid link with the retrieval tool`,
	Example: `  # Log in and open the bookmarks tab by hand
  bookmarkdl run

  # Go straight to the listing and use a longer per-item timeout
  bookmarkdl run --start-url "https://www.tiktok.com/@me?tab=favorites" --item-timeout 5m

  # Ignore the remembered session
  bookmarkdl run --relogin`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

// collectCmd stops after the backup file is written
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect bookmark links into the backup file without downloading",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, cleanup := newRunner(true)
		defer cleanup()

		res, err := runner.Collect(cmd.Context())
		if err != nil {
			return err
		}
		reportCollection(res)
		return nil
	},
}

// downloadCmd resumes from an existing backup file
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the links listed in a backup file",
	Long: `Download every valid link listed in a backup file, one per line.
No browser is started. Use this to resume after an interrupted run.`,
	Example: `  bookmarkdl download --from-file extracted_bookmarks.txt`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fromFile
		if path == "" {
			path = cfg.Output.BackupFile
		}

		runner, cleanup := newRunner(false)
		defer cleanup()

		res, err := runner.DownloadFromFile(cmd.Context(), path)
		reportDownloads(res)
		return err
	},
}

// extractCmd collects from a saved HTML page
var extractCmd = &cobra.Command{
	Use:   "extract <saved.html>",
	Short: "Collect bookmark links from a saved HTML page",
	Long: `Collect item links from a bookmarks page saved from the browser
(File > Save Page As). The links are written to the backup file and,
with --download, downloaded as in 'bookmarkdl run'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, cleanup := newRunner(false)
		defer cleanup()

		res, err := runner.Extract(cmd.Context(), args[0], extractFetch)
		if extractFetch {
			reportDownloads(res)
		} else if err == nil {
			reportCollection(res)
		}
		return err
	},
}

func runPipeline(cmd *cobra.Command, args []string) error {
	runner, cleanup := newRunner(true)
	defer cleanup()

	res, err := runner.Run(cmd.Context())
	reportDownloads(res)
	return err
}

// newRunner wires the runner dependencies from cfg. The returned cleanup
// closes the history database.
func newRunner(withBrowser bool) (*scraper.Runner, func()) {
	log := logger.GetLogger()
	deps := scraper.Deps{
		Notifier: ui.NewNotifier(cfg.Notifications),
		Logger:   log,
		Relogin:  relogin,
	}
	cleanup := func() {}

	if withBrowser {
		deps.Launch = scraper.LaunchBrowser(cfg.Browser, log)
		if cfg.Browser.RememberSession {
			if sessions, err := openSessions(); err != nil {
				log.WithError(err).Warn("Remembered sessions unavailable")
			} else {
				deps.Sessions = sessions
			}
		}
	}

	if cfg.History.Enabled && !noHistory {
		store, err := openHistory()
		if err != nil {
			log.WithError(err).Warn("Run history unavailable")
		} else {
			deps.History = store
			cleanup = func() { store.Close() }
		}
	}

	return scraper.New(cfg, deps), cleanup
}

func openSessions() (*auth.Manager, error) {
	dir, err := auth.ConfigDir()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(dir)
}

func openHistory() (*history.Store, error) {
	path := cfg.History.Path
	if path == "" {
		var err error
		if path, err = history.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return history.New(path)
}

func reportCollection(res *scraper.Result) {
	if res == nil {
		return
	}
	ui.PrintSuccess(fmt.Sprintf("\n✓ Collected %d links (%d valid, %d rejected)",
		res.Validation.Total(), len(res.Validation.Valid), len(res.Validation.Rejected)))
	ui.PrintInfo("URLs saved to", cfg.Output.BackupFile)
}

func reportDownloads(res *scraper.Result) {
	if res == nil || res.Summary == nil {
		return
	}
	ui.PrintSummary(*res.Summary, res.Bytes)
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "output directory for downloads (default: tiktok_bookmarks)")
	cmd.Flags().String("backup-file", "", "file the collected links are written to (default: extracted_bookmarks.txt)")
	cmd.Flags().String("start-url", "", "open this listing URL instead of waiting for manual navigation")
	cmd.Flags().String("profile", "", "name under which the login session is remembered")
	cmd.Flags().Bool("headless", false, "run the browser without a window")
	cmd.Flags().String("tool", "", "retrieval tool to invoke (default: yt-dlp)")
	cmd.Flags().Duration("item-timeout", 0, "per-item download timeout (default: 2m)")
	cmd.Flags().Int("max-stall-attempts", 0, "attempts without new links before collection stops (default: 50)")
	cmd.Flags().Int("max-total-attempts", 0, "hard ceiling on collection attempts (default: 500)")
	cmd.Flags().BoolVar(&notifications, "notifications", true, "send a notification when the run ends")
	cmd.Flags().BoolVar(&relogin, "relogin", false, "ignore the remembered session and log in again")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this run in the history database")
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(extractCmd)

	addPipelineFlags(runCmd)
	addPipelineFlags(collectCmd)
	addPipelineFlags(downloadCmd)
	addPipelineFlags(extractCmd)

	downloadCmd.Flags().StringVarP(&fromFile, "from-file", "f", "", "backup file to download from (default: the configured backup file)")
	extractCmd.Flags().BoolVar(&extractFetch, "download", false, "download the extracted links")
}
