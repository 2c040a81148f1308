package main

import (
	"fmt"
	"strings"
	"time"

	"bookmarkdl/internal/downloader"
	"bookmarkdl/pkg/history"
	"bookmarkdl/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyRunID string
)

// historyCmd lists recent runs from the history database
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	Example: `  bookmarkdl history --limit 5
  bookmarkdl history --run 0190b6c2-7d1e-7c3a-9f41-5d2a8e6b1c00`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "show the items of one run")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	if historyRunID != "" {
		return showRun(cmd, store, historyRunID)
	}

	runs, err := store.RecentRuns(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.PrintWarning("No runs recorded yet")
		return nil
	}

	ui.PrintHighlight("Recent runs")
	for _, r := range runs {
		fmt.Printf("  %s  %s  %-8s  %-11s  %s\n",
			ui.Dim(r.ID),
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Mode,
			statusColor(r.Status),
			runCounts(r),
		)
	}
	return nil
}

func showRun(cmd *cobra.Command, store *history.Store, id string) error {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	items, err := store.Outcomes(cmd.Context(), id)
	if err != nil {
		return err
	}

	ui.PrintInfo("Run", run.ID)
	ui.PrintInfo("Mode", run.Mode)
	ui.PrintInfo("Status", run.Status)
	ui.PrintInfo("Started", run.StartedAt.Format(time.RFC1123))
	if d := run.Duration(); d > 0 {
		ui.PrintInfo("Duration", d.Round(time.Second).String())
	}
	ui.PrintInfo("Result", runCounts(*run))

	for _, it := range items {
		mark := ui.Green("✓")
		if it.Status != downloader.StatusSucceeded {
			mark = ui.Red("✗")
		}
		fmt.Printf("  [%d] %s %s %s\n", it.Index, mark, it.URL, ui.Dim(itemDetail(it)))
	}
	return nil
}

// itemDetail is the reason for a failed item, or what the sidecar told us
// about a downloaded one
func itemDetail(it history.Item) string {
	if it.Status != downloader.StatusSucceeded {
		return it.Reason
	}

	var parts []string
	if it.Title != "" {
		parts = append(parts, it.Title)
	}
	if it.Uploader != "" {
		parts = append(parts, "@"+it.Uploader)
	}
	if !it.UploadedAt.IsZero() {
		parts = append(parts, it.UploadedAt.UTC().Format("2006-01-02"))
	}
	if it.AspectRatio != "" {
		parts = append(parts, it.AspectRatio)
	}
	return strings.Join(parts, " • ")
}

func runCounts(r history.Run) string {
	return fmt.Sprintf("%d ok, %d failed (%d timed out) of %d", r.Successful, r.Failed, r.TimedOut, r.Total)
}

func statusColor(status string) string {
	switch status {
	case history.StatusCompleted:
		return ui.Green(status)
	case history.StatusInterrupted:
		return ui.Yellow(status)
	case history.StatusFailed:
		return ui.Red(status)
	default:
		return status
	}
}
