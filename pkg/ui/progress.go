package ui

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"bookmarkdl/internal/downloader"

	"github.com/dustin/go-humanize"
)

// CollectProgress prints the running link count on a single line
type CollectProgress struct {
	mu       sync.Mutex
	last     int
	finished bool
}

// NewCollectProgress creates a collection counter
func NewCollectProgress() *CollectProgress {
	return &CollectProgress{last: -1}
}

// Update redraws the counter when found changed
func (c *CollectProgress) Update(attempt, found int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if found == c.last {
		return
	}
	c.last = found
	printf("\r%s Found %d bookmark URLs (attempt %d)", Magenta("[SCANNING]"), found, attempt)
}

// Done ends the counter line
func (c *CollectProgress) Done(found int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		return
	}
	c.finished = true
	printf("\n%s Extraction complete! Found %d unique bookmark URLs\n", Green("✓"), found)
}

// Detail is optional per-item information shown next to a success
type Detail struct {
	Title string
	File  string
	Size  int64
}

// ItemProgress prints one line pair per download: the start and the result
type ItemProgress struct {
	mu        sync.Mutex
	startTime time.Time
	succeeded int
	failed    int
	bytes     int64
}

// NewItemProgress creates a per-item progress printer
func NewItemProgress() *ItemProgress {
	return &ItemProgress{startTime: time.Now()}
}

// Start announces item index of count
func (p *ItemProgress) Start(index, count int, url string) {
	printf("\n%s Downloading: %s\n", Cyan(fmt.Sprintf("[%d/%d]", index, count)), url)
}

// Finish prints the result of an item
func (p *ItemProgress) Finish(o downloader.Outcome, detail Detail) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch o.Status {
	case downloader.StatusSucceeded:
		p.succeeded++
		p.bytes += detail.Size
		line := fmt.Sprintf("%s Successfully downloaded", Green("✓"))
		if detail.Title != "" {
			line += " • " + Dim(detail.Title)
		}
		if detail.Size > 0 {
			line += " • " + humanize.Bytes(uint64(detail.Size))
		}
		printf("%s\n", line)
	case downloader.StatusTimedOut:
		p.failed++
		printf("%s Download timed out\n", Red("✗"))
	default:
		p.failed++
		printf("%s Failed: %s\n", Red("✗"), o.Reason)
	}
}

// Counts returns the successes and failures seen so far
func (p *ItemProgress) Counts() (succeeded, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.succeeded, p.failed
}

// Bytes returns the total size of the media files seen so far
func (p *ItemProgress) Bytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}

// PrintSummary prints the end-of-run report. bytes may be zero when unknown.
func PrintSummary(s downloader.RunSummary, bytes int64) {
	PrintRule("DOWNLOAD SUMMARY")
	printf("%s %d\n", Green("Successful:"), s.Successful)
	printf("%s %d\n", Red("Failed:"), s.Failed)
	if s.TimedOut > 0 {
		printf("%s %d\n", Yellow("  of which timed out:"), s.TimedOut)
	}
	printf("%s %d\n", Cyan("Total:"), s.Total)
	if bytes > 0 {
		printf("%s %s\n", Cyan("Downloaded:"), humanize.Bytes(uint64(bytes)))
	}
	if s.Elapsed > 0 {
		printf("%s %s\n", Cyan("Elapsed:"), formatDuration(s.Elapsed))
	}
	printf("Downloads saved to: %s\n", absPath(s.OutputDir))
	printf("URLs backup saved to: %s\n", s.BackupFile)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
