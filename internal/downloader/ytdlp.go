package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"bookmarkdl/pkg/config"
	"bookmarkdl/pkg/links"
)

// Fetcher retrieves the media behind one URL
type Fetcher interface {
	Fetch(ctx context.Context, url links.CandidateURL) error
}

// ToolError is returned when the tool exits non-zero
type ToolError struct {
	ExitCode int
	// FirstLine is the first non-empty line of stderr
	FirstLine string
}

func (e *ToolError) Error() string {
	if e.FirstLine == "" {
		return fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return e.FirstLine
}

// YTDLP shells out to yt-dlp, or a compatible tool, once per URL
type YTDLP struct {
	Tool           string
	OutputDir      string
	OutputTemplate string
	Format         string

	// WaitDelay bounds how long Fetch waits for pipes after a kill
	WaitDelay time.Duration
}

// NewYTDLP builds a fetcher from the download section
func NewYTDLP(cfg config.DownloadConfig, outputDir string) *YTDLP {
	return &YTDLP{
		Tool:           cfg.Tool,
		OutputDir:      outputDir,
		OutputTemplate: cfg.OutputTemplate,
		Format:         cfg.Format,
		WaitDelay:      5 * time.Second,
	}
}

// Args returns the argv (without the tool name) used for url
func (y *YTDLP) Args(url links.CandidateURL) []string {
	return []string{
		"--output", filepath.Join(y.OutputDir, y.OutputTemplate),
		"--write-info-json",
		"--write-thumbnail",
		"--embed-thumbnail",
		"--format", y.Format,
		"--no-warnings",
		"--no-playlist",
		string(url),
	}
}

// Fetch runs the tool and waits for it. A zero exit is a success even if
// ctx ended meanwhile; otherwise a ctx deadline kills the process and is
// returned as ctx.Err().
func (y *YTDLP) Fetch(ctx context.Context, url links.CandidateURL) error {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, y.Tool, y.Args(url)...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = y.WaitDelay

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{ExitCode: exitErr.ExitCode(), FirstLine: firstLine(stderr.String())}
	}
	return fmt.Errorf("failed to run %s: %w", y.Tool, err)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
