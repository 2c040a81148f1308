// Package metadata reads the .info.json sidecar the retrieval tool writes
// next to every downloaded item.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// InfoSuffix is the sidecar file name suffix
const InfoSuffix = ".info.json"

// ItemMetadata is the subset of the sidecar we keep
type ItemMetadata struct {
	// Core identifiers
	ID         string `json:"id"`
	WebpageURL string `json:"webpage_url"`
	Extractor  string `json:"extractor"`

	// Content
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Uploader    string `json:"uploader"`
	UploaderID  string `json:"uploader_id,omitempty"`

	// Media properties
	Duration float64 `json:"duration"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Ext      string  `json:"ext"`

	// Engagement
	ViewCount    int64 `json:"view_count,omitempty"`
	LikeCount    int64 `json:"like_count,omitempty"`
	CommentCount int64 `json:"comment_count,omitempty"`

	Timestamp int64 `json:"timestamp,omitempty"`
}

// Load reads and parses a sidecar file
func Load(path string) (*ItemMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta ItemMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &meta, nil
}

// FindInfo returns the first sidecar in files, or ""
func FindInfo(files []string) string {
	for _, f := range files {
		if strings.HasSuffix(f, InfoSuffix) {
			return f
		}
	}
	return ""
}

// FromFiles loads the sidecar found among an item's files.
// It returns (nil, nil) when there is none.
func FromFiles(files []string) (*ItemMetadata, error) {
	path := FindInfo(files)
	if path == "" {
		return nil, nil
	}
	return Load(path)
}

// UploadedAt converts the epoch timestamp, zero when unknown
func (m *ItemMetadata) UploadedAt() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(m.Timestamp, 0)
}

// GetFormattedTitle returns a single-line title truncated for display
func (m *ItemMetadata) GetFormattedTitle(maxLength int) string {
	title := strings.Join(strings.Fields(m.Title), " ")
	if title == "" {
		return ""
	}

	runes := []rune(title)
	if maxLength > 3 && len(runes) > maxLength {
		title = string(runes[:maxLength-3]) + "..."
	}
	return title
}

// GetDuration returns the duration as a time.Duration
func (m *ItemMetadata) GetDuration() time.Duration {
	return time.Duration(m.Duration * float64(time.Second))
}

// GetAspectRatio returns the aspect ratio as a string
func (m *ItemMetadata) GetAspectRatio() string {
	if m.Height == 0 {
		return "unknown"
	}

	ratio := float64(m.Width) / float64(m.Height)

	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 0.9 && ratio < 1.1:
		return "1:1"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	case ratio > 0.74 && ratio < 0.76:
		return "3:4"
	default:
		return fmt.Sprintf("%.2f:1", ratio)
	}
}
