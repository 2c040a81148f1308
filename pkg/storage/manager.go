package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Manager handles the output directory of a run
type Manager struct {
	outputDir string
}

// NewManager creates the output directory if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir}, nil
}

// Dir returns the output directory
func (m *Manager) Dir() string {
	return m.outputDir
}

// ItemFiles lists the files written for itemID. The output template ends
// in "_<id>.<ext>", so artifacts are matched on that suffix.
func (m *Manager) ItemFiles(itemID string) ([]string, error) {
	if itemID == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	marker := "_" + itemID + "."
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".part") {
			continue
		}
		if strings.Contains(entry.Name(), marker) {
			files = append(files, filepath.Join(m.outputDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// MediaFile picks the downloaded media among files, skipping sidecars
func MediaFile(files []string) (string, int64) {
	for _, f := range files {
		switch strings.ToLower(filepath.Ext(f)) {
		case ".json", ".jpg", ".jpeg", ".png", ".webp", ".tmp":
			continue
		}
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		return f, info.Size()
	}
	return "", 0
}
