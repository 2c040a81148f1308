package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	bderrors "bookmarkdl/pkg/errors"
	"bookmarkdl/pkg/links"
	"bookmarkdl/pkg/logger"
)

// previewCount is how many URLs the validation report lists
const previewCount = 5

// ValidationResult partitions a URL set. Valid and Rejected are disjoint
// and together hold every URL of the input, each in discovery order.
type ValidationResult struct {
	Valid    []links.CandidateURL
	Rejected []links.CandidateURL
}

// Total returns len(Valid)+len(Rejected)
func (r ValidationResult) Total() int {
	return len(r.Valid) + len(r.Rejected)
}

// Validate splits urls with the matcher
func Validate(urls []links.CandidateURL, m links.Matcher) ValidationResult {
	var res ValidationResult
	for _, u := range urls {
		if m.Match(string(u)) {
			res.Valid = append(res.Valid, u)
		} else {
			res.Rejected = append(res.Rejected, u)
		}
	}
	return res
}

// ValidateAndPersist writes every URL in set to path and returns the partition.
// When no URL is valid the partition is still returned, together with
// ErrNoValidURLs; the backup file is written either way.
func ValidateAndPersist(set *links.URLSet, path string, m links.Matcher, log logger.Logger) (ValidationResult, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	items := set.Items()
	if err := WriteBackup(path, items); err != nil {
		return ValidationResult{}, err
	}

	res := Validate(items, m)
	log.InfoWithFields("Validation report", map[string]interface{}{
		"total":    res.Total(),
		"valid":    len(res.Valid),
		"rejected": len(res.Rejected),
		"backup":   path,
	})
	logPreview(log, items)

	if len(res.Valid) == 0 {
		return res, bderrors.ErrNoValidURLs
	}
	return res, nil
}

func logPreview(log logger.Logger, items []links.CandidateURL) {
	for i, u := range items {
		if i == previewCount {
			log.Info(fmt.Sprintf("  ... and %d more", len(items)-previewCount))
			return
		}
		log.Info(fmt.Sprintf("  %d. %s", i+1, u))
	}
}

// WriteBackup atomically replaces path with one URL per line
func WriteBackup(path string, urls []links.CandidateURL) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, u := range urls {
		if _, err = w.WriteString(string(u) + "\n"); err != nil {
			break
		}
	}
	if err == nil {
		err = w.Flush()
	}
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close backup: %w", closeErr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// ReadBackup loads a backup file written by WriteBackup. Blank lines are
// skipped, queries are stripped and duplicates collapse to the first one.
func ReadBackup(path string) (*links.URLSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	return parseBackup(f)
}

func parseBackup(r io.Reader) (*links.URLSet, error) {
	set := links.NewURLSet()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		set.Add(links.CandidateURL(links.StripQuery(line)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	return set, nil
}
