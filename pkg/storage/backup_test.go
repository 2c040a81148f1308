package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	bderrors "bookmarkdl/pkg/errors"
	"bookmarkdl/pkg/links"
	"bookmarkdl/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var platform = links.Matcher{Domain: "platform.com", Marker: "/video/"}

func TestValidateAndPersistPartitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extracted_bookmarks.txt")
	set := setOf([]links.CandidateURL{
		"https://platform.com/@a/video/1",
		"https://example.com/page",
	})

	res, err := ValidateAndPersist(set, path, platform, logger.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []links.CandidateURL{"https://platform.com/@a/video/1"}, res.Valid)
	assert.Equal(t, []links.CandidateURL{"https://example.com/page"}, res.Rejected)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://platform.com/@a/video/1\nhttps://example.com/page\n", string(data))
}

func TestValidatePartitionIsComplete(t *testing.T) {
	urls := []links.CandidateURL{
		"https://platform.com/@a/video/1",
		"https://platform.com/@a",
		"https://example.com/video/2",
		"https://platform.com/@b/video/3",
		"",
	}

	res := Validate(urls, platform)

	assert.Equal(t, len(urls), len(res.Valid)+len(res.Rejected))
	assert.Equal(t, len(urls), res.Total())
	for _, v := range res.Valid {
		assert.NotContains(t, res.Rejected, v)
	}
	assert.Equal(t, []links.CandidateURL{
		"https://platform.com/@a/video/1",
		"https://platform.com/@b/video/3",
	}, res.Valid)
}

func TestValidateAndPersistNoValidURLs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extracted_bookmarks.txt")
	set := setOf([]links.CandidateURL{"https://example.com/page"})

	res, err := ValidateAndPersist(set, path, platform, logger.NewNopLogger())
	assert.ErrorIs(t, err, bderrors.ErrNoValidURLs)
	assert.Empty(t, res.Valid)
	assert.Len(t, res.Rejected, 1)

	// the backup is still the audit trail
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files or other side effects")
}

func TestValidateAndPersistEmptySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extracted_bookmarks.txt")

	_, err := ValidateAndPersist(links.NewURLSet(), path, platform, logger.NewNopLogger())
	assert.ErrorIs(t, err, bderrors.ErrNoValidURLs)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteBackupOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.txt")
	require.NoError(t, os.WriteFile(path, []byte("old\nlines\nhere\n"), 0644))

	require.NoError(t, WriteBackup(path, []links.CandidateURL{"new"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
}

func TestValidationReportPreview(t *testing.T) {
	tl := logger.NewTestLogger()
	var urls []links.CandidateURL
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		urls = append(urls, links.CandidateURL("https://platform.com/@a/video/"+id))
	}

	_, err := ValidateAndPersist(setOf(urls), filepath.Join(t.TempDir(), "b.txt"), platform, tl)
	require.NoError(t, err)

	assert.True(t, tl.HasMessage("Validation report"))
	assert.True(t, tl.HasMessage("  5. https://platform.com/@a/video/5"))
	assert.False(t, tl.HasMessage("  6. https://platform.com/@a/video/6"))
	assert.True(t, tl.HasMessage("  ... and 2 more"))
}

func TestReadBackupRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.txt")
	content := "https://platform.com/@a/video/1\n\n  https://platform.com/@a/video/2?x=1\nhttps://platform.com/@a/video/1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	set, err := ReadBackup(path)
	require.NoError(t, err)
	assert.Equal(t, []links.CandidateURL{
		"https://platform.com/@a/video/1",
		"https://platform.com/@a/video/2",
	}, set.Items())
}

func TestReadBackupMissing(t *testing.T) {
	_, err := ReadBackup(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to open backup"))
}

func setOf(urls []links.CandidateURL) *links.URLSet {
	s := links.NewURLSet()
	for _, u := range urls {
		s.Add(u)
	}
	return s
}
