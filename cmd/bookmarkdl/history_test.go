package main

import (
	"testing"
	"time"

	"bookmarkdl/internal/downloader"
	"bookmarkdl/pkg/auth"
	"bookmarkdl/pkg/history"

	"github.com/stretchr/testify/assert"
)

func TestItemDetail(t *testing.T) {
	tests := []struct {
		name string
		item history.Item
		want string
	}{
		{
			name: "downloaded with sidecar",
			item: history.Item{
				Status:      downloader.StatusSucceeded,
				Title:       "cat video",
				Uploader:    "someone",
				UploadedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
				AspectRatio: "9:16",
			},
			want: "cat video • @someone • 2024-03-01 • 9:16",
		},
		{
			name: "downloaded without sidecar",
			item: history.Item{Status: downloader.StatusSucceeded},
			want: "",
		},
		{
			name: "failed",
			item: history.Item{Status: downloader.StatusTimedOut, Title: "ignored", Reason: "timed out after 2m0s"},
			want: "timed out after 2m0s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, itemDetail(tt.item))
		})
	}
}

func TestCookieLinesMasksValues(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &auth.Session{
		Profile: "default",
		Cookies: []auth.Cookie{
			{Name: "sessionid", Value: "abcdef1234567890", Domain: ".tiktok.com"},
			{Name: "stale", Value: "x", Domain: ".tiktok.com", Expires: float64(now.Add(-time.Hour).Unix())},
			{Name: "tt_csrf_token", Value: "short", Domain: ".tiktok.com", Expires: float64(now.Add(48 * time.Hour).Unix())},
		},
	}

	lines := cookieLines(s, now)
	assert.Len(t, lines, 2)
	assert.Equal(t, "sessionid=abcd...7890 (.tiktok.com)", lines[0])
	assert.Contains(t, lines[1], "tt_csrf_token=******** (.tiktok.com) expires ")
	for _, line := range lines {
		assert.NotContains(t, line, "abcdef1234567890")
	}
}
