package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectHrefsSkipsUnreadableElements(t *testing.T) {
	elements := []struct {
		href string
		err  error
	}{
		{href: "https://www.tiktok.com/@a/video/1"},
		{href: "https://www.tiktok.com/@b/video/2"},
		{err: errors.New("Cannot find context with specified id")},
		{href: ""},
		{href: "https://www.tiktok.com/@c/video/3"},
	}

	hrefs, skipped := collectHrefs(len(elements), func(i int) (string, error) {
		return elements[i].href, elements[i].err
	})

	assert.Equal(t, []string{
		"https://www.tiktok.com/@a/video/1",
		"https://www.tiktok.com/@b/video/2",
		"https://www.tiktok.com/@c/video/3",
	}, hrefs)
	assert.Equal(t, 1, skipped)
}

func TestCollectHrefsEmpty(t *testing.T) {
	hrefs, skipped := collectHrefs(0, nil)
	assert.Empty(t, hrefs)
	assert.Zero(t, skipped)
}
