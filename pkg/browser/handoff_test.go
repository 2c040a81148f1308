package browser

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"bookmarkdl/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	mu      sync.Mutex
	visited []string
	urls    []string // successive CurrentURL results, the last one repeats
	navErr  error
	calls   int
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.navErr != nil {
		return f.navErr
	}
	f.visited = append(f.visited, url)
	return nil
}

func (f *fakePage) CurrentURL(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.urls) == 0 {
		return "", errors.New("no page")
	}
	i := f.calls
	if i >= len(f.urls) {
		i = len(f.urls) - 1
	}
	f.calls++
	return f.urls[i], nil
}

type fakeAck struct {
	messages []string
	err      error
}

func (f *fakeAck) WaitForEnter(_ context.Context, msg string) error {
	f.messages = append(f.messages, msg)
	return f.err
}

func TestWaitForLoginLeavesLoginPage(t *testing.T) {
	page := &fakePage{urls: []string{
		"https://www.tiktok.com/login",
		"https://www.tiktok.com/login/phone",
		"https://www.tiktok.com/foryou",
	}}

	ok := WaitForLogin(context.Background(), page, time.Second, time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, 3, page.calls)
}

func TestWaitForLoginTimesOut(t *testing.T) {
	page := &fakePage{urls: []string{"https://www.tiktok.com/login"}}

	start := time.Now()
	ok := WaitForLogin(context.Background(), page, 30*time.Millisecond, 5*time.Millisecond)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOnLoginPageIgnoresCase(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.tiktok.com/login", true},
		{"https://www.tiktok.com/LOGIN?redirect_url=x", true},
		{"https://www.tiktok.com/Login/phone-or-email", true},
		{"https://www.tiktok.com/foryou", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OnLoginPage(tt.url), tt.url)
	}
}

func TestWaitForLoginUppercaseLoginPage(t *testing.T) {
	page := &fakePage{urls: []string{"https://www.tiktok.com/Login"}}

	ok := WaitForLogin(context.Background(), page, 20*time.Millisecond, 5*time.Millisecond)
	assert.False(t, ok)
}

func TestSessionActive(t *testing.T) {
	page := &fakePage{urls: []string{"https://www.tiktok.com/foryou"}}
	ok, err := SessionActive(context.Background(), page, "https://www.tiktok.com/login", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"https://www.tiktok.com/login"}, page.visited)

	revoked := &fakePage{urls: []string{"https://www.tiktok.com/login"}}
	ok, err = SessionActive(context.Background(), revoked, "https://www.tiktok.com/login", 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	broken := &fakePage{navErr: errors.New("net::ERR_ABORTED")}
	_, err = SessionActive(context.Background(), broken, "https://www.tiktok.com/login", time.Second)
	assert.Error(t, err)
}

func TestLoginUnconfirmedOnlyWarns(t *testing.T) {
	page := &fakePage{urls: []string{"https://www.tiktok.com/login"}}
	ack := &fakeAck{}
	log := logger.NewTestLogger()

	err := Login(context.Background(), page, ack, "https://www.tiktok.com/login", 20*time.Millisecond, log)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://www.tiktok.com/login"}, page.visited)
	assert.Len(t, ack.messages, 1)
	assert.True(t, log.HasMessage("Could not confirm login, continuing anyway"))
}

func TestLoginConfirmed(t *testing.T) {
	page := &fakePage{urls: []string{"https://www.tiktok.com/foryou"}}
	log := logger.NewTestLogger()

	err := Login(context.Background(), page, &fakeAck{}, "https://www.tiktok.com/login", time.Second, log)
	require.NoError(t, err)
	assert.True(t, log.HasMessage("Login confirmed"))
}

func TestLoginPropagatesPromptError(t *testing.T) {
	page := &fakePage{urls: []string{"https://www.tiktok.com/foryou"}}

	err := Login(context.Background(), page, &fakeAck{err: ErrNotInteractive}, "https://www.tiktok.com/login", time.Second, logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestLoginNavigationFailure(t *testing.T) {
	page := &fakePage{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	ack := &fakeAck{}

	err := Login(context.Background(), page, ack, "https://www.tiktok.com/login", time.Second, logger.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open login page")
	assert.Empty(t, ack.messages)
}

func TestNavigateToListingWithStartURL(t *testing.T) {
	page := &fakePage{}
	ack := &fakeAck{}

	err := NavigateToListing(context.Background(), page, ack, "https://www.tiktok.com/@me?tab=favorites", logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.tiktok.com/@me?tab=favorites"}, page.visited)
	assert.Empty(t, ack.messages)
}

func TestNavigateToListingManual(t *testing.T) {
	page := &fakePage{}
	ack := &fakeAck{}

	err := NavigateToListing(context.Background(), page, ack, "", logger.NewNopLogger())
	require.NoError(t, err)
	assert.Empty(t, page.visited)
	require.Len(t, ack.messages, 1)
	assert.Contains(t, ack.messages[0], "Favorites")
}

func TestPrompterReadsLine(t *testing.T) {
	var out strings.Builder
	p := &Prompter{In: strings.NewReader("\n"), Out: &out}

	require.NoError(t, p.WaitForEnter(context.Background(), "Log in now."))
	assert.Contains(t, out.String(), "Log in now.")
	assert.Contains(t, out.String(), "Press Enter")
}

func TestPrompterEOFCountsAsEnter(t *testing.T) {
	p := &Prompter{In: strings.NewReader(""), Out: &strings.Builder{}}
	assert.NoError(t, p.WaitForEnter(context.Background(), "msg"))
}

func TestPrompterRefusesNonInteractive(t *testing.T) {
	p := &Prompter{
		In:          strings.NewReader("\n"),
		Out:         &strings.Builder{},
		Interactive: func() bool { return false },
	}
	assert.ErrorIs(t, p.WaitForEnter(context.Background(), "msg"), ErrNotInteractive)
}

type blockingReader struct{ ch chan struct{} }

func (b blockingReader) Read([]byte) (int, error) {
	<-b.ch
	return 0, errors.New("closed")
}

func TestPrompterHonorsCancellation(t *testing.T) {
	r := blockingReader{ch: make(chan struct{})}
	defer close(r.ch)

	ctx, cancel := context.WithCancel(context.Background())
	p := &Prompter{In: r, Out: &strings.Builder{}}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	assert.ErrorIs(t, p.WaitForEnter(ctx, "msg"), context.Canceled)
}
