package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookmarkdl/pkg/logger"
	"bookmarkdl/pkg/retry"
)

// Page is the slice of Session the hand-offs need
type Page interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
}

// Acknowledger waits for the user
type Acknowledger interface {
	WaitForEnter(ctx context.Context, msg string) error
}

const loginPollInterval = 500 * time.Millisecond

var errOnLoginPage = errors.New("still on the login page")

// Login opens loginURL and waits for the user to sign in by hand. A login
// that cannot be confirmed within timeout is only logged; the caller goes on.
func Login(ctx context.Context, page Page, ack Acknowledger, loginURL string, timeout time.Duration, log logger.Logger) error {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "browser")

	if err := page.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	if err := ack.WaitForEnter(ctx, "Log in to your account in the browser window."); err != nil {
		return err
	}

	if !WaitForLogin(ctx, page, timeout, loginPollInterval) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Could not confirm login, continuing anyway")
		return nil
	}

	log.Info("Login confirmed")
	return nil
}

// WaitForLogin polls the current URL until it leaves the login page.
// It reports false when timeout passes or ctx is done first.
func WaitForLogin(ctx context.Context, page Page, timeout, poll time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := retry.Do(ctx, func() error {
		u, err := page.CurrentURL(ctx)
		if err != nil {
			return err
		}
		if OnLoginPage(u) {
			return errOnLoginPage
		}
		return nil
	}, &retry.Config{
		Backoff: &retry.ConstantBackoff{Delay: poll},
		RetryIf: func(error) bool { return true },
	})
	return err == nil
}

// OnLoginPage reports whether u is a login URL
func OnLoginPage(u string) bool {
	return strings.Contains(strings.ToLower(u), "login")
}

// SessionActive opens loginURL and reports whether the platform sends the
// browser away from it, which it does for a signed-in session
func SessionActive(ctx context.Context, page Page, loginURL string, timeout time.Duration) (bool, error) {
	if err := page.Navigate(ctx, loginURL); err != nil {
		return false, fmt.Errorf("failed to open login page: %w", err)
	}
	return WaitForLogin(ctx, page, timeout, loginPollInterval), nil
}

// NavigateToListing brings the page to the bookmarks listing, either
// directly through startURL or by asking the user to go there.
func NavigateToListing(ctx context.Context, page Page, ack Acknowledger, startURL string, log logger.Logger) error {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "browser")

	if startURL != "" {
		log.InfoWithFields("Opening listing page", map[string]interface{}{"url": startURL})
		if err := page.Navigate(ctx, startURL); err != nil {
			return fmt.Errorf("failed to open listing page: %w", err)
		}
		return nil
	}

	return ack.WaitForEnter(ctx, "Open your profile, switch to the Favorites/Bookmarks tab and wait for it to load.")
}
