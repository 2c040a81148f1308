// Package browser owns the rendering session used for collection: a
// Chromium instance driven over CDP with go-rod, plus the interactive
// hand-offs that need a human at the keyboard.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"bookmarkdl/pkg/auth"
	"bookmarkdl/pkg/config"
	bderrors "bookmarkdl/pkg/errors"
	"bookmarkdl/pkg/logger"
	"bookmarkdl/pkg/retry"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// hideWebdriver runs before any page script on every navigation
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

const (
	scrollToBottomJS = `() => window.scrollTo(0, document.body.scrollHeight)`

	scrollContainersJS = `(sel) => {
		document.querySelectorAll(sel).forEach(c => { c.scrollTop = c.scrollHeight })
	}`
)

// Session is one browser with one page. It is created by Launch and must
// be closed by the caller; Close is safe to call more than once.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   logger.Logger

	closeOnce sync.Once
}

// Launch starts the browser, retrying up to cfg.LaunchAttempts times.
// Failure is a session error: nothing downstream can run without it.
func Launch(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "browser")

	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.LaunchAttempts
	rc.Logger = log

	s, err := retry.DoWithResult(ctx, func() (*Session, error) {
		return launchOnce(ctx, cfg, log)
	}, rc)
	if err != nil {
		return nil, bderrors.New(bderrors.ErrorTypeSession, bderrors.ErrSessionUnavailable.Message, err)
	}

	log.InfoWithFields("Browser session ready", map[string]interface{}{
		"headless": cfg.Headless,
		"stealth":  cfg.Stealth,
	})
	return s, nil
}

func launchOnce(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless)

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-default-apps"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	log.DebugWithFields("Browser launched", map[string]interface{}{"control_url": controlURL})

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &Session{launcher: l, browser: browser, logger: log}

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page

	if _, err := page.EvalOnNewDocument(hideWebdriver); err != nil {
		log.WithError(err).Warn("Failed to install webdriver mask")
	}
	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			log.WithError(err).Warn("Failed to override user agent")
		}
	}

	return s, nil
}

// Close shuts the browser down and removes its temporary profile
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.logger.WithError(err).Debug("Browser close failed")
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.logger.Debug("Browser session closed")
	})
}

func (s *Session) p(ctx context.Context) *rod.Page {
	return s.page.Context(ctx)
}

// Navigate loads url and waits for the load event
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.p(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for %s failed: %w", url, err)
	}
	return nil
}

// CurrentURL returns the URL of the page
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	info, err := s.p(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

// Eval runs js, a function expression, and returns its result as a string
func (s *Session) Eval(ctx context.Context, js string, args ...interface{}) (string, error) {
	res, err := s.p(ctx).Eval(js, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// QueryLinks returns the resolved href of every element matching selector.
// Elements without an href are skipped.
func (s *Session) QueryLinks(ctx context.Context, selector string) ([]string, error) {
	els, err := s.p(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}

	hrefs, skipped := collectHrefs(len(els), func(i int) (string, error) {
		v, err := els[i].Property("href")
		if err != nil {
			return "", err
		}
		return v.Str(), nil
	})
	if skipped > 0 {
		s.logger.DebugWithFields("Skipped unreadable elements", map[string]interface{}{
			"selector": selector,
			"skipped":  skipped,
		})
	}
	return hrefs, nil
}

// collectHrefs reads the href of n elements. An element whose href cannot
// be read, for example because it left the DOM, is skipped and counted.
func collectHrefs(n int, href func(i int) (string, error)) ([]string, int) {
	hrefs := make([]string, 0, n)
	skipped := 0
	for i := 0; i < n; i++ {
		h, err := href(i)
		if err != nil {
			skipped++
			continue
		}
		if h != "" {
			hrefs = append(hrefs, h)
		}
	}
	return hrefs, skipped
}

// ScrollToBottom scrolls the window to the end of the document
func (s *Session) ScrollToBottom(ctx context.Context) error {
	_, err := s.p(ctx).Eval(scrollToBottomJS)
	return err
}

// ScrollContainers scrolls every element matching any of selectors to its end
func (s *Session) ScrollContainers(ctx context.Context, selectors []string) error {
	_, err := s.p(ctx).Eval(scrollContainersJS, strings.Join(selectors, ", "))
	return err
}

// Cookies returns the cookies visible to the current page
func (s *Session) Cookies(ctx context.Context) ([]auth.Cookie, error) {
	cookies, err := s.p(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	out := make([]auth.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, auth.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out, nil
}

// SetCookies installs cookies into the browser
func (s *Session) SetCookies(ctx context.Context, cookies []auth.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	if err := s.p(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}
