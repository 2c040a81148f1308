package scraper

import (
	"context"

	"bookmarkdl/pkg/auth"
	"bookmarkdl/pkg/browser"
	"bookmarkdl/pkg/collector"
)

// BrowserSession is the rendering session the pipeline drives.
// *browser.Session satisfies it.
type BrowserSession interface {
	collector.LinkSource
	collector.Scroller
	browser.Page

	Cookies(ctx context.Context) ([]auth.Cookie, error)
	SetCookies(ctx context.Context, cookies []auth.Cookie) error
	Close()
}

// SessionLauncher acquires a BrowserSession
type SessionLauncher func(ctx context.Context) (BrowserSession, error)

// SessionStore remembers login cookies between runs.
// *auth.Manager satisfies it.
type SessionStore interface {
	Save(session *auth.Session) error
	Load(profile string) (*auth.Session, error)
}
