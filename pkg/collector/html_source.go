package collector

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// HTMLSource answers link queries from a static document, such as a
// listing page saved from the browser
type HTMLSource struct {
	doc  *goquery.Document
	base *url.URL
}

// NewHTMLSource parses r as HTML. Relative hrefs resolve against the
// document's <base href>, or against origin when the page has none.
func NewHTMLSource(r io.Reader, origin string) (*HTMLSource, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := url.Parse(href); err == nil {
			base = base.ResolveReference(u)
		}
	}
	return &HTMLSource{doc: doc, base: base}, nil
}

// OpenHTMLSource parses the file at path
func OpenHTMLSource(path, origin string) (*HTMLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return NewHTMLSource(f, origin)
}

// PlatformOrigin is the page origin used for a saved page of domain
func PlatformOrigin(domain string) string {
	return "https://www." + domain + "/"
}

// QueryLinks returns the absolute href of every matching element that has one.
// goquery silently matches nothing on a bad selector, so it is compiled first.
func (s *HTMLSource) QueryLinks(_ context.Context, selector string) ([]string, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}

	var hrefs []string
	s.doc.FindMatcher(m).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		hrefs = append(hrefs, s.base.ResolveReference(u).String())
	})
	return hrefs, nil
}

// StaticScroller is a Scroller for documents that never load more content
type StaticScroller struct{}

func (StaticScroller) ScrollToBottom(context.Context) error { return nil }

func (StaticScroller) ScrollContainers(context.Context, []string) error { return nil }
