// Package links holds the candidate URL model shared by the collector,
// the validator and the download orchestrator.
package links

import (
	"strings"
	"sync"
)

// CandidateURL is a query-stripped link discovered during collection
type CandidateURL string

func (u CandidateURL) String() string {
	return string(u)
}

// ItemID returns the path segment following the item marker, or "" when absent
func (u CandidateURL) ItemID(marker string) string {
	s := string(u)
	i := strings.Index(s, marker)
	if marker == "" || i < 0 {
		return ""
	}
	rest := s[i+len(marker):]
	if j := strings.IndexAny(rest, "/#"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// StripQuery drops everything from the first '?' onwards
func StripQuery(href string) string {
	if i := strings.IndexByte(href, '?'); i >= 0 {
		return href[:i]
	}
	return href
}

// Matcher is the structural validity predicate for item URLs
type Matcher struct {
	Domain string
	Marker string
}

// Match reports whether url carries both the item marker and the platform domain.
// It is a pure function of its input.
func (m Matcher) Match(url string) bool {
	if m.Domain == "" || m.Marker == "" {
		return false
	}
	return strings.Contains(url, m.Marker) && strings.Contains(url, m.Domain)
}

// Normalize strips the query and returns the candidate when it matches
func (m Matcher) Normalize(href string) (CandidateURL, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	clean := StripQuery(href)
	if !m.Match(clean) {
		return "", false
	}
	return CandidateURL(clean), true
}

// URLSet is an insertion-ordered set of candidate URLs.
// It grows until Freeze is called, after which Add is a no-op.
type URLSet struct {
	mu     sync.RWMutex
	order  []CandidateURL
	seen   map[CandidateURL]struct{}
	frozen bool
}

// NewURLSet creates an empty set
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[CandidateURL]struct{})}
}

// Add inserts u and reports whether the set grew
func (s *URLSet) Add(u CandidateURL) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return false
	}
	if _, ok := s.seen[u]; ok {
		return false
	}
	s.seen[u] = struct{}{}
	s.order = append(s.order, u)
	return true
}

// Contains reports membership
func (s *URLSet) Contains(u CandidateURL) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[u]
	return ok
}

// Len returns the number of URLs
func (s *URLSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Items returns a copy in discovery order
func (s *URLSet) Items() []CandidateURL {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CandidateURL, len(s.order))
	copy(out, s.order)
	return out
}

// Freeze stops further growth
func (s *URLSet) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// Frozen reports whether Freeze was called
func (s *URLSet) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}
