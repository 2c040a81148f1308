package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Cookie is a browser cookie in a storage-neutral form
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // seconds since epoch, 0 for session cookies
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// Expired reports whether the cookie is past its expiry at now
func (c Cookie) Expired(now time.Time) bool {
	return c.Expires > 0 && float64(now.Unix()) >= c.Expires
}

// Session is a remembered browser login, keyed by profile name
type Session struct {
	Profile string    `json:"profile"`
	Domain  string    `json:"domain"`
	Cookies []Cookie  `json:"cookies"`
	SavedAt time.Time `json:"saved_at"`
}

// Live returns the cookies that have not expired at now
func (s *Session) Live(now time.Time) []Cookie {
	var live []Cookie
	for _, c := range s.Cookies {
		if !c.Expired(now) {
			live = append(live, c)
		}
	}
	return live
}

// Store persists remembered sessions
type Store interface {
	Save(session *Session) error
	Load(profile string) (*Session, error)
	List() ([]*Session, error)
	Delete(profile string) error
}

// Manager writes to the first store that accepts a session and reads
// from whichever store has it
type Manager struct {
	stores []Store
}

// NewManager uses the system keychain when available and always falls
// back to an encrypted file under dir
func NewManager(dir string) (*Manager, error) {
	var stores []Store

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	passphrase, err := LoadOrCreatePassphrase(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	fs, err := NewEncryptedFileStore(filepath.Join(dir, "sessions.enc"), passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs)

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over explicit stores
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Save stores the session in the first store that accepts it
func (m *Manager) Save(session *Session) error {
	if session == nil || session.Profile == "" {
		return ErrInvalidSession
	}
	if len(session.Cookies) == 0 {
		return fmt.Errorf("%w: no cookies", ErrInvalidSession)
	}
	session.SavedAt = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Save(session); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to save session: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Load returns the newest remembered copy of profile that still has live
// cookies, with expired cookies dropped. A copy with no live cookie left
// counts as not found.
func (m *Manager) Load(profile string) (*Session, error) {
	now := time.Now()
	var best *Session
	for _, store := range m.stores {
		s, err := store.Load(profile)
		if err != nil || s == nil {
			continue
		}
		live := s.Live(now)
		if len(live) == 0 {
			continue
		}
		if best == nil || s.SavedAt.After(best.SavedAt) {
			s.Cookies = live
			best = s
		}
	}
	if best == nil {
		return nil, ErrSessionNotFound
	}
	return best, nil
}

// List returns every remembered session, newest copy per profile, sorted by name
func (m *Manager) List() ([]*Session, error) {
	byProfile := make(map[string]*Session)
	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, s := range sessions {
			if existing, ok := byProfile[s.Profile]; !ok || s.SavedAt.After(existing.SavedAt) {
				byProfile[s.Profile] = s
			}
		}
	}

	result := make([]*Session, 0, len(byProfile))
	for _, s := range byProfile {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Profile < result[j].Profile })
	return result, nil
}

// Delete removes profile from every store
func (m *Manager) Delete(profile string) error {
	deleted := false
	var lastErr error
	for _, store := range m.stores {
		err := store.Delete(profile)
		switch {
		case err == nil:
			deleted = true
		case !errors.Is(err, ErrSessionNotFound):
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	return ErrSessionNotFound
}

// DeleteAll removes every remembered session and returns how many were removed
func (m *Manager) DeleteAll() (int, error) {
	sessions, err := m.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range sessions {
		if m.Delete(s.Profile) == nil {
			n++
		}
	}
	return n, nil
}

// ConfigDir returns the per-user directory for bookmarkdl state
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "bookmarkdl")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "bookmarkdl")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "bookmarkdl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "bookmarkdl")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// MaskValue hides all but the first and last four characters
func MaskValue(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrSessionNotFound  = errors.New("remembered session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)
