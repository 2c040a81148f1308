package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService  = "bookmarkdl"
	keyringPrefix   = "session_"
	keyringIndexKey = "profiles"
)

// KeyringStore keeps sessions in the system keychain. The keychain cannot
// enumerate entries, so profile names are tracked in an index entry.
type KeyringStore struct{}

// NewKeyringStore returns a store if the keychain accepts writes
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

func (k *KeyringStore) Save(session *Session) error {
	if session == nil || session.Profile == "" {
		return ErrInvalidSession
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Windows caps secrets at a few KB; the manager falls back to the file store
	if err := keyring.Set(keyringService, keyringPrefix+session.Profile, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return k.updateIndex(func(profiles map[string]bool) { profiles[session.Profile] = true })
}

func (k *KeyringStore) Load(profile string) (*Session, error) {
	if profile == "" {
		return nil, ErrInvalidSession
	}

	data, err := keyring.Get(keyringService, keyringPrefix+profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (k *KeyringStore) List() ([]*Session, error) {
	profiles, err := k.index()
	if err != nil {
		return nil, err
	}

	var sessions []*Session
	for profile := range profiles {
		s, err := k.Load(profile)
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (k *KeyringStore) Delete(profile string) error {
	if profile == "" {
		return ErrInvalidSession
	}

	err := keyring.Delete(keyringService, keyringPrefix+profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	return k.updateIndex(func(profiles map[string]bool) { delete(profiles, profile) })
}

func (k *KeyringStore) index() (map[string]bool, error) {
	profiles := make(map[string]bool)
	data, err := keyring.Get(keyringService, keyringIndexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return profiles, nil
		}
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}
	for _, p := range strings.Split(data, "\n") {
		if p != "" {
			profiles[p] = true
		}
	}
	return profiles, nil
}

func (k *KeyringStore) updateIndex(update func(map[string]bool)) error {
	profiles, err := k.index()
	if err != nil {
		return err
	}
	update(profiles)

	if len(profiles) == 0 {
		err := keyring.Delete(keyringService, keyringIndexKey)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to clear keyring index: %w", err)
		}
		return nil
	}

	names := make([]string, 0, len(profiles))
	for p := range profiles {
		names = append(names, p)
	}
	if err := keyring.Set(keyringService, keyringIndexKey, strings.Join(names, "\n")); err != nil {
		return fmt.Errorf("failed to write keyring index: %w", err)
	}
	return nil
}
