package auth

import "sync"

// MemoryStore is an in-process Store, used when nothing should touch disk
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session

	// SaveError, when set, is returned by Save
	SaveError error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Save(session *Session) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if session == nil || session.Profile == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Profile] = *session
	return nil
}

func (m *MemoryStore) Load(profile string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[profile]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemoryStore) List() ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		s := s
		result = append(result, &s)
	}
	return result, nil
}

func (m *MemoryStore) Delete(profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[profile]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, profile)
	return nil
}
