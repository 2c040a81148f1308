package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// PassphraseEnv overrides the generated passphrase file
const PassphraseEnv = "BOOKMARKDL_PASSPHRASE"

// EncryptedFileStore keeps all sessions in one AES-GCM encrypted file,
// keyed with PBKDF2 from a passphrase
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

type encryptedFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// NewEncryptedFileStore creates a store backed by path
func NewEncryptedFileStore(path, passphrase string) (*EncryptedFileStore, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

func (e *EncryptedFileStore) Save(session *Session) error {
	if session == nil || session.Profile == "" {
		return ErrInvalidSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, salt, err := e.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load existing sessions: %w", err)
	}
	if sessions == nil {
		sessions = make(map[string]Session)
	}

	sessions[session.Profile] = *session
	return e.save(sessions, salt)
}

func (e *EncryptedFileStore) Load(profile string) (*Session, error) {
	if profile == "" {
		return nil, ErrInvalidSession
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	sessions, _, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	s, ok := sessions[profile]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (e *EncryptedFileStore) List() ([]*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sessions, _, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	result := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		s := s
		result = append(result, &s)
	}
	return result, nil
}

func (e *EncryptedFileStore) Delete(profile string) error {
	if profile == "" {
		return ErrInvalidSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, salt, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return err
	}
	if _, ok := sessions[profile]; !ok {
		return ErrSessionNotFound
	}

	delete(sessions, profile)
	if len(sessions) == 0 {
		return os.Remove(e.path)
	}
	return e.save(sessions, salt)
}

// load returns os.ErrNotExist unwrapped when the file is missing
func (e *EncryptedFileStore) load() (map[string]Session, []byte, error) {
	content, err := os.ReadFile(e.path)
	if err != nil {
		return nil, nil, err
	}

	var file encryptedFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	plaintext, err := decrypt(ciphertext, e.key(salt))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt sessions (wrong passphrase?): %w", err)
	}

	var sessions map[string]Session
	if err := json.Unmarshal(plaintext, &sessions); err != nil {
		return nil, nil, fmt.Errorf("failed to parse sessions: %w", err)
	}
	return sessions, salt, nil
}

func (e *EncryptedFileStore) save(sessions map[string]Session, salt []byte) error {
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plaintext, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	ciphertext, err := encrypt(plaintext, e.key(salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt sessions: %w", err)
	}

	content, err := json.MarshalIndent(encryptedFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
		Version:   1,
		Modified:  time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename session file: %w", err)
	}
	return nil
}

func (e *EncryptedFileStore) key(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
}

// LoadOrCreatePassphrase returns $BOOKMARKDL_PASSPHRASE, or the passphrase
// stored in dir, generating and saving one on first use
func LoadOrCreatePassphrase(dir string) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	path := filepath.Join(dir, ".passphrase")
	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

// encrypt seals plaintext with AES-GCM, prefixing the nonce
func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
