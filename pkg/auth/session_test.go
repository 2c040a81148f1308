package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func sampleSession(profile string) *Session {
	return &Session{
		Profile: profile,
		Domain:  "tiktok.com",
		Cookies: []Cookie{
			{Name: "sessionid", Value: "abcdef1234567890", Domain: ".tiktok.com", Path: "/", HTTPOnly: true, Secure: true},
			{Name: "tt_csrf_token", Value: "csrf", Domain: ".tiktok.com", Path: "/", Expires: float64(time.Now().Add(time.Hour).Unix())},
		},
	}
}

func TestCookieExpired(t *testing.T) {
	now := time.Unix(1_000_000, 0)

	assert.False(t, Cookie{}.Expired(now), "session cookies never expire here")
	assert.True(t, Cookie{Expires: 999_999}.Expired(now))
	assert.False(t, Cookie{Expires: 1_000_001}.Expired(now))
}

func TestManagerSaveLoadDelete(t *testing.T) {
	store := NewMemoryStore()
	m := NewManagerWithStores(store)

	require.NoError(t, m.Save(sampleSession("default")))

	s, err := m.Load("default")
	require.NoError(t, err)
	assert.Equal(t, "tiktok.com", s.Domain)
	assert.Len(t, s.Cookies, 2)
	assert.False(t, s.SavedAt.IsZero())

	require.NoError(t, m.Delete("default"))
	_, err = m.Load("default")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete("default"), ErrSessionNotFound)
}

func TestManagerRejectsEmptySessions(t *testing.T) {
	m := NewManagerWithStores(NewMemoryStore())

	assert.ErrorIs(t, m.Save(&Session{Profile: ""}), ErrInvalidSession)
	assert.ErrorIs(t, m.Save(&Session{Profile: "p"}), ErrInvalidSession)
}

func TestManagerDropsExpiredCookies(t *testing.T) {
	store := NewMemoryStore()
	m := NewManagerWithStores(store)

	s := sampleSession("old")
	s.Cookies = []Cookie{{Name: "sessionid", Value: "x", Expires: 1}}
	require.NoError(t, store.Save(s))

	_, err := m.Load("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	mixed := sampleSession("mixed")
	mixed.Cookies = append(mixed.Cookies, Cookie{Name: "stale", Expires: 1})
	require.NoError(t, store.Save(mixed))

	loaded, err := m.Load("mixed")
	require.NoError(t, err)
	assert.Len(t, loaded.Cookies, 2)
}

func TestManagerFallsBackWhenFirstStoreFails(t *testing.T) {
	broken := NewMemoryStore()
	broken.SaveError = errors.New("data too big")
	fallback := NewMemoryStore()
	m := NewManagerWithStores(broken, fallback)

	require.NoError(t, m.Save(sampleSession("default")))

	_, err := fallback.Load("default")
	assert.NoError(t, err)

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "default", list[0].Profile)
}

func TestManagerLoadSkipsExpiredCopy(t *testing.T) {
	stale := NewMemoryStore()
	fresh := NewMemoryStore()

	old := sampleSession("p")
	old.Cookies = []Cookie{{Name: "sid", Value: "old", Expires: float64(time.Now().Add(-time.Hour).Unix())}}
	old.SavedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, stale.Save(old))

	live := sampleSession("p")
	live.Cookies = []Cookie{{Name: "sid", Value: "new", Expires: float64(time.Now().Add(time.Hour).Unix())}}
	live.SavedAt = time.Now()
	require.NoError(t, fresh.Save(live))

	s, err := NewManagerWithStores(stale, fresh).Load("p")
	require.NoError(t, err)
	require.Len(t, s.Cookies, 1)
	assert.Equal(t, "new", s.Cookies[0].Value)
}

func TestManagerLoadPrefersNewestCopy(t *testing.T) {
	first := NewMemoryStore()
	second := NewMemoryStore()

	older := sampleSession("p")
	older.Cookies[0].Value = "older"
	older.SavedAt = time.Now().Add(-time.Hour)
	require.NoError(t, first.Save(older))

	newer := sampleSession("p")
	newer.Cookies[0].Value = "newer"
	newer.SavedAt = time.Now()
	require.NoError(t, second.Save(newer))

	s, err := NewManagerWithStores(first, second).Load("p")
	require.NoError(t, err)
	assert.Equal(t, "newer", s.Cookies[0].Value)
}

func TestManagerDeleteAll(t *testing.T) {
	m := NewManagerWithStores(NewMemoryStore())
	require.NoError(t, m.Save(sampleSession("a")))
	require.NoError(t, m.Save(sampleSession("b")))

	n, err := m.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path, "correct horse battery staple")
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleSession("a")))
	require.NoError(t, store.Save(sampleSession("b")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "abcdef1234567890", "cookie values must not be stored in clear")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	s, err := store.Load("a")
	require.NoError(t, err)
	assert.Equal(t, "abcdef1234567890", s.Cookies[0].Value)

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, store.Delete("a"))
	require.NoError(t, store.Delete("b"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is removed with the last session")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path, "one")
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleSession("a")))

	other, err := NewEncryptedFileStore(path, "two")
	require.NoError(t, err)
	_, err = other.Load("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong passphrase")
}

func TestLoadOrCreatePassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	first, err := LoadOrCreatePassphrase(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := LoadOrCreatePassphrase(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	t.Setenv(PassphraseEnv, "from-env")
	fromEnv, err := LoadOrCreatePassphrase(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", fromEnv)
}

func TestKeyringStoreWithMockBackend(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleSession("a")))
	require.NoError(t, store.Save(sampleSession("b")))

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	s, err := store.Load("b")
	require.NoError(t, err)
	assert.Equal(t, "b", s.Profile)

	require.NoError(t, store.Delete("a"))
	assert.ErrorIs(t, store.Delete("a"), ErrSessionNotFound)

	list, err = store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].Profile)
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "********", MaskValue("short"))
	assert.Equal(t, "abcd...7890", MaskValue("abcdef1234567890"))
}
