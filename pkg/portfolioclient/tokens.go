package portfolioclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Credentials is the access/refresh pair issued at login and refreshed on demand.
type Credentials struct {
	Access  string
	Refresh string
}

// TokenStore persists the session between requests and process restarts.
// Implementations must be safe for concurrent use.
type TokenStore interface {
	Load() (Credentials, error)
	SaveSession(credentials Credentials, user any) error
	SaveAccess(accessToken string) error
	SaveRefresh(refreshToken string) error
	SaveUser(user any) error
	LoadUser(into any) (bool, error)
	Clear() error
}

// sessionRecord is the durable layout: one stable key per credential plus the user record.
type sessionRecord struct {
	Access  string          `json:"access,omitempty"`
	Refresh string          `json:"refresh,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
}

func (record *sessionRecord) setSession(credentials Credentials, user any) error {
	record.Access = credentials.Access
	record.Refresh = credentials.Refresh
	return record.setUser(user)
}

func (record *sessionRecord) setUser(user any) error {
	record.User = nil
	if user == nil {
		return nil
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("token_store.encode_user: %w", err)
	}
	record.User = encoded
	return nil
}

func (record sessionRecord) decodeUser(into any) (bool, error) {
	if len(record.User) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(record.User, into); err != nil {
		return false, fmt.Errorf("token_store.decode_user: %w", err)
	}
	return true, nil
}

// MemoryTokenStore keeps the session in process memory.
type MemoryTokenStore struct {
	mutex  sync.Mutex
	record sessionRecord
}

// NewMemoryTokenStore returns an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load returns the stored credentials; empty values mean none.
func (store *MemoryTokenStore) Load() (Credentials, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return Credentials{Access: store.record.Access, Refresh: store.record.Refresh}, nil
}

// SaveSession replaces the whole session.
func (store *MemoryTokenStore) SaveSession(credentials Credentials, user any) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.record.setSession(credentials, user)
}

// SaveAccess replaces the access credential only.
func (store *MemoryTokenStore) SaveAccess(accessToken string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.record.Access = accessToken
	return nil
}

// SaveRefresh replaces the refresh credential only.
func (store *MemoryTokenStore) SaveRefresh(refreshToken string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.record.Refresh = refreshToken
	return nil
}

// SaveUser replaces the stored user record only.
func (store *MemoryTokenStore) SaveUser(user any) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.record.setUser(user)
}

// LoadUser decodes the stored user record into into and reports whether one existed.
func (store *MemoryTokenStore) LoadUser(into any) (bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.record.decodeUser(into)
}

// Clear removes every stored value.
func (store *MemoryTokenStore) Clear() error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.record = sessionRecord{}
	return nil
}

// FileTokenStore keeps the session in a JSON file readable only by the owner.
type FileTokenStore struct {
	mutex sync.Mutex
	fs    afero.Fs
	path  string
}

const (
	sessionFileMode = 0o600
	sessionDirMode  = 0o700
)

// DefaultSessionPath returns ~/.portfolioctl/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("token_store.home_dir: %w", err)
	}
	return filepath.Join(home, ".portfolioctl", "session.json"), nil
}

// NewFileTokenStore stores the session at path on fs; a nil fs means the OS filesystem.
func NewFileTokenStore(fs afero.Fs, path string) *FileTokenStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileTokenStore{fs: fs, path: path}
}

// Path reports where the session file lives.
func (store *FileTokenStore) Path() string {
	return store.path
}

func (store *FileTokenStore) read() (sessionRecord, error) {
	var record sessionRecord
	content, err := afero.ReadFile(store.fs, store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return record, nil
		}
		return record, fmt.Errorf("token_store.read: %w", err)
	}
	if len(content) == 0 {
		return record, nil
	}
	if err := json.Unmarshal(content, &record); err != nil {
		return sessionRecord{}, fmt.Errorf("token_store.decode: %w", err)
	}
	return record, nil
}

func (store *FileTokenStore) write(record sessionRecord) error {
	encoded, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("token_store.encode: %w", err)
	}
	if err := store.fs.MkdirAll(filepath.Dir(store.path), sessionDirMode); err != nil {
		return fmt.Errorf("token_store.mkdir: %w", err)
	}
	temporary := store.path + ".tmp"
	if err := afero.WriteFile(store.fs, temporary, encoded, sessionFileMode); err != nil {
		return fmt.Errorf("token_store.write: %w", err)
	}
	if err := store.fs.Rename(temporary, store.path); err != nil {
		return fmt.Errorf("token_store.rename: %w", err)
	}
	return nil
}

func (store *FileTokenStore) update(mutate func(*sessionRecord) error) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, err := store.read()
	if err != nil {
		return err
	}
	if err := mutate(&record); err != nil {
		return err
	}
	return store.write(record)
}

// Load returns the stored credentials; a missing file means none.
func (store *FileTokenStore) Load() (Credentials, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, err := store.read()
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Access: record.Access, Refresh: record.Refresh}, nil
}

// SaveSession replaces the whole session.
func (store *FileTokenStore) SaveSession(credentials Credentials, user any) error {
	return store.update(func(record *sessionRecord) error {
		return record.setSession(credentials, user)
	})
}

// SaveAccess replaces the access credential only.
func (store *FileTokenStore) SaveAccess(accessToken string) error {
	return store.update(func(record *sessionRecord) error {
		record.Access = accessToken
		return nil
	})
}

// SaveRefresh replaces the refresh credential only.
func (store *FileTokenStore) SaveRefresh(refreshToken string) error {
	return store.update(func(record *sessionRecord) error {
		record.Refresh = refreshToken
		return nil
	})
}

// SaveUser replaces the stored user record only.
func (store *FileTokenStore) SaveUser(user any) error {
	return store.update(func(record *sessionRecord) error {
		return record.setUser(user)
	})
}

// LoadUser decodes the stored user record into into and reports whether one existed.
func (store *FileTokenStore) LoadUser(into any) (bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, err := store.read()
	if err != nil {
		return false, err
	}
	return record.decodeUser(into)
}

// Clear deletes the session file.
func (store *FileTokenStore) Clear() error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if err := store.fs.Remove(store.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("token_store.clear: %w", err)
	}
	return nil
}
