package tokenstore

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists an account pool. Implementations must make Save atomic with
// respect to concurrent Loads.
type Store interface {
	Load() ([]*Account, error)
	Save(accounts []*Account) error
	// Salt returns the per-store salt used for token id derivation,
	// creating it on first use.
	Salt() (string, error)
}

// FileStore keeps accounts in a JSON array on disk, optionally encrypted at
// rest. The salt lives in a sidecar file next to the account file.
type FileStore struct {
	path     string
	password string

	mu   sync.Mutex
	salt string
}

// NewFileStore creates a file-backed store. A non-empty password enables
// encryption-at-rest.
func NewFileStore(path, password string) *FileStore {
	return &FileStore{path: path, password: password}
}

func (s *FileStore) saltPath() string { return s.path + ".salt" }

// Salt loads or creates the per-file salt.
func (s *FileStore) Salt() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saltLocked()
}

func (s *FileStore) saltLocked() (string, error) {
	if s.salt != "" {
		return s.salt, nil
	}
	data, err := os.ReadFile(s.saltPath())
	if err == nil && len(data) > 0 {
		s.salt = string(data)
		return s.salt, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("read salt: %w", err)
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(buf)
	if err := os.MkdirAll(filepath.Dir(s.saltPath()), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(s.saltPath(), []byte(salt), 0o600); err != nil {
		return "", fmt.Errorf("write salt: %w", err)
	}
	s.salt = salt
	return salt, nil
}

// Load reads the account file. A missing file yields an empty pool.
func (s *FileStore) Load() ([]*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	if s.password != "" && isEncryptedPayload(data) {
		salt, err := s.saltLocked()
		if err != nil {
			return nil, err
		}
		data, err = decryptPayload(data, s.password, salt)
		if err != nil {
			return nil, fmt.Errorf("decrypt accounts: %w", err)
		}
	}

	var accounts []*Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parse accounts: %w", err)
	}
	return accounts, nil
}

// Save writes the full pool via temp-file rename so readers never observe a
// partial file.
func (s *FileStore) Save(accounts []*Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}

	if s.password != "" {
		salt, err := s.saltLocked()
		if err != nil {
			return err
		}
		data, err = encryptPayload(data, s.password, salt)
		if err != nil {
			return fmt.Errorf("encrypt accounts: %w", err)
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Path returns the backing file path (used by the fsnotify watcher).
func (s *FileStore) Path() string { return s.path }
