// Package storage keeps the client session (tokens, cached profile and
// transient flags) in a key/value area persisted across runs.
package storage

import (
	"crypto/cipher"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFile is the session file used when no path is configured.
const DefaultFile = "session.json"

// FileStore is a Store backed by a JSON file. When Cipher is set the file is
// encrypted at rest.
type FileStore struct {
	Path   string
	Cipher cipher.AEAD

	mu     sync.Mutex
	values map[string]string
}

// NewFileStore creates a FileStore for path and loads its current content.
func NewFileStore(path string, aead cipher.AEAD) (*FileStore, error) {
	if path == "" {
		path = DefaultFile
	}
	fs := &FileStore{Path: path, Cipher: aead}
	if err := fs.Load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Load reads the session file. A missing file yields an empty store.
func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.Path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.values = make(map[string]string)
			return nil
		}
		return fmt.Errorf("read session file: %w", err)
	}
	if fs.Cipher != nil {
		if data, err = open(fs.Cipher, data); err != nil {
			return err
		}
	}
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode session file: %w", err)
	}
	fs.values = values
	return nil
}

// save writes the current values. Callers must hold fs.mu.
func (fs *FileStore) save() error {
	data, err := json.Marshal(fs.values)
	if err != nil {
		return err
	}
	if fs.Cipher != nil {
		if data, err = seal(fs.Cipher, data); err != nil {
			return err
		}
	}
	if dir := filepath.Dir(fs.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	if err := os.WriteFile(fs.Path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Get implements Store.
func (fs *FileStore) Get(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.values[key]
	return v, ok
}

// Set implements Store.
func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.values == nil {
		fs.values = make(map[string]string)
	}
	fs.values[key] = value
	return fs.save()
}

// Delete implements Store.
func (fs *FileStore) Delete(keys ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	changed := false
	for _, k := range keys {
		if _, ok := fs.values[k]; ok {
			delete(fs.values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return fs.save()
}

// MemoryStore is a Store that lives only for the process lifetime.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set implements Store.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.values, k)
	}
	m.mu.Unlock()
	return nil
}

// Has reports whether key is set. Useful for tests.
func (m *MemoryStore) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}
