package session

import (
	"errors"
	"os"
	"sync"
)

// Store is the raw persistence behind a Manager. It holds one opaque record
// under a fixed key, mirroring browser local storage: the Manager owns the
// encoding, the store only moves bytes.
type Store interface {
	Read() ([]byte, bool)
	Write(data []byte) error
	Delete()
}

// MemoryStore keeps the record in process memory. Used by tests and by
// clients that do not need the session to survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
	set  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Read() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return nil, false
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, true
}

func (s *MemoryStore) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.set = true
	return nil
}

func (s *MemoryStore) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.set = false
}

// FileStore persists the record to a single file so a restarted client picks
// its session back up.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Read() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *FileStore) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Truncate(s.path, 0)
	}
}
