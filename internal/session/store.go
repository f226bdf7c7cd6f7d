package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Skotchmaster/optica/internal/models"
)

// Stored is what survives a restart.
type Stored struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Store persists the session. Load returns nil, nil when nothing is stored.
type Store interface {
	Load() (*Stored, error)
	Save(s Stored) error
	Clear() error
}

type MemoryStore struct {
	mu  sync.Mutex
	cur *Stored
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load() (*Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil, nil
	}
	cp := *s.cur
	return &cp, nil
}

func (s *MemoryStore) Save(st Stored) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = &st
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = nil
	return nil
}

// FileStore keeps the session as a JSON file readable only by the owner.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

func (s *FileStore) Load() (*Stored, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var st Stored
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if st.Token == "" {
		return nil, nil
	}
	return &st, nil
}

func (s *FileStore) Save(st Stored) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
