package stremio

import (
	"encoding/json"
	"fmt"
	"sync"
)

const (
	storageKeyAuth   = "auth"
	storageKeyAddons = "addons"
)

// Storage persists client state as JSON documents keyed by name.
type Storage interface {
	// GetJSON decodes the value stored under key into v. It reports false
	// when nothing is stored.
	GetJSON(key string, v any) (bool, error)
	SetJSON(key string, v any) error
}

// NopStorage never holds anything: reads are always empty and writes are
// discarded.
type NopStorage struct{}

func (NopStorage) GetJSON(string, any) (bool, error) { return false, nil }
func (NopStorage) SetJSON(string, any) error         { return nil }

// MemoryStorage keeps encoded values in memory. It is safe for concurrent use.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (s *MemoryStorage) GetJSON(key string, v any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStorage) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string][]byte)
	}
	s.values[key] = raw
	return nil
}
