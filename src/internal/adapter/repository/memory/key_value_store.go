package memory

import (
	"context"
	"sync"

	"github.com/api-sage/moneytransfer/src/internal/commons"
)

type KeyValueStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{values: make(map[string]string)}
}

func (s *KeyValueStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", commons.ErrRecordNotFound
	}
	return value, nil
}

func (s *KeyValueStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *KeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}
