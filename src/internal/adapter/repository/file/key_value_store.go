package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/api-sage/moneytransfer/src/internal/commons"
)

type document struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Values    map[string]string `json:"values"`
}

// KeyValueStore keeps client state in a single JSON document. Writes go to a
// temp file that is renamed over the original.
type KeyValueStore struct {
	mu   sync.Mutex
	path string
}

func NewKeyValueStore(path string) (*KeyValueStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &KeyValueStore{path: path}, nil
}

func (s *KeyValueStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}

	value, ok := doc.Values[key]
	if !ok {
		return "", commons.ErrRecordNotFound
	}
	return value, nil
}

func (s *KeyValueStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	doc.Values[key] = value
	return s.save(doc)
}

func (s *KeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Values[key]; !ok {
		return nil
	}

	delete(doc.Values, key)
	return s.save(doc)
}

func (s *KeyValueStore) load() (document, error) {
	doc := document{Version: 1, Values: map[string]string{}}

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode state file: %w", err)
	}
	if doc.Values == nil {
		doc.Values = map[string]string{}
	}

	return doc, nil
}

func (s *KeyValueStore) save(doc document) error {
	doc.UpdatedAt = time.Now().UTC()
	tmp := s.path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode state file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
