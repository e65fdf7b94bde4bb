package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the catalog in a JSON file, rewritten in full on every
// change with two-space indentation and sorted keys.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. A missing file reads as an
// empty catalog.
func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) read() (Catalog, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	c := Catalog{}
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse actions %s: %w", s.path, err)
	}
	return c, nil
}

func (s *FileStore) write(c Catalog) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".actions-*.json")
	if err != nil {
		return fmt.Errorf("write actions: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write actions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write actions: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the catalog.
func (s *FileStore) Load(ctx context.Context) (Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Put stores tmpl under category/key, creating the category if needed.
func (s *FileStore) Put(ctx context.Context, category, key, tmpl string) error {
	category, key = normalize(category, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.read()
	if err != nil {
		return err
	}
	if c[category] == nil {
		c[category] = map[string]string{}
	}
	c[category][key] = tmpl
	return s.write(c)
}

// Delete removes category/key.
func (s *FileStore) Delete(ctx context.Context, category, key string) error {
	category, key = normalize(category, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.read()
	if err != nil {
		return err
	}
	entries, ok := c[category]
	if !ok {
		return ErrCategoryNotFound
	}
	if _, ok := entries[key]; !ok {
		return ErrKeyNotFound
	}
	delete(entries, key)
	return s.write(c)
}
