package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// LocalStorage keeps images in a directory served under a public URL prefix.
type LocalStorage struct {
	dir    string
	prefix string
	mu     sync.RWMutex
}

// NewLocalStorage creates dir if needed. prefix is the URL path the
// directory is served under (e.g. "/uploads").
func NewLocalStorage(dir, prefix string) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("image directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &LocalStorage{
		dir:    dir,
		prefix: "/" + strings.Trim(prefix, "/"),
	}, nil
}

// Dir returns the directory images are written to.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Prefix returns the URL prefix references start with.
func (s *LocalStorage) Prefix() string {
	return s.prefix
}

func (s *LocalStorage) Save(_ context.Context, key string, data []byte) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a temp file first so a failed write never leaves a truncated image.
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp image file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store image file: %w", err)
	}

	return path.Join(s.prefix, key), nil
}

func (s *LocalStorage) Delete(_ context.Context, ref string) error {
	key, ok := s.keyFromRef(ref)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Exists(_ context.Context, ref string) (bool, error) {
	key, ok := s.keyFromRef(ref)
	if !ok {
		return false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(filepath.Join(s.dir, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// keyFromRef accepts both "<prefix>/<key>" and a bare key.
func (s *LocalStorage) keyFromRef(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	key := strings.TrimPrefix(ref, s.prefix+"/")
	if validateKey(key) != nil {
		return "", false
	}
	return key, true
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("image key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid image key %q", key)
	}
	return nil
}
