package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage persists uploaded assets on disk under a base directory.
// Keys are relative paths such as "avatars/<uuid>.png".
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// NewKey builds a collision-free storage key under the given prefix,
// preserving the original file extension.
func NewKey(prefix, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return filepath.Join(prefix, uuid.NewString()+ext)
}

// Save writes the given bytes under the provided key.
func (s *LocalStorage) Save(key string, data []byte) (string, error) {
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return key, nil
}

// SaveStream copies from reader into the file addressed by key.
func (s *LocalStorage) SaveStream(key string, r io.Reader) (string, error) {
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write upload stream: %w", err)
	}
	return key, nil
}

// Open returns a read-only handle for the stored asset.
func (s *LocalStorage) Open(key string) (*os.File, error) {
	file, err := os.Open(s.resolve(key))
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	return file, nil
}

// Delete removes a stored asset if present.
func (s *LocalStorage) Delete(key string) error {
	if err := os.Remove(s.resolve(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(key string) string {
	return s.resolve(key)
}

func (s *LocalStorage) resolve(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(s.baseDir, key)
}
