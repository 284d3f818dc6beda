package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"judge_gate/internal/common"
)

// FSStore writes one file per key under root.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create runs directory %s: %w", root, err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid blob key %q: %w", key, common.ErrValidation)
	}
	return filepath.Join(s.root, key), nil
}

// Write stores data atomically: readers see either nothing or the full file.
func (s *FSStore) Write(ctx context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, "."+key+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", common.ErrFilesystemOperation, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", common.ErrFilesystemOperation, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", common.ErrFilesystemOperation, key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("%w: rename %s: %w", common.ErrFilesystemOperation, key, err)
	}
	return nil
}

func (s *FSStore) Read(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("source for %s: %w", key, common.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrFilesystemOperation, key, err)
	}
	return data, nil
}
