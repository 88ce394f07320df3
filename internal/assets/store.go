package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrAssetNotFound is returned when no asset exists under a key.
var ErrAssetNotFound = errors.New("asset not found")

// Store is the binary asset boundary. Keys embed the owning product id so
// asset naming is deterministic once a record has an identity.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type fsStore struct {
	root    string
	baseURL string
}

// NewFSStore creates a filesystem-backed asset store rooted at dir.
// Assets are served back under baseURL.
func NewFSStore(dir, baseURL string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset dir: %w", err)
	}
	return &fsStore{root: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *fsStore) path(key string) string {
	// Keys are "<uuid>.<ext>"; Base strips any path traversal attempt.
	return filepath.Join(s.root, filepath.Base(key))
}

func (s *fsStore) Put(_ context.Context, key string, data []byte) error {
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write asset %q: %w", key, err)
	}
	return nil
}

func (s *fsStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to read asset %q: %w", key, err)
	}
	return data, nil
}

func (s *fsStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrAssetNotFound
		}
		return fmt.Errorf("failed to delete asset %q: %w", key, err)
	}
	return nil
}

func (s *fsStore) URL(key string) string {
	return s.baseURL + "/" + filepath.Base(key)
}
