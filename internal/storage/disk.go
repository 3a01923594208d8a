package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes images under a local directory served at urlPrefix.
type DiskStore struct {
	root      string
	urlPrefix string
}

func NewDiskStore(root, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Save(ctx context.Context, prefix, filename, contentType string, r io.Reader, size int64) (StoredImage, error) {
	if err := ctx.Err(); err != nil {
		return StoredImage{}, err
	}
	key := NewKey(prefix, filename)
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return StoredImage{}, fmt.Errorf("create dir for %s: %w", key, err)
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return StoredImage{}, fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return StoredImage{}, fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return StoredImage{}, fmt.Errorf("close %s: %w", key, err)
	}
	return StoredImage{Key: key, URL: s.urlPrefix + "/" + key}, nil
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
