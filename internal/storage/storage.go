// Package storage keeps uploaded images outside the database.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidKey = errors.New("invalid object key")

// StoredImage identifies a saved object and where clients can fetch it.
type StoredImage struct {
	Key string
	URL string
}

type ImageStore interface {
	Save(ctx context.Context, prefix, filename, contentType string, r io.Reader, size int64) (StoredImage, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds a collision-free object key under prefix, keeping the
// original file extension.
func NewKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join(prefix, uuid.NewString()+ext)
}

// validKey rejects keys that could escape the store root.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return false
		}
	}
	return true
}
