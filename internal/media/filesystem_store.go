package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"

	"github.com/spf13/afero"
)

// FilesystemStore keeps objects on an afero filesystem rooted at a directory.
type FilesystemStore struct {
	fs afero.Fs
}

// NewFilesystemStore roots the store at dir on fs, creating the directory when missing.
func NewFilesystemStore(fs afero.Fs, dir string) (*FilesystemStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media.filesystem.new: %w", err)
	}
	return &FilesystemStore{fs: afero.NewBasePathFs(fs, dir)}, nil
}

// Put writes content under key.
func (store *FilesystemStore) Put(ctx context.Context, key string, content []byte, contentType string) error {
	if err := store.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return fmt.Errorf("media.filesystem.put: %w", err)
	}
	if err := afero.WriteFile(store.fs, key, content, 0o644); err != nil {
		return fmt.Errorf("media.filesystem.put: %w", err)
	}
	return nil
}

// Delete removes key; a missing object is not an error.
func (store *FilesystemStore) Delete(ctx context.Context, key string) error {
	if err := store.fs.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("media.filesystem.delete: %w", err)
	}
	return nil
}

// Exists reports whether key is present.
func (store *FilesystemStore) Exists(key string) bool {
	exists, err := afero.Exists(store.fs, key)
	return err == nil && exists
}

// HTTPFileSystem exposes the stored objects for static serving.
func (store *FilesystemStore) HTTPFileSystem() http.FileSystem {
	return afero.NewHttpFs(store.fs).Dir("/")
}
