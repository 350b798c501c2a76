package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/abduss/bitbeem/internal/ident"
)

const tmpSuffix = ".tmp"

// Filesystem keeps one file per blob under a data directory, named by the identifier.
type Filesystem struct {
	dir string
}

// NewFilesystem returns a store rooted at dir. The directory is created lazily by Ensure.
func NewFilesystem(dir string) *Filesystem {
	return &Filesystem{dir: dir}
}

// Dir returns the data directory.
func (f *Filesystem) Dir() string {
	return f.dir
}

func (f *Filesystem) Ensure(ctx context.Context) error {
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return fmt.Errorf("create data dir %s: %w", f.dir, err)
	}
	return nil
}

// Put writes to a temp file, fsyncs and renames so a reader never sees a partial blob.
func (f *Filesystem) Put(ctx context.Context, id string, data []byte) error {
	path, err := f.path(id)
	if err != nil {
		return err
	}
	tmpPath := path + tmpSuffix

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create temp blob %s: %w", id, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write blob %s: %w", id, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsync blob %s: %w", id, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close blob %s: %w", id, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename blob %s: %w", id, err)
	}
	return nil
}

func (f *Filesystem) Exists(ctx context.Context, id string) (bool, error) {
	path, err := f.path(id)
	if err != nil {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob %s: %w", id, err)
	}
	return info.Mode().IsRegular(), nil
}

func (f *Filesystem) Get(ctx context.Context, id string) ([]byte, error) {
	path, err := f.path(id)
	if err != nil {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}
	return data, nil
}

func (f *Filesystem) Delete(ctx context.Context, id string) error {
	path, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob %s: %w", id, err)
	}
	return nil
}

// List skips temp files and anything that is not named like an identifier.
func (f *Filesystem) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list data dir %s: %w", f.dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasSuffix(name, tmpSuffix) || !ident.Valid(name) {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}

func (f *Filesystem) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("stat data dir %s: %w", f.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", f.dir)
	}
	return nil
}

func (f *Filesystem) path(id string) (string, error) {
	if !ident.Valid(id) {
		return "", ErrInvalidID
	}
	return filepath.Join(f.dir, id), nil
}
