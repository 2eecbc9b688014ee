package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const tempPrefix = ".partial-"

// LocalStorage keeps rendered export files in a single directory. Files are
// written to a temporary name first so a download never sees a partial file.
type LocalStorage struct {
	dir string
	now func() time.Time
}

// NewLocalStorage creates dir when missing.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "./exports"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create export directory %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir, now: time.Now}, nil
}

// Save stores data under name and returns the name to sign into download links.
func (s *LocalStorage) Save(name string, data []byte) (string, error) {
	target, err := s.path(name)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", fmt.Errorf("publish %s: %w", name, err)
	}
	return name, nil
}

// Open returns a read handle. The caller closes it.
func (s *LocalStorage) Open(name string) (*os.File, error) {
	target, err := s.path(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return file, nil
}

// Delete removes name. A missing file is not an error.
func (s *LocalStorage) Delete(name string) error {
	target, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// CleanupOlderThan deletes files last modified more than ttl ago, including
// temp files left by an interrupted Save, and returns the deleted names.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list export directory: %w", err)
	}
	cutoff := s.now().Add(-ttl)
	var deleted []string
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		if !strings.HasPrefix(entry.Name(), tempPrefix) {
			deleted = append(deleted, entry.Name())
		}
	}
	return deleted, errors.Join(errs...)
}

// path rejects names that would leave the export directory.
func (s *LocalStorage) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.HasPrefix(name, tempPrefix) {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
