package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File keeps every key in a single JSON document on disk. Each write
// rewrites the document through a temp file and a rename, so a crash leaves
// either the old or the new content.
type File struct {
	path string

	mu     sync.RWMutex
	values map[string]string
	closed bool
}

var _ Store = (*File)(nil)

// NewFile opens (or lazily creates) the JSON document at path.
func NewFile(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("session state file path is required")
	}

	f := &File{
		path:   path,
		values: make(map[string]string),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the location of the backing document.
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return "", false, ErrClosed
	}

	v, ok := f.values[key]
	return v, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	prev, had := f.values[key]
	f.values[key] = value
	if err := f.persistLocked(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return wrapErr(err, "set", key)
	}
	return nil
}

func (f *File) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	changed := false
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return wrapErr(f.persistLocked(), "delete", strings.Join(keys, ","))
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *File) load() error {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read session state file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	if err := json.Unmarshal(b, &f.values); err != nil {
		return fmt.Errorf("decode session state file: %w", err)
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	return nil
}

func (f *File) persistLocked() error {
	b, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("mkdir session state dir: %w", err)
	}

	tmp := f.path + ".tmp"
	// tokens are credentials: keep the document private to the user
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session state file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session state file: %w", err)
	}
	return nil
}
