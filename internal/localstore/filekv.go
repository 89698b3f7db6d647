package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileKV keeps all keys in one JSON object on disk. Every write rewrites
// the file through a temp file and rename. A file that is not a JSON object
// is moved to <path>.corrupt and the store starts empty.
type FileKV struct {
	path      string
	mu        sync.RWMutex
	data      map[string]string
	recovered string
}

var _ KV = (*FileKV)(nil)

func NewFileKV(path string) (*FileKV, error) {
	kv := &FileKV{
		path: path,
		data: make(map[string]string),
	}

	if err := kv.load(); err != nil {
		return nil, fmt.Errorf("failed to load store file: %w", err)
	}

	return kv, nil
}

func (f *FileKV) load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}

	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	err = json.NewDecoder(file).Decode(&f.data)
	file.Close()

	if err != nil && err != io.EOF {
		backup := f.path + ".corrupt"
		if renameErr := os.Rename(f.path, backup); renameErr != nil {
			return fmt.Errorf("store file is corrupt (%v) and could not be moved aside: %w", err, renameErr)
		}
		f.data = make(map[string]string)
		f.recovered = backup
		return nil
	}

	if f.data == nil {
		f.data = make(map[string]string)
	}

	return nil
}

// Recovered returns where a corrupt store file was moved on open, or ""
// when the file loaded cleanly.
func (f *FileKV) Recovered() string {
	return f.recovered
}

func (f *FileKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileKV) Set(ctx context.Context, key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.data[key]
	f.data[key] = value

	if err := f.save(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}

	return nil
}

func (f *FileKV) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.data[key]
	if !had {
		return nil
	}

	delete(f.data, key)

	if err := f.save(); err != nil {
		f.data[key] = prev
		return err
	}

	return nil
}

// save must be called with mu held.
func (f *FileKV) save() error {
	tmp := f.path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}

	if err := json.NewEncoder(file).Encode(f.data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("error encoding store: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("error replacing store file: %w", err)
	}

	return nil
}
