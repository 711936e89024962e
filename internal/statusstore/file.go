package statusstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"comprafacil/internal/order"
)

// FileStore keeps every entry in one JSON document. Each Put rereads the
// file so writes from another process are not lost, and replaces it with
// a temp file + rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create status store dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Get(_ context.Context, orderID string) (order.Status, error) {
	if err := validate(orderID); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return "", err
	}
	if s, ok := data[Key(orderID)]; ok {
		return order.Status(s), nil
	}
	return order.StatusPending, nil
}

func (f *FileStore) Put(_ context.Context, orderID string, status order.Status) error {
	if err := validate(orderID); err != nil {
		return err
	}
	if status == "" {
		return ErrEmptyStatus
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	data[Key(orderID)] = string(status)
	return f.save(data)
}

func (f *FileStore) load() (map[string]string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read status store: %w", err)
	}
	if len(b) == 0 {
		return map[string]string{}, nil
	}

	data := map[string]string{}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return data, nil
}

func (f *FileStore) save(data map[string]string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace status store: %w", err)
	}
	return nil
}
