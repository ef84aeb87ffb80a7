package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores the usage map as a flat JSON file on disk.
//
// Quota state is deliberately expendable: a missing, unreadable or corrupt
// file loads as an empty map instead of failing, so visitors are never locked
// out by a damaged store.
type FileBackend struct {
	path string
}

// NewFileBackend creates a file backend at the given path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load reads the full usage map. Fail-open: any read or decode error yields
// an empty map and a nil error.
func (f *FileBackend) Load(_ context.Context) (map[string]Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return map[string]Record{}, nil
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		return map[string]Record{}, nil
	}
	return records, nil
}

// Save writes the full usage map, creating parent directories as needed.
func (f *FileBackend) Save(_ context.Context, records map[string]Record) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("usage mkdir %s: %w", dir, err)
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("usage marshal: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("usage write %s: %w", f.path, err)
	}
	return nil
}
