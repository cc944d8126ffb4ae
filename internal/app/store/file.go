/*
Package store implements the user-table persistence backends.

Every backend loads and saves the table as a whole. The JSON file backend is the
default; SQLite, PostgreSQL and S3 keep the same records elsewhere.
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/randx"
)

// File stores the user table as a JSON array in a single file.
type File struct {
	path string
}

// NewFile returns a File store at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the table. A missing file is an empty table.
func (f *File) Load(_ context.Context) ([]user.Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	return decodeRecords(data)
}

// Save replaces the file atomically through a temporary file in the same directory.
func (f *File) Save(_ context.Context, records []user.Record) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	suffix, err := randx.Suffix(8)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp-" + suffix

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}

	return nil
}

func decodeRecords(data []byte) ([]user.Record, error) {
	var records []user.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode user table: %w", err)
	}
	return records, nil
}

func encodeRecords(records []user.Record) ([]byte, error) {
	if records == nil {
		records = []user.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode user table: %w", err)
	}
	return data, nil
}
