package suppression

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the table in a JSON object keyed by email:
//
//	{"jo@example.com": {"reason": "unsubscribe", "source": "webhook", "added_at": "..."}}
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the file. A missing file is an empty table.
func (s *FileStore) Load(_ context.Context) (Table, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return Table{}, nil
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if t == nil {
		t = Table{}
	}
	return t, nil
}

// Save rewrites the file through a temp file and rename.
func (s *FileStore) Save(_ context.Context, t Table) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
