package cost

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

// FileSink keeps session summaries in a JSON array file.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink returns a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Append adds entry to the array. An unreadable or malformed file is
// replaced by a fresh array.
func (s *FileSink) Append(_ context.Context, entry domain.CostLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _ := s.read()
	entries = append(entries, entry)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Entries returns every persisted summary, oldest first.
func (s *FileSink) Entries() ([]domain.CostLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileSink) read() ([]domain.CostLogEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []domain.CostLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
