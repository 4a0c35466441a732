// Package file appends audit events to a local activity log, one JSON object
// per line. The file is opened once in append mode and never rewritten.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
)

// Store is safe for concurrent use; lines from concurrent appends never
// interleave.
type Store struct {
	mu   sync.Mutex
	file *os.File
}

// New opens path for appending, creating it and its directory if needed.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create audit log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Store{file: f}, nil
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	line, err := json.Marshal(record{Level: levelOf(event), Event: event})
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Close closes the log file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

type record struct {
	Level string `json:"level"`
	audit.Event
}

func levelOf(e audit.Event) string {
	if e.Decision == audit.DecisionFailure || e.Status >= 500 || e.Action == string(audit.EventRequestFailed) {
		return "error"
	}
	return "info"
}
