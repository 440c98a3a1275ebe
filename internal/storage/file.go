package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ports"
)

// FileStore keeps the ledger and the selection in one JSON file. Writes go
// to a temporary file that is renamed over the target.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var (
	_ ports.LocalStore     = (*FileStore)(nil)
	_ ports.SelectionStore = (*FileStore)(nil)
)

type fileContent struct {
	Ledger    json.RawMessage `json:"ledger,omitempty"`
	Selection string          `json:"selection,omitempty"` // YYYY-MM
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(_ context.Context) (*ledger.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc, err := s.read()
	if err != nil {
		return ledger.New(), err
	}
	l, err := ledger.Decode(fc.Ledger)
	if err != nil {
		return ledger.New(), fmt.Errorf("%w: %s: %w", core.ErrPersistence, s.path, err)
	}
	return l, nil
}

func (s *FileStore) Save(_ context.Context, l *ledger.Ledger) error {
	b, err := ledger.Encode(l)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fc, _ := s.read() // an unreadable file is overwritten
	fc.Ledger = b
	return s.write(fc)
}

func (s *FileStore) LoadSelection(_ context.Context) (core.MonthKey, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc, err := s.read()
	if err != nil || fc.Selection == "" {
		return core.MonthKey{}, false, err
	}
	k, err := core.ParseMonthKey(fc.Selection)
	if err != nil {
		return core.MonthKey{}, false, nil
	}
	return k, true, nil
}

func (s *FileStore) SaveSelection(_ context.Context, k core.MonthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc, _ := s.read()
	fc.Selection = k.String()
	return s.write(fc)
}

func (s *FileStore) read() (fileContent, error) {
	var fc fileContent
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fc, nil
	}
	if err != nil {
		return fc, fmt.Errorf("%w: read %s: %w", core.ErrPersistence, s.path, err)
	}
	if len(b) == 0 {
		return fc, nil
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return fileContent{}, fmt.Errorf("%w: corrupt %s: %w", core.ErrPersistence, s.path, err)
	}
	return fc, nil
}

func (s *FileStore) write(fc fileContent) error {
	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", core.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp file: %w", core.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", core.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", core.ErrPersistence, s.path, err)
	}
	return nil
}
