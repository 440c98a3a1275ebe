// Package memory is an in-process remote store. Documents live in a map and
// every write is fanned out to the subscribers of the same user.
package memory

import (
	"context"
	"errors"
	"sync"

	"budget/internal/ledger"
	"budget/internal/ports"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("memory remote closed")

type Store struct {
	mu     sync.Mutex
	docs   map[string][]byte
	subs   map[string]map[int]ports.SnapshotHandler
	nextID int
	closed bool
}

var _ ports.RemoteStore = (*Store)(nil)

func New() *Store {
	return &Store{
		docs: make(map[string][]byte),
		subs: make(map[string]map[int]ports.SnapshotHandler),
	}
}

// Subscribe delivers the current document (nil when absent) and then every
// write for userID. Handlers run synchronously on the writer's goroutine.
func (s *Store) Subscribe(_ context.Context, userID string, fn ports.SnapshotHandler) (ports.Unsubscribe, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.nextID++
	id := s.nextID
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]ports.SnapshotHandler)
	}
	s.subs[userID][id] = fn
	doc, ok := s.docs[userID]
	s.mu.Unlock()

	fn(decode(doc, ok))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[userID], id)
			s.mu.Unlock()
		})
	}, nil
}

// Write stores a copy of l and notifies subscribers with their own copy.
func (s *Store) Write(_ context.Context, userID string, l *ledger.Ledger) error {
	b, err := ledger.Encode(l)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.docs[userID] = b
	handlers := make([]ports.SnapshotHandler, 0, len(s.subs[userID]))
	for _, fn := range s.subs[userID] {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(decode(b, true))
	}
	return nil
}

// Document returns the stored document of userID, for inspection.
func (s *Store) Document(userID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.docs[userID]
	return append([]byte(nil), b...), ok
}

// Subscribers counts the live subscriptions of userID.
func (s *Store) Subscribers(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[userID])
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[string]map[int]ports.SnapshotHandler)
	return nil
}

func decode(b []byte, ok bool) *ledger.Ledger {
	if !ok {
		return nil
	}
	l, err := ledger.Decode(b)
	if err != nil {
		return nil
	}
	return l
}
