// Package redis stores each user's ledger as a Redis string and announces
// every write on a pub/sub channel carrying the new document.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"budget/internal/ledger"
	"budget/internal/ports"
)

// DefaultPrefix namespaces the keys when no prefix is configured.
const DefaultPrefix = "budget:ledger"

type Store struct {
	client *goredis.Client
	prefix string
}

var _ ports.RemoteStore = (*Store)(nil)

// New wraps an existing client.
func New(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// NewFromURL connects to a redis:// URL and checks the connection.
func NewFromURL(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, prefix), nil
}

func (s *Store) key(userID string) string     { return s.prefix + ":" + userID }
func (s *Store) channel(userID string) string { return s.key(userID) + ":changes" }

// Write replaces the document and publishes it in one transaction.
func (s *Store) Write(ctx context.Context, userID string, l *ledger.Ledger) error {
	b, err := ledger.Encode(l)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.key(userID), b, 0)
		pipe.Publish(ctx, s.channel(userID), b)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write ledger for %s: %w", userID, err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed, delivers the
// current document (nil when the key is absent) and then each published
// change, in order, on a dedicated goroutine.
func (s *Store) Subscribe(ctx context.Context, userID string, fn ports.SnapshotHandler) (ports.Unsubscribe, error) {
	ps := s.client.Subscribe(ctx, s.channel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel(userID), err)
	}

	current, err := s.client.Get(ctx, s.key(userID)).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		current = nil
	case err != nil:
		ps.Close()
		return nil, fmt.Errorf("read ledger for %s: %w", userID, err)
	}

	msgs := ps.Channel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if current == nil {
			fn(nil)
		} else if l, ok := s.decode(userID, current); ok {
			fn(l)
		}
		for msg := range msgs {
			if l, ok := s.decode(userID, []byte(msg.Payload)); ok {
				fn(l)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ps.Close()
			<-done
		})
	}, nil
}

func (s *Store) decode(userID string, b []byte) (*ledger.Ledger, bool) {
	l, err := ledger.Decode(b)
	if err != nil {
		slog.Warn("Ignoring undecodable remote ledger", "user_id", userID, "error", err)
		return nil, false
	}
	return l, true
}

func (s *Store) Close() error {
	return s.client.Close()
}
