// Package amqp broadcasts ledger snapshots over a RabbitMQ topic exchange.
// The broker keeps no state: a subscriber only sees snapshots written after
// it subscribed.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"budget/internal/ledger"
	"budget/internal/ports"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// DefaultExchange is used when no exchange name is configured.
const DefaultExchange = "budget.ledger"

type Client struct {
	url          string
	exchangeName string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel // publishing

	state        int32
	failureCount int64
	lastFailure  time.Time
}

var _ ports.RemoteStore = (*Client)(nil)

// NewClient dials the broker and declares the exchange.
func NewClient(url, exchangeName string) (*Client, error) {
	if exchangeName == "" {
		exchangeName = DefaultExchange
	}
	c := &Client{url: url, exchangeName: exchangeName}

	c.mu.Lock()
	_, err := c.publishChannelLocked()
	c.mu.Unlock()
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func routingKey(userID string) string { return "ledger." + userID }

func (c *Client) declareExchange(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

func (c *Client) connectionLocked() (*amqp091.Connection, error) {
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn, nil
	}
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	c.conn = conn
	c.channel = nil
	return conn, nil
}

func (c *Client) publishChannelLocked() (*amqp091.Channel, error) {
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	conn, err := c.connectionLocked()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := c.declareExchange(ch); err != nil {
		ch.Close()
		return nil, err
	}
	c.channel = ch
	return ch, nil
}

// Write publishes l as a persistent snapshot for userID.
func (c *Client) Write(ctx context.Context, userID string, l *ledger.Ledger) error {
	if c.isCircuitOpen() {
		return errors.New("circuit breaker is open, AMQP publish rejected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := ledger.Encode(l)
	if err != nil {
		return err
	}
	body, err := NewSnapshotMessage(userID, doc).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	ch, err := c.publishChannelLocked()
	c.mu.Unlock()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName,     // exchange
		routingKey(userID), // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetChannel()
		}
		return fmt.Errorf("publish snapshot: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published ledger snapshot",
		"user_id", userID,
		"exchange", c.exchangeName,
		"bytes", len(body))
	return nil
}

func (c *Client) resetChannel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
}

// Subscribe binds an exclusive queue to the user's routing key and delivers
// every snapshot. When the connection drops it reconnects with exponential
// backoff until the subscription is cancelled.
func (c *Client) Subscribe(ctx context.Context, userID string, fn ports.SnapshotHandler) (ports.Unsubscribe, error) {
	ch, msgs, err := c.consume(userID)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		attempt := 0
		for {
			c.drain(subCtx, userID, msgs, fn)
			ch.Close()
			if subCtx.Err() != nil {
				return
			}
			for {
				wait := exponentialBackoff(attempt)
				slog.WarnContext(subCtx, "AMQP subscription lost, reconnecting",
					"user_id", userID, "attempt", attempt+1, "backoff", wait)
				select {
				case <-subCtx.Done():
					return
				case <-time.After(wait):
				}
				ch, msgs, err = c.consume(userID)
				if err == nil {
					attempt = 0
					break
				}
				slog.ErrorContext(subCtx, "AMQP reconnect failed", "user_id", userID, "error", err)
				attempt++
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (c *Client) consume(userID string) (*amqp091.Channel, <-chan amqp091.Delivery, error) {
	c.mu.Lock()
	conn, err := c.connectionLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := c.declareExchange(ch); err != nil {
		ch.Close()
		return nil, nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey(userID), c.exchangeName, false, nil); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("start consuming: %w", err)
	}
	return ch, msgs, nil
}

func (c *Client) drain(ctx context.Context, userID string, msgs <-chan amqp091.Delivery, fn ports.SnapshotHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			if l, ok := decodeSnapshot(ctx, userID, d.Body); ok {
				fn(l)
			}
		}
	}
}

func decodeSnapshot(ctx context.Context, userID string, body []byte) (*ledger.Ledger, bool) {
	msg, err := SnapshotMessageFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal snapshot message", "error", err)
		return nil, false
	}
	if msg.UserID != userID {
		return nil, false
	}
	if len(msg.Document) == 0 || string(msg.Document) == "null" {
		return nil, true
	}
	l, err := ledger.Decode(msg.Document)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to decode snapshot document", "user_id", userID, "error", err)
		return nil, false
	}
	return l, true
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s, 2s, 4s... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	return min(d, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
