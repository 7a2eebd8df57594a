// Package queue carries batch recognition jobs between facilityctl and the
// recognizer worker.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// TypeRecognize messages carry one image path in Body.
const TypeRecognize = "recognize"

var ErrUnknownBackend = errors.New("queue: unknown backend")

// Message represents work to be processed.
type Message struct {
	Type string
	Body []byte
}

// Queue is the abstraction over different backends. Dequeue removes exactly
// one message, so a caller only takes work it is going to run.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Dequeue(ctx context.Context) (Message, error)
	Len(ctx context.Context) (int64, error)
}

// Open selects a backend by name. client is only used by "redis".
func Open(backend string, client *redis.Client, key string) (Queue, error) {
	switch backend {
	case "memory":
		return NewInMemory(64), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("queue: redis backend needs a client")
		}
		return NewRedisQueue(client, key), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// InMemory is a channel-backed queue for local runs and tests.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message, blocking while the queue is full.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue waits for the next message or for ctx to end.
func (q *InMemory) Dequeue(ctx context.Context) (Message, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len reports the number of pending messages.
func (q *InMemory) Len(context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}

// RedisQueue is a Redis list used with LPUSH/BRPOP.
type RedisQueue struct {
	client *redis.Client
	key    string
	wait   time.Duration
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "facility:recognize"
	}
	return &RedisQueue{client: client, key: key, wait: time.Second}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	if err := q.client.LPush(ctx, q.key, serialize(msg)).Err(); err != nil {
		return fmt.Errorf("queue: publish: %w", err)
	}
	return nil
}

// Len reports the number of pending messages.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Dequeue pops the oldest message with BRPOP, waiting until one arrives or
// ctx ends. Each BRPOP is bounded by wait and is not cancelled by ctx, which
// is only checked between calls, so a message the server already popped is
// always returned.
func (q *RedisQueue) Dequeue(ctx context.Context) (Message, error) {
	popCtx := context.WithoutCancel(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		res, err := q.client.BRPop(popCtx, q.wait, q.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			// back off on connection errors instead of spinning
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return Message{}, ctx.Err()
			}
			continue
		case len(res) != 2:
			continue
		}
		return deserialize(res[1]), nil
	}
}

// serialize stores messages as Type|Body.
func serialize(msg Message) string {
	return msg.Type + "|" + string(msg.Body)
}

func deserialize(s string) Message {
	typ, body, ok := strings.Cut(s, "|")
	if !ok {
		return Message{Body: []byte(s)}
	}
	return Message{Type: typ, Body: []byte(body)}
}
