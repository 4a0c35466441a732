// Package redis appends audit events to a capped Redis stream.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
)

// DefaultMaxLen caps the stream; older entries are trimmed approximately.
const DefaultMaxLen = 100_000

type Store struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

type Option func(*Store)

// WithMaxLen overrides DefaultMaxLen. Zero disables trimming.
func WithMaxLen(n int64) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxLen = n
		}
	}
}

func New(client redis.Cmdable, stream string, opts ...Option) *Store {
	s := &Store{client: client, stream: stream, maxLen: DefaultMaxLen}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"action":   event.Action,
			"category": string(event.Category),
			"event":    payload,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("append audit event to stream: %w", err)
	}
	return nil
}
