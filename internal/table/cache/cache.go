// Package cache wraps a table.Store with a Redis read-through cache of whole
// sheets.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pavelanni/elearn/internal/table"
)

// DefaultPrefix namespaces the cache keys.
const DefaultPrefix = "elearn:sheet:"

// Store caches Rows per sheet for ttl. Append goes to the underlying store
// and drops that sheet's entry. Redis failures fall back to the underlying
// store.
type Store struct {
	next   table.Store
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ table.Store = (*Store)(nil)

// New wraps next. A nil client disables caching.
func New(next table.Store, client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{next: next, client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(sheet string) string {
	return s.prefix + sheet
}

func (s *Store) Rows(ctx context.Context, sheet string) ([][]string, error) {
	if s.client == nil {
		return s.next.Rows(ctx, sheet)
	}

	data, err := s.client.Get(ctx, s.key(sheet)).Bytes()
	switch {
	case err == nil:
		var rows [][]string
		if err := json.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
		slog.Warn("discarding corrupt cache entry", "sheet", sheet)
	case !errors.Is(err, redis.Nil):
		slog.Warn("cache get failed, reading through", "sheet", sheet, "error", err)
	}

	rows, err := s.next.Rows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rows); err == nil {
		if err := s.client.Set(ctx, s.key(sheet), data, s.ttl).Err(); err != nil {
			slog.Warn("cache set failed", "sheet", sheet, "error", err)
		}
	}
	return rows, nil
}

func (s *Store) Append(ctx context.Context, sheet string, row []string) error {
	if err := s.next.Append(ctx, sheet, row); err != nil {
		return err
	}
	s.Invalidate(ctx, sheet)
	return nil
}

// Invalidate drops the cached rows of sheet.
func (s *Store) Invalidate(ctx context.Context, sheet string) {
	if s.client == nil {
		return
	}
	if err := s.client.Del(ctx, s.key(sheet)).Err(); err != nil {
		slog.Warn("cache invalidate failed", "sheet", sheet, "error", err)
	}
}
