package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/elearn/internal/table"
)

// countingStore counts reads that reach the backing store.
type countingStore struct {
	*table.Memory
	reads int
}

func (c *countingStore) Rows(ctx context.Context, sheet string) ([][]string, error) {
	c.reads++
	return c.Memory.Rows(ctx, sheet)
}

func setup(t *testing.T) (*Store, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mem := &countingStore{Memory: table.NewMemory()}
	mem.Put("results", [][]string{{"ts", "name"}})
	return New(mem, client, "", time.Minute), mem, mr
}

func TestReadThrough(t *testing.T) {
	s, mem, mr := setup(t)
	ctx := context.Background()

	for range 3 {
		rows, err := s.Rows(ctx, "results")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"ts", "name"}}, rows)
	}
	assert.Equal(t, 1, mem.reads)
	assert.True(t, mr.Exists(DefaultPrefix+"results"))
}

func TestAppendInvalidates(t *testing.T) {
	s, mem, _ := setup(t)
	ctx := context.Background()

	_, err := s.Rows(ctx, "results")
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "results", []string{"2026-01-01 00:00:00", "山田"}))

	rows, err := s.Rows(ctx, "results")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, mem.reads)
}

func TestTTLExpiry(t *testing.T) {
	s, mem, mr := setup(t)
	ctx := context.Background()

	_, err := s.Rows(ctx, "results")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = s.Rows(ctx, "results")
	require.NoError(t, err)
	assert.Equal(t, 2, mem.reads)
}

func TestErrorsAreNotCached(t *testing.T) {
	s, mem, mr := setup(t)
	ctx := context.Background()

	_, err := s.Rows(ctx, "missing")
	assert.True(t, errors.Is(err, table.ErrSheetNotFound))
	assert.False(t, mr.Exists(DefaultPrefix+"missing"))
	assert.Equal(t, 1, mem.reads)
}

func TestRedisDownFallsBack(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	mem := &countingStore{Memory: table.NewMemory()}
	mem.Put("results", [][]string{{"ts", "name"}})
	s := New(mem, client, "", time.Minute)

	rows, err := s.Rows(context.Background(), "results")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, mem.reads)
	require.NoError(t, s.Append(context.Background(), "results", []string{"x"}))
}

func TestCorruptEntry(t *testing.T) {
	s, mem, mr := setup(t)
	require.NoError(t, mr.Set(DefaultPrefix+"results", "{not json"))

	rows, err := s.Rows(context.Background(), "results")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, mem.reads)
}
