package table

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRowsAndAppend(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Put("results", [][]string{{"timestamp", "name"}})

	if err := m.Append(ctx, "results", []string{"2026-01-01 10:00:00", "Alice"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	rows, err := m.Rows(ctx, "results")
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "Alice" {
		t.Fatalf("unexpected rows: %v", rows)
	}

	// Returned rows are copies.
	rows[1][1] = "Mallory"
	again, _ := m.Rows(ctx, "results")
	if again[1][1] != "Alice" {
		t.Errorf("store mutated through returned slice: %v", again)
	}
}

func TestMemoryMissingSheet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Rows(ctx, "nope")
	if !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("Rows: expected ErrSheetNotFound, got %v", err)
	}
	if !IsAccessError(err) {
		t.Errorf("Rows: expected AccessError, got %T", err)
	}

	err = m.Append(ctx, "nope", []string{"x"})
	var ae *AccessError
	if !errors.As(err, &ae) || ae.Op != "append" || ae.Sheet != "nope" {
		t.Errorf("Append: unexpected error %v", err)
	}
}
