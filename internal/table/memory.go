package table

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Store. Sheets must be created with Put before
// they can be appended to.
type Memory struct {
	mu     sync.RWMutex
	sheets map[string][][]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sheets: make(map[string][][]string)}
}

// Put replaces the contents of a sheet, creating it if needed.
func (m *Memory) Put(sheet string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = cloneRows(rows)
}

func (m *Memory) Rows(_ context.Context, sheet string) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, ReadError(sheet, ErrSheetNotFound)
	}
	return cloneRows(rows), nil
}

func (m *Memory) Append(_ context.Context, sheet string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.sheets[sheet]
	if !ok {
		return AppendError(sheet, ErrSheetNotFound)
	}
	m.sheets[sheet] = append(rows, slices.Clone(row))
	return nil
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}
