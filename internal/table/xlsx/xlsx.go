// Package xlsx is a table.Store over a local Excel workbook. Each worksheet
// is one sheet; appends are saved to disk immediately.
package xlsx

import (
	"context"
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/elearn/internal/table"
)

// Workbook is safe for concurrent use within one process.
type Workbook struct {
	mu   sync.Mutex
	path string
	file *excelize.File
}

var _ table.Store = (*Workbook)(nil)

// Open opens the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, file: f}, nil
}

func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// SheetNames lists the worksheets in tab order.
func (w *Workbook) SheetNames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.GetSheetList()
}

func (w *Workbook) Rows(_ context.Context, sheet string) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.exists(sheet) {
		return nil, table.ReadError(sheet, table.ErrSheetNotFound)
	}
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, table.ReadError(sheet, err)
	}
	return rows, nil
}

// Append writes row below the last non-empty row and saves the workbook.
func (w *Workbook) Append(_ context.Context, sheet string, row []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.exists(sheet) {
		return table.AppendError(sheet, table.ErrSheetNotFound)
	}
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return table.AppendError(sheet, err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return table.AppendError(sheet, err)
	}
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		return table.AppendError(sheet, err)
	}
	if err := w.file.Save(); err != nil {
		return table.AppendError(sheet, fmt.Errorf("save %s: %w", w.path, err))
	}
	return nil
}

func (w *Workbook) exists(sheet string) bool {
	idx, err := w.file.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// Create writes a new workbook with the given sheets, in order.
func Create(path string, names []string, sheets map[string][][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range names {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %q: %w", name, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := make([]any, len(row))
			for i, v := range row {
				values[i] = v
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("write sheet %q: %w", name, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
