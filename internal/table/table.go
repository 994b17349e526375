// Package table defines the row-oriented store the exam reads its
// directory, question bank and notification matrix from, and appends
// results to.
package table

import (
	"context"
	"errors"
	"fmt"
)

// ErrSheetNotFound is returned when the named sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Store reads whole sheets and appends rows. Row 0 is whatever the sheet
// holds first; callers decide whether it is a header.
type Store interface {
	Rows(ctx context.Context, sheet string) ([][]string, error)
	Append(ctx context.Context, sheet string, row []string) error
}

// AccessError reports a failed read or append against the backing store.
type AccessError struct {
	Op    string // "read" or "append"
	Sheet string
	Err   error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s sheet %q: %v", e.Op, e.Sheet, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// ReadError wraps err as a failed read of sheet.
func ReadError(sheet string, err error) error {
	return &AccessError{Op: "read", Sheet: sheet, Err: err}
}

// AppendError wraps err as a failed append to sheet.
func AppendError(sheet string, err error) error {
	return &AccessError{Op: "append", Sheet: sheet, Err: err}
}

// IsAccessError reports whether err came from the backing store.
func IsAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}
