// Package store keeps the exam sheets in a local SQLite database. Each sheet
// is an ordered list of rows stored as JSON arrays of cells.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/elearn/internal/table"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ table.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheets (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS sheet_rows (
		sheet TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		cells TEXT NOT NULL,
		PRIMARY KEY (sheet, row_index),
		FOREIGN KEY (sheet) REFERENCES sheets(name)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Rows returns every row of sheet in insertion order.
func (s *Store) Rows(ctx context.Context, sheet string) ([][]string, error) {
	ok, err := s.hasSheet(ctx, s.db, sheet)
	if err != nil {
		return nil, table.ReadError(sheet, err)
	}
	if !ok {
		return nil, table.ReadError(sheet, table.ErrSheetNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM sheet_rows WHERE sheet = ? ORDER BY row_index`, sheet)
	if err != nil {
		return nil, table.ReadError(sheet, err)
	}
	defer rows.Close()
	out := [][]string{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, table.ReadError(sheet, err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, table.ReadError(sheet, fmt.Errorf("decode row: %w", err))
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, table.ReadError(sheet, err)
	}
	return out, nil
}

// Append adds row after the last row of an existing sheet.
func (s *Store) Append(ctx context.Context, sheet string, row []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return table.AppendError(sheet, err)
	}
	defer tx.Rollback()

	ok, err := s.hasSheet(ctx, tx, sheet)
	if err != nil {
		return table.AppendError(sheet, err)
	}
	if !ok {
		return table.AppendError(sheet, table.ErrSheetNotFound)
	}
	if err := insertRows(ctx, tx, sheet, [][]string{row}); err != nil {
		return table.AppendError(sheet, err)
	}
	if err := tx.Commit(); err != nil {
		return table.AppendError(sheet, err)
	}
	return nil
}

// ReplaceSheet creates sheet if needed and replaces all of its rows.
func (s *Store) ReplaceSheet(ctx context.Context, sheet string, rows [][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO sheets (name) VALUES (?)`, sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet = ?`, sheet); err != nil {
		return fmt.Errorf("clear sheet %q: %w", sheet, err)
	}
	if err := insertRows(ctx, tx, sheet, rows); err != nil {
		return fmt.Errorf("fill sheet %q: %w", sheet, err)
	}
	return tx.Commit()
}

// SheetNames lists the sheets in the database.
func (s *Store) SheetNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sheets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) hasSheet(ctx context.Context, q queryer, sheet string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheets WHERE name = ?`, sheet).Scan(&n)
	return n > 0, err
}

func insertRows(ctx context.Context, tx *sql.Tx, sheet string, rows [][]string) error {
	var next int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_index) + 1, 0) FROM sheet_rows WHERE sheet = ?`, sheet,
	).Scan(&next)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r == nil {
			r = []string{}
		}
		cells, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (sheet, row_index, cells) VALUES (?, ?, ?)`,
			sheet, next, string(cells),
		); err != nil {
			return err
		}
		next++
	}
	return nil
}
