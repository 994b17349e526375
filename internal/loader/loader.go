package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/table"
)

// Loader reads and parses the exam tables from a store.
type Loader struct {
	store  table.Store
	sheets model.SheetNames
	parser *Parser
}

// New creates a Loader over the given store and sheet names.
func New(s table.Store, sheets model.SheetNames, p *Parser) *Loader {
	return &Loader{store: s, sheets: sheets, parser: p}
}

// Users loads the user directory.
func (l *Loader) Users(ctx context.Context) ([]model.UserRecord, error) {
	rows, err := l.store.Rows(ctx, l.sheets.Users)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := l.parser.Users(rows)
	slog.Debug("loaded users", "sheet", l.sheets.Users, "rows", len(rows), "users", len(users))
	return users, nil
}

// User looks up one directory record by name.
func (l *Loader) User(ctx context.Context, name string) (model.UserRecord, bool, error) {
	users, err := l.Users(ctx)
	if err != nil {
		return model.UserRecord{}, false, err
	}
	for _, u := range users {
		if u.Name == name {
			return u, true, nil
		}
	}
	return model.UserRecord{}, false, nil
}

// Questions loads the question bank in sheet order.
func (l *Loader) Questions(ctx context.Context) ([]model.QuestionRecord, error) {
	rows, err := l.store.Rows(ctx, l.sheets.Questions)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	questions := l.parser.Questions(rows)
	slog.Debug("loaded questions", "sheet", l.sheets.Questions, "rows", len(rows), "questions", len(questions))
	return questions, nil
}

// Matrix loads the notification matrix.
func (l *Loader) Matrix(ctx context.Context) (model.NotificationMatrix, error) {
	rows, err := l.store.Rows(ctx, l.sheets.Matrix)
	if err != nil {
		return model.NotificationMatrix{}, fmt.Errorf("load notification matrix: %w", err)
	}
	m := l.parser.Matrix(rows)
	slog.Debug("loaded notification matrix", "sheet", l.sheets.Matrix, "roles", len(m.Roles), "departments", len(m.Rows))
	return m, nil
}

// Results loads every recorded attempt.
func (l *Loader) Results(ctx context.Context) ([]model.AttemptResult, error) {
	rows, err := l.store.Rows(ctx, l.sheets.Results)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	return l.parser.Results(rows), nil
}
