// Package recorder appends completed attempts to the results table.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/table"
)

// Recorder writes one results row per attempt.
type Recorder struct {
	store  table.Store
	sheet  string
	labels model.ResultLabels
}

// New creates a Recorder appending to sheet.
func New(s table.Store, sheet string, labels model.ResultLabels) *Recorder {
	return &Recorder{store: s, sheet: sheet, labels: labels}
}

// Record appends the attempt. Rows are never updated or deleted.
func (r *Recorder) Record(ctx context.Context, res model.AttemptResult) error {
	if err := r.store.Append(ctx, r.sheet, r.Row(res)); err != nil {
		return fmt.Errorf("record attempt for %s: %w", res.Name, err)
	}
	slog.Info("attempt recorded",
		"name", res.Name,
		"score", res.Score,
		"total", res.Total,
		"passed", res.Passed,
	)
	return nil
}

// Row formats an attempt as
// [timestamp, name, email, department, role, score, verdict].
func (r *Recorder) Row(res model.AttemptResult) []string {
	return []string{
		res.Timestamp.Format(model.TimestampLayout),
		res.Name,
		res.Email,
		res.DepartmentDisplay,
		r.labels.RoleLabel(res.Role),
		strconv.Itoa(res.Score),
		r.labels.VerdictLabel(res.Passed),
	}
}
