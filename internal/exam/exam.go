// Package exam runs a submission end to end: grade, record, notify.
package exam

import (
	"context"
	"log/slog"
	"time"

	"github.com/pavelanni/elearn/internal/grading"
	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/notify"
	"github.com/pavelanni/elearn/internal/targeting"
)

// Directory supplies the tables targeting needs.
type Directory interface {
	Users(ctx context.Context) ([]model.UserRecord, error)
	Matrix(ctx context.Context) (model.NotificationMatrix, error)
}

// Recorder persists an attempt.
type Recorder interface {
	Record(ctx context.Context, res model.AttemptResult) error
}

// Notifier delivers the result mails.
type Notifier interface {
	Notify(ctx context.Context, a notify.Attempt, targets []string) notify.Report
}

// Outcome is what the result screen shows.
type Outcome struct {
	Result grading.Result
	Report notify.Report
}

// Service wires grading, recording and notification together.
type Service struct {
	dir      Directory
	recorder Recorder
	notifier Notifier
	now      func() time.Time
}

// NewService creates a Service.
func NewService(dir Directory, rec Recorder, n Notifier) *Service {
	return &Service{dir: dir, recorder: rec, notifier: n, now: time.Now}
}

// Submit grades answers against questions, records the attempt and sends
// the mails. A recording failure is returned and nothing is sent. Once the
// attempt is recorded, Submit always succeeds: a failure to load the
// directory or matrix only suppresses the administrative notices.
func (s *Service) Submit(ctx context.Context, user model.UserRecord, questions []model.QuestionRecord, answers map[int][]string) (Outcome, error) {
	result := grading.Grade(answers, questions)
	at := s.now()

	err := s.recorder.Record(ctx, model.AttemptResult{
		Timestamp:         at,
		Name:              user.Name,
		Email:             user.Email,
		DepartmentDisplay: user.DepartmentDisplay,
		Role:              user.Role,
		Score:             result.Score,
		Total:             result.Total,
		Passed:            result.Passed,
	})
	if err != nil {
		return Outcome{}, err
	}

	targets, err := s.Targets(ctx, user)
	if err != nil {
		slog.Error("cannot compute notification targets, admin mail skipped", "name", user.Name, "error", err)
		targets = nil
	}

	report := s.notifier.Notify(ctx, notify.Attempt{User: user, Result: result, At: at}, targets)
	return Outcome{Result: result, Report: report}, nil
}

// Targets returns the supervisors a submission by user would notify.
func (s *Service) Targets(ctx context.Context, user model.UserRecord) ([]string, error) {
	if targeting.IsManagement(user.Role) {
		return nil, nil
	}
	users, err := s.dir.Users(ctx)
	if err != nil {
		return nil, err
	}
	matrix, err := s.dir.Matrix(ctx)
	if err != nil {
		return nil, err
	}
	return targeting.ComputeNotifyTargets(user.Departments, user.Role, user.Email, users, matrix), nil
}
