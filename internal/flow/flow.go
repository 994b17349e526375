// Package flow is the per-taker screen state machine:
// selection -> answering -> result -> selection.
package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pavelanni/elearn/internal/exam"
	"github.com/pavelanni/elearn/internal/grading"
	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/notify"
)

var (
	// ErrInvalidTransition is returned when an action does not apply to the
	// current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNoQuestions is returned by Start when the question bank is empty.
	ErrNoQuestions = errors.New("no questions")
	// ErrUnknownOption is returned by Answer for a letter outside the question's options.
	ErrUnknownOption = errors.New("unknown option")
)

// State is one of Selection, Answering or Result.
type State interface {
	isState()
}

// Selection is the name picker. It carries no data.
type Selection struct{}

// Answering holds the taker, the question snapshot taken at Start and the
// current selection per question index.
type Answering struct {
	User      model.UserRecord
	Questions []model.QuestionRecord
	Answers   map[int][]string
}

// Result holds the graded outcome until the taker finishes.
type Result struct {
	User   model.UserRecord
	Grade  grading.Result
	Report notify.Report
}

func (Selection) isState()  {}
func (*Answering) isState() {}
func (Result) isState()     {}

// Submitter grades, records and notifies.
type Submitter interface {
	Submit(ctx context.Context, user model.UserRecord, questions []model.QuestionRecord, answers map[int][]string) (exam.Outcome, error)
}

// Session is one taker's flow. It is not safe for concurrent use.
type Session struct {
	state State
}

// New returns a session on the selection screen.
func New() *Session {
	return &Session{state: Selection{}}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Start begins an attempt with an empty answer map.
func (s *Session) Start(user model.UserRecord, questions []model.QuestionRecord) error {
	if _, ok := s.state.(Selection); !ok {
		return fmt.Errorf("start: %w", ErrInvalidTransition)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	s.state = &Answering{
		User:      user,
		Questions: slices.Clone(questions),
		Answers:   make(map[int][]string),
	}
	return nil
}

// Answer replaces the selection for question index. Single-select
// questions keep the first letter only; an empty selection clears the
// answer.
func (s *Session) Answer(index int, letters []string) error {
	a, ok := s.state.(*Answering)
	if !ok {
		return fmt.Errorf("answer: %w", ErrInvalidTransition)
	}
	if index < 0 || index >= len(a.Questions) {
		return fmt.Errorf("answer: question %d out of range", index)
	}
	q := a.Questions[index]

	var sel []string
	for _, l := range letters {
		l = strings.ToUpper(strings.TrimSpace(l))
		if l == "" || slices.Contains(sel, l) {
			continue
		}
		if !hasOption(q, l) {
			return fmt.Errorf("answer %s: %w %q", q.ID, ErrUnknownOption, l)
		}
		sel = append(sel, l)
	}
	if !q.Multiple && len(sel) > 1 {
		sel = sel[:1]
	}
	if len(sel) == 0 {
		delete(a.Answers, index)
		return nil
	}
	slices.Sort(sel)
	a.Answers[index] = sel
	return nil
}

// Back abandons the attempt without side effects.
func (s *Session) Back() error {
	if _, ok := s.state.(*Answering); !ok {
		return fmt.Errorf("back: %w", ErrInvalidTransition)
	}
	s.state = Selection{}
	return nil
}

// Submit hands the attempt to sub. On error the session stays on the
// answering screen with its answers intact.
func (s *Session) Submit(ctx context.Context, sub Submitter) error {
	a, ok := s.state.(*Answering)
	if !ok {
		return fmt.Errorf("submit: %w", ErrInvalidTransition)
	}
	out, err := sub.Submit(ctx, a.User, a.Questions, a.Answers)
	if err != nil {
		return err
	}
	s.state = Result{User: a.User, Grade: out.Result, Report: out.Report}
	return nil
}

// Finish discards the verdict and returns to selection.
func (s *Session) Finish() error {
	if _, ok := s.state.(Result); !ok {
		return fmt.Errorf("finish: %w", ErrInvalidTransition)
	}
	s.state = Selection{}
	return nil
}

// Progress returns the number of answered questions and the total. It is
// zero outside the answering screen.
func (s *Session) Progress() (answered, total int) {
	a, ok := s.state.(*Answering)
	if !ok {
		return 0, 0
	}
	return len(a.Answers), len(a.Questions)
}

func hasOption(q model.QuestionRecord, letter string) bool {
	for _, c := range q.Choices() {
		if c.Letter == letter {
			return true
		}
	}
	return false
}
