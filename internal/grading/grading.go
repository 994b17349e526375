// Package grading scores a submission by exact set match per question.
package grading

import (
	"slices"
	"strings"

	"github.com/pavelanni/elearn/internal/model"
)

// Result is the outcome of grading one submission.
type Result struct {
	Score  int
	Total  int
	Passed bool
}

// Remaining is the number of additional correct answers needed to pass.
func (r Result) Remaining() int {
	return r.Total - r.Score
}

// Grade compares each submitted selection, keyed by question index, with
// the question's correct set. A question counts only when the sets are
// equal; order and repeated letters do not matter. Passing requires every
// question to be correct, and an exam without questions never passes.
func Grade(submitted map[int][]string, questions []model.QuestionRecord) Result {
	r := Result{Total: len(questions)}
	for i, q := range questions {
		if Correct(submitted[i], q.Correct) {
			r.Score++
		}
	}
	r.Passed = r.Total > 0 && r.Score == r.Total
	return r
}

// Correct reports whether selected equals want as a set.
func Correct(selected, want []string) bool {
	a, b := normalize(selected), normalize(want)
	if len(b) == 0 {
		return false
	}
	return slices.Equal(a, b)
}

func normalize(letters []string) []string {
	out := make([]string, 0, len(letters))
	for _, l := range letters {
		l = strings.ToUpper(strings.TrimSpace(l))
		if l != "" {
			out = append(out, l)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
