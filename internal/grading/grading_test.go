package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pavelanni/elearn/internal/model"
)

func question(id string, multiple bool, correct ...string) model.QuestionRecord {
	return model.QuestionRecord{ID: id, Correct: correct, Multiple: multiple}
}

func TestCorrect(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		want     []string
		ok       bool
	}{
		{"exact", []string{"A", "C"}, []string{"A", "C"}, true},
		{"reordered", []string{"C", "A"}, []string{"A", "C"}, true},
		{"lower case", []string{"c", "a"}, []string{"A", "C"}, true},
		{"repeated letter", []string{"A", "A", "C"}, []string{"A", "C"}, true},
		{"subset", []string{"A"}, []string{"A", "C"}, false},
		{"superset", []string{"A", "B", "C"}, []string{"A", "C"}, false},
		{"disjoint", []string{"B"}, []string{"A"}, false},
		{"unanswered", nil, []string{"A"}, false},
		{"blank entries", []string{"", " "}, []string{"A"}, false},
		{"no correct set", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, Correct(tt.selected, tt.want))
		})
	}
}

func TestGradeMultiSelectScenario(t *testing.T) {
	qs := []model.QuestionRecord{question("Q1", true, "A", "C")}

	assert.Equal(t, Result{Score: 1, Total: 1, Passed: true}, Grade(map[int][]string{0: {"C", "A"}}, qs))
	assert.Equal(t, Result{Score: 0, Total: 1, Passed: false}, Grade(map[int][]string{0: {"A"}}, qs))
}

func TestGradeStrictPass(t *testing.T) {
	qs := []model.QuestionRecord{
		question("Q1", false, "A"),
		question("Q2", false, "B"),
		question("Q3", true, "A", "B"),
		question("Q4", false, "D"),
		question("Q5", true, "C", "E"),
	}
	all := map[int][]string{0: {"A"}, 1: {"B"}, 2: {"B", "A"}, 3: {"D"}, 4: {"E", "C"}}

	r := Grade(all, qs)
	assert.Equal(t, 5, r.Score)
	assert.True(t, r.Passed)
	assert.Equal(t, 0, r.Remaining())

	four := map[int][]string{0: {"A"}, 1: {"B"}, 2: {"B", "A"}, 3: {"D"}, 4: {"C"}}
	r = Grade(four, qs)
	assert.Equal(t, 4, r.Score)
	assert.False(t, r.Passed, "4 of 5 must fail")
	assert.Equal(t, 1, r.Remaining())
}

func TestGradeUnansweredAndExtraKeys(t *testing.T) {
	qs := []model.QuestionRecord{question("Q1", false, "A"), question("Q2", false, "B")}

	r := Grade(map[int][]string{1: {"B"}, 7: {"A"}}, qs)
	assert.Equal(t, Result{Score: 1, Total: 2, Passed: false}, r)

	r = Grade(nil, qs)
	assert.Equal(t, 0, r.Score)
}

func TestGradeEmptyExam(t *testing.T) {
	r := Grade(map[int][]string{}, nil)
	assert.Equal(t, Result{}, r)
	assert.False(t, r.Passed)
}
