package loader

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/table"
	"github.com/pavelanni/elearn/internal/targeting"
)

func newTestParser() *Parser {
	return NewParser([]string{"全部署"}, model.DefaultResultLabels)
}

func TestParseUsers(t *testing.T) {
	rows := [][]string{
		{"氏名", "メール", "部署", "権限"},
		{"Alice", "alice@example.com", "Sales", ""},
		{"Bob", " bob@example.com ", "Sales, Repair", "Manager"},
		{"", "ghost@example.com", "Sales", ""},   // blank key
		{"Carol", "carol@example.com", "全部署"}, // short row, alias wildcard
		{"Dave", "not-an-email", "Sales", ""},    // malformed email still loads
		{"Erin", "", "営業、修理室", "部長"},          // no email, Japanese comma
		{"Alice", "alice2@example.com", "HR", ""}, // duplicate name
		{},
	}

	users := newTestParser().Users(rows)
	if len(users) != 5 {
		t.Fatalf("expected 5 users, got %d: %+v", len(users), users)
	}

	byName := make(map[string]model.UserRecord)
	for _, u := range users {
		byName[u.Name] = u
	}

	bob := byName["Bob"]
	if bob.Email != "bob@example.com" {
		t.Errorf("expected trimmed email, got %q", bob.Email)
	}
	if !slices.Equal(bob.Departments, []string{"Sales", "Repair"}) {
		t.Errorf("unexpected departments %v", bob.Departments)
	}
	if bob.DepartmentDisplay != "Sales, Repair" {
		t.Errorf("unexpected display %q", bob.DepartmentDisplay)
	}
	if bob.Role != "Manager" {
		t.Errorf("unexpected role %q", bob.Role)
	}

	carol := byName["Carol"]
	if !carol.HasWildcard() {
		t.Errorf("expected alias to map to wildcard, got %v", carol.Departments)
	}
	if carol.Role != "" {
		t.Errorf("missing role column should be general staff, got %q", carol.Role)
	}

	erin := byName["Erin"]
	if !slices.Equal(erin.Departments, []string{"営業", "修理室"}) {
		t.Errorf("unexpected departments %v", erin.Departments)
	}

	if byName["Alice"].Email != "alice@example.com" {
		t.Errorf("duplicate name should keep first row, got %q", byName["Alice"].Email)
	}
	if byName["Dave"].Email != "not-an-email" {
		t.Errorf("row with malformed email should keep its cell, got %q", byName["Dave"].Email)
	}
}

func TestUsersWithShortEmailsReachTargeting(t *testing.T) {
	rows := [][]string{
		{"氏名", "メール", "部署", "権限"},
		{"Alice", "alice@x", "Sales", ""},
		{"Bob", "bob@x", "Sales", "Manager"},
		{"Carol", "carol(at)example.com", "Sales", ""},
	}
	p := newTestParser()
	users := p.Users(rows)
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d: %+v", len(users), users)
	}

	matrix := p.Matrix([][]string{{"部署", "Manager"}, {"Sales", "ON"}})
	got := targeting.ComputeNotifyTargets([]string{"Sales"}, "", "alice@x", users, matrix)
	if !slices.Equal(got, []string{"bob@x"}) {
		t.Errorf("expected [bob@x], got %v", got)
	}
}

func TestParseQuestions(t *testing.T) {
	rows := [][]string{
		{"ID", "問題", "A", "B", "C", "D", "E", "正解", "形式"},
		{"Q1", "Pick one", "yes", "no", "", "", "", "A", "単一選択"},
		{"Q2", "Pick many", "a", "b", "c", "d", "e", "C, A", "複数選択"},
		{"Q3", "Broken single", "a", "b", "", "", "", "A,B", ""},
		{"", "no id", "a", "", "", "", "", "A", ""},
		{"Q4", "Bad letter", "a", "", "", "", "", "F", ""},
		{"Q5", "No answer", "a"},
		{"Q6", "Full width", "a", "b", "c", "", "", "Ｂ，ｃ", "multiple"},
	}

	qs := newTestParser().Questions(rows)
	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	if !slices.Equal(ids, []string{"Q1", "Q2", "Q6"}) {
		t.Fatalf("unexpected question ids %v", ids)
	}

	q1 := qs[0]
	if q1.Multiple {
		t.Error("Q1 should be single-select")
	}
	if len(q1.Choices()) != 2 {
		t.Errorf("expected 2 non-blank choices, got %d", len(q1.Choices()))
	}

	q2 := qs[1]
	if !q2.Multiple {
		t.Error("Q2 should be multi-select")
	}
	if !slices.Equal(q2.Correct, []string{"A", "C"}) {
		t.Errorf("expected sorted correct set, got %v", q2.Correct)
	}

	if !slices.Equal(qs[2].Correct, []string{"B", "C"}) {
		t.Errorf("expected folded letters, got %v", qs[2].Correct)
	}
}

func TestParseMatrix(t *testing.T) {
	rows := [][]string{
		{"部署", "部長", "次長", "", "課長"},
		{"Sales", "ON", "off", "ON", ""},
		{"全部署", "", "", "", "ｏｎ"},
		{"Repair", "TRUE", "FALSE"},
		{"Sales", "", "ON"},
		{"", "ON", "ON"},
	}

	m := newTestParser().Matrix(rows)
	if !slices.Equal(m.Roles, []string{"部長", "次長", "課長"}) {
		t.Errorf("unexpected roles %v", m.Roles)
	}
	if !m.Rows["Sales"]["部長"] || !m.Rows["Sales"]["次長"] {
		t.Errorf("Sales rows should merge: %v", m.Rows["Sales"])
	}
	if m.Rows["Sales"]["課長"] {
		t.Error("blank cell should be OFF")
	}
	if !m.Rows[model.WildcardDepartment]["課長"] {
		t.Errorf("wildcard row should carry full-width ON: %v", m.Rows)
	}
	if !m.Rows["Repair"]["部長"] || m.Rows["Repair"]["次長"] {
		t.Errorf("checkbox values not handled: %v", m.Rows["Repair"])
	}
	if len(m.Rows) != 3 {
		t.Errorf("expected 3 department rows, got %d", len(m.Rows))
	}

	if got := newTestParser().Matrix(nil); len(got.Rows) != 0 || len(got.Roles) != 0 {
		t.Errorf("empty sheet should give empty matrix, got %+v", got)
	}
}

func TestParseResults(t *testing.T) {
	rows := [][]string{
		{"日時", "氏名", "メール", "部署", "権限", "得点", "判定"},
		{"2026-04-01 09:30:00", "Alice", "alice@example.com", "Sales", "一般職", "5", "合格"},
		{"2026-04-01 10:00:00", "Bob", "bob@example.com", "Sales", "Manager", "3", "不合格"},
		{"yesterday", "Carol", "", "", "", "1", "不合格"},
		{"2026-04-01 10:00:00", "Dave", "", "", "", "many", "不合格"},
	}

	results := newTestParser().Results(rows)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Role != "" || !results[0].Passed || results[0].Score != 5 {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].Role != "Manager" || results[1].Passed {
		t.Errorf("unexpected second result %+v", results[1])
	}
}

func TestLetters(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"A", []string{"A"}},
		{"c,a", []string{"A", "C"}},
		{" B , B ,A", []string{"A", "B"}},
		{"Ａ、Ｃ", []string{"A", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Letters(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("Letters(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoaderSurfacesStoreErrors(t *testing.T) {
	sheets := model.DefaultSheetNames
	l := New(table.NewMemory(), sheets, newTestParser())

	_, err := l.Users(context.Background())
	if !errors.Is(err, table.ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound, got %v", err)
	}
	if !table.IsAccessError(err) {
		t.Errorf("expected access error, got %T", err)
	}
}

func TestLoaderUser(t *testing.T) {
	sheets := model.DefaultSheetNames
	mem := table.NewMemory()
	mem.Put(sheets.Users, [][]string{
		{"name", "email", "dept", "role"},
		{"Alice", "alice@example.com", "Sales", ""},
	})
	l := New(mem, sheets, newTestParser())

	u, ok, err := l.User(context.Background(), "Alice")
	if err != nil || !ok {
		t.Fatalf("User(Alice) = %v, %v", ok, err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("unexpected user %+v", u)
	}

	_, ok, err = l.User(context.Background(), "Nobody")
	if err != nil || ok {
		t.Errorf("User(Nobody) = %v, %v", ok, err)
	}
}
