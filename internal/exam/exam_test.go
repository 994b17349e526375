package exam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/elearn/internal/loader"
	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/notify"
	"github.com/pavelanni/elearn/internal/recorder"
	"github.com/pavelanni/elearn/internal/table"
)

type call struct {
	attempt notify.Attempt
	targets []string
}

type fakeNotifier struct {
	calls []call
}

func (f *fakeNotifier) Notify(_ context.Context, a notify.Attempt, targets []string) notify.Report {
	f.calls = append(f.calls, call{a, targets})
	return notify.Report{PersonalSent: true, AdminSent: len(targets)}
}

var sheets = model.SheetNames{Users: "users", Questions: "questions", Matrix: "matrix", Results: "results"}

func seed(t *testing.T) *table.Memory {
	t.Helper()
	mem := table.NewMemory()
	mem.Put(sheets.Users, [][]string{
		{"name", "email", "departments", "role"},
		{"Alice", "alice@example.com", "Sales", ""},
		{"Bob", "bob@example.com", "Sales", "Manager"},
		{"Carol", "carol@example.com", "全部署", "Auditor"},
	})
	mem.Put(sheets.Matrix, [][]string{
		{"dept", "Manager", "Auditor"},
		{"Sales", "ON", "OFF"},
		{"全部署", "OFF", "TRUE"},
	})
	mem.Put(sheets.Results, [][]string{{"ts", "name", "email", "dept", "role", "score", "verdict"}})
	return mem
}

func newService(mem *table.Memory, n Notifier) *Service {
	l := loader.New(mem, sheets, loader.NewParser([]string{"全部署"}, model.DefaultResultLabels))
	rec := recorder.New(mem, sheets.Results, model.DefaultResultLabels)
	s := NewService(l, rec, n)
	s.now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local) }
	return s
}

var questions = []model.QuestionRecord{
	{ID: "1", Correct: []string{"A"}},
	{ID: "2", Correct: []string{"B", "D"}, Multiple: true},
}

var alice = model.UserRecord{Name: "Alice", Email: "alice@example.com", Departments: []string{"Sales"}, DepartmentDisplay: "Sales"}

func TestSubmitRecordsThenNotifies(t *testing.T) {
	mem := seed(t)
	n := &fakeNotifier{}
	s := newService(mem, n)

	out, err := s.Submit(context.Background(), alice, questions, map[int][]string{0: {"A"}, 1: {"D", "B"}})
	require.NoError(t, err)
	assert.True(t, out.Result.Passed)
	assert.Equal(t, 2, out.Report.AdminSent)

	rows, err := mem.Rows(context.Background(), sheets.Results)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2026-05-01 10:00:00", "Alice", "alice@example.com", "Sales", "一般職", "2", "合格"}, rows[1])

	require.Len(t, n.calls, 1)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, n.calls[0].targets)
	assert.Equal(t, 2, n.calls[0].attempt.Result.Score)
}

func TestSubmitManagementOnlyPersonal(t *testing.T) {
	mem := seed(t)
	n := &fakeNotifier{}
	s := newService(mem, n)

	bob := model.UserRecord{Name: "Bob", Email: "bob@example.com", Departments: []string{"Sales"}, Role: "Manager"}
	out, err := s.Submit(context.Background(), bob, questions, nil)
	require.NoError(t, err)
	assert.False(t, out.Result.Passed)
	require.Len(t, n.calls, 1)
	assert.Empty(t, n.calls[0].targets)
}

func TestSubmitRecordFailureSendsNothing(t *testing.T) {
	mem := seed(t)
	n := &fakeNotifier{}
	s := newService(mem, n)
	s.recorder = recorder.New(mem, "missing", model.DefaultResultLabels)

	_, err := s.Submit(context.Background(), alice, questions, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, table.ErrSheetNotFound))
	assert.Empty(t, n.calls)
}

func TestSubmitDirectoryFailureSkipsAdminMail(t *testing.T) {
	mem := table.NewMemory()
	mem.Put(sheets.Results, nil)
	n := &fakeNotifier{}
	s := newService(mem, n)

	out, err := s.Submit(context.Background(), alice, questions, nil)
	require.NoError(t, err, "the attempt is recorded, so submit succeeds")
	assert.Equal(t, 0, out.Result.Score)
	require.Len(t, n.calls, 1)
	assert.Nil(t, n.calls[0].targets)
}

func TestTargets(t *testing.T) {
	s := newService(seed(t), &fakeNotifier{})

	got, err := s.Targets(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, got)
}
