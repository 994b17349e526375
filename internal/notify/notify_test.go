package notify

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/elearn/internal/grading"
	appI18n "github.com/pavelanni/elearn/internal/i18n"
	"github.com/pavelanni/elearn/internal/model"
)

type sent struct {
	to, subject, body string
}

type fakeTransport struct {
	mu      sync.Mutex
	fail    map[string]bool
	sent    []sent
	attempt []string
}

func (f *fakeTransport) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempt = append(f.attempt, to)
	if f.fail[to] {
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, sent{to, subject, body})
	return nil
}

func setup(t *testing.T) context.Context {
	t.Helper()
	require.NoError(t, appI18n.Init("ja"))
	return context.Background()
}

func attempt(score, total int) Attempt {
	return Attempt{
		User: model.UserRecord{
			Name:              "山田",
			Email:             "yamada@example.com",
			DepartmentDisplay: "営業,修理室",
		},
		Result: grading.Result{Score: score, Total: total, Passed: score == total},
		At:     time.Date(2026, 4, 1, 9, 30, 0, 0, time.Local),
	}
}

func TestNotifyPersonalFirstThenAdmins(t *testing.T) {
	ctx := setup(t)
	ft := &fakeTransport{}
	n := New(ft, Config{SubjectPrefix: "[E-Learning] ", ExamTitle: "ランサムウェア対策", Concurrency: 1})

	rep := n.Notify(ctx, attempt(5, 5), []string{"head@example.com", "deputy@example.com"})

	assert.Equal(t, Report{PersonalSent: true, AdminSent: 2}, rep)
	require.Len(t, ft.attempt, 3)
	assert.Equal(t, "yamada@example.com", ft.attempt[0], "personal mail must be attempted first")
	assert.Equal(t, "[E-Learning] 採点結果", ft.sent[0].subject)
	assert.Contains(t, ft.sent[0].body, "山田 さん（営業,修理室）")
	assert.Contains(t, ft.sent[0].body, "ランサムウェア対策 受験結果")
	assert.Contains(t, ft.sent[0].body, "得点: 5/5")
	assert.Contains(t, ft.sent[0].body, "おめでとうございます")
	assert.Contains(t, ft.sent[1].body, "【受験完了通知】")
	assert.Contains(t, ft.sent[1].body, "受験日時: 2026-04-01 09:30")
}

func TestNotifyFailedAttemptMentionsRemaining(t *testing.T) {
	ctx := setup(t)
	ft := &fakeTransport{}
	n := New(ft, Config{})

	n.Notify(ctx, attempt(3, 5), nil)

	require.Len(t, ft.sent, 1)
	assert.Contains(t, ft.sent[0].body, "判定: 不合格")
	assert.Contains(t, ft.sent[0].body, "あと 2 問で合格です。")
}

func TestNotifyIsolatesFailures(t *testing.T) {
	ctx := setup(t)
	ft := &fakeTransport{fail: map[string]bool{
		"yamada@example.com": true,
		"b@example.com":      true,
	}}
	n := New(ft, Config{Concurrency: 2})

	targets := []string{"a@example.com", "b@example.com", "c@example.com"}
	rep := n.Notify(ctx, attempt(1, 5), targets)

	assert.False(t, rep.PersonalSent)
	assert.Equal(t, 2, rep.AdminSent)
	assert.Equal(t, 1, rep.AdminFailed)

	attempted := slices.Clone(ft.attempt[1:])
	slices.Sort(attempted)
	assert.Equal(t, targets, attempted, "every target is attempted even after failures")
}

func TestNotifyWithoutEmail(t *testing.T) {
	ctx := setup(t)
	ft := &fakeTransport{}
	n := New(ft, Config{})

	a := attempt(5, 5)
	a.User.Email = ""
	rep := n.Notify(ctx, a, []string{"head@example.com"})

	assert.False(t, rep.PersonalSent)
	assert.Equal(t, 1, rep.AdminSent)
	require.Len(t, ft.sent, 1)
	assert.True(t, strings.HasPrefix(ft.sent[0].body, "【受験完了通知】"))
}
