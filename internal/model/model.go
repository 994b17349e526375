package model

import (
	"context"
	"slices"
	"time"
)

// WildcardDepartment matches every department, both as a notification
// matrix row and as an entry in a user's department list.
const WildcardDepartment = "ALL_DEPARTMENTS"

// TimestampLayout is the time format of the results table.
const TimestampLayout = "2006-01-02 15:04:05"

// OptionCount is the number of answer slots a question row carries.
const OptionCount = 5

// OptionLetters are the labels of the answer slots, in column order.
var OptionLetters = [OptionCount]string{"A", "B", "C", "D", "E"}

// UserRecord is one row of the user directory.
type UserRecord struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Departments       []string `json:"departments"`
	DepartmentDisplay string   `json:"department_display"`
	Role              string   `json:"role"` // empty means general staff
}

// HasWildcard reports whether the user belongs to every department.
func (u UserRecord) HasWildcard() bool {
	return slices.Contains(u.Departments, WildcardDepartment)
}

// QuestionRecord is one row of the question bank.
type QuestionRecord struct {
	ID       string              `json:"id"`
	Prompt   string              `json:"prompt"`
	Options  [OptionCount]string `json:"options"`
	Correct  []string            `json:"correct"` // sorted option letters
	Multiple bool                `json:"multiple"`
}

// Choice is a non-blank answer option of a question.
type Choice struct {
	Letter string
	Text   string
}

// Choices returns the used option slots in order.
func (q QuestionRecord) Choices() []Choice {
	var out []Choice
	for i, text := range q.Options {
		if text == "" {
			continue
		}
		out = append(out, Choice{Letter: OptionLetters[i], Text: text})
	}
	return out
}

// NotificationMatrix is the department x role grid of notification flags.
type NotificationMatrix struct {
	// Roles are the header columns after the department label, in order.
	Roles []string
	// Rows maps a department (or WildcardDepartment) to the roles switched ON.
	Rows map[string]map[string]bool
}

// ActiveRoles returns the union of roles switched ON in the rows for any of
// the given departments and in the wildcard row.
func (m NotificationMatrix) ActiveRoles(departments []string) map[string]bool {
	active := make(map[string]bool)
	collect := func(dept string) {
		for role, on := range m.Rows[dept] {
			if on {
				active[role] = true
			}
		}
	}
	for _, d := range departments {
		if d == "" {
			continue
		}
		collect(d)
	}
	collect(WildcardDepartment)
	return active
}

// AttemptResult is the outcome of one completed exam submission.
type AttemptResult struct {
	Timestamp         time.Time `json:"timestamp"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	DepartmentDisplay string    `json:"department"`
	Role              string    `json:"role"`
	Score             int       `json:"score"`
	Total             int       `json:"total"`
	Passed            bool      `json:"passed"`
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	Title         string // shown on pages and in mail bodies
	Lang          string
	BasePath      string // URL prefix for sub-path deployments (e.g. "/ja")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
}

// SheetNames names the four tables in the backing store.
type SheetNames struct {
	Users     string
	Questions string
	Matrix    string
	Results   string
}

// DefaultSheetNames are the worksheet names used by the original workbook.
var DefaultSheetNames = SheetNames{
	Users:     "ユーザーマスター",
	Questions: "問題マスター",
	Matrix:    "通知マスター",
	Results:   "受験結果",
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// ResultLabels are the fixed texts written to the results table.
type ResultLabels struct {
	GeneralStaff string // role column for an empty role
	Pass         string
	Fail         string
}

// DefaultResultLabels match the labels of the original results sheet.
var DefaultResultLabels = ResultLabels{
	GeneralStaff: "一般職",
	Pass:         "合格",
	Fail:         "不合格",
}

// VerdictLabel returns the pass or fail label.
func (l ResultLabels) VerdictLabel(passed bool) string {
	if passed {
		return l.Pass
	}
	return l.Fail
}

// RoleLabel returns role, or the general staff label when role is empty.
func (l ResultLabels) RoleLabel(role string) string {
	if role == "" {
		return l.GeneralStaff
	}
	return role
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
