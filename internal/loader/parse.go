// Package loader turns raw sheet rows into typed records. Rows that fail
// validation are skipped and logged; they never abort a load.
package loader

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/width"

	"github.com/pavelanni/elearn/internal/model"
)

// multipleModes are the mode-column values that mark a multi-select question.
var multipleModes = []string{"複数選択", "multiple", "multi"}

// onValues are the matrix cell values that switch a role ON.
var onValues = []string{"ON", "TRUE"}

// Parser validates and converts sheet rows.
type Parser struct {
	validate  *validator.Validate
	wildcards []string
	labels    model.ResultLabels
}

// NewParser returns a parser that treats each alias as the wildcard
// department in addition to model.WildcardDepartment.
func NewParser(wildcardAliases []string, labels model.ResultLabels) *Parser {
	var aliases []string
	for _, a := range wildcardAliases {
		if a = fold(a); a != "" {
			aliases = append(aliases, a)
		}
	}
	return &Parser{
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		wildcards: aliases,
		labels:    labels,
	}
}

type userRow struct {
	Name        string `validate:"required"`
	Email       string
	Departments string
	Role        string
}

type questionRow struct {
	ID       string   `validate:"required"`
	Correct  []string `validate:"min=1,dive,oneof=A B C D E"`
	Multiple bool
}

type resultRow struct {
	Timestamp string `validate:"required"`
	Name      string `validate:"required"`
	Score     string `validate:"required,number"`
}

// Users parses the directory sheet. Row 0 is the header.
func (p *Parser) Users(rows [][]string) []model.UserRecord {
	var users []model.UserRecord
	seen := make(map[string]bool)
	for i, row := range dataRows(rows) {
		r := userRow{
			Name:        strings.TrimSpace(cell(row, 0)),
			Email:       fold(cell(row, 1)),
			Departments: strings.TrimSpace(cell(row, 2)),
			Role:        fold(cell(row, 3)),
		}
		if r.Name == "" {
			continue
		}
		if err := p.validate.Struct(r); err != nil {
			skip("users", i, err)
			continue
		}
		if seen[r.Name] {
			slog.Warn("duplicate user name, keeping first", "name", r.Name, "row", i+2)
			continue
		}
		seen[r.Name] = true
		users = append(users, model.UserRecord{
			Name:              r.Name,
			Email:             r.Email,
			Departments:       p.departments(r.Departments),
			DepartmentDisplay: r.Departments,
			Role:              r.Role,
		})
	}
	return users
}

// Questions parses the question bank. Row 0 is the header.
func (p *Parser) Questions(rows [][]string) []model.QuestionRecord {
	var questions []model.QuestionRecord
	for i, row := range dataRows(rows) {
		r := questionRow{
			ID:       strings.TrimSpace(cell(row, 0)),
			Correct:  Letters(cell(row, 7)),
			Multiple: isMultiple(cell(row, 8)),
		}
		if r.ID == "" {
			continue
		}
		if err := p.validate.Struct(r); err != nil {
			skip("questions", i, err)
			continue
		}
		if !r.Multiple && len(r.Correct) != 1 {
			slog.Warn("skipping row",
				"sheet", "questions", "row", i+2,
				"reason", "single-select question needs exactly one correct letter",
				"correct", r.Correct)
			continue
		}
		q := model.QuestionRecord{
			ID:       r.ID,
			Prompt:   strings.TrimSpace(cell(row, 1)),
			Correct:  r.Correct,
			Multiple: r.Multiple,
		}
		for j := range model.OptionCount {
			q.Options[j] = strings.TrimSpace(cell(row, 2+j))
		}
		questions = append(questions, q)
	}
	return questions
}

// Matrix parses the notification matrix. Row 0 is the header
// [department label, role, role, ...].
func (p *Parser) Matrix(rows [][]string) model.NotificationMatrix {
	m := model.NotificationMatrix{Rows: make(map[string]map[string]bool)}
	if len(rows) == 0 {
		return m
	}
	header := rows[0]
	roleAt := make(map[int]string)
	for col := 1; col < len(header); col++ {
		role := fold(header[col])
		if role == "" {
			continue
		}
		roleAt[col] = role
		m.Roles = append(m.Roles, role)
	}
	for _, row := range rows[1:] {
		dept := p.department(cell(row, 0))
		if dept == "" {
			continue
		}
		flags, ok := m.Rows[dept]
		if !ok {
			flags = make(map[string]bool)
			m.Rows[dept] = flags
		}
		for col, role := range roleAt {
			if isOn(cell(row, col)) {
				flags[role] = true
			}
		}
	}
	return m
}

// Results parses the results sheet back into attempts. Row 0 is the header.
// Total is not stored in the sheet and is left zero.
func (p *Parser) Results(rows [][]string) []model.AttemptResult {
	var results []model.AttemptResult
	for i, row := range dataRows(rows) {
		r := resultRow{
			Timestamp: strings.TrimSpace(cell(row, 0)),
			Name:      strings.TrimSpace(cell(row, 1)),
			Score:     fold(cell(row, 5)),
		}
		if r.Timestamp == "" {
			continue
		}
		if err := p.validate.Struct(r); err != nil {
			skip("results", i, err)
			continue
		}
		ts, err := time.ParseInLocation(model.TimestampLayout, r.Timestamp, time.Local)
		if err != nil {
			skip("results", i, err)
			continue
		}
		score, _ := strconv.Atoi(r.Score)
		role := strings.TrimSpace(cell(row, 4))
		if role == p.labels.GeneralStaff {
			role = ""
		}
		results = append(results, model.AttemptResult{
			Timestamp:         ts,
			Name:              r.Name,
			Email:             strings.TrimSpace(cell(row, 2)),
			DepartmentDisplay: strings.TrimSpace(cell(row, 3)),
			Role:              role,
			Score:             score,
			Passed:            strings.TrimSpace(cell(row, 6)) == p.labels.Pass,
		})
	}
	return results
}

// departments splits a department cell into canonical department names.
func (p *Parser) departments(s string) []string {
	s = strings.ReplaceAll(fold(s), "、", ",")
	var out []string
	for _, part := range strings.Split(s, ",") {
		d := p.department(part)
		if d == "" || slices.Contains(out, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (p *Parser) department(s string) string {
	d := fold(s)
	if slices.Contains(p.wildcards, d) {
		return model.WildcardDepartment
	}
	return d
}

// Letters parses a comma separated list of option letters into a sorted,
// de-duplicated, upper-case set.
func Letters(s string) []string {
	s = strings.ReplaceAll(fold(s), "、", ",")
	var out []string
	for _, part := range strings.Split(s, ",") {
		l := strings.ToUpper(strings.TrimSpace(part))
		if l == "" || slices.Contains(out, l) {
			continue
		}
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

func isMultiple(s string) bool {
	s = fold(s)
	for _, m := range multipleModes {
		if strings.EqualFold(s, m) {
			return true
		}
	}
	return false
}

func isOn(s string) bool {
	s = strings.ToUpper(fold(s))
	return slices.Contains(onValues, s)
}

// fold trims s and maps full-width ASCII to its narrow form.
func fold(s string) string {
	return strings.TrimSpace(width.Fold.String(strings.TrimSpace(s)))
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func dataRows(rows [][]string) [][]string {
	if len(rows) < 2 {
		return nil
	}
	return rows[1:]
}

func skip(sheet string, i int, err error) {
	// i indexes data rows; +2 gives the 1-based sheet row under the header.
	slog.Warn("skipping row", "sheet", sheet, "row", i+2, "error", err)
}
