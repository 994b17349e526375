// Package views renders the exam pages. The *.templ files are the source of
// truth; the *_templ.go files next to them come from templ generate.
package views

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/elearn/internal/flow"
	"github.com/pavelanni/elearn/internal/grading"
	appI18n "github.com/pavelanni/elearn/internal/i18n"
	"github.com/pavelanni/elearn/internal/model"
)

// appURL prefixes path with the deployment's base path.
func appURL(ctx context.Context, path string) templ.SafeURL {
	return templ.SafeURL(model.BasePathFromContext(ctx) + path)
}

func departmentOf(users []model.UserRecord, name string) string {
	for _, u := range users {
		if u.Name == name {
			return u.DepartmentDisplay
		}
	}
	return ""
}

func progressLabel(ctx context.Context, a *flow.Answering) string {
	return appI18n.Td(ctx, "Progress", map[string]any{"Answered": len(a.Answers), "Total": len(a.Questions)})
}

func legendText(i int, q model.QuestionRecord) string {
	return fmt.Sprintf("Q%d. %s", i+1, q.Prompt)
}

// fieldName is the form field carrying the answer to question i.
func fieldName(i int) string {
	return "q" + strconv.Itoa(i)
}

func inputType(q model.QuestionRecord) string {
	if q.Multiple {
		return "checkbox"
	}
	return "radio"
}

func hint(ctx context.Context, q model.QuestionRecord) string {
	if q.Multiple {
		return appI18n.T(ctx, "MultiSelectHint")
	}
	return appI18n.T(ctx, "SingleSelectHint")
}

func isChecked(a *flow.Answering, i int, letter string) bool {
	return slices.Contains(a.Answers[i], letter)
}

func choiceLabel(c model.Choice) string {
	return c.Letter + ". " + c.Text
}

func scoreLabel(g grading.Result) string {
	return fmt.Sprintf("%d/%d", g.Score, g.Total)
}

func closing(ctx context.Context, g grading.Result) string {
	if g.Passed {
		return appI18n.T(ctx, "Congratulations")
	}
	return appI18n.Tp(ctx, "RemainingToPass", g.Remaining())
}

func mailStatus(ctx context.Context, res flow.Result) string {
	if res.Report.PersonalSent {
		return appI18n.T(ctx, "MailSent")
	}
	return appI18n.T(ctx, "MailFailed")
}
