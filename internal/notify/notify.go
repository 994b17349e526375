// Package notify formats and sends the result mails for an attempt.
package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/elearn/internal/grading"
	appI18n "github.com/pavelanni/elearn/internal/i18n"
	"github.com/pavelanni/elearn/internal/mail"
	"github.com/pavelanni/elearn/internal/model"
)

// Attempt is what the mails describe.
type Attempt struct {
	User   model.UserRecord
	Result grading.Result
	At     time.Time
}

// Report summarises delivery. It is informational only.
type Report struct {
	PersonalSent bool
	AdminSent    int
	AdminFailed  int
}

// Config controls message formatting and fan-out.
type Config struct {
	SubjectPrefix string // e.g. "[E-Learning] "
	ExamTitle     string
	Concurrency   int // parallel admin sends; <= 0 means 4
}

// Notifier sends the personal result mail and the administrative notices.
type Notifier struct {
	transport mail.Transport
	cfg       Config
}

// New creates a Notifier.
func New(t mail.Transport, cfg Config) *Notifier {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Notifier{transport: t, cfg: cfg}
}

// Notify sends the personal mail first, then one administrative mail per
// target. Every send is isolated: failures are logged and counted, never
// returned, and never stop the remaining sends.
func (n *Notifier) Notify(ctx context.Context, a Attempt, targets []string) Report {
	var rep Report
	subject := n.Subject(ctx)

	if a.User.Email == "" {
		slog.Warn("test-taker has no email, personal result not sent", "name", a.User.Name)
	} else if err := n.transport.Send(ctx, a.User.Email, subject, n.PersonalBody(ctx, a)); err != nil {
		slog.Error("personal result mail failed", "name", a.User.Name, "to", a.User.Email, "error", err)
	} else {
		rep.PersonalSent = true
	}

	if len(targets) == 0 {
		return rep
	}

	body := n.AdminBody(ctx, a)
	var sent, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(n.cfg.Concurrency)
	for _, to := range targets {
		g.Go(func() error {
			if err := n.transport.Send(ctx, to, subject, body); err != nil {
				slog.Error("admin notification failed", "name", a.User.Name, "to", to, "error", err)
				failed.Add(1)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	rep.AdminSent = int(sent.Load())
	rep.AdminFailed = int(failed.Load())
	slog.Info("notifications dispatched",
		"name", a.User.Name,
		"personal_sent", rep.PersonalSent,
		"admin_sent", rep.AdminSent,
		"admin_failed", rep.AdminFailed,
	)
	return rep
}

// Subject is shared by the personal and administrative mails.
func (n *Notifier) Subject(ctx context.Context) string {
	return n.cfg.SubjectPrefix + appI18n.T(ctx, "MailSubject")
}

// PersonalBody renders the test-taker's result mail.
func (n *Notifier) PersonalBody(ctx context.Context, a Attempt) string {
	closing := appI18n.T(ctx, "MailPersonalPassed")
	if !a.Result.Passed {
		closing = appI18n.Tp(ctx, "MailPersonalRemaining", a.Result.Remaining())
	}
	return appI18n.Td(ctx, "MailPersonalBody", map[string]any{
		"Name":       a.User.Name,
		"Department": a.User.DepartmentDisplay,
		"Title":      n.cfg.ExamTitle,
		"Score":      a.Result.Score,
		"Total":      a.Result.Total,
		"Verdict":    verdict(ctx, a.Result.Passed),
		"Closing":    closing,
	})
}

// AdminBody renders the completion notice sent to supervisors.
func (n *Notifier) AdminBody(ctx context.Context, a Attempt) string {
	return appI18n.Td(ctx, "MailAdminBody", map[string]any{
		"Name":       a.User.Name,
		"Department": a.User.DepartmentDisplay,
		"Score":      a.Result.Score,
		"Total":      a.Result.Total,
		"Verdict":    verdict(ctx, a.Result.Passed),
		"At":         a.At.Format("2006-01-02 15:04"),
	})
}

func verdict(ctx context.Context, passed bool) string {
	if passed {
		return appI18n.T(ctx, "Pass")
	}
	return appI18n.T(ctx, "Fail")
}
