package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/elearn/internal/flow"
	"github.com/pavelanni/elearn/internal/handler/views"
	appI18n "github.com/pavelanni/elearn/internal/i18n"
	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/table"
)

// Tables is the read side the pages need.
type Tables interface {
	Users(ctx context.Context) ([]model.UserRecord, error)
	Questions(ctx context.Context) ([]model.QuestionRecord, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	tables    Tables
	submitter flow.Submitter
	config    model.ExamConfig
	sessions  *sessions
}

// New creates a new Handler.
func New(t Tables, sub flow.Submitter, cfg model.ExamConfig) *Handler {
	return &Handler{tables: t, submitter: sub, config: cfg, sessions: newSessions()}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/", h.handleIndex)
		r.Post("/start", h.handleStart)
		r.Get("/exam", h.handleExamPage)
		r.Post("/exam", h.handleExamAction)
		r.Get("/result", h.handleResultPage)
		r.Post("/finish", h.handleFinish)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// BasePathMiddleware exposes the configured URL prefix to the views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) title(ctx context.Context) string {
	if h.config.Title != "" {
		return h.config.Title
	}
	return appI18n.T(ctx, "AppTitle")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	h.render(w, r, status, views.ErrorPage(h.title(r.Context()), appI18n.T(r.Context(), msgID)))
}

// renderDataError reports a failed table read or write.
func (h *Handler) renderDataError(w http.ResponseWriter, r *http.Request, err error) {
	if table.IsAccessError(err) {
		slog.Error("data access failed", "path", r.URL.Path, "error", err)
		h.renderError(w, r, http.StatusServiceUnavailable, "DataUnavailable")
		return
	}
	slog.Error("request failed", "path", r.URL.Path, "error", err)
	h.renderError(w, r, http.StatusInternalServerError, "DataUnavailable")
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(w, r, true)
	if err != nil {
		h.renderDataError(w, r, err)
		return
	}
	defer unlock()

	switch sess.State().(type) {
	case *flow.Answering:
		http.Redirect(w, r, h.path("/exam"), http.StatusSeeOther)
		return
	case flow.Result:
		http.Redirect(w, r, h.path("/result"), http.StatusSeeOther)
		return
	}

	users, err := h.tables.Users(r.Context())
	if err != nil {
		h.renderDataError(w, r, err)
		return
	}
	slices.SortFunc(users, func(a, b model.UserRecord) int {
		return strings.Compare(a.Name, b.Name)
	})

	selected := r.URL.Query().Get("name")
	if !slices.ContainsFunc(users, func(u model.UserRecord) bool { return u.Name == selected }) {
		selected = ""
	}
	h.render(w, r, http.StatusOK, views.SelectPage(h.title(r.Context()), users, selected))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(w, r, true)
	if err != nil {
		h.renderDataError(w, r, err)
		return
	}
	defer unlock()

	if _, ok := sess.State().(flow.Selection); !ok {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	users, err := h.tables.Users(r.Context())
	if err != nil {
		h.renderDataError(w, r, err)
		return
	}
	name := r.FormValue("name")
	idx := slices.IndexFunc(users, func(u model.UserRecord) bool { return u.Name == name })
	if idx < 0 {
		h.renderError(w, r, http.StatusBadRequest, "UnknownUser")
		return
	}

	questions, err := h.tables.Questions(r.Context())
	if err != nil {
		h.renderDataError(w, r, err)
		return
	}
	if err := sess.Start(users[idx], questions); err != nil {
		if errors.Is(err, flow.ErrNoQuestions) {
			h.renderError(w, r, http.StatusServiceUnavailable, "NoQuestions")
			return
		}
		h.renderDataError(w, r, err)
		return
	}
	slog.Info("attempt started", "name", name, "questions", len(questions))
	http.Redirect(w, r, h.path("/exam"), http.StatusSeeOther)
}

func (h *Handler) handleExamPage(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(w, r, false)
	if err != nil {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	defer unlock()

	a, ok := sess.State().(*flow.Answering)
	if !ok {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, views.ExamPage(h.title(r.Context()), a))
}

func (h *Handler) handleExamAction(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(w, r, false)
	if err != nil {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	defer unlock()

	a, ok := sess.State().(*flow.Answering)
	if !ok {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.FormValue("action") == "back" {
		_ = sess.Back()
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	for i := range a.Questions {
		if err := sess.Answer(i, r.Form["q"+strconv.Itoa(i)]); err != nil {
			slog.Warn("rejected answer", "question", i, "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if r.FormValue("action") != "submit" {
		http.Redirect(w, r, h.path("/exam"), http.StatusSeeOther)
		return
	}
	if err := sess.Submit(r.Context(), h.submitter); err != nil {
		h.renderDataError(w, r, err)
		return
	}
	http.Redirect(w, r, h.path("/result"), http.StatusSeeOther)
}

func (h *Handler) handleResultPage(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(w, r, false)
	if err != nil {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	defer unlock()

	res, ok := sess.State().(flow.Result)
	if !ok {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, views.ResultPage(h.title(r.Context()), res))
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(w, r, false)
	if err == nil {
		_ = sess.Finish()
		unlock()
	}
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}
