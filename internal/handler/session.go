package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/elearn/internal/flow"
)

const sessionCookieName = "elearn_session"

var errNoSession = errors.New("no session")

type sessionEntry struct {
	mu       sync.Mutex // serialises requests of one browser
	flow     *flow.Session
	lastSeen time.Time
}

// sessions maps browser cookies to flow sessions. Nothing survives a restart.
type sessions struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	now     func() time.Time
}

func newSessions() *sessions {
	return &sessions{entries: make(map[string]*sessionEntry), now: time.Now}
}

// get returns the entry for id, creating it when create is set.
func (s *sessions) get(id string, create bool) (string, *sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok && id != "" {
		e.lastSeen = s.now()
		return id, e, nil
	}
	if !create {
		return "", nil, errNoSession
	}
	id = uuid.NewString()
	e := &sessionEntry{flow: flow.New(), lastSeen: s.now()}
	s.entries[id] = e
	return id, e, nil
}

// sweep drops sessions idle for longer than idle and returns how many.
func (s *sessions) sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	n := 0
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunSweeper drops idle sessions every interval until ctx is done. A
// non-positive idle disables sweeping. A non-positive interval falls back to idle.
func (h *Handler) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	if idle <= 0 {
		slog.Warn("session sweeper disabled", "idle", idle)
		return
	}
	if interval <= 0 {
		interval = idle
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := h.sessions.sweep(idle); n > 0 {
				slog.Info("dropped idle sessions", "count", n, "remaining", h.sessions.len())
			}
		}
	}
}

// session looks up the caller's flow session and locks it. create starts a
// new one when the cookie is missing or unknown. The returned func unlocks.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, create bool) (*flow.Session, func(), error) {
	var id string
	if c, err := r.Cookie(sessionCookieName); err == nil {
		id = c.Value
	}
	newID, e, err := h.sessions.get(id, create)
	if err != nil {
		return nil, nil, err
	}
	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    newID,
			Path:     h.cookiePath(),
			HttpOnly: true,
			Secure:   h.config.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	e.mu.Lock()
	return e.flow, e.mu.Unlock, nil
}
