package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/chat"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

const (
	cookieName   = "datalens_session"
	sessionIDKey = "id"
	cookieMaxAge = 7 * 24 * 60 * 60
)

// Workspace is one browser session's loaded dataset and conversation.
// Handlers hold mu while reading or replacing its fields.
type Workspace struct {
	mu         sync.Mutex
	Filename   string
	Dataset    *dataset.Dataset
	Summarizer *analysis.Summarizer
	Chat       *chat.Session
	lastSeen   time.Time
}

// reset drops the loaded dataset and conversation. Callers hold mu.
func (ws *Workspace) reset() {
	ws.Filename = ""
	ws.Dataset = nil
	ws.Summarizer = nil
	ws.Chat = nil
}

// Registry maps session ids to workspaces.
type Registry struct {
	mu    sync.Mutex
	items map[string]*Workspace
	idle  time.Duration
	now   func() time.Time
}

// NewRegistry evicts workspaces unused for longer than idle on Sweep.
func NewRegistry(idle time.Duration) *Registry {
	return &Registry{items: map[string]*Workspace{}, idle: idle, now: time.Now}
}

// Get returns the workspace for id, creating it when missing, and marks it used.
func (r *Registry) Get(id string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.items[id]
	if !ok {
		ws = &Workspace{}
		r.items[id] = ws
	}
	ws.lastSeen = r.now()
	return ws
}

// Sweep removes idle workspaces and returns how many were dropped.
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idle)
	n := 0
	for id, ws := range r.items {
		if ws.lastSeen.Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	return n
}

// Len reports the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// sessionID reads the id from the session cookie, issuing a new one when
// the cookie is missing or cannot be decoded.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	// A decode error still yields a fresh session.
	sess, _ := s.store.Get(r, cookieName)
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}

// workspace resolves the caller's workspace.
func (s *Server) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, error) {
	id, err := s.sessionID(w, r)
	if err != nil {
		return nil, err
	}
	return s.registry.Get(id), nil
}
