package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
	"github.com/cpxbuddy/cpxbuddy/internal/session"
)

// SessionSummary is the operator-facing view of one session. Tokens
// never leave the store.
type SessionSummary struct {
	Email         string    `json:"email"`
	SessionID     string    `json:"sessionId"`
	CreatedAt     time.Time `json:"createdAt"`
	LastAccessed  time.Time `json:"lastAccessed"`
	Authenticated bool      `json:"authenticated"`
}

// SessionHandler handles session management endpoints.
type SessionHandler struct {
	store  *session.Store
	logger log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store *session.Store, logger log.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("DELETE /api/sessions/{email}", h.delete)
}

func (h *SessionHandler) list(w http.ResponseWriter, _ *http.Request) {
	sessions := h.store.All()
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionSummary{
			Email:         s.Email,
			SessionID:     s.ID,
			CreatedAt:     s.CreatedAt,
			LastAccessed:  s.LastAccessed,
			Authenticated: s.Authenticated(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")

	err := h.store.Delete(email)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "no session for "+email)
		return
	}
	if err != nil {
		h.logger.Error("deleting session", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
