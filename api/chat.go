package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
)

// genericErrorMessage is all a client learns about an internal failure.
// Details stay in the server log.
const genericErrorMessage = "Something went wrong while processing your message. Please try again."

// Responder answers one dialogue turn for an identity.
type Responder interface {
	Respond(ctx context.Context, email, message string) (string, error)
}

// ChatRequest is one user turn.
type ChatRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ChatResponse is the agent's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatHandler handles the dialogue endpoint.
type ChatHandler struct {
	agent  Responder
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(agent Responder, logger log.Logger) *ChatHandler {
	return &ChatHandler{agent: agent, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "a valid email is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	reply, err := h.agent.Respond(r.Context(), req.Email, req.Message)
	if err != nil {
		h.logger.Error("dialogue turn failed", "email", req.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", genericErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}
