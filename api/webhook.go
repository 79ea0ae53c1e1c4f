package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
	"github.com/cpxbuddy/cpxbuddy/internal/notify"
	"github.com/cpxbuddy/cpxbuddy/internal/session"
)

// maxWebhookBody caps webhook payloads well above anything the channel
// provider sends.
const maxWebhookBody = 1 << 20

// depositEvent is the payload carried inside a deposit webhook event.
type depositEvent struct {
	OrganizationID string `json:"organizationId"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Network        string `json:"network"`
	TxHash         string `json:"txHash,omitempty"`
}

// WebhookHandler handles deposit notification endpoints. With no
// notifier configured every route answers 503.
type WebhookHandler struct {
	notifier *notify.Notifier
	store    *session.Store
	logger   log.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(notifier *notify.Notifier, store *session.Store, logger log.Logger) *WebhookHandler {
	return &WebhookHandler{notifier: notifier, store: store, logger: logger}
}

// RegisterRoutes registers webhook routes on the given mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/pusher/deposit", h.deposit)
	mux.HandleFunc("POST /api/notifications/auth", h.authorize)
}

// deposit receives signed deposit webhooks and fans each event out to
// the organization's channel.
func (h *WebhookHandler) deposit(w http.ResponseWriter, r *http.Request) {
	if h.notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "notifications are not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read body")
		return
	}

	hook, err := h.notifier.ParseWebhook(r.Header, body)
	if err != nil {
		h.logger.Warn("rejected webhook", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid_signature", "webhook signature verification failed")
		return
	}

	delivered := 0
	for _, ev := range hook.Events {
		var dep depositEvent
		if err := json.Unmarshal([]byte(ev.Data), &dep); err != nil {
			h.logger.Warn("skipping malformed deposit event", "channel", ev.Channel, "error", err)
			continue
		}
		if dep.OrganizationID == "" {
			h.logger.Warn("skipping deposit event without organization", "channel", ev.Channel)
			continue
		}
		payload := notify.Deposit{
			Amount:   dep.Amount,
			Currency: dep.Currency,
			Network:  dep.Network,
			TxHash:   dep.TxHash,
		}
		if err := h.notifier.AnnounceDeposit(dep.OrganizationID, payload); err != nil {
			h.logger.Error("announcing deposit", "organization", dep.OrganizationID, "error", err)
			continue
		}
		h.deliverToChats(r.Context(), dep.OrganizationID, notify.FormatDeposit(payload))
		delivered++
	}

	writeJSON(w, http.StatusOK, map[string]int{"delivered": delivered})
}

// deliverToChats pushes the rendered deposit message to every chat that
// registered for this organization's notifications.
func (h *WebhookHandler) deliverToChats(ctx context.Context, orgID, text string) {
	for _, s := range h.store.All() {
		if s.ChatID == "" || s.User == nil || s.User.OrganizationID != orgID {
			continue
		}
		if err := h.notifier.Send(ctx, s.ChatID, text); err != nil {
			h.logger.Warn("deposit message delivery failed",
				"email", s.Email, "chat", s.ChatID, "error", err)
		}
	}
}

// authorize signs a private-channel subscription for a connected client.
func (h *WebhookHandler) authorize(w http.ResponseWriter, r *http.Request) {
	if h.notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "notifications are not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read body")
		return
	}

	resp, err := h.notifier.AuthorizeChannel(body)
	if err != nil {
		h.logger.Warn("channel authorization failed", "error", err)
		writeError(w, http.StatusForbidden, "forbidden", "channel authorization failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}
