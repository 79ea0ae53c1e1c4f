package session

import (
	"time"

	"github.com/cpxbuddy/cpxbuddy/internal/copperx"
)

// Session is one identity's persisted state. A record is created only
// when OTP verification succeeds and carries the credential and profile
// returned by the platform.
type Session struct {
	Email        string    `json:"email"`
	ID           string    `json:"sessionId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`

	AccessToken   string        `json:"accessToken,omitempty"`
	AccessTokenID string        `json:"accessTokenId,omitempty"`
	ExpireAt      string        `json:"expireAt,omitempty"`
	User          *copperx.User `json:"user,omitempty"`

	// ChatID is the destination registered for deposit notifications.
	ChatID string `json:"chatId,omitempty"`
}

// Authenticated reports whether the session holds a usable bearer token.
// An unparseable ExpireAt counts as valid; the platform still rejects a
// genuinely stale token with 401.
func (s *Session) Authenticated() bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	if s.ExpireAt != "" {
		if t, err := time.Parse(time.RFC3339, s.ExpireAt); err == nil && time.Now().After(t) {
			return false
		}
	}
	return true
}
