package tools

import (
	"encoding/json"
	"fmt"
)

// Tool inputs. Every tool carries the identity email; the orchestrator
// injects it so the model cannot act on someone else's session.

// LoginInput requests an OTP for the identity.
type LoginInput struct {
	Email string `json:"email"`
}

// VerifyOTPInput completes the OTP round trip. SID may be omitted when a
// login request is still pending for the identity.
type VerifyOTPInput struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	SID   string `json:"sid,omitempty"`
}

// LogoutInput ends the identity's platform session.
type LogoutInput struct {
	Email string `json:"email"`
}

// BalanceInput reads funds or history. Type is "balance" or
// "transactionHistory".
type BalanceInput struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// SendInput transfers funds to another platform user.
type SendInput struct {
	Email       string `json:"email"`
	RecipientID string `json:"recipientId"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"`
}

// WithdrawInput moves funds to a linked account.
type WithdrawInput struct {
	Email    string `json:"email"`
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
	Method   string `json:"method,omitempty"`
}

// ProfileInput reads the account profile.
type ProfileInput struct {
	Email string `json:"email"`
}

// KYCInput checks verification status, or starts a verification when
// nationality and country are provided.
type KYCInput struct {
	Email       string `json:"email"`
	Nationality string `json:"nationality,omitempty"`
	Country     string `json:"country,omitempty"`
}

// WalletInput manages wallets. Action is one of "list", "balances",
// "setDefault", "deposit", "transactions". WalletID is required for
// "setDefault" and "deposit".
type WalletInput struct {
	Email    string `json:"email"`
	Action   string `json:"action"`
	WalletID string `json:"walletId,omitempty"`
}

// NotifyInput registers a chat destination for deposit notifications.
type NotifyInput struct {
	Email  string `json:"email"`
	ChatID string `json:"chatId"`
}

// decode converts the model's named arguments into a typed input via a
// JSON round trip, so field matching follows the same json tags the tool
// declarations advertise.
func decode[T any](args map[string]any) (T, error) {
	var in T
	raw, err := json.Marshal(args)
	if err != nil {
		return in, fmt.Errorf("encoding tool arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("decoding tool arguments: %w", err)
	}
	return in, nil
}
