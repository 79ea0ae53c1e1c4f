package tools

import (
	"errors"
	"fmt"
)

// ErrUnknownTool means a tool name did not match the closed set of kinds.
var ErrUnknownTool = errors.New("unknown tool")

// ErrNotAuthenticated means the identity has no usable session token.
// Dispatch converts it into a login prompt for the user.
var ErrNotAuthenticated = errors.New("not authenticated")

// Kind identifies one tool in the closed set the model may call. New
// tools require a new constant plus a Dispatch case; there is no dynamic
// registration.
type Kind int

const (
	KindLogin Kind = iota
	KindVerifyOTP
	KindLogout
	KindBalance
	KindSend
	KindWithdraw
	KindProfile
	KindKYC
	KindWallet
	KindNotify
)

var kindNames = [...]string{
	KindLogin:     "login",
	KindVerifyOTP: "verifyOTP",
	KindLogout:    "logout",
	KindBalance:   "balance",
	KindSend:      "send",
	KindWithdraw:  "withdraw",
	KindProfile:   "profile",
	KindKYC:       "kyc",
	KindWallet:    "wallet",
	KindNotify:    "notify",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a tool name from the model back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// Kinds returns all tool kinds in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}
