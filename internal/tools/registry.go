// Package tools executes the platform actions the model may request.
//
// The tool set is a closed enum (Kind). Dispatch decodes the model's
// named arguments into the kind's typed input and runs the handler.
// Platform rejections (*copperx.APIError) come back as formatted result
// strings so the second model pass can restyle them for the user;
// infrastructure failures (network, disk) come back as Go errors and
// propagate to the transport untouched.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cpxbuddy/cpxbuddy/internal/copperx"
	"github.com/cpxbuddy/cpxbuddy/internal/log"
	"github.com/cpxbuddy/cpxbuddy/internal/notify"
	"github.com/cpxbuddy/cpxbuddy/internal/session"
)

const loginPrompt = "You are not logged in. Please log in with your email to continue."

// Config holds registry dependencies. Notifier may be nil when deposit
// notifications are not configured.
type Config struct {
	Copperx  *copperx.Client
	Sessions *session.Store
	Notifier *notify.Notifier
	Logger   log.Logger
}

func (c *Config) validate() error {
	if c.Copperx == nil {
		return errors.New("tools: copperx client is required")
	}
	if c.Sessions == nil {
		return errors.New("tools: session store is required")
	}
	if c.Logger == nil {
		return errors.New("tools: logger is required")
	}
	return nil
}

// Registry dispatches tool calls against the platform.
type Registry struct {
	copperx  *copperx.Client
	sessions *session.Store
	notifier *notify.Notifier
	logger   log.Logger

	// pending maps an identity to the OTP handle issued at login. A
	// session record exists only after verification succeeds, so the
	// handle has to live here in the meantime.
	mu      sync.Mutex
	pending map[string]string
}

// New creates a Registry with its dependencies bound once at startup.
func New(cfg Config) (*Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Registry{
		copperx:  cfg.Copperx,
		sessions: cfg.Sessions,
		notifier: cfg.Notifier,
		logger:   cfg.Logger.With("component", "tools"),
		pending:  make(map[string]string),
	}, nil
}

// Dispatch runs one tool call. The returned string is the tool result
// handed back to the model, including platform rejections rendered as
// text. Only infrastructure failures return a non-nil error.
func (r *Registry) Dispatch(ctx context.Context, kind Kind, args map[string]any) (string, error) {
	r.logger.Debug("dispatching tool", "tool", kind.String())

	result, err := r.dispatch(ctx, kind, args)
	if errors.Is(err, ErrNotAuthenticated) {
		return loginPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", kind, err)
	}
	return result, nil
}

func (r *Registry) dispatch(ctx context.Context, kind Kind, args map[string]any) (string, error) {
	switch kind {
	case KindLogin:
		in, err := decode[LoginInput](args)
		if err != nil {
			return "", err
		}
		return r.login(ctx, in)
	case KindVerifyOTP:
		in, err := decode[VerifyOTPInput](args)
		if err != nil {
			return "", err
		}
		return r.verifyOTP(ctx, in)
	case KindLogout:
		in, err := decode[LogoutInput](args)
		if err != nil {
			return "", err
		}
		return r.logout(ctx, in)
	case KindBalance:
		in, err := decode[BalanceInput](args)
		if err != nil {
			return "", err
		}
		return r.balance(ctx, in)
	case KindSend:
		in, err := decode[SendInput](args)
		if err != nil {
			return "", err
		}
		return r.send(ctx, in)
	case KindWithdraw:
		in, err := decode[WithdrawInput](args)
		if err != nil {
			return "", err
		}
		return r.withdraw(ctx, in)
	case KindProfile:
		in, err := decode[ProfileInput](args)
		if err != nil {
			return "", err
		}
		return r.profile(ctx, in)
	case KindKYC:
		in, err := decode[KYCInput](args)
		if err != nil {
			return "", err
		}
		return r.kyc(ctx, in)
	case KindWallet:
		in, err := decode[WalletInput](args)
		if err != nil {
			return "", err
		}
		return r.wallet(ctx, in)
	case KindNotify:
		in, err := decode[NotifyInput](args)
		if err != nil {
			return "", err
		}
		return r.notify(ctx, in)
	default:
		return "", fmt.Errorf("%w: kind %d", ErrUnknownTool, int(kind))
	}
}

// authed loads the identity's session and requires a usable token.
func (r *Registry) authed(email string) (*session.Session, error) {
	sess, err := r.sessions.Get(email)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	return sess, nil
}

// failure renders a platform rejection as a tool result string. Other
// errors pass through for the transport to handle.
func failure(action string, err error) (string, error) {
	var apiErr *copperx.APIError
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("Failed to %s (%d): %s", action, apiErr.StatusCode, apiErr.Message)
		if apiErr.Detail != "" {
			msg += "\nDetails: " + apiErr.Detail
		}
		return msg, nil
	}
	return "", err
}

func (r *Registry) login(ctx context.Context, in LoginInput) (string, error) {
	if in.Email == "" {
		return "An email address is required to log in.", nil
	}

	otp, err := r.copperx.RequestOTP(ctx, in.Email)
	if err != nil {
		return failure("request OTP", err)
	}

	r.mu.Lock()
	r.pending[in.Email] = otp.SID
	r.mu.Unlock()

	return fmt.Sprintf("An OTP has been sent to %s. Reply with the code to finish logging in.", in.Email), nil
}

func (r *Registry) verifyOTP(ctx context.Context, in VerifyOTPInput) (string, error) {
	sid := in.SID
	if sid == "" {
		r.mu.Lock()
		sid = r.pending[in.Email]
		r.mu.Unlock()
	}
	if sid == "" {
		return "No login in progress. Start by logging in with your email.", nil
	}
	if in.OTP == "" {
		return "An OTP code is required. Check your email for the 6-digit code.", nil
	}

	auth, err := r.copperx.VerifyOTP(ctx, in.Email, in.OTP, sid)
	if err != nil {
		return failure("verify OTP", err)
	}

	r.mu.Lock()
	delete(r.pending, in.Email)
	r.mu.Unlock()

	// A fresh record replaces whatever was stored before; the session id
	// rotates with every successful login.
	if _, err := r.sessions.Create(in.Email); err != nil {
		return "", err
	}
	if _, err := r.sessions.Update(in.Email, func(s *session.Session) {
		s.AccessToken = auth.AccessToken
		s.AccessTokenID = auth.AccessTokenID
		s.ExpireAt = auth.ExpireAt
		user := auth.User
		s.User = &user
	}); err != nil {
		return "", err
	}

	name := auth.User.FirstName
	if name == "" {
		name = in.Email
	}
	return fmt.Sprintf("Login successful. Welcome back, %s!", name), nil
}

func (r *Registry) logout(ctx context.Context, in LogoutInput) (string, error) {
	sess, err := r.authed(in.Email)
	if err != nil {
		return "", err
	}

	if err := r.copperx.Logout(ctx, sess.AccessToken); err != nil {
		if errors.Is(err, copperx.ErrUnauthorized) {
			// The token is already dead server-side; drop our copy too.
			if derr := r.sessions.Delete(in.Email); derr != nil && !errors.Is(derr, session.ErrNotFound) {
				return "", derr
			}
			return "Session expired. Cleared local session data.", nil
		}
		return failure("log out", err)
	}

	if err := r.sessions.Delete(in.Email); err != nil && !errors.Is(err, session.ErrNotFound) {
		return "", err
	}
	return "Logged out successfully. Your local session data has been cleared.", nil
}

func (r *Registry) balance(ctx context.Context, in BalanceInput) (string, error) {
	sess, err := r.authed(in.Email)
	if err != nil {
		return "", err
	}

	switch in.Type {
	case "", "balance":
		bal, err := r.copperx.Balance(ctx, sess.AccessToken)
		if err != nil {
			return failure("fetch balance", err)
		}
		return formatBalance(bal), nil
	case "transactionHistory":
		txs, err := r.copperx.Transactions(ctx, sess.AccessToken)
		if err != nil {
			return failure("fetch transaction history", err)
		}
		return formatTransactions(txs), nil
	default:
		return fmt.Sprintf("Unknown balance query %q. Use \"balance\" or \"transactionHistory\".", in.Type), nil
	}
}

func (r *Registry) send(ctx context.Context, in SendInput) (string, error) {
	sess, err := r.authed(in.Email)
	if err != nil {
		return "", err
	}
	if in.RecipientID == "" || in.Amount == "" {
		return "Both a recipient and an amount are required to send funds.", nil
	}

	transfer, err := r.copperx.Send(ctx, sess.AccessToken, copperx.SendRequest{
		RecipientID: in.RecipientID,
		Amount:      in.Amount,
		Currency:    in.Currency,
	})
	if err != nil {
		return failure("send funds", err)
	}
	return formatTransfer("Transfer initiated", transfer), nil
}

func (r *Registry) withdraw(ctx context.Context, in WithdrawInput) (string, error) {
	sess, err := r.authed(in.Email)
	if err != nil {
		return "", err
	}
	if in.Amount == "" {
		return "An amount is required to withdraw funds.", nil
	}

	transfer, err := r.copperx.Withdraw(ctx, sess.AccessToken, copperx.WithdrawRequest{
		Amount:   in.Amount,
		Currency: in.Currency,
		Method:   in.Method,
	})
	if err != nil {
		return failure("withdraw funds", err)
	}
	return formatTransfer("Withdrawal initiated", transfer), nil
}

func (r *Registry) profile(ctx context.Context, in ProfileInput) (string, error) {
	sess, err := r.authed(in.Email)
	if err != nil {
		return "", err
	}

	user, err := r.copperx.Me(ctx, sess.AccessToken)
	if err != nil {
		return failure("fetch profile", err)
	}
	accounts, err := r.copperx.Accounts(ctx, sess.AccessToken)
	if err != nil {
		return failure("fetch linked accounts", err)
	}
	return formatProfile(user, accounts), nil
}

func (r *Registry) kyc(ctx context.Context, in KYCInput) (string, error) {
	sess, err := r.authed(in.Email)
	if err != nil {
		return "", err
	}
	token := sess.AccessToken

	status, err := r.copperx.KycStatus(ctx, token, in.Email)
	if err != nil {
		return failure("check KYC status", err)
	}
	if status.Status == "approved" || status.Status == "verified" {
		return formatKycStatus(in.Email, status.Status), nil
	}

	// Below approved, an existing application carries more detail than
	// the bare status endpoint; report on it when there is one.
	kycs, err := r.copperx.Kycs(ctx, token)
	if err != nil {
		return failure("list KYC applications", err)
	}
	for i := range kycs {
		if kycs[i].Detail != nil && kycs[i].Detail.Email == in.Email {
			return formatKycApplication(&kycs[i]), nil
		}
	}

	if in.Nationality == "" || in.Country == "" {
		return formatKycStatus(in.Email, status.Status), nil
	}

	detail := copperx.KycDetail{
		Email:       in.Email,
		Nationality: strings.ToUpper(in.Nationality),
		UboType:     "owner",
	}
	if sess.User != nil {
		detail.FirstName = sess.User.FirstName
		detail.LastName = sess.User.LastName
	}
	kyc, err := r.copperx.SubmitKyc(ctx, token, copperx.KycRequest{
		Type:    "individual",
		Country: strings.ToUpper(in.Country),
		Detail:  detail,
	})
	if err != nil {
		return failure("start KYC verification", err)
	}
	return formatNewKyc(kyc), nil
}

func (r *Registry) wallet(ctx context.Context, in WalletInput) (string, error) {
	sess, err := r.authed(in.Email)
	if err != nil {
		return "", err
	}
	token := sess.AccessToken

	switch in.Action {
	case "list":
		wallets, err := r.copperx.Wallets(ctx, token)
		if err != nil {
			return failure("list wallets", err)
		}
		return formatWallets(wallets), nil
	case "balances":
		balances, err := r.copperx.WalletBalances(ctx, token)
		if err != nil {
			return failure("fetch wallet balances", err)
		}
		return formatWalletBalances(balances), nil
	case "setDefault":
		if in.WalletID == "" {
			return "A wallet id is required to set the default wallet.", nil
		}
		wallet, err := r.copperx.SetDefaultWallet(ctx, token, in.WalletID)
		if err != nil {
			return failure("set default wallet", err)
		}
		return fmt.Sprintf("Default wallet set to %s on %s.", wallet.ID, wallet.Network), nil
	case "deposit":
		if in.WalletID == "" {
			return "A wallet id is required to fetch deposit details.", nil
		}
		info, err := r.copperx.DepositInfo(ctx, token, in.WalletID)
		if err != nil {
			return failure("fetch deposit details", err)
		}
		return formatDepositInfo(info), nil
	case "transactions":
		page, err := r.copperx.Transfers(ctx, token)
		if err != nil {
			return failure("fetch wallet transactions", err)
		}
		return formatTransfers(page), nil
	default:
		return fmt.Sprintf("Unknown wallet action %q. Use \"list\", \"balances\", \"setDefault\", \"deposit\" or \"transactions\".", in.Action), nil
	}
}

func (r *Registry) notify(ctx context.Context, in NotifyInput) (string, error) {
	sess, err := r.authed(in.Email)
	if err != nil {
		return "", err
	}
	if r.notifier == nil {
		return "Deposit notifications are not configured on this server.", nil
	}
	if sess.User == nil || sess.User.OrganizationID == "" {
		return "Your account has no organization attached, so deposit notifications cannot be enabled.", nil
	}

	if _, err := r.sessions.Update(in.Email, func(s *session.Session) {
		s.ChatID = in.ChatID
	}); err != nil {
		return "", err
	}

	if err := r.notifier.SendTest(sess.User.OrganizationID); err != nil {
		r.logger.Warn("test notification failed", "email", in.Email, "error", err)
		return "Deposit notifications were enabled, but the test event could not be delivered.", nil
	}
	return "Deposit notifications enabled. A test event was just sent to your channel.", nil
}
