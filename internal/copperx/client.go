// Package copperx is the HTTP client for the Copperx payout platform.
//
// Endpoints that predate authentication (OTP request and verification)
// send the application API key; everything else sends the bearer token
// obtained at verification. Non-2xx responses become *APIError, and 401
// additionally matches ErrUnauthorized via errors.Is.
package copperx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
)

const (
	defaultTimeout = 30 * time.Second

	// The platform allows 10 req/s per key; stay under it client-side.
	defaultRateLimit = rate.Limit(8)
	defaultRateBurst = 8
)

// Config holds client dependencies and settings.
type Config struct {
	BaseURL string
	APIKey  string
	Logger  log.Logger

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("copperx: base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("copperx: invalid base URL: %w", err)
	}
	if c.APIKey == "" {
		return errors.New("copperx: API key is required")
	}
	if c.Logger == nil {
		return errors.New("copperx: logger is required")
	}
	return nil
}

// Client calls the Copperx platform API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// New creates a Client. The configuration is validated eagerly so wiring
// mistakes surface at startup rather than on the first request.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpc:   httpc,
		limiter: rate.NewLimiter(defaultRateLimit, defaultRateBurst),
		logger:  cfg.Logger.With("component", "copperx"),
	}, nil
}

// RequestOTP asks the platform to email a one-time password.
func (c *Client) RequestOTP(ctx context.Context, email string) (*OTPRequest, error) {
	var out OTPRequest
	err := c.do(ctx, http.MethodPost, "/api/auth/email-otp/request", "",
		map[string]string{"email": email}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP exchanges the emailed code for a bearer token.
func (c *Client) VerifyOTP(ctx context.Context, email, otp, sid string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/email-otp/authenticate", "",
		map[string]string{"email": email, "otp": otp, "sid": sid}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the bearer token server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, struct{}{}, nil)
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance returns the aggregate wallet balance.
func (c *Client) Balance(ctx context.Context, token string) (*Balance, error) {
	var out Balance
	if err := c.do(ctx, http.MethodGet, "/api/wallet/balance", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions returns the recent ledger entries.
func (c *Client) Transactions(ctx context.Context, token string) ([]Transaction, error) {
	var out struct {
		Data []Transaction `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/transactions", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Accounts returns the linked payout accounts.
func (c *Client) Accounts(ctx context.Context, token string) ([]Account, error) {
	var out struct {
		Data []Account `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/accounts", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Wallets lists the organization's wallets.
func (c *Client) Wallets(ctx context.Context, token string) ([]Wallet, error) {
	var out []Wallet
	if err := c.do(ctx, http.MethodGet, "/api/wallets", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WalletBalances lists per-asset balances across all wallets.
func (c *Client) WalletBalances(ctx context.Context, token string) ([]WalletBalance, error) {
	var out []WalletBalance
	if err := c.do(ctx, http.MethodGet, "/api/wallets/balances", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetDefaultWallet marks a wallet as the default for payouts.
func (c *Client) SetDefaultWallet(ctx context.Context, token, walletID string) (*Wallet, error) {
	var out Wallet
	err := c.do(ctx, http.MethodPost, "/api/wallets/default", token,
		map[string]string{"walletId": walletID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DepositInfo returns the funding address for a wallet.
func (c *Client) DepositInfo(ctx context.Context, token, walletID string) (*DepositInfo, error) {
	var out DepositInfo
	path := "/api/wallets/" + url.PathEscape(walletID) + "/deposit"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transfers returns the paginated payout history.
func (c *Client) Transfers(ctx context.Context, token string) (*TransferPage, error) {
	var out TransferPage
	if err := c.do(ctx, http.MethodGet, "/api/transfers", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Send transfers funds to another platform user.
func (c *Client) Send(ctx context.Context, token string, req SendRequest) (*Transfer, error) {
	var out Transfer
	if err := c.do(ctx, http.MethodPost, "/api/transactions/send", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw moves funds out to a linked account.
func (c *Client) Withdraw(ctx context.Context, token string, req WithdrawRequest) (*Transfer, error) {
	var out Transfer
	if err := c.do(ctx, http.MethodPost, "/api/transactions/withdraw", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// KycStatus returns the verification state for an email.
func (c *Client) KycStatus(ctx context.Context, token, email string) (*KycStatus, error) {
	var out KycStatus
	path := "/api/kycs/status/" + url.PathEscape(email)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Kycs lists the account's verification records.
func (c *Client) Kycs(ctx context.Context, token string) ([]Kyc, error) {
	var out struct {
		Data []Kyc `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/kycs", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// SubmitKyc starts a new verification.
func (c *Client) SubmitKyc(ctx context.Context, token string, req KycRequest) (*Kyc, error) {
	var out Kyc
	if err := c.do(ctx, http.MethodPost, "/api/kycs", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one request. token selects bearer auth; when empty the
// application API key is sent instead. body nil means no request body;
// out nil discards the response body.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("copperx: rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("copperx: encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("copperx: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("copperx: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request complete",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFrom(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("copperx: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// errorFrom builds an *APIError from a non-2xx response. The platform
// reports {"message": ..., "error": ...}; unparseable bodies fall back
// to the raw text.
func (c *Client) errorFrom(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != nil {
		switch m := payload.Message.(type) {
		case string:
			apiErr.Message = m
		default:
			b, _ := json.Marshal(m)
			apiErr.Message = string(b)
		}
		apiErr.Detail = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
