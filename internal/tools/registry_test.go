package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpxbuddy/cpxbuddy/internal/copperx"
	"github.com/cpxbuddy/cpxbuddy/internal/log"
	"github.com/cpxbuddy/cpxbuddy/internal/session"
)

const testEmail = "alice@example.com"

// testBackend is a minimal stand-in for the platform API. The counter
// records every request that reaches it.
func testBackend(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/email-otp/request", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(copperx.OTPRequest{Email: body["email"], SID: "sid-1"})
	})
	mux.HandleFunc("POST /api/auth/email-otp/authenticate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["otp"] != "123456" || body["sid"] != "sid-1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Invalid OTP"})
			return
		}
		json.NewEncoder(w).Encode(copperx.AuthResult{
			Scheme:      "Bearer",
			AccessToken: "tok",
			ExpireAt:    "2999-01-01T00:00:00Z",
			User: copperx.User{
				FirstName:      "Alice",
				Email:          body["email"],
				OrganizationID: "org-1",
			},
		})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Token expired"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/wallet/balance", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(copperx.Balance{Total: "120.50", Available: "100.00", Currency: "USDC"})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(copperx.User{
			FirstName: "Alice", LastName: "Adams", Email: testEmail,
			Role: "owner", Status: "active", WalletAddress: "0xabc",
		})
	})
	mux.HandleFunc("GET /api/accounts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []copperx.Account{
			{ID: "acc-1", Type: "bank_account", Status: "verified", Country: "usa"},
		}})
	})
	mux.HandleFunc("GET /api/kycs/status/{email}", func(w http.ResponseWriter, r *http.Request) {
		status := ""
		switch r.PathValue("email") {
		case testEmail:
			status = "pending"
		case "carol@example.com":
			status = "approved"
		}
		json.NewEncoder(w).Encode(copperx.KycStatus{Email: r.PathValue("email"), Status: status})
	})
	mux.HandleFunc("GET /api/kycs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []copperx.Kyc{
			{
				ID: "kyc-1", Status: "pending", Country: "USA", ProviderCode: "sumsub",
				Detail: &copperx.KycDetail{Email: testEmail},
			},
		}})
	})
	mux.HandleFunc("POST /api/kycs", func(w http.ResponseWriter, r *http.Request) {
		var req copperx.KycRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(copperx.Kyc{
			ID: "kyc-2", Status: "initiated", Type: req.Type, Country: req.Country,
			Detail: &copperx.KycDetail{Email: req.Detail.Email, KycURL: "https://kyc.example.com/start"},
		})
	})
	mux.HandleFunc("POST /api/wallets/default", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(copperx.Wallet{ID: body["walletId"], Network: "polygon", IsDefault: true})
	})
	mux.HandleFunc("POST /api/transactions/send", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "Insufficient balance",
			"error":   "Unprocessable Entity",
		})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRegistry(t *testing.T) (*Registry, *session.Store) {
	reg, store, _ := newCountingRegistry(t)
	return reg, store
}

func newCountingRegistry(t *testing.T) (*Registry, *session.Store, *int) {
	t.Helper()
	hits := new(int)
	srv := testBackend(t, hits)

	client, err := copperx.New(copperx.Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Logger:     log.NewNop(),
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)

	store, err := session.New(t.TempDir(), log.NewNop())
	require.NoError(t, err)

	reg, err := New(Config{Copperx: client, Sessions: store, Logger: log.NewNop()})
	require.NoError(t, err)
	return reg, store, hits
}

// loginAs runs the full OTP round trip for the test identity.
func loginAs(t *testing.T, reg *Registry) {
	loginUser(t, reg, testEmail)
}

func loginUser(t *testing.T, reg *Registry, email string) {
	t.Helper()
	ctx := context.Background()

	_, err := reg.Dispatch(ctx, KindLogin, map[string]any{"email": email})
	require.NoError(t, err)
	out, err := reg.Dispatch(ctx, KindVerifyOTP, map[string]any{"email": email, "otp": "123456"})
	require.NoError(t, err)
	require.Contains(t, out, "Welcome back, Alice")
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("transmogrify")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestDispatch_RequiresLogin(t *testing.T) {
	reg, _, hits := newCountingRegistry(t)

	for _, kind := range []Kind{KindBalance, KindSend, KindWithdraw, KindProfile, KindKYC, KindWallet, KindNotify, KindLogout} {
		out, err := reg.Dispatch(context.Background(), kind, map[string]any{"email": testEmail})
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, loginPrompt, out, "kind %s", kind)
	}

	// The auth gate fires before any platform call.
	assert.Equal(t, 0, *hits)
}

func TestLoginFlow(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()

	out, err := reg.Dispatch(ctx, KindLogin, map[string]any{"email": testEmail})
	require.NoError(t, err)
	assert.Contains(t, out, "OTP has been sent to "+testEmail)

	// No session record exists until verification succeeds.
	_, err = store.Get(testEmail)
	assert.ErrorIs(t, err, session.ErrNotFound)

	out, err = reg.Dispatch(ctx, KindVerifyOTP, map[string]any{"email": testEmail, "otp": "123456"})
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, Alice")

	sess, err := store.Get(testEmail)
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	require.NotNil(t, sess.User)
	assert.Equal(t, "org-1", sess.User.OrganizationID)
}

func TestVerifyOTP_ReplacesSessionOnRelogin(t *testing.T) {
	reg, store := newTestRegistry(t)

	loginAs(t, reg)
	first, err := store.Get(testEmail)
	require.NoError(t, err)

	loginAs(t, reg)
	second, err := store.Get(testEmail)
	require.NoError(t, err)

	// A new login replaces the record and rotates the session id.
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, store.Len())
}

func TestVerifyOTP_InvalidCode(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Dispatch(ctx, KindLogin, map[string]any{"email": testEmail})
	require.NoError(t, err)

	out, err := reg.Dispatch(ctx, KindVerifyOTP, map[string]any{"email": testEmail, "otp": "000000"})
	require.NoError(t, err)
	assert.Contains(t, out, "Failed to verify OTP (401)")
	assert.Contains(t, out, "Invalid OTP")

	// Failed verification creates nothing; the OTP handle survives for a
	// retry.
	_, err = store.Get(testEmail)
	assert.ErrorIs(t, err, session.ErrNotFound)

	out, err = reg.Dispatch(ctx, KindVerifyOTP, map[string]any{"email": testEmail, "otp": "123456"})
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, Alice")
}

func TestVerifyOTP_WithoutLogin(t *testing.T) {
	reg, _ := newTestRegistry(t)

	out, err := reg.Dispatch(context.Background(), KindVerifyOTP, map[string]any{"email": testEmail, "otp": "123456"})
	require.NoError(t, err)
	assert.Contains(t, out, "No login in progress")
}

func TestBalance(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginAs(t, reg)

	out, err := reg.Dispatch(context.Background(), KindBalance, map[string]any{"email": testEmail, "type": "balance"})
	require.NoError(t, err)
	assert.Contains(t, out, "100.00 USDC available")
	assert.Contains(t, out, "120.50 USDC total")
}

func TestProfile_IncludesLinkedAccounts(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginAs(t, reg)

	out, err := reg.Dispatch(context.Background(), KindProfile, map[string]any{"email": testEmail})
	require.NoError(t, err)
	assert.Contains(t, out, "Alice Adams")
	assert.Contains(t, out, "bank_account acc-1 (verified)")
}

func TestKYC_ReportsExistingApplication(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginAs(t, reg)

	out, err := reg.Dispatch(context.Background(), KindKYC, map[string]any{"email": testEmail})
	require.NoError(t, err)
	assert.Contains(t, out, "kyc-1")
	assert.Contains(t, out, "under review")
	assert.Contains(t, out, "sumsub")
}

func TestKYC_ApprovedSkipsApplicationLookup(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginUser(t, reg, "carol@example.com")

	out, err := reg.Dispatch(context.Background(), KindKYC, map[string]any{"email": "carol@example.com"})
	require.NoError(t, err)
	assert.Contains(t, out, "fully verified")
}

func TestKYC_StartsNewApplication(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginUser(t, reg, "bob@example.com")
	ctx := context.Background()

	// Without nationality and country the handler only prompts.
	out, err := reg.Dispatch(ctx, KindKYC, map[string]any{"email": "bob@example.com"})
	require.NoError(t, err)
	assert.Contains(t, out, "No KYC application found")

	out, err = reg.Dispatch(ctx, KindKYC, map[string]any{
		"email":       "bob@example.com",
		"nationality": "us",
		"country":     "us",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "kyc-2")
	assert.Contains(t, out, "https://kyc.example.com/start")
}

func TestWallet_SetDefault(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginAs(t, reg)

	out, err := reg.Dispatch(context.Background(), KindWallet, map[string]any{
		"email":    testEmail,
		"action":   "setDefault",
		"walletId": "w-9",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Default wallet set to w-9")
}

func TestWallet_SetDefaultRequiresWalletID(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginAs(t, reg)

	out, err := reg.Dispatch(context.Background(), KindWallet, map[string]any{
		"email":  testEmail,
		"action": "setDefault",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "wallet id is required")
}

func TestWallet_UnknownAction(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginAs(t, reg)

	out, err := reg.Dispatch(context.Background(), KindWallet, map[string]any{
		"email":  testEmail,
		"action": "explode",
	})
	require.NoError(t, err)
	assert.Contains(t, out, `Unknown wallet action "explode"`)
}

func TestSend_PlatformRejection(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginAs(t, reg)

	out, err := reg.Dispatch(context.Background(), KindSend, map[string]any{
		"email":       testEmail,
		"recipientId": "bob",
		"amount":      "9999",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Failed to send funds (422): Insufficient balance")
	assert.Contains(t, out, "Details: Unprocessable Entity")
}

func TestLogout(t *testing.T) {
	reg, store := newTestRegistry(t)
	loginAs(t, reg)

	out, err := reg.Dispatch(context.Background(), KindLogout, map[string]any{"email": testEmail})
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out successfully")

	_, err = store.Get(testEmail)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestLogout_ExpiredToken(t *testing.T) {
	reg, store := newTestRegistry(t)
	loginAs(t, reg)

	// Simulate a token the platform no longer accepts.
	_, err := store.Update(testEmail, func(s *session.Session) { s.AccessToken = "stale" })
	require.NoError(t, err)

	out, err := reg.Dispatch(context.Background(), KindLogout, map[string]any{"email": testEmail})
	require.NoError(t, err)
	assert.Equal(t, "Session expired. Cleared local session data.", out)

	_, err = store.Get(testEmail)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestNotify_Unconfigured(t *testing.T) {
	reg, _ := newTestRegistry(t)
	loginAs(t, reg)

	out, err := reg.Dispatch(context.Background(), KindNotify, map[string]any{
		"email":  testEmail,
		"chatId": "chat-7",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "not configured")
}

func TestDispatch_UnknownKind(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Dispatch(context.Background(), Kind(99), map[string]any{"email": testEmail})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestFailure_PassesThroughInfrastructureErrors(t *testing.T) {
	_, err := failure("do something", errors.New("network down"))
	assert.EqualError(t, err, "network down")
}
