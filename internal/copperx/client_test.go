package copperx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:    srv.URL,
		APIKey:     "test-api-key",
		Logger:     log.NewNop(),
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{APIKey: "k", Logger: log.NewNop()})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "http://x", Logger: log.NewNop()})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "http://x", APIKey: "k"})
	assert.Error(t, err)
}

func TestRequestOTP_SendsAPIKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/email-otp/request", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])

		json.NewEncoder(w).Encode(OTPRequest{Email: body["email"], SID: "sid-123"})
	})

	out, err := client.RequestOTP(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sid-123", out.SID)
}

func TestVerifyOTP(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/email-otp/authenticate", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "123456", body["otp"])
		assert.Equal(t, "sid-123", body["sid"])

		json.NewEncoder(w).Encode(AuthResult{
			Scheme:      "Bearer",
			AccessToken: "tok",
			ExpireAt:    "2026-09-01T00:00:00Z",
			User:        User{Email: "alice@example.com", OrganizationID: "org-1"},
		})
	})

	out, err := client.VerifyOTP(context.Background(), "alice@example.com", "123456", "sid-123")
	require.NoError(t, err)
	assert.Equal(t, "tok", out.AccessToken)
	assert.Equal(t, "org-1", out.User.OrganizationID)
}

func TestBalance_SendsBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/wallet/balance", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-Api-Key"))

		json.NewEncoder(w).Encode(Balance{Total: "120.50", Available: "100.00", Currency: "USDC"})
	})

	out, err := client.Balance(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "120.50", out.Total)
}

func TestSetDefaultWallet(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/wallets/default", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "w-9", body["walletId"])

		json.NewEncoder(w).Encode(Wallet{ID: "w-9", Network: "polygon", IsDefault: true})
	})

	out, err := client.SetDefaultWallet(context.Background(), "tok", "w-9")
	require.NoError(t, err)
	assert.True(t, out.IsDefault)
}

func TestDo_ErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "Insufficient balance",
			"error":   "Unprocessable Entity",
		})
	})

	_, err := client.Balance(context.Background(), "tok")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Equal(t, "Insufficient balance", apiErr.Message)
	assert.Equal(t, "Unprocessable Entity", apiErr.Detail)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestDo_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Token expired"})
	})

	err := client.Logout(context.Background(), "stale-tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDo_NonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	_, err := client.Me(context.Background(), "tok")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}
