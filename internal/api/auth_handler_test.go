package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkessler/cardvault-api/internal/api"
	"github.com/mkessler/cardvault-api/internal/config"
	"github.com/mkessler/cardvault-api/internal/service/auth"
)

func newAuthHandler(t *testing.T, password string) *api.AuthHandler {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "handler-test-secret-long-enough-for-hmac",
		TokenLifetimeMinutes: 30,
	})
	require.NoError(t, err)

	return api.NewAuthHandler(string(hash), jwtService, auth.NewBcryptVerifier())
}

func postLogin(t *testing.T, h *api.AuthHandler, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	return rr
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, "correct horse battery staple")
	rr := postLogin(t, h, api.LoginRequest{Password: "correct horse battery staple"})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.ExpiresAt)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, "right")
	rr := postLogin(t, h, api.LoginRequest{Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Invalid credentials", resp.Error)
}

func TestLogin_MissingPassword(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, "whatever")
	rr := postLogin(t, h, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_MalformedBody(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, "whatever")
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
