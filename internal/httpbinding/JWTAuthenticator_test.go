package httpbinding_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/accessmanager-go/internal/httpbinding"
)

func acceptAlice(username, password string) bool {
	return username == "alice" && password == "secret"
}

func TestTokenRoundtrip(t *testing.T) {
	jauth := httpbinding.NewJWTAuthenticator(nil, acceptAlice)

	accessToken, err := jauth.CreateToken("alice")
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)

	claims, err := jauth.DecodeToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestDecodeInvalidToken(t *testing.T) {
	jauth := httpbinding.NewJWTAuthenticator(nil, acceptAlice)

	_, err := jauth.DecodeToken("notatoken")
	assert.Error(t, err)

	// a token signed with a different secret is refused
	other := httpbinding.NewJWTAuthenticator([]byte("other secret"), acceptAlice)
	accessToken, err := other.CreateToken("alice")
	require.NoError(t, err)
	_, err = jauth.DecodeToken(accessToken)
	assert.Error(t, err)
}

func TestAuthenticateRequest(t *testing.T) {
	jauth := httpbinding.NewJWTAuthenticator(nil, acceptAlice)
	accessToken, err := jauth.CreateToken("alice")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/command", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	userID, match := jauth.AuthenticateRequest(req)
	assert.True(t, match)
	assert.Equal(t, "alice", userID)

	// no header
	req = httptest.NewRequest("POST", "/api/command", nil)
	_, match = jauth.AuthenticateRequest(req)
	assert.False(t, match)

	// not a bearer scheme
	req = httptest.NewRequest("POST", "/api/command", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, match = jauth.AuthenticateRequest(req)
	assert.False(t, match)
}

func TestHandleJWTLogin(t *testing.T) {
	jauth := httpbinding.NewJWTAuthenticator(nil, acceptAlice)

	body, _ := json.Marshal(httpbinding.JWTLoginCredentials{Username: "alice", Password: "secret"})
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	jauth.HandleJWTLogin(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	authResponse := httpbinding.JwtAuthResponse{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &authResponse))
	claims, err := jauth.DecodeToken(authResponse.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestHandleJWTLoginBadCredentials(t *testing.T) {
	jauth := httpbinding.NewJWTAuthenticator(nil, acceptAlice)

	body, _ := json.Marshal(httpbinding.JWTLoginCredentials{Username: "alice", Password: "wrong"})
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	jauth.HandleJWTLogin(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	req = httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("{not json")))
	recorder = httptest.NewRecorder()
	jauth.HandleJWTLogin(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
