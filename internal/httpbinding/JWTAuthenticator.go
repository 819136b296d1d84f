package httpbinding

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"
)

const jwtIssuer = "httpbinding.JWTAuthenticator"

// JwtClaims carried in the access token
type JwtClaims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}

// JWTLoginCredentials is the login request body
type JWTLoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JwtAuthResponse is the login response body
type JwtAuthResponse struct {
	AccessToken string `json:"accessToken"`
}

// JWTAuthenticator creates and verifies JWT access tokens for the command
// endpoint.
// The signing secret lives in memory only, so all tokens are invalidated on
// restart and the administrator must log in again. This is intentional.
// Credential verification itself is the platform's concern; a callback is
// provided at construction.
type JWTAuthenticator struct {
	verifyUsernamePassword func(username, password string) bool
	jwtKey                 []byte
	accessTokenValidity    time.Duration
}

// AuthenticateRequest validates the bearer access token.
// Returns the authenticated username and true on a valid token.
func (jauth *JWTAuthenticator) AuthenticateRequest(req *http.Request) (userID string, match bool) {
	accessTokenString, err := jauth.GetBearerToken(req)
	if err != nil {
		logrus.Debugf("JWTAuthenticator: no bearer token in request %s '%s' from %s",
			req.Method, req.RequestURI, req.RemoteAddr)
		return "", false
	}
	claims, err := jauth.DecodeToken(accessTokenString)
	if err != nil {
		logrus.Infof("JWTAuthenticator: invalid access token in request %s '%s' from %s",
			req.Method, req.RequestURI, req.RemoteAddr)
		return "", false
	}
	return claims.Username, true
}

// CreateToken creates a signed access token for the user
func (jauth *JWTAuthenticator) CreateToken(userID string) (accessToken string, err error) {
	claims := &JwtClaims{
		Username: userID,
		StandardClaims: jwt.StandardClaims{
			Id:        userID,
			Issuer:    jwtIssuer,
			Subject:   "accessToken",
			ExpiresAt: time.Now().Add(jauth.accessTokenValidity).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	jwtAccessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jwtAccessToken.SignedString(jauth.jwtKey)
}

// DecodeToken verifies a token and returns its claims
func (jauth *JWTAuthenticator) DecodeToken(tokenString string) (*JwtClaims, error) {
	claims := &JwtClaims{}
	jwtToken, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return jauth.jwtKey, nil
		})
	if err != nil || jwtToken == nil || !jwtToken.Valid {
		return nil, fmt.Errorf("invalid JWT token. Err=%s", err)
	}
	return claims, nil
}

// GetBearerToken returns the bearer token from the Authorization header
func (jauth *JWTAuthenticator) GetBearerToken(req *http.Request) (string, error) {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("JWTAuthenticator: no Authorization header")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("JWTAuthenticator: not a bearer token")
	}
	return parts[1], nil
}

// HandleJWTLogin handles a login POST request and returns an access token.
// Attach this method to the router with the login route.
func (jauth *JWTAuthenticator) HandleJWTLogin(resp http.ResponseWriter, req *http.Request) {
	loginCred := JWTLoginCredentials{}
	err := json.NewDecoder(req.Body).Decode(&loginCred)
	if err != nil {
		resp.WriteHeader(http.StatusBadRequest)
		return
	}
	// not an authentication provider; the platform verifies the credentials
	if !jauth.verifyUsernamePassword(loginCred.Username, loginCred.Password) {
		resp.WriteHeader(http.StatusUnauthorized)
		return
	}
	accessToken, err := jauth.CreateToken(loginCred.Username)
	if err != nil {
		logrus.Errorf("JWTAuthenticator.HandleJWTLogin: error %s", err)
		resp.WriteHeader(http.StatusInternalServerError)
		return
	}
	responseMsg, _ := json.Marshal(JwtAuthResponse{AccessToken: accessToken})
	resp.Write(responseMsg)
}

// NewJWTAuthenticator creates the JWT adapter.
//  secret for signing tokens, nil to generate a random 64 byte secret
//  verifyUsernamePassword validates the login credentials
func NewJWTAuthenticator(secret []byte,
	verifyUsernamePassword func(username, password string) bool) *JWTAuthenticator {

	if secret == nil {
		secret = make([]byte, 64)
		rand.Read(secret)
	}
	return &JWTAuthenticator{
		verifyUsernamePassword: verifyUsernamePassword,
		jwtKey:                 secret,
		accessTokenValidity:    15 * time.Minute,
	}
}
