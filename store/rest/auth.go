package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ddevcap/mcu-rankings/session"
)

// AuthClient implements session.Authenticator, session.Provisioner and
// session.Revoker against GoTrue. It shares the HTTP client of a Client.
type AuthClient struct {
	c *Client
}

// Auth returns the auth API of the same project.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{c: c}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type authError struct {
	Code      json.RawMessage `json:"code"`
	ErrorCode string          `json:"error_code"`
	Error     string          `json:"error"`
}

// accessClaims are the claims read from a GoTrue access token.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignIn exchanges email and password for an access token
// (POST /auth/v1/token?grant_type=password).
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (session.Identity, error) {
	raw, status, err := a.post(ctx, "/auth/v1/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return session.Identity{}, err
	}
	if status != http.StatusOK {
		if isInvalidCredentials(raw, status) {
			return session.Identity{}, session.ErrInvalidCredentials
		}
		return session.Identity{}, fmt.Errorf("rest: sign in: status %d: %s", status, errorMessage(raw, status))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return session.Identity{}, fmt.Errorf("rest: decoding token response: %w", err)
	}
	id := session.Identity{
		ID:          tr.User.ID,
		Email:       tr.User.Email,
		AccessToken: tr.AccessToken,
	}
	if tr.ExpiresIn > 0 {
		id.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	// The token's own claims are authoritative for subject and expiry. Its
	// signature is checked by the backend on every write.
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, &claims); err == nil {
		if claims.Subject != "" {
			id.ID = claims.Subject
		}
		if claims.Email != "" {
			id.Email = claims.Email
		}
		if claims.ExpiresAt != nil {
			id.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	if id.Email == "" {
		id.Email = email
	}
	return id, nil
}

// SignUp registers the account (POST /auth/v1/signup).
func (a *AuthClient) SignUp(ctx context.Context, email, password string) error {
	raw, status, err := a.post(ctx, "/auth/v1/signup", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}
	if status >= 200 && status < 300 {
		return nil
	}
	if isAlreadyRegistered(raw) {
		return session.ErrAccountExists
	}
	return fmt.Errorf("rest: sign up: status %d: %s", status, errorMessage(raw, status))
}

// SignOut revokes accessToken (POST /auth/v1/logout).
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	raw, status, err := a.post(ctx, "/auth/v1/logout", accessToken, nil)
	if err != nil {
		return err
	}
	if status >= 200 && status < 300 {
		return nil
	}
	return fmt.Errorf("rest: sign out: status %d: %s", status, errorMessage(raw, status))
}

func (a *AuthClient) post(ctx context.Context, path, bearer string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("rest: encoding auth request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("rest: building auth request: %w", err)
	}
	req.Header.Set("apikey", a.c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("rest: auth request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("rest: reading auth response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

// isInvalidCredentials recognises both the legacy invalid_grant body and the
// newer error_code form of a rejected password.
func isInvalidCredentials(raw []byte, status int) bool {
	if status != http.StatusBadRequest && status != http.StatusUnauthorized {
		return false
	}
	var e authError
	_ = json.Unmarshal(raw, &e)
	if e.ErrorCode == "invalid_credentials" || e.Error == "invalid_grant" {
		return true
	}
	return strings.Contains(errorMessage(raw, status), "Invalid login credentials")
}

func isAlreadyRegistered(raw []byte) bool {
	var e authError
	_ = json.Unmarshal(raw, &e)
	if e.ErrorCode == "user_already_exists" || e.ErrorCode == "email_exists" {
		return true
	}
	return strings.Contains(strings.ToLower(errorMessage(raw, 0)), "already registered")
}
