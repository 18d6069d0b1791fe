// Package session implements the authentication gate. A visitor is in exactly
// one of three states: unauthenticated (the sign-in prompt is shown), guest
// (read-only) or admin (may edit scores and titles). Transitions happen only
// through Gate.Login, Gate.ContinueAsGuest and Gate.SignOut.
package session

import (
	"context"
	"errors"
	"time"
)

// State is the gate state of a visitor.
type State string

const (
	Unauthenticated State = "unauthenticated"
	Guest           State = "guest"
	Admin           State = "admin"
)

var (
	// ErrInvalidCredentials is returned when the backend rejects the password
	// or does not know the admin account.
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	// ErrAccountExists is returned by a Provisioner when the account is
	// already present.
	ErrAccountExists = errors.New("session: account already exists")
	// ErrUnavailable wraps failures of the authentication backend itself.
	ErrUnavailable = errors.New("session: authentication service unavailable")
)

// Identity is the authenticated admin as reported by the auth backend.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	// AccessToken authorises writes against backends with row-level auth.
	// Empty for backends that don't issue one.
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Session is one visitor's gate state.
type Session struct {
	Token     string    `json:"-"`
	State     State     `json:"state"`
	Identity  *Identity `json:"identity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StateOf returns the state of s; a nil session is unauthenticated.
func StateOf(s *Session) State {
	if s == nil {
		return Unauthenticated
	}
	return s.State
}

// CanEdit reports whether s may write scores and titles.
func (s *Session) CanEdit() bool {
	return s != nil && s.State == Admin
}

// AccessToken returns the admin's backend access token, if any.
func (s *Session) AccessToken() string {
	if s == nil || s.Identity == nil {
		return ""
	}
	return s.Identity.AccessToken
}

// Authenticator verifies the admin credential against the auth backend.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
}

// Provisioner creates the admin account. It is used only by the explicit
// provisioning step, never by login.
type Provisioner interface {
	SignUp(ctx context.Context, email, password string) error
}

// Revoker is implemented by backends whose access tokens can be revoked on
// sign-out.
type Revoker interface {
	SignOut(ctx context.Context, accessToken string) error
}

// LoginMessage is the user-facing text for a failed login.
func LoginMessage(err error) string {
	if errors.Is(err, ErrInvalidCredentials) {
		return "Incorrect admin password"
	}
	return "Authentication service unavailable, please try again"
}
