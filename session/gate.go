package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// Gate issues and resolves visitor sessions. Sessions live in memory with an
// absolute TTL; a restart returns every visitor to the sign-in prompt.
type Gate struct {
	auth       Authenticator
	adminEmail string
	ttl        time.Duration
	sessions   *ttlcache.Cache[string, *Session]
}

// NewGate creates a gate for the single admin account adminEmail. A ttl of 0
// keeps sessions until sign-out.
func NewGate(auth Authenticator, adminEmail string, ttl time.Duration) *Gate {
	cache := ttlcache.New[string, *Session](
		ttlcache.WithTTL[string, *Session](ttl),
		ttlcache.WithDisableTouchOnHit[string, *Session](),
	)
	go cache.Start() // evicts expired sessions
	return &Gate{auth: auth, adminEmail: adminEmail, ttl: ttl, sessions: cache}
}

// Close stops the expiry loop.
func (g *Gate) Close() {
	g.sessions.Stop()
}

// AdminEmail is the fixed admin account the gate signs in as.
func (g *Gate) AdminEmail() string { return g.adminEmail }

// Login authenticates the admin with password and opens an admin session.
// It never creates the account: a missing account is reported like a wrong
// password, and provisioning is a separate step (see Provision).
func (g *Gate) Login(ctx context.Context, password string) (*Session, error) {
	if password == "" {
		return nil, ErrInvalidCredentials
	}
	id, err := g.auth.SignIn(ctx, g.adminEmail, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s := &Session{
		Token:     uuid.New().String(),
		State:     Admin,
		Identity:  &id,
		CreatedAt: time.Now().UTC(),
	}
	ttl := ttlcache.DefaultTTL
	// Don't outlive the backend token the writes depend on.
	if !id.ExpiresAt.IsZero() {
		if remaining := time.Until(id.ExpiresAt); remaining > 0 && (g.ttl <= 0 || remaining < g.ttl) {
			ttl = remaining
		}
	}
	g.sessions.Set(s.Token, s, ttl)
	slog.Info("admin signed in", "email", id.Email)
	return s, nil
}

// ContinueAsGuest opens a read-only session.
func (g *Gate) ContinueAsGuest() *Session {
	s := &Session{
		Token:     uuid.New().String(),
		State:     Guest,
		CreatedAt: time.Now().UTC(),
	}
	g.sessions.Set(s.Token, s, ttlcache.DefaultTTL)
	return s
}

// Lookup resolves token to its session, or nil when the token is unknown or
// expired.
func (g *Gate) Lookup(token string) *Session {
	if token == "" {
		return nil
	}
	item := g.sessions.Get(token)
	if item == nil {
		return nil
	}
	return item.Value()
}

// SignOut ends the session for token. When the auth backend can revoke the
// admin's access token it is asked to; a failed revocation is logged, the
// local session is ended regardless.
func (g *Gate) SignOut(ctx context.Context, token string) {
	s := g.Lookup(token)
	if s == nil {
		return
	}
	g.sessions.Delete(token)
	if r, ok := g.auth.(Revoker); ok && s.AccessToken() != "" {
		if err := r.SignOut(ctx, s.AccessToken()); err != nil {
			slog.Warn("failed to revoke access token", "error", err)
		}
	}
}

// Provision creates the admin account email with password through p. An
// already existing account is not an error.
func Provision(ctx context.Context, p Provisioner, email, password string) error {
	if password == "" {
		return errors.New("session: provisioning requires a password")
	}
	err := p.SignUp(ctx, email, password)
	if errors.Is(err, ErrAccountExists) {
		slog.Info("provision: admin account already exists", "email", email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: provisioning %s: %w", email, err)
	}
	slog.Info("provision: created admin account", "email", email)
	return nil
}
