package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ddevcap/mcu-rankings/session"
)

// BcryptCost is the work factor used when hashing admin passwords.
const BcryptCost = 12

const accountsTable = "admin_accounts"

// Accounts authenticates the admin against the admin_accounts table. It
// implements session.Authenticator and session.Provisioner.
type Accounts struct {
	s    *Store
	cost int
}

// Accounts returns the account store backed by s.
func (s *Store) Accounts() *Accounts {
	return &Accounts{s: s, cost: BcryptCost}
}

// WithCost overrides the bcrypt cost (tests use bcrypt.MinCost).
func (a *Accounts) WithCost(cost int) *Accounts {
	a.cost = cost
	return a
}

// SignIn verifies password for email. An unknown account and a wrong
// password both return session.ErrInvalidCredentials.
func (a *Accounts) SignIn(ctx context.Context, email, password string) (session.Identity, error) {
	query, args := a.s.builder().
		Select("id", "email", "password_hash").
		From(a.s.builder().Table(accountsTable)).
		Where(entsql.EQ("email", normalizeEmail(email))).
		Query()

	var id, storedEmail, hash string
	err := a.s.DB().QueryRowContext(ctx, query, args...).Scan(&id, &storedEmail, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Identity{}, session.ErrInvalidCredentials
	}
	if err != nil {
		return session.Identity{}, fmt.Errorf("sqlstore: looking up account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return session.Identity{}, session.ErrInvalidCredentials
	}
	return session.Identity{ID: id, Email: storedEmail}, nil
}

// SignUp creates the account, or returns session.ErrAccountExists.
func (a *Accounts) SignUp(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	query, args := a.s.builder().
		Select("email").
		From(a.s.builder().Table(accountsTable)).
		Where(entsql.EQ("email", email)).
		Query()
	var existing string
	err := a.s.DB().QueryRowContext(ctx, query, args...).Scan(&existing)
	if err == nil {
		return session.ErrAccountExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlstore: looking up account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return fmt.Errorf("sqlstore: hashing password: %w", err)
	}
	query, args = a.s.builder().
		Insert(accountsTable).
		Columns("email", "id", "password_hash", "created_at").
		Values(email, uuid.New().String(), string(hash), time.Now().UTC()).
		Query()
	if _, err := a.s.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlstore: creating account: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
