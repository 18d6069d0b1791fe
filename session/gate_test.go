package session_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddevcap/mcu-rankings/session"
)

// fakeAuth accepts a single email/password pair and records sign-ups and
// revocations.
type fakeAuth struct {
	mu       sync.Mutex
	accounts map[string]string
	err      error
	expires  time.Time
	signUps  int
	revoked  []string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{accounts: map[string]string{}}
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (session.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return session.Identity{}, f.err
	}
	pw, ok := f.accounts[email]
	if !ok || pw != password {
		return session.Identity{}, session.ErrInvalidCredentials
	}
	return session.Identity{ID: "admin-id", Email: email, AccessToken: "access-" + email, ExpiresAt: f.expires}, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps++
	if _, ok := f.accounts[email]; ok {
		return session.ErrAccountExists
	}
	f.accounts[email] = password
	return nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return nil
}

const adminEmail = "admin@mcurankings.local"

var _ = Describe("Gate", func() {
	var (
		ctx  context.Context
		auth *fakeAuth
		gate *session.Gate
	)

	BeforeEach(func() {
		ctx = context.Background()
		auth = newFakeAuth()
		auth.accounts[adminEmail] = "s3cret"
		gate = session.NewGate(auth, adminEmail, time.Hour)
		DeferCleanup(gate.Close)
	})

	It("starts unauthenticated", func() {
		Expect(session.StateOf(gate.Lookup(""))).To(Equal(session.Unauthenticated))
		Expect(session.StateOf(gate.Lookup("unknown"))).To(Equal(session.Unauthenticated))
	})

	It("opens an admin session on the right password", func() {
		s, err := gate.Login(ctx, "s3cret")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.State).To(Equal(session.Admin))
		Expect(s.CanEdit()).To(BeTrue())
		Expect(s.AccessToken()).To(Equal("access-" + adminEmail))

		Expect(gate.Lookup(s.Token)).To(Equal(s))
	})

	It("rejects a wrong password without provisioning anything", func() {
		_, err := gate.Login(ctx, "wrong")
		Expect(err).To(MatchError(session.ErrInvalidCredentials))
		Expect(session.LoginMessage(err)).To(Equal("Incorrect admin password"))
		Expect(auth.signUps).To(BeZero())
	})

	It("rejects an empty password without calling the backend", func() {
		auth.err = errors.New("should not be called")
		_, err := gate.Login(ctx, "")
		Expect(err).To(MatchError(session.ErrInvalidCredentials))
	})

	It("reports backend failures as unavailability, not a wrong password", func() {
		auth.err = errors.New("dial tcp: connection refused")
		_, err := gate.Login(ctx, "s3cret")
		Expect(err).To(MatchError(session.ErrUnavailable))
		Expect(session.LoginMessage(err)).NotTo(Equal("Incorrect admin password"))
	})

	It("opens read-only guest sessions", func() {
		s := gate.ContinueAsGuest()
		Expect(s.State).To(Equal(session.Guest))
		Expect(s.CanEdit()).To(BeFalse())
		Expect(gate.Lookup(s.Token).State).To(Equal(session.Guest))
	})

	It("returns to unauthenticated on sign-out and revokes the access token", func() {
		s, err := gate.Login(ctx, "s3cret")
		Expect(err).NotTo(HaveOccurred())

		gate.SignOut(ctx, s.Token)
		Expect(gate.Lookup(s.Token)).To(BeNil())
		Expect(auth.revoked).To(ConsistOf("access-" + adminEmail))
	})

	It("expires admin sessions with the backend token", func() {
		auth.expires = time.Now().Add(50 * time.Millisecond)
		s, err := gate.Login(ctx, "s3cret")
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() *session.Session { return gate.Lookup(s.Token) }).Should(BeNil())
	})

	It("treats a nil session as unauthenticated and read-only", func() {
		var s *session.Session
		Expect(s.CanEdit()).To(BeFalse())
		Expect(s.AccessToken()).To(BeEmpty())
	})
})

var _ = Describe("Provision", func() {
	It("creates the admin account once", func() {
		auth := newFakeAuth()
		ctx := context.Background()

		Expect(session.Provision(ctx, auth, adminEmail, "pw")).To(Succeed())
		Expect(session.Provision(ctx, auth, adminEmail, "other")).To(Succeed())
		Expect(auth.accounts[adminEmail]).To(Equal("pw"))
		Expect(auth.signUps).To(Equal(2))
	})

	It("requires a password", func() {
		Expect(session.Provision(context.Background(), newFakeAuth(), adminEmail, "")).NotTo(Succeed())
	})
})
