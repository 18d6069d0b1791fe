package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/api/middleware"
	"github.com/ddevcap/mcu-rankings/config"
	"github.com/ddevcap/mcu-rankings/session"
)

// newCtx builds a minimal gin.Context from a hand-crafted *http.Request.
func newCtx(req *http.Request) *gin.Context {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

type staticAuth struct{ password string }

func (a staticAuth) SignIn(_ context.Context, email, password string) (session.Identity, error) {
	if password != a.password {
		return session.Identity{}, session.ErrInvalidCredentials
	}
	return session.Identity{ID: "admin-1", Email: email}, nil
}

func newGate() *session.Gate {
	gate := session.NewGate(staticAuth{password: "secret"}, "admin@example.com", time.Hour)
	DeferCleanup(gate.Close)
	return gate
}

var _ = Describe("ExtractToken", func() {
	It("prefers a Bearer Authorization header over the cookie", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "cookie-token"})

		Expect(middleware.ExtractToken(newCtx(req))).To(Equal("header-token"))
	})

	It("falls back to the session cookie", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "cookie-token"})

		Expect(middleware.ExtractToken(newCtx(req))).To(Equal("cookie-token"))
	})

	It("ignores non-Bearer Authorization schemes", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		Expect(middleware.ExtractToken(newCtx(req))).To(BeEmpty())
	})

	It("returns empty string when no token is present", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		Expect(middleware.ExtractToken(newCtx(req))).To(BeEmpty())
	})
})

var _ = Describe("Session middleware", func() {
	var (
		gate *session.Gate
		r    *gin.Engine
		got  *session.Session
	)

	BeforeEach(func() {
		gate = newGate()
		got = nil
		r = gin.New()
		r.Use(middleware.Session(gate))
		r.GET("/whoami", func(c *gin.Context) {
			got = middleware.CurrentSession(c)
			c.Status(http.StatusOK)
		})
		r.GET("/private", middleware.RequireSession(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
	})

	serve := func(path, token string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	It("resolves a guest session from the cookie", func() {
		s := gate.ContinueAsGuest()
		serve("/whoami", s.Token)
		Expect(got).NotTo(BeNil())
		Expect(got.State).To(Equal(session.Guest))
	})

	It("resolves an admin session", func() {
		s, err := gate.Login(context.Background(), "secret")
		Expect(err).NotTo(HaveOccurred())
		serve("/whoami", s.Token)
		Expect(got.CanEdit()).To(BeTrue())
	})

	It("leaves unknown tokens unauthenticated", func() {
		serve("/whoami", "not-a-session")
		Expect(got).To(BeNil())
		Expect(session.StateOf(got)).To(Equal(session.Unauthenticated))
	})

	It("forgets the session after sign-out", func() {
		s := gate.ContinueAsGuest()
		gate.SignOut(context.Background(), s.Token)
		serve("/whoami", s.Token)
		Expect(got).To(BeNil())
	})

	Describe("RequireSession", func() {
		It("returns 401 without a session", func() {
			Expect(serve("/private", "").Code).To(Equal(http.StatusUnauthorized))
		})

		It("lets guests through", func() {
			s := gate.ContinueAsGuest()
			Expect(serve("/private", s.Token).Code).To(Equal(http.StatusOK))
		})
	})
})

var _ = Describe("ClientIP", func() {
	It("falls back to RemoteAddr when X-Forwarded-For is absent", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "5.6.7.8:1234"

		Expect(middleware.ClientIP(newCtx(req))).To(Equal("5.6.7.8"))
	})

	It("ignores X-Forwarded-For when engine has no trusted proxies", func() {
		r := gin.New()
		_ = r.SetTrustedProxies(nil)
		var gotIP string
		r.GET("/", func(c *gin.Context) {
			gotIP = middleware.ClientIP(c)
			c.Status(http.StatusOK)
		})
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "1.2.3.4")
		req.RemoteAddr = "5.6.7.8:1234"
		r.ServeHTTP(httptest.NewRecorder(), req)
		Expect(gotIP).To(Equal("5.6.7.8"))
	})

	It("trusts X-Forwarded-For when trusted proxies are set on the engine", func() {
		r := gin.New()
		_ = r.SetTrustedProxies([]string{"5.6.7.8"})
		var gotIP string
		r.GET("/", func(c *gin.Context) {
			gotIP = middleware.ClientIP(c)
			c.Status(http.StatusOK)
		})
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "1.2.3.4")
		req.RemoteAddr = "5.6.7.8:1234"
		r.ServeHTTP(httptest.NewRecorder(), req)
		Expect(gotIP).To(Equal("1.2.3.4"))
	})
})

var _ = Describe("AdminOnly middleware", func() {
	withSession := func(s *session.Session) *gin.Engine {
		r := gin.New()
		r.PUT("/titles/1/score", func(c *gin.Context) {
			if s != nil {
				c.Set(middleware.ContextKeySession, s)
			}
		}, middleware.AdminOnly(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	DescribeTable("gates writes by session state",
		func(s *session.Session, want int) {
			req, _ := http.NewRequest(http.MethodPut, "/titles/1/score", nil)
			w := httptest.NewRecorder()
			withSession(s).ServeHTTP(w, req)
			Expect(w.Code).To(Equal(want))
		},
		Entry("unauthenticated", nil, http.StatusUnauthorized),
		Entry("guest", &session.Session{State: session.Guest}, http.StatusForbidden),
		Entry("admin", &session.Session{State: session.Admin}, http.StatusOK),
	)
})

var _ = Describe("LoginLimiter", func() {
	// buildLimiter wires up a router with the limiter middleware.
	buildLimiter := func(maxAttempts int) (*gin.Engine, *middleware.LoginLimiter) {
		limiter := middleware.NewLoginLimiter(config.Config{
			LoginMaxAttempts: maxAttempts,
			LoginWindow:      time.Minute,
			LoginBanDuration: time.Minute,
		})
		DeferCleanup(limiter.Stop)
		r := gin.New()
		_ = r.SetTrustedProxies(nil)
		r.POST("/session/login", limiter.Middleware(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r, limiter
	}

	post := func(r *gin.Engine, ip string) int {
		req, _ := http.NewRequest(http.MethodPost, "/session/login", nil)
		req.RemoteAddr = ip + ":0"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	It("allows requests before the threshold is reached", func() {
		r, limiter := buildLimiter(3)
		limiter.Failure("1.2.3.4")
		limiter.Failure("1.2.3.4")
		Expect(post(r, "1.2.3.4")).To(Equal(http.StatusOK))
	})

	It("returns 429 once the threshold is reached", func() {
		r, limiter := buildLimiter(3)
		for range 3 {
			limiter.Failure("1.2.3.4")
		}
		Expect(limiter.Allow("1.2.3.4")).To(BeFalse())
		Expect(post(r, "1.2.3.4")).To(Equal(http.StatusTooManyRequests))
	})

	It("resets the counter after a successful login", func() {
		r, limiter := buildLimiter(3)
		limiter.Failure("1.2.3.4")
		limiter.Failure("1.2.3.4")
		limiter.Success("1.2.3.4")
		limiter.Failure("1.2.3.4")
		Expect(post(r, "1.2.3.4")).To(Equal(http.StatusOK))
	})

	It("does not limit when LoginMaxAttempts is 0", func() {
		r, limiter := buildLimiter(0)
		for range 100 {
			limiter.Failure("1.2.3.4")
		}
		Expect(post(r, "1.2.3.4")).To(Equal(http.StatusOK))
	})

	It("keeps bans per IP", func() {
		r, limiter := buildLimiter(3)
		for range 3 {
			limiter.Failure("1.2.3.4")
		}
		Expect(post(r, "9.9.9.9")).To(Equal(http.StatusOK))
	})
})

var _ = Describe("RequestID middleware", func() {
	build := func() *gin.Engine {
		r := gin.New()
		r.Use(middleware.RequestID())
		r.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, c.GetString(middleware.ContextKeyRequestID))
		})
		return r
	}

	It("sets X-Request-Id header on response when none is provided", func() {
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		build().ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get(middleware.RequestIDHeader)).NotTo(BeEmpty())
		Expect(w.Body.String()).To(Equal(w.Header().Get(middleware.RequestIDHeader)))
	})

	It("reuses incoming X-Request-Id when provided", func() {
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(middleware.RequestIDHeader, "my-custom-id")
		w := httptest.NewRecorder()
		build().ServeHTTP(w, req)

		Expect(w.Header().Get(middleware.RequestIDHeader)).To(Equal("my-custom-id"))
	})
})
