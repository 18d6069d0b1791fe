package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/api/middleware"
	"github.com/ddevcap/mcu-rankings/session"
)

// SessionHandler moves visitors through the sign-in gate.
type SessionHandler struct {
	gate    *session.Gate
	limiter *middleware.LoginLimiter
	timeout time.Duration
}

func NewSessionHandler(gate *session.Gate, limiter *middleware.LoginLimiter, timeout time.Duration) *SessionHandler {
	return &SessionHandler{gate: gate, limiter: limiter, timeout: timeout}
}

type loginRequest struct {
	Password string `json:"password" form:"password"`
}

type sessionResponse struct {
	State      session.State `json:"state"`
	Email      string        `json:"email,omitempty"`
	AdminEmail string        `json:"admin_email"`
	// Token is returned on sign-in for clients that send it as a Bearer
	// token instead of relying on the cookie.
	Token string `json:"token,omitempty"`
}

func (h *SessionHandler) describe(s *session.Session, withToken bool) sessionResponse {
	resp := sessionResponse{State: session.StateOf(s), AdminEmail: h.gate.AdminEmail()}
	if s != nil && s.Identity != nil {
		resp.Email = s.Identity.Email
	}
	if withToken && s != nil {
		resp.Token = s.Token
	}
	return resp
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.describe(sessionFromCtx(c), false))
}

// Login handles POST /api/session/login.
// Only a rejected password counts towards the client's rate limit; an
// unreachable auth backend is reported as such.
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.login(c, req.Password)
	if err != nil {
		c.JSON(loginStatus(err), gin.H{"error": session.LoginMessage(err)})
		return
	}
	setSessionCookie(c, s.Token)
	c.JSON(http.StatusOK, h.describe(s, true))
}

// Guest handles POST /api/session/guest.
func (h *SessionHandler) Guest(c *gin.Context) {
	s := h.gate.ContinueAsGuest()
	setSessionCookie(c, s.Token)
	c.JSON(http.StatusOK, h.describe(s, true))
}

// Logout handles DELETE /api/session.
func (h *SessionHandler) Logout(c *gin.Context) {
	h.signOut(c)
	c.JSON(http.StatusOK, h.describe(nil, false))
}

// login authenticates password and feeds the outcome to the rate limiter.
func (h *SessionHandler) login(c *gin.Context, password string) (*session.Session, error) {
	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	ip := middleware.ClientIP(c)
	s, err := h.gate.Login(ctx, password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.limiter.Failure(ip)
		}
		return nil, err
	}
	h.limiter.Success(ip)
	return s, nil
}

func (h *SessionHandler) signOut(c *gin.Context) {
	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()
	h.gate.SignOut(ctx, middleware.ExtractToken(c))
	clearSessionCookie(c)
}

func loginStatus(err error) int {
	if errors.Is(err, session.ErrInvalidCredentials) {
		return http.StatusUnauthorized
	}
	return http.StatusServiceUnavailable
}

func setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, cookieMaxAge, "/", "", c.Request.TLS != nil, true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}
