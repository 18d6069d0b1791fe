package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"

	"github.com/ddevcap/mcu-rankings/config"
)

// ipEntry tracks failed login attempts for a single IP.
type ipEntry struct {
	attempts    int
	bannedUntil time.Time
}

// LoginLimiter is an in-memory rate limiter for the login endpoints. An IP's
// failures are counted within a window that starts at its first failure;
// reaching the limit bans the IP for the ban duration.
type LoginLimiter struct {
	maxAttempts int
	window      time.Duration
	ban         time.Duration

	mu      sync.Mutex
	entries *ttlcache.Cache[string, *ipEntry]
}

// NewLoginLimiter creates a limiter from the login settings of cfg.
// LoginMaxAttempts <= 0 disables limiting.
func NewLoginLimiter(cfg config.Config) *LoginLimiter {
	entries := ttlcache.New[string, *ipEntry](
		ttlcache.WithDisableTouchOnHit[string, *ipEntry](),
	)
	go entries.Start() // drops expired windows and bans
	return &LoginLimiter{
		maxAttempts: cfg.LoginMaxAttempts,
		window:      cfg.LoginWindow,
		ban:         cfg.LoginBanDuration,
		entries:     entries,
	}
}

// Stop ends the expiry loop.
func (l *LoginLimiter) Stop() { l.entries.Stop() }

// Allow reports whether ip may attempt a login.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	item := l.entries.Get(ip)
	if item == nil {
		return true
	}
	return !time.Now().Before(item.Value().bannedUntil)
}

// Failure records a failed attempt and bans ip once the limit is reached.
func (l *LoginLimiter) Failure(ip string) {
	if l.maxAttempts <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var e *ipEntry
	if item := l.entries.Get(ip); item != nil {
		e = item.Value()
		e.attempts++
	} else {
		// Start a fresh window.
		e = &ipEntry{attempts: 1}
		l.entries.Set(ip, e, l.window)
	}
	if e.attempts >= l.maxAttempts {
		e.bannedUntil = time.Now().Add(l.ban)
		l.entries.Set(ip, e, l.ban)
	}
}

// Success forgets ip's failures.
func (l *LoginLimiter) Success(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries.Delete(ip)
}

// Middleware rejects banned IPs with 429.
func (l *LoginLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.maxAttempts <= 0 {
			c.Next()
			return
		}
		if !l.Allow(ClientIP(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many failed login attempts. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

// ClientIP extracts the client IP using Gin's built-in ClientIP method,
// which honours the engine's trusted-proxy configuration and safely handles
// X-Forwarded-For chains. Falls back to RemoteAddr when no proxy is trusted.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}
