package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/api/middleware"
	"github.com/ddevcap/mcu-rankings/catalog"
	"github.com/ddevcap/mcu-rankings/score"
	"github.com/ddevcap/mcu-rankings/session"
	"github.com/ddevcap/mcu-rankings/store"
)

// ThemeCookie stores the visitor's light/dark choice.
const ThemeCookie = "theme"

// cookieMaxAge is how long the session and theme cookies are kept by the
// browser. The session itself may expire earlier on the server.
const cookieMaxAge = 30 * 24 * 60 * 60

// sessionFromCtx returns the visitor's session, nil when unauthenticated.
func sessionFromCtx(c *gin.Context) *session.Session {
	return middleware.CurrentSession(c)
}

func themeFromCtx(c *gin.Context) score.Theme {
	v, _ := c.Cookie(ThemeCookie)
	return score.ParseTheme(v)
}

func viewOptions(c *gin.Context) catalog.ViewOptions {
	return catalog.ViewOptions{
		Theme:    themeFromCtx(c),
		Year:     c.Query("year"),
		Editable: sessionFromCtx(c).CanEdit(),
	}
}

// itemRef reads the :id path parameter and the optional kind hint.
func itemRef(c *gin.Context) (int64, catalog.Kind, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, catalog.ParseKind(c.Query("kind")), true
}

// storeCtx bounds a store call by timeout and authorises it as the signed-in
// admin, if any.
func storeCtx(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := c.Request.Context()
	ctx = store.WithAccessToken(ctx, sessionFromCtx(c).AccessToken())
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func fallback(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
