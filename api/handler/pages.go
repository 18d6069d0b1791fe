package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/catalog"
	"github.com/ddevcap/mcu-rankings/score"
	"github.com/ddevcap/mcu-rankings/session"
)

const siteTitle = "MCU Rankings"

// PageHandler serves the server-rendered pages and their form posts. Every
// post redirects back on success (POST/redirect/GET).
type PageHandler struct {
	svc      *catalog.Service
	sessions *SessionHandler
	timeout  time.Duration
}

func NewPageHandler(svc *catalog.Service, sessions *SessionHandler, timeout time.Duration) *PageHandler {
	return &PageHandler{svc: svc, sessions: sessions, timeout: timeout}
}

// Catalog handles GET / and GET /all.
func (h *PageHandler) Catalog(c *gin.Context) {
	h.renderCatalog(c, http.StatusOK, newPage(c, siteTitle))
}

func (h *PageHandler) renderCatalog(c *gin.Context, status int, p page) {
	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	view, err := h.svc.Catalog(ctx, viewOptions(c))
	if err != nil {
		renderLoadFailed(c, p, err)
		return
	}
	if view.Year != "" {
		p.Title = siteTitle + " (" + view.Year + ")"
	}
	p.Catalog = &view
	c.HTML(status, "catalog.tmpl", p)
}

// Title handles GET /title/:id.
func (h *PageHandler) Title(c *gin.Context) {
	p := newPage(c, siteTitle)
	id, hint, ok := itemRef(c)
	if !ok {
		renderNotFound(c, p)
		return
	}
	h.renderTitle(c, http.StatusOK, p, id, hint)
}

func (h *PageHandler) renderTitle(c *gin.Context, status int, p page, id int64, hint catalog.Kind) {
	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	d, err := h.svc.Detail(ctx, id, hint, viewOptions(c))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		renderNotFound(c, p)
		return
	case err != nil:
		renderLoadFailed(c, p, err)
		return
	}
	p.Title = d.Label
	p.Detail = &d
	if p.Errors == nil {
		p.Form = catalog.EditForm{
			Title:    d.Item.Title,
			Year:     strconv.Itoa(d.Item.Year),
			Base:     d.Base,
			Modifier: d.Modifier,
		}
	}
	c.HTML(status, "title.tmpl", p)
}

// SetScore handles POST /title/:id/score (admin only).
// The form carries action=toggle to cycle the modifier, or a base with an
// optional modifier.
func (h *PageHandler) SetScore(c *gin.Context) {
	p := newPage(c, siteTitle)
	id, hint, ok := itemRef(c)
	if !ok {
		renderNotFound(c, p)
		return
	}
	hint = kindHint(c.PostForm("kind"), hint)
	back := returnPath(c.PostForm("return"), "/")
	p.Path = back
	theme := themeFromCtx(c)

	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	var err error
	base := c.PostForm("base")
	mod, hasMod := c.GetPostForm("modifier")
	switch {
	case c.PostForm("action") == "toggle":
		_, err = h.svc.ToggleModifier(ctx, id, hint, theme)
	case base != "" && hasMod:
		if !score.SupportsModifier(base) {
			mod = score.NoModifier
		}
		_, err = h.svc.SetScore(ctx, id, hint, score.Compose(base, mod), theme)
	case base != "":
		_, err = h.svc.ChangeBase(ctx, id, hint, base, theme)
	default:
		err = &catalog.ValidationError{Field: "score", Message: "Choose a score"}
	}
	if err != nil {
		renderWriteFailed(c, p, err)
		return
	}
	c.Redirect(http.StatusSeeOther, back)
}

// Save handles POST /title/:id (admin only).
// Validation errors re-render the form with the submitted values; nothing is
// written in that case.
func (h *PageHandler) Save(c *gin.Context) {
	p := newPage(c, siteTitle)
	id, hint, ok := itemRef(c)
	if !ok {
		renderNotFound(c, p)
		return
	}
	var form catalog.EditForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	hint = kindHint(c.PostForm("kind"), hint)

	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	d, err := h.svc.SaveDetail(ctx, id, hint, form, viewOptions(c))
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		p.Form = form
		p.Errors = map[string]string{ve.Field: ve.Message}
		h.renderTitle(c, http.StatusBadRequest, p, id, hint)
		return
	case err != nil:
		renderWriteFailed(c, p, err)
		return
	}
	c.Redirect(http.StatusSeeOther, d.Link)
}

// Login handles POST /login.
// A failed attempt re-renders the catalog with the sign-in prompt and the
// reason.
func (h *PageHandler) Login(c *gin.Context) {
	s, err := h.sessions.login(c, c.PostForm("password"))
	if err != nil {
		p := newPage(c, siteTitle)
		p.LoginError = session.LoginMessage(err)
		h.renderCatalog(c, loginStatus(err), p)
		return
	}
	setSessionCookie(c, s.Token)
	c.Redirect(http.StatusSeeOther, returnPath(c.PostForm("return"), "/"))
}

// Guest handles POST /guest.
func (h *PageHandler) Guest(c *gin.Context) {
	s := h.sessions.gate.ContinueAsGuest()
	setSessionCookie(c, s.Token)
	c.Redirect(http.StatusSeeOther, returnPath(c.PostForm("return"), "/"))
}

// Logout handles POST /logout.
func (h *PageHandler) Logout(c *gin.Context) {
	h.sessions.signOut(c)
	c.Redirect(http.StatusSeeOther, "/")
}

// Theme handles POST /theme by flipping the theme cookie.
func (h *PageHandler) Theme(c *gin.Context) {
	next := themeFromCtx(c).Toggle()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ThemeCookie, string(next), cookieMaxAge, "/", "", c.Request.TLS != nil, false)
	c.Redirect(http.StatusSeeOther, returnPath(c.PostForm("return"), "/"))
}
