package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/catalog"
	"github.com/ddevcap/mcu-rankings/score"
)

// TitleHandler serves the detail of one title and applies admin edits to it.
type TitleHandler struct {
	svc     *catalog.Service
	timeout time.Duration
}

func NewTitleHandler(svc *catalog.Service, timeout time.Duration) *TitleHandler {
	return &TitleHandler{svc: svc, timeout: timeout}
}

// scoreRequest sets a score either as a whole token or as a grade plus
// modifier. A grade without a modifier keeps the current modifier where the
// new grade allows one.
type scoreRequest struct {
	Kind     string  `json:"kind"`
	Score    string  `json:"score"`
	Base     string  `json:"base"`
	Modifier *string `json:"modifier"`
}

type titleRequest struct {
	Kind string `json:"kind"`
	catalog.EditForm
}

// kindHint prefers an explicit kind from the body over the ?kind= query.
func kindHint(body string, query catalog.Kind) catalog.Kind {
	if k := catalog.ParseKind(body); k != "" {
		return k
	}
	return query
}

// Get handles GET /api/titles/:id.
func (h *TitleHandler) Get(c *gin.Context) {
	id, hint, ok := itemRef(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}
	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	d, err := h.svc.Detail(ctx, id, hint, viewOptions(c))
	if err != nil {
		respondLoadError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// PutScore handles PUT /api/titles/:id/score (admin only).
// The response is the entry as stored; nothing changes locally on failure.
func (h *TitleHandler) PutScore(c *gin.Context) {
	id, hint, ok := itemRef(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hint = kindHint(req.Kind, hint)
	theme := themeFromCtx(c)

	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	var (
		entry catalog.Entry
		err   error
	)
	switch {
	case req.Score != "":
		entry, err = h.svc.SetScore(ctx, id, hint, req.Score, theme)
	case req.Base != "" && req.Modifier != nil:
		mod := *req.Modifier
		if !score.SupportsModifier(req.Base) {
			mod = score.NoModifier
		}
		entry, err = h.svc.SetScore(ctx, id, hint, score.Compose(req.Base, mod), theme)
	case req.Base != "":
		entry, err = h.svc.ChangeBase(ctx, id, hint, req.Base, theme)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "score or base is required", "field": "score"})
		return
	}
	if err != nil {
		respondWriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ToggleModifier handles POST /api/titles/:id/score/toggle (admin only).
func (h *TitleHandler) ToggleModifier(c *gin.Context) {
	id, hint, ok := itemRef(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}
	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	entry, err := h.svc.ToggleModifier(ctx, id, hint, themeFromCtx(c))
	if err != nil {
		respondWriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Put handles PUT /api/titles/:id (admin only).
// The year is validated before any write; the response is reloaded from the
// store after both writes succeed.
func (h *TitleHandler) Put(c *gin.Context) {
	id, hint, ok := itemRef(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	d, err := h.svc.SaveDetail(ctx, id, kindHint(req.Kind, hint), req.EditForm, viewOptions(c))
	if err != nil {
		respondWriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
