package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/catalog"
)

// CatalogHandler serves the grouped, scored catalog.
type CatalogHandler struct {
	svc     *catalog.Service
	timeout time.Duration
}

func NewCatalogHandler(svc *catalog.Service, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{svc: svc, timeout: timeout}
}

// Get handles GET /api/catalog.
// An optional ?year= narrows the list to a single release year.
func (h *CatalogHandler) Get(c *gin.Context) {
	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	view, err := h.svc.Catalog(ctx, viewOptions(c))
	if err != nil {
		respondLoadError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
