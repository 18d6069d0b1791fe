package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/search"
)

// SearchHandler serves title search over HTTP and as a websocket typeahead.
type SearchHandler struct {
	searcher *search.Searcher
	hub      *WSHub
	debounce time.Duration
	timeout  time.Duration
}

func NewSearchHandler(s *search.Searcher, hub *WSHub, debounce, timeout time.Duration) *SearchHandler {
	return &SearchHandler{searcher: s, hub: hub, debounce: debounce, timeout: timeout}
}

// Get handles GET /api/search?q=.
// Queries shorter than search.MinQueryLength return no results without a
// lookup.
func (h *SearchHandler) Get(c *gin.Context) {
	q := c.Query("q")
	if !search.Searchable(q) {
		c.JSON(http.StatusOK, gin.H{"query": q, "results": []search.Result{}})
		return
	}
	ctx, cancel := storeCtx(c, h.timeout)
	defer cancel()

	results, err := h.searcher.Search(ctx, q)
	if err != nil {
		respondLoadError(c, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "results": results})
}
