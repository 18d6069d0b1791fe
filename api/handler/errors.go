package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/api/middleware"
	"github.com/ddevcap/mcu-rankings/catalog"
	"github.com/ddevcap/mcu-rankings/store"
)

// loadFailedMessage is shown whenever data could not be read. The client
// offers a manual retry; nothing is retried automatically.
const loadFailedMessage = "Failed to load data"

// writeFailedMessage prefixes the raw backend message of a failed write.
func writeFailedMessage(err error) string {
	return "Failed to update score: " + store.RawMessage(err)
}

// respondLoadError maps a failed read onto an HTTP response.
func respondLoadError(c *gin.Context, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
		return
	}
	slog.Error("load failed",
		"request_id", c.GetString(middleware.ContextKeyRequestID),
		"path", c.Request.URL.Path,
		"error", err,
	)
	c.JSON(http.StatusBadGateway, gin.H{"error": loadFailedMessage, "retry": true})
}

// respondWriteError maps a failed edit onto an HTTP response. Validation
// failures happen before anything is written.
func respondWriteError(c *gin.Context, err error) {
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Title not found"})
	default:
		slog.Warn("write failed",
			"request_id", c.GetString(middleware.ContextKeyRequestID),
			"path", c.Request.URL.Path,
			"error", store.RawMessage(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": writeFailedMessage(err)})
	}
}
