package handler

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// AssetHandler serves the embedded stylesheet, script and icons.
type AssetHandler struct {
	files fs.FS
}

func NewAssetHandler(files fs.FS) *AssetHandler {
	return &AssetHandler{files: files}
}

// Serve handles GET /static/*filepath.
func (h *AssetHandler) Serve(c *gin.Context) {
	name := strings.TrimPrefix(path.Clean("/"+c.Param("filepath")), "/")
	if name == "" {
		c.Status(http.StatusNotFound)
		return
	}
	data, err := fs.ReadFile(h.files, name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, contentType(name, data), data)
}

// contentType sniffs data with mimetype.Detect, which recognises binary
// formats such as icons and fonts. Text it cannot classify beyond plain text
// (CSS, JavaScript) falls back to the file extension.
func contentType(name string, data []byte) string {
	detected := mimetype.Detect(data)
	if detected.Is("text/plain") || detected.Is("application/octet-stream") {
		if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
			return ct
		}
	}
	return detected.String()
}
