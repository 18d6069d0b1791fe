// Package static embeds the page templates and browser assets.
package static

import (
	"embed"
	"io/fs"
)

// Templates holds the server-rendered pages.
//
//go:embed templates/*.tmpl
var Templates embed.FS

//go:embed assets
var assets embed.FS

// Assets returns the files served under /static.
func Assets() fs.FS {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}
