package app

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/odyssey-erp/crudkit/web"
)

const staticMaxAge = "public, max-age=3600"

// Minimal images lack a mime.types file, which would serve the stylesheet as text/plain and trip
// X-Content-Type-Options: nosniff.
var staticTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".svg":   "image/svg+xml",
	".woff2": "font/woff2",
}

func init() {
	for ext, typ := range staticTypes {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}

// staticHandler serves the embedded assets under /static/ and lets browsers cache them for an
// hour.
func staticHandler() (http.Handler, error) {
	assets, err := web.Assets()
	if err != nil {
		return nil, fmt.Errorf("app: static assets: %w", err)
	}
	files := http.StripPrefix("/static/", http.FileServer(http.FS(assets)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", staticMaxAge)
		files.ServeHTTP(w, r)
	}), nil
}
