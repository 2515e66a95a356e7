// Package web holds the HTML templates and browser assets compiled into the crudkit binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Templates is the embedded template tree. Parse it with TemplatePatterns.
var Templates fs.FS = files

// TemplatePatterns lists the template globs in parse order. Layouts come first so pages can
// override their blocks.
var TemplatePatterns = []string{
	"templates/layouts/*.html",
	"templates/partials/*.html",
	"templates/pages/generic/*.html",
	"templates/pages/*.html",
}

// Assets returns the static directory rooted at its own top, ready for http.FS under /static/.
func Assets() (fs.FS, error) {
	return fs.Sub(files, "static")
}
