package dashboard

import (
	"embed"
	"io/fs"

	template "github.com/goliatone/go-template"
)

//go:embed templates/*.html templates/units/*.html
var embeddedTemplates embed.FS

// NewTemplateRenderer renders the built-in dashboard, restricted and unit
// templates.
func NewTemplateRenderer() (Renderer, error) {
	return NewTemplateRendererFS(embeddedTemplates)
}

// NewTemplateRendererFS renders templates from fsys. The tree must mirror the
// embedded one: dashboard.html and restricted.html under templates/, unit
// partials under templates/units/. Hosts use it to restyle the shell.
func NewTemplateRendererFS(fsys fs.FS) (Renderer, error) {
	if fsys == nil {
		fsys = embeddedTemplates
	}
	return template.NewRenderer(
		template.WithFS(fsys),
		template.WithBaseDir("templates"),
		template.WithExtension(".html"),
	)
}
