package generic

import (
	"fmt"
	"net/http"

	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/urls"
)

// TemplateView renders a static page with a navbar. It takes no model menu.
type TemplateView struct {
	base
	title string
	extra func(r *http.Request) (map[string]any, error)
}

// NewTemplateView builds a TemplateView. extra may be nil.
func NewTemplateView(deps Deps, opts Options, title string, extra func(r *http.Request) (map[string]any, error)) (*TemplateView, error) {
	if opts.Navbar.Menu != nil {
		return nil, fmt.Errorf("generic: template views take explicit navbar links, not a menu: %w", shared.ErrImproperlyConfigured)
	}
	if opts.Template == "" {
		return nil, fmt.Errorf("generic: template view needs a template: %w", shared.ErrImproperlyConfigured)
	}
	b, err := newBase(deps, opts, menu.ViewTemplate, "")
	if err != nil {
		return nil, err
	}
	return &TemplateView{base: b, title: title, extra: extra}, nil
}

func (v *TemplateView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	page := v.page(v.title)
	if v.extra != nil {
		extra, err := v.extra(r)
		if err != nil {
			v.fail(w, r, "template view data", err)
			return
		}
		page.Extra = extra
	}
	v.render(w, r, http.StatusOK, v.title, page)
}

// RedirectView sends the client to a fixed URL, or to a routable next target when one is given.
type RedirectView struct {
	resolver urls.Resolver
	target   func(r *http.Request) string
}

// NewRedirectView builds a RedirectView. target computes the default destination.
func NewRedirectView(resolver urls.Resolver, target func(r *http.Request) string) (*RedirectView, error) {
	if target == nil {
		return nil, fmt.Errorf("generic: redirect view needs a target: %w", shared.ErrImproperlyConfigured)
	}
	return &RedirectView{resolver: resolver, target: target}, nil
}

func (v *RedirectView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get(urls.NextParam)
	if r.Method == http.MethodPost {
		next = r.PostFormValue(urls.NextParam)
	}
	dest := urls.SafeRedirect(v.resolver, next, v.target(r))
	if dest == "" {
		http.Error(w, http.StatusText(http.StatusGone), http.StatusGone)
		return
	}
	http.Redirect(w, r, dest, http.StatusFound)
}
