package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/catalog"
	"github.com/odyssey-erp/crudkit/internal/generic"
	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/observability"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/urls"
	"github.com/odyssey-erp/crudkit/internal/view"
)

// TopLink is the first navbar entry of every page.
var TopLink = actions.Link("トップ", "/")

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Stores         *catalog.Stores
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the catalog mounted under catalog.Prefix.
func NewRouter(params RouterParams) (http.Handler, error) {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	deps, err := routerDeps(params, urls.NewRouteResolver(r))
	if err != nil {
		return nil, err
	}
	catalogHandler, err := catalog.NewHandler(deps, params.Stores, TopLink)
	if err != nil {
		return nil, err
	}
	home, err := generic.NewTemplateView(deps, generic.Options{
		Template: "pages/home.html",
		Navbar:   menu.Navbar{Links: actions.NewList(TopLink)},
	}, "crudkit", func(*http.Request) (map[string]any, error) {
		return map[string]any{"Menu": catalogHandler.Menu()}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("app: home view: %w", err)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/", home)
	r.Route(catalog.Prefix, catalogHandler.MountRoutes)
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	assets, err := staticHandler()
	if err != nil {
		return nil, err
	}
	r.Handle("/static/*", assets)

	return r, nil
}

func routerDeps(params RouterParams, resolver urls.Resolver) (generic.Deps, error) {
	deps := generic.Deps{
		Logger:    params.Logger,
		Templates: params.Templates,
		CSRF:      params.CSRFManager,
		Resolver:  resolver,
	}
	if params.Metrics != nil {
		deps.Changes = params.Metrics
	}
	if params.Config != nil {
		loc, err := params.Config.Location()
		if err != nil {
			return deps, err
		}
		deps.Location = loc
		deps.AdminURL = params.Config.AdminURL
		deps.PageSize = params.Config.PageSize
	}
	return deps, nil
}
