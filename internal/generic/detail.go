package generic

import (
	"context"
	"fmt"
	"net/http"

	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/perspective"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

// Related loads a reverse collection of one row.
type Related struct {
	// Model describes the related rows.
	Model model.Model
	Load  func(ctx context.Context, pk int64) ([]model.Record, error)
}

// DetailConfig configures a DetailView.
type DetailConfig[T model.Record] struct {
	Options
	Store   store.Reader[T]
	PKParam string
	// Perspectives replace the ones derived from the model's reverse relations.
	Perspectives       []perspective.Perspective
	DefaultPerspective string
	// Related is keyed by perspective accessor.
	Related map[string]Related
	Columns []string
}

// DetailView shows one row and, under a related perspective, one of its reverse collections.
type DetailView[T model.Record] struct {
	base
	cfg          DetailConfig[T]
	perspectives []perspective.Perspective
	columns      []model.Field
}

// NewDetailView builds a DetailView. Every related perspective needs a loader.
func NewDetailView[T model.Record](deps Deps, cfg DetailConfig[T]) (*DetailView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil, "detail store"); err != nil {
		return nil, err
	}
	if cfg.PKParam == "" {
		cfg.PKParam = "pk"
	}
	b, err := newBase(deps, cfg.Options, menu.ViewDetail, "pages/generic/detail.html")
	if err != nil {
		return nil, err
	}
	columns, err := resolveColumns(cfg.Model.Meta(), cfg.Columns)
	if err != nil {
		return nil, err
	}
	ps := cfg.Perspectives
	if len(ps) == 0 {
		ps = perspective.DetailPerspectives(cfg.Model.Meta())
	}
	for _, p := range ps {
		if !p.IsRelated() {
			continue
		}
		rel, ok := cfg.Related[p.Accessor]
		if !ok || rel.Load == nil || rel.Model == nil {
			return nil, fmt.Errorf("generic: no loader for related collection %q: %w", p.Accessor, shared.ErrImproperlyConfigured)
		}
	}
	return &DetailView[T]{base: b, cfg: cfg, perspectives: ps, columns: columns}, nil
}

func (v *DetailView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	pk, ok := pathInt64(r, v.cfg.PKParam)
	if !ok {
		http.NotFound(w, r)
		return
	}
	obj, err := v.cfg.Store.Get(r.Context(), pk)
	if err != nil {
		v.fail(w, r, "load detail", err)
		return
	}

	name := fmt.Sprint(obj)
	sel := perspective.Resolve(v.perspectives, r.URL.Query().Get(perspective.QueryParam), v.cfg.DefaultPerspective, name)
	page := v.page(name)
	page.Object = obj
	page.Columns = v.columns
	page.Perspectives = &sel
	if sel.Active != nil && sel.Active.IsRelated() {
		rel := v.cfg.Related[sel.Active.Accessor]
		rows, err := rel.Load(r.Context(), pk)
		if err != nil {
			v.fail(w, r, "load related", err)
			return
		}
		page.Rows = rows
		page.RelatedColumns = rel.Model.Meta().FormFields()
	}
	v.render(w, r, http.StatusOK, name, page)
}
