package generic

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/perspective"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

// SearchParam carries the free-text query of a filter page.
const SearchParam = "q"

// Search is the state of a filter form.
type Search struct {
	Query  string
	Fields []*FormField
	// Active is false until the visitor submits at least one criterion.
	Active bool
}

// FilterConfig configures a FilterView.
type FilterConfig[T model.Record] struct {
	Options
	Store store.Reader[T]
	// Fields are matched by equality.
	Fields []string
	// SearchFields are matched case-insensitively against the free-text query.
	SearchFields []string
	// Choices list the selectable values of foreign key filters.
	Choices map[string]OptionsFunc
}

// FilterView searches rows by the criteria in the query string. Nothing is listed until a
// criterion is given.
type FilterView[T model.Record] struct {
	base
	cfg     FilterConfig[T]
	filters formBuilder
}

// NewFilterView builds a FilterView. The model must support adding rows, since the filter navbar
// links to its add page.
func NewFilterView[T model.Record](deps Deps, cfg FilterConfig[T]) (*FilterView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil, "filter store"); err != nil {
		return nil, err
	}
	if len(cfg.Fields) == 0 && len(cfg.SearchFields) == 0 {
		return nil, fmt.Errorf("generic: filter view needs filter or search fields: %w", shared.ErrImproperlyConfigured)
	}
	meta := cfg.Model.Meta()
	fields := make([]model.Field, 0, len(cfg.Fields))
	for _, name := range cfg.Fields {
		f, ok := meta.Field(name)
		if !ok {
			return nil, fmt.Errorf("generic: %s has no filter field %q: %w", meta.Name, name, shared.ErrImproperlyConfigured)
		}
		fields = append(fields, filterField(f))
	}
	for _, name := range cfg.SearchFields {
		if _, ok := meta.Field(name); !ok {
			return nil, fmt.Errorf("generic: %s has no search field %q: %w", meta.Name, name, shared.ErrImproperlyConfigured)
		}
	}
	b, err := newBase(deps, cfg.Options, menu.ViewFilter, "pages/generic/filter.html")
	if err != nil {
		return nil, err
	}
	return &FilterView[T]{base: b, cfg: cfg, filters: b.formBuilder(FormSpec{Fields: fields, Options: cfg.Choices})}, nil
}

// filterField relaxes a model field for searching: nothing is required and booleans become a
// three-way choice.
func filterField(f model.Field) model.Field {
	f.Required = false
	f.Validate = ""
	if f.Kind == model.KindBoolean {
		f.Kind = model.KindChar
		f.Choices = []model.Choice{{Value: true, Label: "はい"}, {Value: false, Label: "いいえ"}}
	}
	return f
}

func (v *FilterView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	params := r.URL.Query()
	form, err := v.filters.bind(r.Context(), "", params)
	if err != nil {
		v.fail(w, r, "filter form", err)
		return
	}
	search := &Search{Query: strings.TrimSpace(params.Get(SearchParam)), Fields: form.Fields}

	q := store.Query{Filters: map[string]any{}}
	for name, val := range form.Cleaned() {
		if val == nil || val == "" {
			continue
		}
		q.Filters[name] = val
	}
	if search.Query != "" && len(v.cfg.SearchFields) > 0 {
		q.Search, q.SearchFields = search.Query, v.cfg.SearchFields
	}
	search.Active = form.Valid() && (len(q.Filters) > 0 || q.Search != "")

	title := v.objectName() + "を検索"
	page := v.page(title)
	if search.Active {
		sel := perspective.Resolve(nil, "", "", title)
		if page, err = listPage(v.base, r, v.cfg.Store, q, sel, v.deps.PageSize); err != nil {
			v.fail(w, r, "filter rows", err)
			return
		}
	}
	page.Search = search
	page.Columns = v.meta().FormFields()
	v.render(w, r, http.StatusOK, title, page)
}
