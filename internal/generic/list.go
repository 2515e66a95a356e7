package generic

import (
	"fmt"
	"net/http"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/perspective"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

// ListConfig configures a ListView.
type ListConfig[T model.Record] struct {
	Options
	Store store.Reader[T]
	// Perspectives replace the ones derived from the model's fields.
	Perspectives       []perspective.Perspective
	DefaultPerspective string
	// Query narrows the rows shown; it may be nil.
	Query func(r *http.Request) (store.Query, error)
	// Columns name the fields shown; they default to every field not generated by the store.
	Columns   []string
	Summaries []Summary
}

// ListView shows a paginated collection with sort and grouping perspectives.
type ListView[T model.Record] struct {
	base
	cfg          ListConfig[T]
	perspectives []perspective.Perspective
	columns      []model.Field
}

// NewListView builds a ListView.
func NewListView[T model.Record](deps Deps, cfg ListConfig[T]) (*ListView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil, "list store"); err != nil {
		return nil, err
	}
	b, err := newBase(deps, cfg.Options, menu.ViewList, "pages/generic/list.html")
	if err != nil {
		return nil, err
	}
	columns, err := resolveColumns(cfg.Model.Meta(), cfg.Columns)
	if err != nil {
		return nil, err
	}
	ps := cfg.Perspectives
	if len(ps) == 0 {
		ps = perspective.ListPerspectives(cfg.Model.Meta())
	}
	return &ListView[T]{base: b, cfg: cfg, perspectives: ps, columns: columns}, nil
}

func (v *ListView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := store.Query{}
	if v.cfg.Query != nil {
		var err error
		if q, err = v.cfg.Query(r); err != nil {
			v.fail(w, r, "list query", err)
			return
		}
	}
	sel := perspective.Resolve(v.perspectives, r.URL.Query().Get(perspective.QueryParam), v.cfg.DefaultPerspective, v.listName())
	page, err := listPage(v.base, r, v.cfg.Store, q, sel, v.deps.PageSize)
	if err != nil {
		v.fail(w, r, "list rows", err)
		return
	}
	page.Columns = v.columns
	page.Summaries = v.cfg.Summaries
	v.render(w, r, http.StatusOK, sel.ObjectName, page)
}

// listPage loads rows ordered and grouped by the active perspective. A positive pageSize
// paginates them through the page query parameter.
func listPage[T model.Record](b base, r *http.Request, reader store.Reader[T], q store.Query, sel perspective.Selection, pageSize int) (*Page, error) {
	ctx := r.Context()
	if sel.Active != nil {
		switch {
		case sel.Active.IsSort():
			q.OrderBy = append([]string{sel.Active.OrderBy}, q.OrderBy...)
		case sel.Active.IsGrouping():
			q.OrderBy = append([]string{sel.Active.GroupBy}, q.OrderBy...)
		}
	}

	page := b.page(sel.ObjectName)
	page.Perspectives = &sel
	if pageSize > 0 {
		total, err := reader.Count(ctx, q)
		if err != nil {
			return nil, err
		}
		pagination := shared.NewPagination(shared.ParsePage(r.URL.Query().Get("page")), pageSize, total)
		q.Limit, q.Offset = pagination.PerPage, pagination.Offset()
		page.Pagination = &pagination
	}

	rows, err := reader.List(ctx, q)
	if err != nil {
		return nil, err
	}
	page.Rows = records(rows)
	if sel.DisplayAs() == perspective.KindGrouping {
		field, err := perspective.GroupBy(sel.Active)
		if err != nil {
			return nil, err
		}
		page.Groups = perspective.GroupRows(page.Rows, field, b.meta())
	}
	return page, nil
}

func resolveColumns(meta *model.Meta, names []string) ([]model.Field, error) {
	if len(names) == 0 {
		return meta.FormFields(), nil
	}
	out := make([]model.Field, 0, len(names))
	for _, n := range names {
		f, ok := meta.Field(n)
		if !ok {
			return nil, fmt.Errorf("generic: %s has no field %q: %w", meta.Name, n, shared.ErrImproperlyConfigured)
		}
		out = append(out, f)
	}
	return out, nil
}

// ChildListConfig configures a ChildListView.
type ChildListConfig[P, C model.Record] struct {
	Options
	Parent store.Reader[P]
	Store  store.Reader[C]
	// ChildModel describes the listed rows; its AddURL feeds the add button.
	ChildModel model.Model
	// ParentKey is the child field referencing the parent.
	ParentKey string
	// PKParam is the route parameter carrying the parent id. It defaults to "pk".
	PKParam string
	Columns []string
}

// ChildListView lists the children of one parent row.
type ChildListView[P, C model.Record] struct {
	base
	cfg     ChildListConfig[P, C]
	columns []model.Field
}

// NewChildListView builds a ChildListView.
func NewChildListView[P, C model.Record](deps Deps, cfg ChildListConfig[P, C]) (*ChildListView[P, C], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if cfg.ChildModel == nil || cfg.ChildModel.Meta() == nil || cfg.ParentKey == "" {
		return nil, fmt.Errorf("generic: child list needs a child model and parent key: %w", shared.ErrImproperlyConfigured)
	}
	if err := requireStore(cfg.Parent != nil && cfg.Store != nil, "parent and child stores"); err != nil {
		return nil, err
	}
	if cfg.PKParam == "" {
		cfg.PKParam = "pk"
	}
	b, err := newBase(deps, cfg.Options, menu.ViewDetail, "pages/generic/list.html")
	if err != nil {
		return nil, err
	}
	columns, err := resolveColumns(cfg.ChildModel.Meta(), cfg.Columns)
	if err != nil {
		return nil, err
	}
	return &ChildListView[P, C]{base: b, cfg: cfg, columns: columns}, nil
}

func (v *ChildListView[P, C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	pk, ok := pathInt64(r, v.cfg.PKParam)
	if !ok {
		http.NotFound(w, r)
		return
	}
	parent, err := v.cfg.Parent.Get(r.Context(), pk)
	if err != nil {
		v.fail(w, r, "load parent", err)
		return
	}
	rows, err := v.cfg.Store.List(r.Context(), store.Query{Filters: map[string]any{v.cfg.ParentKey: parent.PK()}})
	if err != nil {
		v.fail(w, r, "list children", err)
		return
	}

	name := fmt.Sprint(parent)
	page := v.page(name)
	page.Meta = v.cfg.ChildModel.Meta()
	page.Object = parent
	page.Rows = records(rows)
	page.Columns = v.columns
	page.ExtraButtons = append(v.childAddButtons(parent), v.opts.ExtraButtons...)
	v.render(w, r, http.StatusOK, name, page)
}

// childAddButtons offers "<child>を追加" pre-filled with the parent when the child can be added.
func (v *ChildListView[P, C]) childAddButtons(parent P) []actions.Action {
	adder, ok := v.cfg.ChildModel.(menu.AddURLer)
	if !ok {
		return nil
	}
	label := model.VerboseName(v.cfg.ChildModel) + "を追加"
	url := fmt.Sprintf("%s?%s=%d", adder.AddURL(), v.cfg.ParentKey, parent.PK())
	return []actions.Action{actions.Link(label, url)}
}
