package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/generic"
	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/store"
)

// Handler serves the catalog pages. Every view is built up front so wiring mistakes surface at
// startup.
type Handler struct {
	deps   generic.Deps
	stores *Stores
	top    actions.Action
	all    actions.List
	routes []route
}

type route struct {
	pattern string
	handler http.Handler
}

// NewHandler builds every catalog view. top is the first entry of each navbar.
func NewHandler(deps generic.Deps, stores *Stores, top actions.Action) (*Handler, error) {
	h := &Handler{deps: deps, stores: stores, top: top}
	for _, m := range []model.Model{BookModel{}, AuthorModel{}, PublisherModel{}} {
		link, err := menu.ListLink(m, "")
		if err != nil {
			return nil, err
		}
		h.all = append(h.all, link)
	}
	for _, build := range []func() error{h.publisherRoutes, h.authorRoutes, h.bookRoutes} {
		if err := build(); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	return h, nil
}

// MountRoutes registers the catalog under r, which is expected to be mounted at Prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, rt := range h.routes {
		r.Handle(rt.pattern, rt.handler)
	}
}

// Menu lists the catalog entry points for a landing page.
func (h *Handler) Menu() []actions.Action {
	return append([]actions.Action(nil), h.all...)
}

func (h *Handler) handle(pattern string, handler http.Handler, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", pattern, err)
	}
	h.routes = append(h.routes, route{pattern: pattern, handler: handler})
	return nil
}

func (h *Handler) options(m model.Model) (generic.Options, error) {
	crudl, err := menu.New(m, h.top, h.all)
	if err != nil {
		return generic.Options{}, err
	}
	return generic.Options{Model: m, Navbar: menu.Navbar{Menu: crudl}}, nil
}

func (h *Handler) publisherRoutes() error {
	m := PublisherModel{}
	opts, err := h.options(m)
	if err != nil {
		return err
	}
	s := h.stores.Publishers

	list, err := generic.NewListView(h.deps, generic.ListConfig[Publisher]{Options: opts, Store: s})
	if err := h.handle("/publishers/", list, err); err != nil {
		return err
	}
	add, err := generic.NewAddView(h.deps, generic.AddConfig[Publisher]{Options: opts, Store: s})
	if err := h.handle("/publishers/add/", add, err); err != nil {
		return err
	}
	detail, err := generic.NewDetailView(h.deps, generic.DetailConfig[Publisher]{
		Options: opts,
		Store:   s,
		Related: map[string]generic.Related{"books": {Model: BookModel{}, Load: h.booksBy("publisher")}},
	})
	if err := h.handle("/publishers/{pk}/", detail, err); err != nil {
		return err
	}
	edit, err := generic.NewEditView(h.deps, generic.EditConfig[Publisher]{Options: opts, Store: s})
	if err := h.handle("/publishers/{pk}/edit/", edit, err); err != nil {
		return err
	}
	del, err := generic.NewDeleteView(h.deps, generic.DeleteConfig[Publisher]{Options: opts, Store: s, Tx: h.stores.Tx})
	return h.handle("/publishers/{pk}/delete/", del, err)
}

func (h *Handler) authorRoutes() error {
	m := AuthorModel{}
	opts, err := h.options(m)
	if err != nil {
		return err
	}
	s := h.stores.Authors

	list, err := generic.NewListView(h.deps, generic.ListConfig[Author]{Options: opts, Store: s})
	if err := h.handle("/authors/", list, err); err != nil {
		return err
	}
	add, err := generic.NewFormsetView(h.deps, generic.FormsetConfig[Author, Book]{
		Options:    opts,
		Parent:     s,
		Children:   h.stores.Books,
		Tx:         h.stores.Tx,
		ChildModel: BookModel{},
		ChildForm:  generic.FormSpec{Options: map[string]generic.OptionsFunc{"publisher": h.publisherChoices}},
		ParentKey:  "author",
	})
	if err := h.handle("/authors/add/", add, err); err != nil {
		return err
	}
	detail, err := generic.NewDetailView(h.deps, generic.DetailConfig[Author]{
		Options: opts,
		Store:   s,
		Related: map[string]generic.Related{"books": {Model: BookModel{}, Load: h.booksBy("author")}},
	})
	if err := h.handle("/authors/{pk}/", detail, err); err != nil {
		return err
	}
	books, err := generic.NewChildListView(h.deps, generic.ChildListConfig[Author, Book]{
		Options:    opts,
		Parent:     s,
		Store:      h.stores.Books,
		ChildModel: BookModel{},
		ParentKey:  "author",
		Columns:    []string{"title", "status", "published_on", "price"},
	})
	if err := h.handle("/authors/{pk}/books/", books, err); err != nil {
		return err
	}
	edit, err := generic.NewEditView(h.deps, generic.EditConfig[Author]{Options: opts, Store: s})
	if err := h.handle("/authors/{pk}/edit/", edit, err); err != nil {
		return err
	}
	del, err := generic.NewDeleteView(h.deps, generic.DeleteConfig[Author]{Options: opts, Store: s, Tx: h.stores.Tx})
	return h.handle("/authors/{pk}/delete/", del, err)
}

func (h *Handler) bookRoutes() error {
	m := BookModel{}
	opts, err := h.options(m)
	if err != nil {
		return err
	}
	s := h.stores.Books
	form := generic.FormSpec{Options: map[string]generic.OptionsFunc{
		"author":    h.authorChoices,
		"publisher": h.publisherChoices,
	}}
	columns := []string{"title", "author", "publisher", "status", "published_on", "price"}
	summaries := []generic.Summary{{Label: "価格合計", Field: "price"}}
	purge := path("/books/out-of-print/delete/")

	listOpts := opts
	listOpts.ExtraButtons = []actions.Action{actions.Link("絶版を一括削除", purge)}
	list, err := generic.NewListView(h.deps, generic.ListConfig[Book]{
		Options:   listOpts,
		Store:     s,
		Columns:   columns,
		Summaries: summaries,
	})
	if err := h.handle("/books/", list, err); err != nil {
		return err
	}
	add, err := generic.NewAddView(h.deps, generic.AddConfig[Book]{Options: opts, Store: s, Form: form})
	if err := h.handle("/books/add/", add, err); err != nil {
		return err
	}
	bulk, err := generic.NewBulkAddView(h.deps, generic.BulkAddConfig[Book]{
		Options: opts,
		Store:   s,
		Tx:      h.stores.Tx,
		Form:    generic.FormSpec{Options: form.Options},
		Common: &generic.FormSpec{
			Fields:  []model.Field{authorField},
			Options: map[string]generic.OptionsFunc{"author": h.authorChoices},
		},
	})
	if err := h.handle("/books/bulk-add/", bulk, err); err != nil {
		return err
	}
	sorter, err := generic.NewSortView(h.deps, generic.SortConfig[Book]{Options: opts, Store: s, Reorder: s, Tx: h.stores.Tx})
	if err := h.handle("/books/sort/", sorter, err); err != nil {
		return err
	}
	search, err := generic.NewFilterView(h.deps, generic.FilterConfig[Book]{
		Options:      opts,
		Store:        s,
		Fields:       []string{"author", "publisher", "status", "in_stock"},
		SearchFields: []string{"title"},
		Choices:      form.Options,
	})
	if err := h.handle("/books/search/", search, err); err != nil {
		return err
	}

	archive := generic.ArchiveConfig[Book]{
		Options:   opts,
		Store:     s,
		DateField: "published_on",
		MonthURL:  m.MonthURL,
		YearURL:   m.YearURL,
		Summaries: summaries,
	}
	year, err := generic.NewYearArchiveView(h.deps, archive)
	if err := h.handle("/books/archive/{year}/", year, err); err != nil {
		return err
	}
	month, err := generic.NewMonthArchiveView(h.deps, archive)
	if err := h.handle("/books/archive/{year}/{month}/", month, err); err != nil {
		return err
	}
	latest := generic.LatestConfig{Bounds: s, DateField: "published_on", MonthURL: m.MonthURL, YearURL: m.YearURL}
	latestYear, err := generic.NewLatestYearRedirect(h.deps, latest)
	if err := h.handle("/books/latest-year/", latestYear, err); err != nil {
		return err
	}
	latestMonth, err := generic.NewLatestMonthRedirect(h.deps, latest)
	if err := h.handle("/books/latest-month/", latestMonth, err); err != nil {
		return err
	}

	outOfPrint := map[string]any{"status": StatusOutOfPrint}
	purgeOpts := opts
	purgeOpts.Label = "絶版の本"
	purgeOpts.SuccessURL = m.ListURL()
	deleteList, err := generic.NewDeleteListView(h.deps, generic.DeleteListConfig[Book]{
		Options: purgeOpts,
		Store:   s,
		Tx:      h.stores.Tx,
		Query: func(*http.Request) (store.Query, error) {
			return store.Query{Filters: outOfPrint}, nil
		},
	})
	if err := h.handle("/books/out-of-print/delete/", deleteList, err); err != nil {
		return err
	}

	detail, err := generic.NewDetailView(h.deps, generic.DetailConfig[Book]{Options: opts, Store: s, Columns: columns})
	if err := h.handle("/books/{pk}/", detail, err); err != nil {
		return err
	}
	edit, err := generic.NewEditView(h.deps, generic.EditConfig[Book]{Options: opts, Store: s, Form: form})
	if err := h.handle("/books/{pk}/edit/", edit, err); err != nil {
		return err
	}
	copyView, err := generic.NewAddView(h.deps, generic.AddConfig[Book]{
		Options: opts,
		Store:   s,
		Form:    form,
		Copy: &generic.CopyConfig{
			Source: func(ctx context.Context, pk int64) (model.Record, error) {
				b, err := s.Get(ctx, pk)
				if err != nil {
					return nil, err
				}
				return b, nil
			},
			Fields: []string{"author", "publisher", "status", "price"},
			Param:  "pk",
		},
	})
	if err := h.handle("/books/{pk}/copy/", copyView, err); err != nil {
		return err
	}
	status, err := generic.NewStatusUpdateView(h.deps, generic.StatusConfig[Book]{Store: s, Model: m, Field: "status"})
	if err := h.handle("/books/{pk}/status/{status}/", status, err); err != nil {
		return err
	}
	del, err := generic.NewDeleteView(h.deps, generic.DeleteConfig[Book]{Options: opts, Store: s, Tx: h.stores.Tx})
	return h.handle("/books/{pk}/delete/", del, err)
}

// booksBy loads the books whose field references pk.
func (h *Handler) booksBy(field string) func(ctx context.Context, pk int64) ([]model.Record, error) {
	return func(ctx context.Context, pk int64) ([]model.Record, error) {
		rows, err := h.stores.Books.List(ctx, store.Query{Filters: map[string]any{field: pk}})
		if err != nil {
			return nil, err
		}
		out := make([]model.Record, len(rows))
		for i, b := range rows {
			out[i] = b
		}
		return out, nil
	}
}

func (h *Handler) authorChoices(ctx context.Context) ([]model.Choice, error) {
	return choices(ctx, h.stores.Authors, []string{"name"})
}

func (h *Handler) publisherChoices(ctx context.Context) ([]model.Choice, error) {
	return choices(ctx, h.stores.Publishers, []string{"name"})
}

func choices[T model.Record](ctx context.Context, r store.Reader[T], orderBy []string) ([]model.Choice, error) {
	rows, err := r.List(ctx, store.Query{OrderBy: orderBy})
	if err != nil {
		return nil, err
	}
	out := make([]model.Choice, len(rows))
	for i, row := range rows {
		out[i] = model.Choice{Value: row.PK(), Label: fmt.Sprint(row)}
	}
	return out, nil
}
