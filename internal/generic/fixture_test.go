package generic_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/generic"
	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
	"github.com/odyssey-erp/crudkit/internal/store/memstore"
	"github.com/odyssey-erp/crudkit/internal/urls"
	"github.com/odyssey-erp/crudkit/internal/view"
)

var (
	authorField = model.Field{Name: "author", VerboseName: "著者", Kind: model.KindForeignKey, Required: true}

	authorMeta = &model.Meta{
		Name:        "author",
		VerboseName: "著者",
		Fields: []model.Field{
			{Name: "id", VerboseName: "ID", Kind: model.KindInteger, AutoCreated: true},
			{Name: "name", VerboseName: "名前", Kind: model.KindChar, MaxLength: 50, Required: true},
		},
		Relations: []model.Relation{
			{Name: "book", Accessor: "books", RelatedVerboseName: "本", Kind: model.OneToMany},
		},
	}

	bookMeta = &model.Meta{
		Name:        "book",
		VerboseName: "本",
		Fields: []model.Field{
			{Name: "id", VerboseName: "ID", Kind: model.KindInteger, AutoCreated: true},
			authorField,
			{Name: "title", VerboseName: "タイトル", Kind: model.KindChar, MaxLength: 50, Required: true},
			{Name: "genre", VerboseName: "ジャンル", Kind: model.KindInteger, Choices: []model.Choice{
				{Value: int64(1), Label: "小説"},
				{Value: int64(2), Label: "漫画"},
			}},
			{Name: "in_stock", VerboseName: "在庫あり", Kind: model.KindBoolean},
			{Name: "published_on", VerboseName: "発行日", Kind: model.KindDate},
			{Name: "pages", VerboseName: "ページ数", Kind: model.KindInteger, Validate: "gte=0"},
			{Name: "position", VerboseName: "並び順", Kind: model.KindInteger, AutoCreated: true},
		},
	}
)

type authorModel struct{}

func (authorModel) Meta() *model.Meta { return authorMeta }
func (authorModel) ListURL() string   { return "/authors/" }
func (authorModel) AddURL() string    { return "/authors/add/" }

type bookModel struct{}

func (bookModel) Meta() *model.Meta      { return bookMeta }
func (bookModel) ListURL() string        { return "/books/" }
func (bookModel) AddURL() string         { return "/books/add/" }
func (bookModel) BulkAddURL() string     { return "/books/bulk-add/" }
func (bookModel) SortURL() string        { return "/books/sort/" }
func (bookModel) FilterURL() string      { return "/books/search/" }
func (bookModel) LatestMonthURL() string { return "/books/latest-month/" }
func (bookModel) LatestYearURL() string  { return "/books/latest-year/" }

type author struct {
	id   int64
	name string
}

func (a author) PK() int64           { return a.id }
func (a author) String() string      { return a.name }
func (a author) AbsoluteURL() string { return fmt.Sprintf("/authors/%d/", a.id) }
func (a author) EditURL() string     { return fmt.Sprintf("/authors/%d/edit/", a.id) }
func (a author) DeleteURL() string   { return fmt.Sprintf("/authors/%d/delete/", a.id) }
func (a author) FieldValue(name string) any {
	switch name {
	case "id":
		return a.id
	case "name":
		return a.name
	}
	return nil
}

type book struct {
	id        int64
	authorID  int64
	title     string
	genre     any
	inStock   bool
	published time.Time
	pages     any
	position  int
}

func (b book) PK() int64           { return b.id }
func (b book) String() string      { return b.title }
func (b book) AbsoluteURL() string { return fmt.Sprintf("/books/%d/", b.id) }
func (b book) EditURL() string     { return fmt.Sprintf("/books/%d/edit/", b.id) }
func (b book) DeleteURL() string   { return fmt.Sprintf("/books/%d/delete/", b.id) }
func (b book) CopyURL() string     { return fmt.Sprintf("/books/%d/copy/", b.id) }
func (b book) FieldValue(name string) any {
	switch name {
	case "id":
		return b.id
	case "author":
		return b.authorID
	case "title":
		return b.title
	case "genre":
		return b.genre
	case "in_stock":
		return b.inStock
	case "published_on":
		if b.published.IsZero() {
			return nil
		}
		return b.published
	case "pages":
		return b.pages
	case "position":
		return b.position
	}
	return nil
}

func makeAuthor(pk int64, v store.Values) (author, error) {
	a := author{id: pk}
	a.name, _ = v["name"].(string)
	return a, nil
}

func makeBook(pk int64, v store.Values) (book, error) {
	b := book{id: pk, genre: v["genre"], pages: v["pages"]}
	b.authorID, _ = v["author"].(int64)
	b.title, _ = v["title"].(string)
	b.inStock, _ = v["in_stock"].(bool)
	b.published, _ = v["published_on"].(time.Time)
	b.position, _ = v["position"].(int)
	return b, nil
}

// catalog is an in-memory author/book data set with a session-backed request harness.
type catalog struct {
	t       *testing.T
	sm      *shared.SessionManager
	deps    generic.Deps
	authors *memstore.Store[author]
	books   *memstore.Store[book]
	tx      *memstore.Transactor
}

var today = time.Date(2024, time.April, 15, 10, 0, 0, 0, time.UTC)

func newCatalog(t *testing.T) *catalog {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)

	c := &catalog{
		t:     t,
		sm:    shared.NewSessionManager(shared.NewMemorySessionStore(nil), shared.SessionOptions{CookieName: "test_session", TTL: time.Hour}),
		books: memstore.New(memstore.Config[book]{Make: makeBook, SortField: "position"}),
	}
	c.authors = memstore.New(memstore.Config[author]{
		Make: makeAuthor,
		Protect: func(ctx context.Context, pk int64) []string {
			n, _ := c.books.Count(ctx, store.Query{Filters: map[string]any{"author": pk}})
			if n > 0 {
				return []string{"本"}
			}
			return nil
		},
	})
	c.tx = memstore.NewTransactor(c.authors, c.books)
	c.deps = generic.Deps{
		Templates: engine,
		CSRF:      shared.NewCSRFManager("test-secret"),
		Resolver: urls.ResolverFunc(func(path string) bool {
			return strings.HasPrefix(path, "/books/") || strings.HasPrefix(path, "/authors/")
		}),
		Location: time.UTC,
		PageSize: 2,
		Now:      func() time.Time { return today },
	}
	return c
}

func (c *catalog) addAuthor(name string) author {
	c.t.Helper()
	a, err := c.authors.Create(context.Background(), store.Values{"name": name})
	require.NoError(c.t, err)
	return a
}

func (c *catalog) addBook(authorID int64, title string, published time.Time) book {
	c.t.Helper()
	b, err := c.books.Create(context.Background(), store.Values{
		"author": authorID, "title": title, "genre": int64(1), "published_on": published, "pages": int64(100),
	})
	require.NoError(c.t, err)
	return b
}

func (c *catalog) authorOptions(ctx context.Context) ([]model.Choice, error) {
	rows, err := c.authors.List(ctx, store.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]model.Choice, len(rows))
	for i, a := range rows {
		out[i] = model.Choice{Value: a.id, Label: a.name}
	}
	return out, nil
}

func (c *catalog) bookForm() generic.FormSpec {
	return generic.FormSpec{Options: map[string]generic.OptionsFunc{"author": c.authorOptions}}
}

func (c *catalog) navbar(m model.Model) menu.Navbar {
	c.t.Helper()
	all := actions.NewList(actions.Link("本一覧", "/books/"), actions.Link("著者一覧", "/authors/"))
	crudl, err := menu.New(m, actions.Link("トップ", "/"), all)
	require.NoError(c.t, err)
	return menu.Navbar{Menu: crudl}
}

func (c *catalog) bookOptions() generic.Options {
	return generic.Options{Model: bookModel{}, Navbar: c.navbar(bookModel{})}
}

func (c *catalog) authorViewOptions() generic.Options {
	return generic.Options{Model: authorModel{}, Navbar: c.navbar(authorModel{})}
}

// serve runs h with a fresh session and the given route parameters. It returns the response and
// the flashes left on the session, which a redirect would carry to the next page.
func (c *catalog) serve(h http.Handler, req *http.Request, params map[string]string) (*httptest.ResponseRecorder, []shared.FlashMessage) {
	c.t.Helper()
	sess, err := c.sm.Load(req.Context(), req)
	require.NoError(c.t, err)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = shared.ContextWithSession(ctx, sess)

	res := httptest.NewRecorder()
	h.ServeHTTP(res, req.WithContext(ctx))
	return res, sess.PopFlashes()
}

func get(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func post(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c *catalog) booksOf(ctx context.Context, pk int64) ([]model.Record, error) {
	rows, err := c.books.List(ctx, store.Query{Filters: map[string]any{"author": pk}})
	if err != nil {
		return nil, err
	}
	out := make([]model.Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

func indexOf(s, substr string) int {
	return strings.Index(s, substr)
}
