package generic_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/crudkit/internal/generic"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

func (c *catalog) addView() *generic.AddView[book] {
	c.t.Helper()
	v, err := generic.NewAddView(c.deps, generic.AddConfig[book]{Options: c.bookOptions(), Store: c.books, Form: c.bookForm()})
	require.NoError(c.t, err)
	return v
}

func validBookForm() url.Values {
	return url.Values{
		"author":       {"1"},
		"title":        {"門"},
		"genre":        {"2"},
		"pages":        {"320"},
		"published_on": {"2024-04-01"},
		"in_stock":     {"on"},
	}
}

func TestAddViewCreatesAndRedirects(t *testing.T) {
	c := newCatalog(t)
	c.addAuthor("夏目漱石")
	v := c.addView()

	res, flashes := c.serve(v, post("/books/add/", validBookForm()), nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/books/", res.Header().Get("Location"))
	assert.Equal(t, []shared.FlashMessage{{Kind: shared.FlashSuccess, Message: "本を追加しました。"}}, flashes)

	b, err := c.books.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "門", b.title)
	assert.Equal(t, int64(1), b.authorID)
	assert.Equal(t, int64(2), b.genre)
	assert.Equal(t, int64(320), b.pages)
	assert.True(t, b.inStock)
	assert.Equal(t, date(2024, 4, 1), b.published)
}

func TestAddViewSuccessURL(t *testing.T) {
	c := newCatalog(t)
	c.addAuthor("夏目漱石")
	v := c.addView()

	form := validBookForm()
	form.Set("success_url", "/books/?perspective=author")
	res, _ := c.serve(v, post("/books/add/", form), nil)
	assert.Equal(t, "/books/?perspective=author", res.Header().Get("Location"))

	form.Set("success_url", "not-a-real-path")
	res, _ = c.serve(v, post("/books/add/", form), nil)
	assert.Equal(t, "/books/", res.Header().Get("Location"), "unroutable targets fall back to the list")
}

func TestAddViewRerendersInvalidForm(t *testing.T) {
	c := newCatalog(t)
	c.addAuthor("夏目漱石")
	v := c.addView()

	form := validBookForm()
	form.Del("title")
	form.Set("pages", "-1")
	res, flashes := c.serve(v, post("/books/add/", form), nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Empty(t, flashes)
	body := res.Body.String()
	assert.Contains(t, body, "この項目は必須です。")
	assert.Contains(t, body, "0以上の値を入力してください。")

	n, err := c.books.Count(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddViewInitialValuesFromQuery(t *testing.T) {
	c := newCatalog(t)
	c.addAuthor("夏目漱石")
	v := c.addView()

	q := url.Values{"title": {"草枕"}, "author": {"1"}, "id": {"5"}, "next": {"/books/?page=2"}}
	res, _ := c.serve(v, get("/books/add/?"+q.Encode()), nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "<title>本を追加</title>")
	assert.Contains(t, body, `value="草枕"`)
	assert.Contains(t, body, `<option value="1" selected>夏目漱石</option>`)
	assert.Contains(t, body, `name="success_url" value="/books/?page=2"`)
	assert.NotContains(t, body, `value="5"`)
}

func TestCopyView(t *testing.T) {
	c := newCatalog(t)
	a := c.addAuthor("夏目漱石")
	c.addBook(a.id, "こころ", date(2024, 1, 10))

	source := func(ctx context.Context, pk int64) (model.Record, error) { return c.books.Get(ctx, pk) }
	v, err := generic.NewAddView(c.deps, generic.AddConfig[book]{
		Options: c.bookOptions(),
		Store:   c.books,
		Form:    c.bookForm(),
		Copy:    &generic.CopyConfig{Source: source, Fields: []string{"author", "title"}},
	})
	require.NoError(t, err)

	res, _ := c.serve(v, get("/books/1/copy/"), map[string]string{"src_id": "1"})
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, `value="こころ"`)
	assert.Contains(t, body, `<option value="1" selected>夏目漱石</option>`)
	assert.NotContains(t, body, `value="100"`, "pages are not copied")

	res, _ = c.serve(v, get("/books/99/copy/"), map[string]string{"src_id": "99"})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestCopyViewConfiguration(t *testing.T) {
	c := newCatalog(t)
	source := func(ctx context.Context, pk int64) (model.Record, error) { return c.books.Get(ctx, pk) }

	for name, fields := range map[string]any{
		"string":        "title",
		"empty list":    []string{},
		"unknown field": map[string]string{"title": "subtitle"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := generic.NewAddView(c.deps, generic.AddConfig[book]{
				Options: c.bookOptions(),
				Store:   c.books,
				Copy:    &generic.CopyConfig{Source: source, Fields: fields},
			})
			assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)
		})
	}

	_, err := generic.NewAddView(c.deps, generic.AddConfig[book]{
		Options: c.bookOptions(),
		Store:   c.books,
		Copy:    &generic.CopyConfig{Fields: []string{"title"}},
	})
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)
}

func TestEditView(t *testing.T) {
	c := newCatalog(t)
	a := c.addAuthor("夏目漱石")
	c.addBook(a.id, "こころ", date(2024, 1, 10))

	v, err := generic.NewEditView(c.deps, generic.EditConfig[book]{Options: c.bookOptions(), Store: c.books, Form: c.bookForm()})
	require.NoError(t, err)

	res, _ := c.serve(v, get("/books/1/edit/"), map[string]string{"pk": "1"})
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "<title>本を編集</title>")
	assert.Contains(t, body, `value="こころ"`)
	assert.Contains(t, body, `value="2024-01-10"`)
	assert.Contains(t, body, "更新")

	form := url.Values{"author": {"1"}, "title": {"こころ 新版"}, "genre": {"1"}}
	res, flashes := c.serve(v, post("/books/1/edit/", form), map[string]string{"pk": "1"})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/books/", res.Header().Get("Location"))
	assert.Equal(t, []shared.FlashMessage{{Kind: shared.FlashSuccess, Message: "本を更新しました。"}}, flashes)

	b, err := c.books.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "こころ 新版", b.title)

	res, _ = c.serve(v, get("/books/9/edit/"), map[string]string{"pk": "9"})
	assert.Equal(t, http.StatusNotFound, res.Code)

	res, _ = c.serve(v, get("/books/x/edit/"), map[string]string{"pk": "x"})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestDeleteViewRefusesProtectedRows(t *testing.T) {
	c := newCatalog(t)
	soseki := c.addAuthor("夏目漱石")
	c.addBook(soseki.id, "こころ", date(2024, 1, 10))

	v, err := generic.NewDeleteView(c.deps, generic.DeleteConfig[author]{Options: c.authorViewOptions(), Store: c.authors})
	require.NoError(t, err)

	res, _ := c.serve(v, get("/authors/1/delete/"), map[string]string{"pk": "1"})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "この著者を削除しますか？")

	res, flashes := c.serve(v, post("/authors/1/delete/", url.Values{}), map[string]string{"pk": "1"})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Empty(t, flashes, "the error is rendered on the page itself")
	assert.Contains(t, res.Body.String(), "削除できませんでした。『本』にこの著者に依存するレコードがあります。")

	_, err = c.authors.Get(context.Background(), soseki.id)
	assert.NoError(t, err)
}

func TestDeleteViewDeletes(t *testing.T) {
	c := newCatalog(t)
	ogai := c.addAuthor("森鴎外")

	v, err := generic.NewDeleteView(c.deps, generic.DeleteConfig[author]{Options: c.authorViewOptions(), Store: c.authors})
	require.NoError(t, err)

	res, flashes := c.serve(v, post("/authors/1/delete/", url.Values{}), map[string]string{"pk": "1"})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/authors/", res.Header().Get("Location"))
	assert.Equal(t, []shared.FlashMessage{{Kind: shared.FlashSuccess, Message: "著者を削除しました。"}}, flashes)

	_, err = c.authors.Get(context.Background(), ogai.id)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	res, _ = c.serve(v, post("/authors/1/delete/", url.Values{}), map[string]string{"pk": "1"})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestDeleteListView(t *testing.T) {
	c := newCatalog(t)
	soseki := c.addAuthor("夏目漱石")
	ogai := c.addAuthor("森鴎外")
	c.addBook(soseki.id, "こころ", date(2024, 1, 1))
	c.addBook(soseki.id, "門", date(2024, 1, 2))
	c.addBook(ogai.id, "舞姫", date(2024, 1, 3))

	byAuthor := func(r *http.Request) (store.Query, error) {
		return store.Query{Filters: map[string]any{"author": r.URL.Query().Get("author")}}, nil
	}
	_, err := generic.NewDeleteListView(c.deps, generic.DeleteListConfig[book]{Options: c.bookOptions(), Store: c.books, Query: byAuthor})
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured, "a success url is required")

	opts := c.bookOptions()
	opts.SuccessURL = "/books/"
	v, err := generic.NewDeleteListView(c.deps, generic.DeleteListConfig[book]{Options: opts, Store: c.books, Query: byAuthor})
	require.NoError(t, err)

	res, _ := c.serve(v, get("/books/delete/?author=1"), nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "以下の本を2件削除しますか？")
	assert.NotContains(t, body, "舞姫")

	res, flashes := c.serve(v, post("/books/delete/?author=1", url.Values{}), nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/books/", res.Header().Get("Location"))
	assert.Equal(t, []shared.FlashMessage{{Kind: shared.FlashInfo, Message: "本を一括削除しました。"}}, flashes)

	n, err := c.books.Count(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteListViewKeepsEveryRowWhenOneIsProtected(t *testing.T) {
	c := newCatalog(t)
	c.addAuthor("夏目漱石")
	ogai := c.addAuthor("森鴎外")
	c.addBook(ogai.id, "舞姫", date(2024, 1, 3))

	opts := c.authorViewOptions()
	opts.SuccessURL = "/authors/"
	v, err := generic.NewDeleteListView(c.deps, generic.DeleteListConfig[author]{
		Options: opts,
		Store:   c.authors,
		Tx:      c.tx,
		Query:   func(*http.Request) (store.Query, error) { return store.Query{}, nil },
	})
	require.NoError(t, err)

	res, flashes := c.serve(v, post("/authors/delete/", url.Values{}), nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/authors/delete/", res.Header().Get("Location"))
	require.Len(t, flashes, 1)
	assert.Equal(t, shared.FlashError, flashes[0].Kind)
	assert.Contains(t, flashes[0].Message, "『本』")

	n, err := c.authors.Count(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStatusUpdateView(t *testing.T) {
	c := newCatalog(t)
	a := c.addAuthor("夏目漱石")
	c.addBook(a.id, "こころ", date(2024, 1, 1))

	v, err := generic.NewStatusUpdateView(c.deps, generic.StatusConfig[book]{Store: c.books, Model: bookModel{}, Field: "genre"})
	require.NoError(t, err)

	params := map[string]string{"pk": "1", "status": "2"}
	res, flashes := c.serve(v, post("/books/1/status/2/", url.Values{}), params)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/books/", res.Header().Get("Location"))
	assert.Equal(t, []shared.FlashMessage{{Kind: shared.FlashSuccess, Message: "漫画に変更しました。"}}, flashes)

	b, err := c.books.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.genre)

	res, _ = c.serve(v, post("/books/1/status/9/", url.Values{}), map[string]string{"pk": "1", "status": "9"})
	assert.Equal(t, http.StatusNotFound, res.Code)

	res, _ = c.serve(v, post("/books/7/status/1/", url.Values{}), map[string]string{"pk": "7", "status": "1"})
	assert.Equal(t, http.StatusNotFound, res.Code)

	res, _ = c.serve(v, get("/books/1/status/2/"), params)
	assert.Equal(t, http.StatusMethodNotAllowed, res.Code)
	assert.Equal(t, http.MethodPost, res.Header().Get("Allow"))
}

func TestStatusUpdateViewNeedsChoices(t *testing.T) {
	c := newCatalog(t)
	_, err := generic.NewStatusUpdateView(c.deps, generic.StatusConfig[book]{Store: c.books, Model: bookModel{}, Field: "title"})
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)
}

type changeLog []string

func (l *changeLog) RecordChange(model, op string, rows int) {
	*l = append(*l, fmt.Sprintf("%s %s %d", model, op, rows))
}

func TestViewsReportChanges(t *testing.T) {
	c := newCatalog(t)
	var log changeLog
	c.deps.Changes = &log
	soseki := c.addAuthor("夏目漱石")
	c.addBook(soseki.id, "こころ", date(2024, 1, 1))

	res, _ := c.serve(c.addView(), post("/books/add/", validBookForm()), nil)
	require.Equal(t, http.StatusSeeOther, res.Code)

	res, _ = c.serve(c.addView(), post("/books/add/", url.Values{}), nil)
	require.Equal(t, http.StatusOK, res.Code)

	opts := c.bookOptions()
	opts.SuccessURL = "/books/"
	purge, err := generic.NewDeleteListView(c.deps, generic.DeleteListConfig[book]{
		Options: opts,
		Store:   c.books,
		Query: func(*http.Request) (store.Query, error) {
			return store.Query{Filters: map[string]any{"author": soseki.id}}, nil
		},
	})
	require.NoError(t, err)
	res, _ = c.serve(purge, post("/books/delete/", url.Values{}), nil)
	require.Equal(t, http.StatusSeeOther, res.Code)

	assert.Equal(t, changeLog{"book create 1", "book delete 2"}, log)
}
