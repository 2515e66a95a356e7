package generic_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/crudkit/internal/generic"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

func (c *catalog) filterView() *generic.FilterView[book] {
	c.t.Helper()
	v, err := generic.NewFilterView(c.deps, generic.FilterConfig[book]{
		Options:      c.bookOptions(),
		Store:        c.books,
		Fields:       []string{"author", "genre", "in_stock"},
		SearchFields: []string{"title"},
		Choices:      map[string]generic.OptionsFunc{"author": c.authorOptions},
	})
	require.NoError(c.t, err)
	return v
}

func seedFilterBooks(t *testing.T, c *catalog) {
	t.Helper()
	soseki := c.addAuthor("夏目漱石")
	ogai := c.addAuthor("森鴎外")
	c.addBook(soseki.id, "こころ", date(2024, 1, 1))
	_, err := c.books.Create(context.Background(), store.Values{
		"author": soseki.id, "title": "坊っちゃん", "genre": int64(2), "in_stock": true,
	})
	require.NoError(t, err)
	c.addBook(ogai.id, "舞姫", date(2024, 1, 3))
}

func TestFilterViewListsNothingWithoutCriteria(t *testing.T) {
	c := newCatalog(t)
	seedFilterBooks(t, c)

	res, _ := c.serve(c.filterView(), get("/books/search/"), nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "<title>本を検索</title>")
	assert.Contains(t, body, `name="genre"`)
	assert.Contains(t, body, `<option value="true">はい</option>`)
	assert.NotContains(t, body, "こころ")
	assert.NotContains(t, body, "データがありません。")
}

func TestFilterViewSearchesText(t *testing.T) {
	c := newCatalog(t)
	seedFilterBooks(t, c)

	res, _ := c.serve(c.filterView(), get("/books/search/?q=%E8%88%9E"), nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "舞姫")
	assert.NotContains(t, body, "こころ")
	assert.Contains(t, body, `value="舞"`, "the query is echoed back")
}

func TestFilterViewMatchesFields(t *testing.T) {
	c := newCatalog(t)
	seedFilterBooks(t, c)
	v := c.filterView()

	res, _ := c.serve(v, get("/books/search/?genre=2"), nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "坊っちゃん")
	assert.NotContains(t, body, "こころ")
	assert.Contains(t, body, `<option value="2" selected>漫画</option>`)

	res, _ = c.serve(v, get("/books/search/?in_stock=false&author=1"), nil)
	body = res.Body.String()
	assert.Contains(t, body, "こころ")
	assert.NotContains(t, body, "坊っちゃん")
	assert.NotContains(t, body, "舞姫")

	res, _ = c.serve(v, get("/books/search/?author=2&genre=2"), nil)
	assert.Contains(t, res.Body.String(), "データがありません。")
}

func TestFilterViewRejectsUnknownChoice(t *testing.T) {
	c := newCatalog(t)
	seedFilterBooks(t, c)

	res, _ := c.serve(c.filterView(), get("/books/search/?genre=9"), nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "正しく選択してください。")
	assert.NotContains(t, body, "こころ")
}

func TestFilterViewConfiguration(t *testing.T) {
	c := newCatalog(t)

	_, err := generic.NewFilterView(c.deps, generic.FilterConfig[book]{Options: c.bookOptions(), Store: c.books})
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)

	_, err = generic.NewFilterView(c.deps, generic.FilterConfig[book]{Options: c.bookOptions(), Store: c.books, Fields: []string{"isbn"}})
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)

	_, err = generic.NewFilterView(c.deps, generic.FilterConfig[book]{Options: c.bookOptions(), Store: c.books, SearchFields: []string{"isbn"}})
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)
}
