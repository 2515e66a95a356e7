package generic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/crudkit/internal/generic"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

func (c *catalog) sortedTitles() []string {
	c.t.Helper()
	rows, err := c.books.List(context.Background(), store.Query{})
	require.NoError(c.t, err)
	out := make([]string, len(rows))
	for i, b := range rows {
		out[i] = b.title
	}
	return out
}

func (c *catalog) sortView() *generic.SortView[book] {
	c.t.Helper()
	v, err := generic.NewSortView(c.deps, generic.SortConfig[book]{Options: c.bookOptions(), Store: c.books, Reorder: c.books})
	require.NoError(c.t, err)
	return v
}

func jsonPost(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSortViewForm(t *testing.T) {
	c := newCatalog(t)
	a := c.addAuthor("夏目漱石")
	c.addBook(a.id, "こころ", date(2024, 1, 1))
	c.addBook(a.id, "門", date(2024, 1, 2))
	c.addBook(a.id, "草枕", date(2024, 1, 3))
	v := c.sortView()

	res, _ := c.serve(v, get("/books/sort/"), nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "<title>本をソート</title>")
	assert.Contains(t, body, `<input type="hidden" name="id" value="1">`)

	res, flashes := c.serve(v, post("/books/sort/", url.Values{"id": {"3", "1", "2"}}), nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/books/", res.Header().Get("Location"))
	assert.Equal(t, []shared.FlashMessage{{Kind: shared.FlashSuccess, Message: "本をソートしました。"}}, flashes)
	assert.Equal(t, []string{"草枕", "こころ", "門"}, c.sortedTitles())

	res, _ = c.serve(v, post("/books/sort/", url.Values{"id": {"x"}}), nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = c.serve(v, post("/books/sort/", url.Values{}), nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSortViewJSON(t *testing.T) {
	c := newCatalog(t)
	a := c.addAuthor("夏目漱石")
	c.addBook(a.id, "こころ", date(2024, 1, 1))
	c.addBook(a.id, "門", date(2024, 1, 2))
	v := c.sortView()

	res, flashes := c.serve(v, jsonPost("/books/sort/", `{"ids":[2,1]}`), nil)
	require.Equal(t, http.StatusOK, res.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, "/books/", out["redirect"])
	assert.Len(t, flashes, 1)
	assert.Equal(t, []string{"門", "こころ"}, c.sortedTitles())

	res, _ = c.serve(v, jsonPost("/books/sort/", `{"ids":[]}`), nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = c.serve(v, jsonPost("/books/sort/", `{"order":[1]}`), nil)
	assert.Equal(t, http.StatusBadRequest, res.Code, "unknown keys are rejected")

	res, _ = c.serve(v, jsonPost("/books/sort/", `{"ids":[99]}`), nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
}

func TestSortViewUnknownIDKeepsOrder(t *testing.T) {
	c := newCatalog(t)
	a := c.addAuthor("夏目漱石")
	c.addBook(a.id, "こころ", date(2024, 1, 1))
	c.addBook(a.id, "門", date(2024, 1, 2))
	c.addBook(a.id, "草枕", date(2024, 1, 3))
	v := c.sortView()

	res, _ := c.serve(v, post("/books/sort/", url.Values{"id": {"2", "999", "1"}}), nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, []string{"こころ", "門", "草枕"}, c.sortedTitles())
}

func TestSortViewNeedsReorderer(t *testing.T) {
	c := newCatalog(t)
	_, err := generic.NewSortView(c.deps, generic.SortConfig[book]{Options: c.bookOptions(), Store: c.books})
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)
}
