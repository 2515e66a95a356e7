package generic_test

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/generic"
	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/shared"
)

func TestTemplateView(t *testing.T) {
	c := newCatalog(t)
	opts := generic.Options{
		Template: "pages/home.html",
		Navbar:   menu.Navbar{Links: actions.NewList(actions.Link("本一覧", "/books/"))},
	}
	extra := func(*http.Request) (map[string]any, error) {
		return map[string]any{"Menu": []actions.Action{actions.Link("著者一覧", "/authors/")}}, nil
	}
	v, err := generic.NewTemplateView(c.deps, opts, "トップ", extra)
	require.NoError(t, err)

	res, _ := c.serve(v, get("/"), nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "<title>トップ</title>")
	assert.Contains(t, body, `href="/books/"`)
	assert.Contains(t, body, `<a href="/authors/">著者一覧</a>`)

	res, _ = c.serve(v, post("/", url.Values{}), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, res.Code)
}

func TestTemplateViewPropagatesDataErrors(t *testing.T) {
	c := newCatalog(t)
	opts := generic.Options{Template: "pages/home.html"}
	v, err := generic.NewTemplateView(c.deps, opts, "トップ", func(*http.Request) (map[string]any, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)

	res, _ := c.serve(v, get("/"), nil)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
}

func TestTemplateViewConfiguration(t *testing.T) {
	c := newCatalog(t)

	_, err := generic.NewTemplateView(c.deps, generic.Options{Template: "pages/home.html", Navbar: c.navbar(bookModel{})}, "トップ", nil)
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured, "menus belong to model views")

	_, err = generic.NewTemplateView(c.deps, generic.Options{}, "トップ", nil)
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)
}

func TestRedirectView(t *testing.T) {
	c := newCatalog(t)
	v, err := generic.NewRedirectView(c.deps.Resolver, func(*http.Request) string { return "/books/" })
	require.NoError(t, err)

	res, _ := c.serve(v, get("/go/"), nil)
	require.Equal(t, http.StatusFound, res.Code)
	assert.Equal(t, "/books/", res.Header().Get("Location"))

	res, _ = c.serve(v, get("/go/?next=%2Fauthors%2F3%2F"), nil)
	assert.Equal(t, "/authors/3/", res.Header().Get("Location"))

	res, _ = c.serve(v, get("/go/?next=https%3A%2F%2Fevil.example%2F"), nil)
	assert.Equal(t, "/books/", res.Header().Get("Location"), "foreign targets are ignored")

	res, _ = c.serve(v, post("/go/", url.Values{"next": {"/authors/"}}), nil)
	assert.Equal(t, "/authors/", res.Header().Get("Location"))

	gone, err := generic.NewRedirectView(nil, func(*http.Request) string { return "" })
	require.NoError(t, err)
	res, _ = c.serve(gone, get("/go/"), nil)
	assert.Equal(t, http.StatusGone, res.Code)

	_, err = generic.NewRedirectView(nil, nil)
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)
}
