package menu_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/shared"
)

var bookMeta = &model.Meta{Name: "book", VerboseName: "本"}

type bareModel struct{}

func (bareModel) Meta() *model.Meta { return bookMeta }

type listModel struct{ bareModel }

func (listModel) ListURL() string { return "/books/" }

type fullModel struct{ listModel }

func (fullModel) AddURL() string         { return "/books/add/" }
func (fullModel) BulkAddURL() string     { return "/books/bulk-add/" }
func (fullModel) SortURL() string        { return "/books/sort/" }
func (fullModel) FilterURL() string      { return "/books/search/" }
func (fullModel) LatestYearURL() string  { return "/books/latest-year/" }
func (fullModel) LatestMonthURL() string { return "/books/latest-month/" }

type toppedModel struct{ fullModel }

func (toppedModel) ModelTopLink() actions.Action { return actions.Link("本棚", "/shelf/") }

var (
	top     = actions.Link("トップ", "/")
	allMenu = actions.NewList(
		actions.Link("本一覧", "/books/"),
		actions.Divider(),
		actions.Link("著者一覧", "/authors/"),
		actions.Link("本棚", "/shelf/"),
	)
)

func entryURLs(t *testing.T, entries []actions.Entry) []any {
	t.Helper()
	out := make([]any, len(entries))
	for i, e := range entries {
		switch v := e.(type) {
		case actions.Action:
			out[i] = v.URL()
		case actions.List:
			out[i] = v.URLs()
		default:
			t.Fatalf("unexpected entry %T", e)
		}
	}
	return out
}

func TestNewRequiresListOrTopLink(t *testing.T) {
	_, err := menu.New(bareModel{}, top, allMenu)
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)

	_, err = menu.New(nil, top, allMenu)
	assert.ErrorIs(t, err, shared.ErrImproperlyConfigured)

	m, err := menu.New(listModel{}, top, allMenu)
	require.NoError(t, err)
	assert.NotNil(t, m.Capabilities().List)
	assert.Nil(t, m.Capabilities().Add)
}

func TestLinkBuilders(t *testing.T) {
	add, err := menu.AddLink(fullModel{})
	require.NoError(t, err)
	assert.Equal(t, "本を追加", add.Label)
	assert.Equal(t, "/books/add/", add.URL())
	assert.Equal(t, actions.IconAdd, add.Icon)

	list, err := menu.ListLink(fullModel{}, "")
	require.NoError(t, err)
	assert.Equal(t, "本一覧", list.Label)

	custom, err := menu.ListLink(fullModel{}, "すべての本")
	require.NoError(t, err)
	assert.Equal(t, "すべての本", custom.Label)

	year, err := menu.LatestYearLink(fullModel{})
	require.NoError(t, err)
	assert.Equal(t, "本(今年)", year.Label)

	month, err := menu.LatestMonthLink(fullModel{})
	require.NoError(t, err)
	assert.Equal(t, "本(今月)", month.Label)

	search, err := menu.FilterLink(fullModel{})
	require.NoError(t, err)
	assert.Equal(t, "本を検索", search.Label)

	for name, build := range map[string]func(model.Model) (actions.Action, error){
		"add":      menu.AddLink,
		"bulk add": menu.BulkAddLink,
		"sort":     menu.SortLink,
		"filter":   menu.FilterLink,
		"year":     menu.LatestYearLink,
		"month":    menu.LatestMonthLink,
	} {
		_, err := build(listModel{})
		assert.ErrorIs(t, err, shared.ErrNotImplemented, name)
	}
	_, err = menu.ListLink(bareModel{}, "")
	assert.ErrorIs(t, err, shared.ErrNotImplemented)
}

func TestListNavbarLinks(t *testing.T) {
	m, err := menu.New(fullModel{}, top, allMenu)
	require.NoError(t, err)

	links := m.ListNavbarLinks(actions.Link("おまけ", "/extra/"))

	want := []any{
		"/",
		"/books/add/",
		"/books/bulk-add/",
		"/books/sort/",
		"/books/search/",
		"/extra/",
		[]string{"", "/authors/", "/shelf/"},
	}
	if diff := cmp.Diff(want, entryURLs(t, links)); diff != "" {
		t.Fatalf("list navbar mismatch (-want +got):\n%s", diff)
	}
}

func TestListNavbarNeverRepeatsListURL(t *testing.T) {
	for _, m := range []model.Model{listModel{}, fullModel{}, toppedModel{}} {
		c, err := menu.New(m, top, allMenu)
		require.NoError(t, err)

		links := c.ListNavbarLinks()
		require.NotEmpty(t, links)
		assert.Equal(t, top, links[0])
		for _, e := range links {
			switch v := e.(type) {
			case actions.Action:
				assert.NotEqual(t, "/books/", v.URL())
			case actions.List:
				assert.False(t, v.Contains("/books/"))
			}
		}
	}
}

func TestAddNavbarLinksUsesModelTopLink(t *testing.T) {
	plain, err := menu.New(fullModel{}, top, allMenu)
	require.NoError(t, err)
	want := []any{"/", "/books/", []string{"", "/authors/", "/shelf/"}}
	if diff := cmp.Diff(want, entryURLs(t, plain.DetailNavbarLinks())); diff != "" {
		t.Fatalf("detail navbar mismatch (-want +got):\n%s", diff)
	}

	topped, err := menu.New(toppedModel{}, top, allMenu)
	require.NoError(t, err)
	want = []any{"/", "/shelf/", "/extra/", []string{"/books/", "", "/authors/"}}
	got := entryURLs(t, topped.EditNavbarLinks(actions.Link("おまけ", "/extra/")))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("edit navbar mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveNavbarsKeepOwnLink(t *testing.T) {
	m, err := menu.New(fullModel{}, top, allMenu)
	require.NoError(t, err)

	year := entryURLs(t, m.YearArchiveNavbarLinks())
	assert.Equal(t, "/books/latest-month/", year[len(year)-2])
	assert.Equal(t, allMenu.URLs(), year[len(year)-1])

	month := entryURLs(t, m.MonthArchiveNavbarLinks())
	assert.Equal(t, "/books/latest-year/", month[len(month)-2])
	assert.Equal(t, allMenu.URLs(), month[len(month)-1])
}

func TestFilterNavbarLinks(t *testing.T) {
	m, err := menu.New(fullModel{}, top, allMenu)
	require.NoError(t, err)

	links, err := m.FilterNavbarLinks()
	require.NoError(t, err)
	want := []any{"/", "/books/add/", "/books/", []string{"", "/authors/", "/shelf/"}}
	if diff := cmp.Diff(want, entryURLs(t, links)); diff != "" {
		t.Fatalf("filter navbar mismatch (-want +got):\n%s", diff)
	}

	noAdd, err := menu.New(listModel{}, top, allMenu)
	require.NoError(t, err)
	_, err = noAdd.FilterNavbarLinks()
	assert.ErrorIs(t, err, shared.ErrNotImplemented)
}
