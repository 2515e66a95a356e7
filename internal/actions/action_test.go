package actions_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/shared"
)

type book struct{ id int }

func (b book) EditURL() string     { return "/books/edit/1/" }
func (b book) DeleteURL() string   { return "/books/delete/1/" }
func (b book) AbsoluteURL() string { return "/books/detail/1/" }
func (b book) CopyURL() string     { return "/books/copy/1/" }

type readOnly struct{}

func labels(l actions.List) []string {
	out := make([]string, len(l))
	for i, a := range l {
		out[i] = a.Label
	}
	return out
}

func TestSubtractRemovesSameURL(t *testing.T) {
	a := actions.Add("/add")
	b := actions.Link("別名", "/add")

	got := actions.NewList(a).Subtract(b)
	assert.Empty(t, got)
}

func TestSubtractKeepsDividers(t *testing.T) {
	div := actions.Divider()
	for _, other := range []actions.Action{actions.Add("/add"), actions.Divider(), actions.Link("空", "")} {
		got := actions.NewList(div).Subtract(other)
		require.Len(t, got, 1)
		assert.True(t, got[0].IsDivider)
	}
}

func TestSubtractAddAndDivider(t *testing.T) {
	list := actions.NewList(actions.Add("/add"), actions.Divider())

	got := list.Subtract(actions.Add("/add"))

	require.Len(t, got, 1)
	assert.True(t, got[0].IsDivider)
	assert.Len(t, list, 2, "receiver must not be modified")
}

func TestSubtractPreservesOrder(t *testing.T) {
	list := actions.NewList(
		actions.Link("著者一覧", "/authors/"),
		actions.Divider(),
		actions.Link("本一覧", "/books/"),
		actions.Link("出版社一覧", "/publishers/"),
		actions.Link("本一覧(別)", "/books/"),
	)

	got := list.Subtract(actions.Link("本一覧", "/books/"))

	if diff := cmp.Diff([]string{"/authors/", "", "/publishers/"}, got.URLs()); diff != "" {
		t.Fatalf("unexpected urls (-want +got):\n%s", diff)
	}
}

func TestLazyURLResolution(t *testing.T) {
	calls := 0
	a := actions.LinkFunc("本一覧", func() string {
		calls++
		return "/books/"
	})
	assert.Equal(t, 0, calls)
	assert.Equal(t, "/books/", a.URL())
	assert.Equal(t, 1, calls)
}

func TestInstanceVariants(t *testing.T) {
	b := book{id: 1}

	cases := []struct {
		action actions.Action
		kind   actions.Kind
		label  string
		url    string
	}{
		{actions.Detail(b), actions.KindDetail, "詳細", "/books/detail/1/"},
		{actions.Edit(b), actions.KindEdit, "編集", "/books/edit/1/"},
		{actions.Delete(b), actions.KindDelete, "削除", "/books/delete/1/"},
		{actions.Copy(b), actions.KindCopy, "複製", "/books/copy/1/"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, tc.action.Kind)
		assert.Equal(t, tc.label, tc.action.Label)
		assert.Equal(t, tc.url, tc.action.URL())
	}
	assert.True(t, actions.Delete(b).IsDanger)
	assert.Equal(t, actions.IconCopy, actions.Copy(b).Icon)
}

func TestDefaultLabelsAndIcons(t *testing.T) {
	assert.Equal(t, "追加", actions.Add("/a").Label)
	assert.Equal(t, actions.IconAdd, actions.Add("/a").Icon)
	assert.Equal(t, "一括追加", actions.BulkAdd("/b").Label)
	assert.Equal(t, "ソート", actions.Sort("/s").Label)
	assert.Equal(t, "検索", actions.Search("/q").Label)
	assert.Equal(t, actions.IconSearch, actions.Search("/q").Icon)
	assert.True(t, actions.Post("確定", "/confirm").IsPost)
	assert.False(t, actions.Link("x", "/x").IsPost)
}

func TestLateBoundCapabilityPanics(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, shared.ErrNotImplemented)
	}()
	actions.EditOf(readOnly{})
}

func TestLateBoundCapabilityResolves(t *testing.T) {
	assert.Equal(t, "/books/edit/1/", actions.EditOf(book{}).URL())
	assert.Equal(t, "/books/delete/1/", actions.DeleteOf(book{}).URL())
	assert.Equal(t, "/books/detail/1/", actions.DetailOf(book{}).URL())
	assert.Equal(t, "/books/copy/1/", actions.CopyOf(book{}).URL())
}

func TestInstanceActions(t *testing.T) {
	got := actions.InstanceActions(book{})
	assert.Equal(t, []string{"複製"}, labels(got))
	assert.Empty(t, actions.InstanceActions(readOnly{}))
	assert.Equal(t, []string{"編集", "削除"}, labels(actions.RowActions(book{})))
}

func TestSameEntry(t *testing.T) {
	assert.True(t, actions.Add("/x").SameEntry(actions.Link("x", "/x")))
	assert.False(t, actions.Divider().SameEntry(actions.Divider()))
}
