package perspective_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/crudkit/internal/perspective"
)

type row struct {
	id     int64
	values map[string]any
}

func (r row) PK() int64                  { return r.id }
func (r row) FieldValue(name string) any { return r.values[name] }

func TestGroupRowsResortsBeforeGrouping(t *testing.T) {
	rows := []row{
		{1, map[string]any{"genre": 2}},
		{2, map[string]any{"genre": 1}},
		{3, map[string]any{"genre": 2}},
		{4, map[string]any{"genre": 1}},
	}

	groups := perspective.GroupRows(rows, "genre", richMeta)

	require.Len(t, groups, 2)
	assert.Equal(t, "小説", groups[0].Grouper)
	assert.Equal(t, []int64{2, 4}, ids(groups[0].Rows))
	assert.Equal(t, "漫画", groups[1].Grouper)
	assert.Equal(t, []int64{1, 3}, ids(groups[1].Rows))
}

func TestGroupRowsUnknownChoiceFallsBackToKey(t *testing.T) {
	rows := []row{{1, map[string]any{"genre": 9}}}

	groups := perspective.GroupRows(rows, "genre", richMeta)

	require.Len(t, groups, 1)
	assert.Equal(t, 9, groups[0].Grouper)
}

func TestGroupRowsFieldWithoutChoicesUsesKey(t *testing.T) {
	rows := []row{
		{1, map[string]any{"in_stock": true}},
		{2, map[string]any{"in_stock": false}},
	}

	groups := perspective.GroupRows(rows, "in_stock", richMeta)

	require.Len(t, groups, 2)
	assert.Equal(t, false, groups[0].Grouper)
	assert.Equal(t, true, groups[1].Grouper)
}

func TestGroupRowsUndeclaredAttributeReadsFirstRow(t *testing.T) {
	rows := []row{
		{1, map[string]any{"shelf": "B"}},
		{2, map[string]any{"shelf": "A"}},
		{3, map[string]any{"shelf": "B"}},
	}

	groups := perspective.GroupRows(rows, "shelf", richMeta)

	require.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].Grouper)
	assert.Equal(t, "B", groups[1].Grouper)
	assert.Equal(t, []int64{1, 3}, ids(groups[1].Rows))
}

func TestGroupRowsNilKeysFirst(t *testing.T) {
	rows := []row{
		{1, map[string]any{"genre": 1}},
		{2, map[string]any{}},
	}

	groups := perspective.GroupRows(rows, "genre", richMeta)

	require.Len(t, groups, 2)
	assert.Nil(t, groups[0].Key)
	assert.Equal(t, []int64{2}, ids(groups[0].Rows))
}

func ids(rows []row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}
