package perspective

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/crudkit/internal/model"
)

// Group is a run of rows sharing one grouping key.
type Group[T model.Record] struct {
	Key     any
	Grouper any
	Rows    []T
}

// GroupRows groups rows by field. Rows are always re-sorted by the key first (stable, so the
// incoming order survives inside a group) because grouping only merges adjacent rows.
func GroupRows[T model.Record](rows []T, field string, meta *model.Meta) []Group[T] {
	sorted := make([]T, len(rows))
	copy(sorted, rows)

	col := collate.New(language.Japanese)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareValues(col, sorted[i].FieldValue(field), sorted[j].FieldValue(field)) < 0
	})

	var groups []Group[T]
	for _, row := range sorted {
		key := row.FieldValue(field)
		if n := len(groups); n > 0 && sameKey(groups[n-1].Key, key) {
			groups[n-1].Rows = append(groups[n-1].Rows, row)
			continue
		}
		groups = append(groups, Group[T]{Key: key, Rows: []T{row}})
	}
	for i := range groups {
		groups[i].Grouper = groupLabel(meta, field, groups[i].Key, groups[i].Rows)
	}
	return groups
}

func groupLabel[T model.Record](meta *model.Meta, field string, key any, rows []T) any {
	f, declared := meta.Field(field)
	if !declared {
		return rows[0].FieldValue(field)
	}
	if !f.HasChoices() {
		return key
	}
	if label, ok := f.ChoiceLabel(key); ok {
		return label
	}
	return key
}

func sameKey(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == tb && ta.Comparable() {
		return a == b
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compareValues orders nil first, then by natural order for scalars and by collated text
// for everything else.
func compareValues(col *collate.Collator, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case bool:
		if bv, ok := b.(bool); ok {
			return compareBool(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return col.CompareString(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return col.CompareString(fmt.Sprint(a), fmt.Sprint(b))
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
