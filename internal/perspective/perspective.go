// Package perspective derives alternate viewpoints of a collection (sort by a field, group by a
// field) or of a detail page (a related collection), and selects the active one per request.
package perspective

import (
	"fmt"

	"github.com/odyssey-erp/crudkit/internal/shared"
)

// DefaultKey names the synthetic perspective standing for the model's natural ordering.
const DefaultKey = "_default"

// QueryParam is the request parameter selecting a perspective.
const QueryParam = "perspective"

// Kind tells templates how to lay out rows.
type Kind string

const (
	KindList     Kind = "list"
	KindGrouping Kind = "grouping"
)

// Perspective is a named alternate view configuration. Values are comparable with ==.
type Perspective struct {
	Key        string
	ObjectName string
	Kind       Kind
	// OrderBy is set on sort perspectives.
	OrderBy string
	// GroupBy is set on local grouping perspectives.
	GroupBy string
	// Accessor is set on related perspectives and names the reverse collection.
	Accessor string
}

// Default builds the synthetic perspective for the natural ordering.
func Default(objectName string) Perspective {
	return Perspective{Key: DefaultKey, ObjectName: objectName, Kind: KindList}
}

// Sort builds a perspective ordering rows by field.
func Sort(key, objectName, field string) Perspective {
	return Perspective{Key: key, ObjectName: objectName, Kind: KindList, OrderBy: field}
}

// Grouping builds a perspective grouping rows by field.
func Grouping(key, objectName, field string) Perspective {
	return Perspective{Key: key, ObjectName: objectName, Kind: KindGrouping, GroupBy: field}
}

// Related builds a perspective showing the reverse collection reachable through accessor.
func Related(key, objectName, accessor string) Perspective {
	return Perspective{Key: key, ObjectName: objectName, Kind: KindGrouping, Accessor: accessor}
}

// IsSort reports whether p orders rows by a field.
func (p Perspective) IsSort() bool { return p.OrderBy != "" }

// IsGrouping reports whether p groups rows by a local field.
func (p Perspective) IsGrouping() bool { return p.GroupBy != "" }

// IsRelated reports whether p shows a related collection.
func (p Perspective) IsRelated() bool { return p.Accessor != "" }

// DisplayAs returns the layout for the active perspective, list when none is active.
func DisplayAs(active *Perspective) Kind {
	if active == nil {
		return KindList
	}
	return active.Kind
}

// GroupBy returns the grouping field of the active perspective.
func GroupBy(active *Perspective) (string, error) {
	if active == nil || !active.IsGrouping() {
		return "", fmt.Errorf("perspective: group_by requested outside a grouping perspective: %w", shared.ErrImproperlyConfigured)
	}
	return active.GroupBy, nil
}
