package menu

import (
	"fmt"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/shared"
)

// DefaultAdminURL is the admin landing page used when none is configured.
const DefaultAdminURL = "/admin/"

// ViewKind selects the navbar recipe of a generic view.
type ViewKind string

const (
	ViewList         ViewKind = "list"
	ViewDetail       ViewKind = "detail"
	ViewAdd          ViewKind = "add"
	ViewEdit         ViewKind = "edit"
	ViewDelete       ViewKind = "delete"
	ViewSort         ViewKind = "sort"
	ViewSelect       ViewKind = "select"
	ViewBulkAdd      ViewKind = "bulk_add"
	ViewFormset      ViewKind = "formset"
	ViewFilter       ViewKind = "filter"
	ViewYearArchive  ViewKind = "year_archive"
	ViewMonthArchive ViewKind = "month_archive"
	ViewTemplate     ViewKind = "template"
)

// LinkToAdmin is the fallback navbar: a single link back to the admin site.
func LinkToAdmin(url string) actions.Action {
	if url == "" {
		url = DefaultAdminURL
	}
	return actions.Link("管理画面", url)
}

// Divider separates groups inside a submenu.
var Divider = actions.Divider()

// Navbar is the navbar configuration of a view. Menu wins over Links; with neither the navbar
// links back to the admin site.
type Navbar struct {
	Menu      *CRUDLMenu
	ExtraMenu []actions.Entry
	// Links is an Action, a List, []actions.Action, []actions.Entry or []any nesting those.
	Links any
}

// Item is a render-ready navbar slot.
type Item struct {
	Action     actions.Action
	Submenus   []actions.Action
	HasSubmenu bool
}

// Resolve computes the navbar value of a view of the given kind.
func (n Navbar) Resolve(kind ViewKind, adminURL string) (any, error) {
	if n.Menu != nil {
		return n.Menu.Links(kind, n.ExtraMenu...)
	}
	if n.Links != nil {
		return n.Links, nil
	}
	return LinkToAdmin(adminURL), nil
}

// Items resolves and normalizes the navbar in one step.
func (n Navbar) Items(kind ViewKind, adminURL string) ([]Item, error) {
	v, err := n.Resolve(kind, adminURL)
	if err != nil {
		return nil, err
	}
	return Normalize(v)
}

// Links dispatches to the recipe of kind.
func (c *CRUDLMenu) Links(kind ViewKind, extra ...actions.Entry) ([]actions.Entry, error) {
	switch kind {
	case ViewList:
		return c.ListNavbarLinks(extra...), nil
	case ViewDetail, ViewAdd, ViewEdit, ViewDelete, ViewSort, ViewSelect, ViewBulkAdd, ViewFormset:
		return c.AddNavbarLinks(extra...), nil
	case ViewFilter:
		return c.FilterNavbarLinks(extra...)
	case ViewYearArchive:
		return c.YearArchiveNavbarLinks(extra...), nil
	case ViewMonthArchive:
		return c.MonthArchiveNavbarLinks(extra...), nil
	}
	return nil, fmt.Errorf("menu: no navbar recipe for %q views: %w", kind, shared.ErrImproperlyConfigured)
}

// Normalize flattens a navbar value into render-ready items. A bare Action yields one item;
// nested sequences become submenus. Anything else is a configuration error.
func Normalize(v any) ([]Item, error) {
	switch links := v.(type) {
	case nil:
		return nil, fmt.Errorf("menu: navbar links are not defined: %w", shared.ErrImproperlyConfigured)
	case actions.Action:
		return []Item{{Action: links}}, nil
	case actions.List:
		return actionItems(links), nil
	case []actions.Action:
		return actionItems(links), nil
	case []actions.Entry:
		items := make([]Item, 0, len(links))
		for _, e := range links {
			item, err := entryItem(e)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case []any:
		items := make([]Item, 0, len(links))
		for _, e := range links {
			item, err := entryItem(e)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}
	return nil, fmt.Errorf("menu: navbar links must be an Action or a sequence of actions, got %T: %w", v, shared.ErrImproperlyConfigured)
}

func actionItems(links []actions.Action) []Item {
	items := make([]Item, len(links))
	for i, a := range links {
		items[i] = Item{Action: a}
	}
	return items
}

func entryItem(e any) (Item, error) {
	switch v := e.(type) {
	case actions.Action:
		return Item{Action: v}, nil
	case actions.List:
		return Item{Submenus: v, HasSubmenu: true}, nil
	case []actions.Action:
		return Item{Submenus: v, HasSubmenu: true}, nil
	}
	return Item{}, fmt.Errorf("menu: navbar entry must be an Action or a list of actions, got %T: %w", e, shared.ErrImproperlyConfigured)
}
