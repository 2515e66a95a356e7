// Package menu composes the contextual navbar of every generic view from the capabilities a
// model opts into.
package menu

import (
	"fmt"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/shared"
)

// ListURLer is implemented by models with a collection page.
type ListURLer interface{ ListURL() string }

// AddURLer is implemented by models with an add form.
type AddURLer interface{ AddURL() string }

// BulkAddURLer is implemented by models with a bulk add form.
type BulkAddURLer interface{ BulkAddURL() string }

// SortURLer is implemented by sortable models.
type SortURLer interface{ SortURL() string }

// FilterURLer is implemented by models with a search form.
type FilterURLer interface{ FilterURL() string }

// LatestYearURLer is implemented by models with a yearly archive.
type LatestYearURLer interface{ LatestYearURL() string }

// LatestMonthURLer is implemented by models with a monthly archive.
type LatestMonthURLer interface{ LatestMonthURL() string }

// ModelTopLinker lets a model replace its list link as the landing entry of non-list pages.
type ModelTopLinker interface{ ModelTopLink() actions.Action }

// Capabilities records which optional URLs a model exposes. It is discovered once per menu.
type Capabilities struct {
	List        ListURLer
	Add         AddURLer
	BulkAdd     BulkAddURLer
	Sort        SortURLer
	Filter      FilterURLer
	LatestYear  LatestYearURLer
	LatestMonth LatestMonthURLer
	TopLink     ModelTopLinker
}

// Discover probes m for every optional capability.
func Discover(m model.Model) Capabilities {
	var c Capabilities
	c.List, _ = m.(ListURLer)
	c.Add, _ = m.(AddURLer)
	c.BulkAdd, _ = m.(BulkAddURLer)
	c.Sort, _ = m.(SortURLer)
	c.Filter, _ = m.(FilterURLer)
	c.LatestYear, _ = m.(LatestYearURLer)
	c.LatestMonth, _ = m.(LatestMonthURLer)
	c.TopLink, _ = m.(ModelTopLinker)
	return c
}

// AddLink builds "<name>を追加" for m.
func AddLink(m model.Model) (actions.Action, error) {
	v, ok := m.(AddURLer)
	if !ok {
		return actions.Action{}, missing(m, "AddURL")
	}
	return actions.AddFunc(model.VerboseName(m)+"を追加", v.AddURL), nil
}

// BulkAddLink builds "<name>を一括追加" for m.
func BulkAddLink(m model.Model) (actions.Action, error) {
	v, ok := m.(BulkAddURLer)
	if !ok {
		return actions.Action{}, missing(m, "BulkAddURL")
	}
	return actions.BulkAddFunc(model.VerboseName(m)+"を一括追加", v.BulkAddURL), nil
}

// ListLink builds the link to the collection page of m. An empty label means "<name>一覧".
func ListLink(m model.Model, label string) (actions.Action, error) {
	v, ok := m.(ListURLer)
	if !ok {
		return actions.Action{}, missing(m, "ListURL")
	}
	if label == "" {
		label = model.VerboseName(m) + "一覧"
	}
	return actions.LinkFunc(label, v.ListURL), nil
}

// SortLink builds "<name>をソート" for m.
func SortLink(m model.Model) (actions.Action, error) {
	v, ok := m.(SortURLer)
	if !ok {
		return actions.Action{}, missing(m, "SortURL")
	}
	return actions.SortFunc(model.VerboseName(m)+"をソート", v.SortURL), nil
}

// FilterLink builds "<name>を検索" for m.
func FilterLink(m model.Model) (actions.Action, error) {
	v, ok := m.(FilterURLer)
	if !ok {
		return actions.Action{}, missing(m, "FilterURL")
	}
	return actions.SearchFunc(model.VerboseName(m)+"を検索", v.FilterURL), nil
}

// LatestYearLink builds "<name>(今年)" for m.
func LatestYearLink(m model.Model) (actions.Action, error) {
	v, ok := m.(LatestYearURLer)
	if !ok {
		return actions.Action{}, missing(m, "LatestYearURL")
	}
	return actions.LinkFunc(model.VerboseName(m)+"(今年)", v.LatestYearURL), nil
}

// LatestMonthLink builds "<name>(今月)" for m.
func LatestMonthLink(m model.Model) (actions.Action, error) {
	v, ok := m.(LatestMonthURLer)
	if !ok {
		return actions.Action{}, missing(m, "LatestMonthURL")
	}
	return actions.LinkFunc(model.VerboseName(m)+"(今月)", v.LatestMonthURL), nil
}

func missing(m model.Model, method string) error {
	return fmt.Errorf("menu: %T must implement %s() string: %w", m, method, shared.ErrNotImplemented)
}

// CRUDLMenu builds the navbar of each view kind of one model.
type CRUDLMenu struct {
	model   model.Model
	caps    Capabilities
	topLink actions.Action
	allMenu actions.List
}

// New builds the menu of m. topLink leads every navbar; allMenu is the site-wide submenu.
// The model must expose a list page or a model top link.
func New(m model.Model, topLink actions.Action, allMenu actions.List) (*CRUDLMenu, error) {
	if m == nil || m.Meta() == nil {
		return nil, fmt.Errorf("menu: model is required: %w", shared.ErrImproperlyConfigured)
	}
	caps := Discover(m)
	if caps.List == nil && caps.TopLink == nil {
		return nil, fmt.Errorf("menu: %T exposes neither ListURL nor ModelTopLink: %w", m, shared.ErrImproperlyConfigured)
	}
	return &CRUDLMenu{model: m, caps: caps, topLink: topLink, allMenu: allMenu}, nil
}

// Model returns the model the menu was built for.
func (c *CRUDLMenu) Model() model.Model { return c.model }

// Capabilities returns the discovered capability set.
func (c *CRUDLMenu) Capabilities() Capabilities { return c.caps }

// TopLink returns the leading entry of every navbar.
func (c *CRUDLMenu) TopLink() actions.Action { return c.topLink }

// ModelTopLink is the model's own landing entry, its list link unless overridden.
func (c *CRUDLMenu) ModelTopLink() actions.Action {
	if c.caps.TopLink != nil {
		return c.caps.TopLink.ModelTopLink()
	}
	link, _ := ListLink(c.model, "")
	return link
}

func (c *CRUDLMenu) listCommonLinks() []actions.Action {
	name := model.VerboseName(c.model)
	var out []actions.Action
	if c.caps.Add != nil {
		out = append(out, actions.AddFunc(name+"を追加", c.caps.Add.AddURL))
	}
	if c.caps.BulkAdd != nil {
		out = append(out, actions.BulkAddFunc(name+"を一括追加", c.caps.BulkAdd.BulkAddURL))
	}
	if c.caps.Sort != nil {
		out = append(out, actions.SortFunc(name+"をソート", c.caps.Sort.SortURL))
	}
	if c.caps.Filter != nil {
		out = append(out, actions.SearchFunc(name+"を検索", c.caps.Filter.FilterURL))
	}
	return out
}

func (c *CRUDLMenu) compose(head []actions.Action, extra []actions.Entry, tail actions.List) []actions.Entry {
	out := make([]actions.Entry, 0, len(head)+len(extra)+2)
	out = append(out, c.topLink)
	for _, a := range head {
		out = append(out, a)
	}
	out = append(out, extra...)
	return append(out, tail)
}

// ListNavbarLinks is the navbar of a collection page. The all-menu never repeats the list link.
func (c *CRUDLMenu) ListNavbarLinks(extra ...actions.Entry) []actions.Entry {
	tail := c.allMenu
	if c.caps.List != nil {
		tail = c.allMenu.Subtract(actions.LinkFunc("", c.caps.List.ListURL))
	}
	return c.compose(c.listCommonLinks(), extra, tail)
}

// AddNavbarLinks is the navbar of single-object pages: one click back to the model's landing entry.
func (c *CRUDLMenu) AddNavbarLinks(extra ...actions.Entry) []actions.Entry {
	top := c.ModelTopLink()
	return c.compose([]actions.Action{top}, extra, c.allMenu.Subtract(top))
}

// DetailNavbarLinks is AddNavbarLinks.
func (c *CRUDLMenu) DetailNavbarLinks(extra ...actions.Entry) []actions.Entry {
	return c.AddNavbarLinks(extra...)
}

// EditNavbarLinks is AddNavbarLinks.
func (c *CRUDLMenu) EditNavbarLinks(extra ...actions.Entry) []actions.Entry {
	return c.AddNavbarLinks(extra...)
}

// DeleteNavbarLinks is AddNavbarLinks.
func (c *CRUDLMenu) DeleteNavbarLinks(extra ...actions.Entry) []actions.Entry {
	return c.AddNavbarLinks(extra...)
}

// SortNavbarLinks is AddNavbarLinks.
func (c *CRUDLMenu) SortNavbarLinks(extra ...actions.Entry) []actions.Entry {
	return c.AddNavbarLinks(extra...)
}

// SelectNavbarLinks is AddNavbarLinks.
func (c *CRUDLMenu) SelectNavbarLinks(extra ...actions.Entry) []actions.Entry {
	return c.AddNavbarLinks(extra...)
}

// BulkAddNavbarLinks is AddNavbarLinks.
func (c *CRUDLMenu) BulkAddNavbarLinks(extra ...actions.Entry) []actions.Entry {
	return c.AddNavbarLinks(extra...)
}

// FormsetNavbarLinks is AddNavbarLinks.
func (c *CRUDLMenu) FormsetNavbarLinks(extra ...actions.Entry) []actions.Entry {
	return c.AddNavbarLinks(extra...)
}

// FilterNavbarLinks is the navbar of a search page. The model must expose both add and list pages.
func (c *CRUDLMenu) FilterNavbarLinks(extra ...actions.Entry) ([]actions.Entry, error) {
	add, err := AddLink(c.model)
	if err != nil {
		return nil, err
	}
	list, err := ListLink(c.model, "")
	if err != nil {
		return nil, err
	}
	return c.compose([]actions.Action{add, list}, extra, c.allMenu.Subtract(list)), nil
}

// YearArchiveNavbarLinks is the navbar of a yearly archive. The page's own link stays in the all-menu.
func (c *CRUDLMenu) YearArchiveNavbarLinks(extra ...actions.Entry) []actions.Entry {
	links := c.listCommonLinks()
	if c.caps.LatestMonth != nil {
		links = append(links, actions.LinkFunc(model.VerboseName(c.model)+"(今月)", c.caps.LatestMonth.LatestMonthURL))
	}
	return c.compose(links, extra, c.allMenu)
}

// MonthArchiveNavbarLinks is the navbar of a monthly archive. The page's own link stays in the all-menu.
func (c *CRUDLMenu) MonthArchiveNavbarLinks(extra ...actions.Entry) []actions.Entry {
	links := c.listCommonLinks()
	if c.caps.LatestYear != nil {
		links = append(links, actions.LinkFunc(model.VerboseName(c.model)+"(今年)", c.caps.LatestYear.LatestYearURL))
	}
	return c.compose(links, extra, c.allMenu)
}
