// Package actions models the clickable operations shown in navbars, row menus and button bars.
//
// An Action is a value: once built its label, icon and flags never change. URLs are resolved
// lazily so an action can be declared before the owning model or instance knows its routes.
package actions

// Kind identifies the variant an Action was built as.
type Kind string

const (
	KindPost    Kind = "post"
	KindLink    Kind = "link"
	KindAdd     Kind = "add"
	KindBulkAdd Kind = "bulk_add"
	KindSort    Kind = "sort"
	KindSearch  Kind = "search"
	KindDetail  Kind = "detail"
	KindDelete  Kind = "delete"
	KindEdit    Kind = "edit"
	KindCopy    Kind = "copy"
	KindDivider Kind = "divider"
)

// Icon names map onto the icon set used by the templates.
const (
	IconAdd    = "plus-circle"
	IconCopy   = "copy"
	IconSearch = "search"
)

// Action is a single navigable menu entry.
type Action struct {
	Kind      Kind
	Label     string
	Icon      string
	IsDivider bool
	IsPost    bool
	IsDanger  bool

	href    string
	resolve func() string
}

// URL returns the target of the action, resolving it on first use.
func (a Action) URL() string {
	if a.resolve != nil {
		return a.resolve()
	}
	return a.href
}

// WithLabel returns a copy of the action carrying a different label.
func (a Action) WithLabel(label string) Action {
	a.Label = label
	return a
}

// SameEntry reports whether both actions point at the same menu entry.
// Dividers never match anything.
func (a Action) SameEntry(other Action) bool {
	if a.IsDivider || other.IsDivider {
		return false
	}
	return a.URL() == other.URL()
}

func (Action) isEntry() {}

// Post builds an action submitted with a POST form.
func Post(label, url string) Action {
	return Action{Kind: KindPost, Label: label, href: url, IsPost: true}
}

// Link builds a plain hyperlink.
func Link(label, url string) Action {
	return Action{Kind: KindLink, Label: label, href: url}
}

// LinkFunc builds a hyperlink whose URL is computed when rendered.
func LinkFunc(label string, url func() string) Action {
	return Action{Kind: KindLink, Label: label, resolve: url}
}

// Add builds the "追加" action.
func Add(url string) Action {
	return Action{Kind: KindAdd, Label: "追加", Icon: IconAdd, href: url}
}

// AddFunc is Add with a lazily computed URL.
func AddFunc(label string, url func() string) Action {
	return Action{Kind: KindAdd, Label: label, Icon: IconAdd, resolve: url}
}

// BulkAdd builds the "一括追加" action.
func BulkAdd(url string) Action {
	return Action{Kind: KindBulkAdd, Label: "一括追加", href: url}
}

// BulkAddFunc is BulkAdd with a lazily computed URL.
func BulkAddFunc(label string, url func() string) Action {
	return Action{Kind: KindBulkAdd, Label: label, resolve: url}
}

// Sort builds the "ソート" action.
func Sort(url string) Action {
	return Action{Kind: KindSort, Label: "ソート", href: url}
}

// SortFunc is Sort with a lazily computed URL.
func SortFunc(label string, url func() string) Action {
	return Action{Kind: KindSort, Label: label, resolve: url}
}

// Search builds the "検索" action.
func Search(url string) Action {
	return Action{Kind: KindSearch, Label: "検索", Icon: IconSearch, href: url}
}

// SearchFunc is Search with a lazily computed URL.
func SearchFunc(label string, url func() string) Action {
	return Action{Kind: KindSearch, Label: label, Icon: IconSearch, resolve: url}
}

// Divider separates groups of entries inside a submenu.
func Divider() Action {
	return Action{Kind: KindDivider, IsDivider: true}
}

// Detail links to the canonical page of instance.
func Detail(instance AbsoluteURLer) Action {
	return Action{Kind: KindDetail, Label: "詳細", resolve: instance.AbsoluteURL}
}

// Edit links to the edit form of instance.
func Edit(instance EditURLer) Action {
	return Action{Kind: KindEdit, Label: "編集", resolve: instance.EditURL}
}

// Delete links to the delete confirmation of instance.
func Delete(instance DeleteURLer) Action {
	return Action{Kind: KindDelete, Label: "削除", IsDanger: true, resolve: instance.DeleteURL}
}

// Copy links to an add form pre-filled from instance.
func Copy(instance CopyURLer) Action {
	return Action{Kind: KindCopy, Label: "複製", Icon: IconCopy, resolve: instance.CopyURL}
}
