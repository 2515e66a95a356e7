package actions

// Entry is one navbar slot: either a single Action or a List rendered as a submenu.
type Entry interface {
	isEntry()
}

// List is an ordered sequence of actions.
type List []Action

func (List) isEntry() {}

// NewList builds a List from the given actions.
func NewList(items ...Action) List {
	return List(items)
}

// Subtract drops every non-divider entry pointing at the same URL as other.
// Relative order is preserved and the receiver is left untouched.
func (l List) Subtract(other Action) List {
	out := make(List, 0, len(l))
	for _, a := range l {
		if a.IsDivider || a.URL() != other.URL() {
			out = append(out, a)
		}
	}
	return out
}

// URLs lists the resolved URL of each action.
func (l List) URLs() []string {
	urls := make([]string, len(l))
	for i, a := range l {
		urls[i] = a.URL()
	}
	return urls
}

// Contains reports whether a non-divider entry points at url.
func (l List) Contains(url string) bool {
	for _, a := range l {
		if !a.IsDivider && a.URL() == url {
			return true
		}
	}
	return false
}
