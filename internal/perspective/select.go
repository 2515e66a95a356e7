package perspective

// Selection is the per-request perspective state of a view.
type Selection struct {
	// Available are the derived perspectives, without the synthetic default.
	Available []Perspective
	// Active is nil when the natural ordering applies.
	Active *Perspective
	// Others are the perspectives offered as alternatives to the active one.
	Others []Perspective
	// ObjectName is the page title: the active perspective's label or the fallback name.
	ObjectName string
}

// Select resolves key against available by exact match. An empty key falls back to
// defaultKey, then to DefaultKey. Nothing is selected when available is empty or no key matches.
func Select(available []Perspective, key, defaultKey string) *Perspective {
	if len(available) == 0 {
		return nil
	}
	if key == "" {
		key = defaultKey
	}
	if key == "" {
		key = DefaultKey
	}
	for i := range available {
		if available[i].Key == key {
			p := available[i]
			return &p
		}
	}
	return nil
}

// Others lists the default perspective followed by available, minus the active one
// (or minus the default when none is active). Only the first equal entry is removed.
func Others(available []Perspective, active *Perspective, objectName string) []Perspective {
	def := Default(objectName)
	all := make([]Perspective, 0, len(available)+1)
	all = append(all, def)
	all = append(all, available...)

	target := def
	if active != nil {
		target = *active
	}
	for i, p := range all {
		if p == target {
			return append(all[:i:i], all[i+1:]...)
		}
	}
	return all
}

// Resolve builds the full selection for a request.
func Resolve(available []Perspective, key, defaultKey, objectName string) Selection {
	active := Select(available, key, defaultKey)
	name := objectName
	if active != nil {
		name = active.ObjectName
	}
	return Selection{
		Available:  available,
		Active:     active,
		Others:     Others(available, active, objectName),
		ObjectName: name,
	}
}

// DisplayAs returns the layout of the selection.
func (s Selection) DisplayAs() Kind {
	return DisplayAs(s.Active)
}

// ActiveKey returns the key of the active perspective or DefaultKey.
func (s Selection) ActiveKey() string {
	if s.Active == nil {
		return DefaultKey
	}
	return s.Active.Key
}
