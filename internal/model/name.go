package model

// Unset is shown when a view has neither an explicit label nor a model.
const Unset = "未設定"

// ObjectName resolves the display name of a single object page.
func ObjectName(label string, m Model) string {
	if label != "" {
		return label
	}
	if m != nil && m.Meta() != nil {
		return m.Meta().VerboseName
	}
	return Unset
}

// ObjectListName resolves the display name of a collection page.
func ObjectListName(label string, m Model) string {
	if label != "" {
		return label
	}
	if m != nil && m.Meta() != nil {
		return m.Meta().VerboseName + "一覧"
	}
	return Unset
}

// VerboseName returns the model's verbose name or the empty string.
func VerboseName(m Model) string {
	if m == nil || m.Meta() == nil {
		return ""
	}
	return m.Meta().VerboseName
}
