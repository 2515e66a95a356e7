// Package model describes domain entities to the generic views: their declared fields,
// reverse relations and display names.
package model

// FieldKind is the storage type of a declared field.
type FieldKind int

const (
	KindChar FieldKind = iota
	KindText
	KindInteger
	KindDecimal
	KindBoolean
	KindDate
	KindDateTime
	KindURL
	KindForeignKey
)

// RelationKind distinguishes reverse relations.
type RelationKind int

const (
	OneToMany RelationKind = iota
	ManyToMany
)

// Choice is one entry of an enumerated field.
type Choice struct {
	Value any
	Label string
}

// Field describes a declared column in declaration order.
type Field struct {
	Name        string
	VerboseName string
	Kind        FieldKind
	MaxLength   int
	Choices     []Choice
	// ParentLink marks the link from an inheriting model to its parent row.
	ParentLink bool
	// AutoCreated fields (primary keys, timestamps) never appear on forms.
	AutoCreated bool
	Required    bool
	// Validate holds extra validator rules such as "url" or "gte=0".
	Validate string
}

// ChoiceLabel maps a stored value through the field's choices.
func (f Field) ChoiceLabel(value any) (string, bool) {
	for _, c := range f.Choices {
		if c.Value == value {
			return c.Label, true
		}
	}
	return "", false
}

// HasChoices reports whether the field is enumerated.
func (f Field) HasChoices() bool {
	return len(f.Choices) > 0
}

// Relation describes a reverse relation: another model pointing at this one.
type Relation struct {
	Name               string
	Accessor           string
	RelatedVerboseName string
	Kind               RelationKind
	ParentLink         bool
}

// Meta is the declaration of a model.
type Meta struct {
	Name        string
	VerboseName string
	Fields      []Field
	Relations   []Relation
}

// Field looks up a declared field by name.
func (m *Meta) Field(name string) (Field, bool) {
	if m == nil {
		return Field{}, false
	}
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FormFields lists the fields an automatically built form edits.
func (m *Meta) FormFields() []Field {
	if m == nil {
		return nil
	}
	out := make([]Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.AutoCreated {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FieldNames lists the names of fields.
func FieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Model is the type-level descriptor of an entity. Optional capabilities such as list or add
// URLs are separate interfaces a model opts into.
type Model interface {
	Meta() *Meta
}

// Record is one stored row as seen by generic views and templates.
type Record interface {
	PK() int64
	FieldValue(name string) any
}
