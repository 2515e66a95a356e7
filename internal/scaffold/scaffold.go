// Package scaffold generates the skeleton of a new CRUDL package: a model declaration, its
// routes over the generic views and a starter test.
package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"unicode"
)

var (
	// ErrUnknownFieldType is returned for a field argument whose type is not supported.
	ErrUnknownFieldType = errors.New("unknown field type")
	// ErrInvalidDefinition marks a malformed package, model or field name.
	ErrInvalidDefinition = errors.New("invalid definition")
	// ErrExists is returned when a generated file would overwrite an existing one.
	ErrExists = errors.New("file exists")
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))

var (
	fieldName   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	modelName   = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	packageBase = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// FieldType is the type token of a field argument.
type FieldType string

const (
	TypeStr       FieldType = "str"
	TypeText      FieldType = "text"
	TypeInt       FieldType = "int"
	TypeBool      FieldType = "bool"
	TypeDate      FieldType = "date"
	TypeDateTime  FieldType = "datetime"
	TypeURL       FieldType = "url"
	TypeCreatedAt FieldType = "created_at"
	TypeUpdatedAt FieldType = "updated_at"
)

// Field is one declared field of the generated model.
type Field struct {
	Name string
	Type FieldType
}

// ParseField reads a name:type argument. The bare names created_at, updated_at and url declare
// their conventional fields.
func ParseField(arg string) (Field, error) {
	switch arg {
	case "created_at":
		return Field{Name: arg, Type: TypeCreatedAt}, nil
	case "updated_at":
		return Field{Name: arg, Type: TypeUpdatedAt}, nil
	case "url":
		return Field{Name: arg, Type: TypeURL}, nil
	}
	name, typ, ok := strings.Cut(arg, ":")
	if !ok {
		return Field{}, fmt.Errorf("scaffold: field %q: expected name:type: %w", arg, ErrInvalidDefinition)
	}
	f := Field{Name: name, Type: FieldType(typ)}
	switch f.Type {
	case TypeStr, TypeText, TypeInt, TypeBool, TypeDate, TypeDateTime:
		return f, nil
	}
	return Field{}, fmt.Errorf("scaffold: %s: %w", typ, ErrUnknownFieldType)
}

// ParseFields parses every argument.
func ParseFields(args []string) ([]Field, error) {
	out := make([]Field, 0, len(args))
	for _, a := range args {
		f, err := ParseField(a)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Definition is one package to generate.
type Definition struct {
	// Package is the directory of the new package relative to the module root, such as
	// internal/magazines.
	Package string
	Model   string
	Fields  []Field
}

// Validate checks names before anything is rendered.
func (d Definition) Validate() error {
	clean := path.Clean(filepath.ToSlash(d.Package))
	if d.Package == "" || path.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("scaffold: package %q must be a relative directory: %w", d.Package, ErrInvalidDefinition)
	}
	if !packageBase.MatchString(path.Base(clean)) {
		return fmt.Errorf("scaffold: package %q: %w", d.Package, ErrInvalidDefinition)
	}
	if !modelName.MatchString(d.Model) {
		return fmt.Errorf("scaffold: model %q must be an exported identifier: %w", d.Model, ErrInvalidDefinition)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("scaffold: %s needs at least one field: %w", d.Model, ErrInvalidDefinition)
	}
	seen := map[string]bool{"id": true}
	for _, f := range d.Fields {
		if !fieldName.MatchString(f.Name) {
			return fmt.Errorf("scaffold: field %q: %w", f.Name, ErrInvalidDefinition)
		}
		if seen[f.Name] {
			return fmt.Errorf("scaffold: field %q declared twice: %w", f.Name, ErrInvalidDefinition)
		}
		seen[f.Name] = true
	}
	return nil
}

// File is a generated source file.
type File struct {
	// Path is relative to the module root.
	Path    string
	Content []byte
}

// Generate renders the package described by d.
func Generate(d Definition) ([]File, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	data := newTemplateData(d)
	dir := path.Clean(filepath.ToSlash(d.Package))
	var files []File
	for _, name := range []string{"models.go", "routes.go", "models_test.go"} {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
			return nil, fmt.Errorf("scaffold: render %s: %w", name, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("scaffold: format %s: %w", name, err)
		}
		files = append(files, File{Path: path.Join(dir, name), Content: src})
	}
	return files, nil
}

// Write stores files under root. Existing files are kept unless force is set.
func Write(root string, files []File, force bool) error {
	if !force {
		for _, f := range files {
			target := filepath.Join(root, filepath.FromSlash(f.Path))
			if _, err := os.Stat(target); err == nil {
				return fmt.Errorf("scaffold: %s: %w", f.Path, ErrExists)
			}
		}
	}
	for _, f := range files {
		target := filepath.Join(root, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("scaffold: %w", err)
		}
		if err := os.WriteFile(target, f.Content, 0o644); err != nil {
			return fmt.Errorf("scaffold: %w", err)
		}
	}
	return nil
}

type templateField struct {
	Name   string
	GoName string
	GoType string
	// Literal is the model.Field declaration.
	Literal string
}

type templateData struct {
	PackageName string
	URLPrefix   string
	Model       string
	LowerModel  string
	SnakeModel  string
	Display     string
	NeedsTime   bool
	Fields      []templateField
}

func newTemplateData(d Definition) templateData {
	base := path.Base(path.Clean(filepath.ToSlash(d.Package)))
	data := templateData{
		PackageName: strings.NewReplacer("_", "", "-", "").Replace(base),
		URLPrefix:   "/" + strings.ReplaceAll(base, "_", "-"),
		Model:       d.Model,
		LowerModel:  lowerFirst(d.Model),
		SnakeModel:  snake(d.Model),
	}
	for _, f := range d.Fields {
		tf := templateField{Name: f.Name, GoName: goName(f.Name)}
		switch f.Type {
		case TypeStr:
			tf.GoType = "string"
			tf.Literal = fmt.Sprintf(`{Name: %q, VerboseName: %q, Kind: model.KindChar, MaxLength: 100, Required: true}`, f.Name, f.Name)
			if data.Display == "" {
				data.Display = tf.GoName
			}
		case TypeText:
			tf.GoType = "string"
			tf.Literal = fmt.Sprintf(`{Name: %q, VerboseName: %q, Kind: model.KindText}`, f.Name, f.Name)
		case TypeInt:
			tf.GoType = "int64"
			tf.Literal = fmt.Sprintf(`{Name: %q, VerboseName: %q, Kind: model.KindInteger}`, f.Name, f.Name)
		case TypeBool:
			tf.GoType = "bool"
			tf.Literal = fmt.Sprintf(`{Name: %q, VerboseName: %q, Kind: model.KindBoolean}`, f.Name, f.Name)
		case TypeDate:
			tf.GoType = "time.Time"
			tf.Literal = fmt.Sprintf(`{Name: %q, VerboseName: %q, Kind: model.KindDate}`, f.Name, f.Name)
		case TypeDateTime:
			tf.GoType = "time.Time"
			tf.Literal = fmt.Sprintf(`{Name: %q, VerboseName: %q, Kind: model.KindDateTime}`, f.Name, f.Name)
		case TypeURL:
			tf.GoType = "string"
			tf.Literal = fmt.Sprintf(`{Name: %q, VerboseName: "URL", Kind: model.KindURL, MaxLength: 200, Validate: "omitempty,url"}`, f.Name)
		case TypeCreatedAt:
			tf.GoType = "time.Time"
			tf.Literal = fmt.Sprintf(`{Name: %q, VerboseName: "作成日時", Kind: model.KindDateTime, AutoCreated: true}`, f.Name)
		case TypeUpdatedAt:
			tf.GoType = "time.Time"
			tf.Literal = fmt.Sprintf(`{Name: %q, VerboseName: "更新日時", Kind: model.KindDateTime, AutoCreated: true}`, f.Name)
		}
		if tf.GoType == "time.Time" {
			data.NeedsTime = true
		}
		data.Fields = append(data.Fields, tf)
	}
	return data
}

var initialisms = map[string]string{"id": "ID", "url": "URL", "uuid": "UUID", "http": "HTTP", "api": "API"}

// goName turns a snake_case field name into an exported Go name.
func goName(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		if up, ok := initialisms[part]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

func snake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
