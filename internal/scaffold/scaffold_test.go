package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	cases := []struct {
		arg  string
		want Field
	}{
		{"name:str", Field{Name: "name", Type: TypeStr}},
		{"created_at", Field{Name: "created_at", Type: TypeCreatedAt}},
		{"updated_at", Field{Name: "updated_at", Type: TypeUpdatedAt}},
		{"url", Field{Name: "url", Type: TypeURL}},
		{"start_date:date", Field{Name: "start_date", Type: TypeDate}},
		{"start_time:datetime", Field{Name: "start_time", Type: TypeDateTime}},
		{"note:text", Field{Name: "note", Type: TypeText}},
		{"is_active:bool", Field{Name: "is_active", Type: TypeBool}},
		{"pages:int", Field{Name: "pages", Type: TypeInt}},
	}
	for _, tc := range cases {
		t.Run(tc.arg, func(t *testing.T) {
			got, err := ParseField(tc.arg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseFieldRejectsUnknownType(t *testing.T) {
	_, err := ParseField("price:money")
	assert.ErrorIs(t, err, ErrUnknownFieldType)

	_, err = ParseField("price")
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestFieldDeclarations(t *testing.T) {
	cases := map[string]string{
		"name:str":            `{Name: "name", VerboseName: "name", Kind: model.KindChar, MaxLength: 100, Required: true}`,
		"created_at":          `{Name: "created_at", VerboseName: "作成日時", Kind: model.KindDateTime, AutoCreated: true}`,
		"updated_at":          `{Name: "updated_at", VerboseName: "更新日時", Kind: model.KindDateTime, AutoCreated: true}`,
		"url":                 `{Name: "url", VerboseName: "URL", Kind: model.KindURL, MaxLength: 200, Validate: "omitempty,url"}`,
		"start_date:date":     `{Name: "start_date", VerboseName: "start_date", Kind: model.KindDate}`,
		"start_time:datetime": `{Name: "start_time", VerboseName: "start_time", Kind: model.KindDateTime}`,
		"note:text":           `{Name: "note", VerboseName: "note", Kind: model.KindText}`,
		"is_active:bool":      `{Name: "is_active", VerboseName: "is_active", Kind: model.KindBoolean}`,
	}
	for arg, want := range cases {
		t.Run(arg, func(t *testing.T) {
			f, err := ParseField(arg)
			require.NoError(t, err)
			files, err := Generate(Definition{Package: "internal/foo", Model: "Foo", Fields: []Field{f}})
			require.NoError(t, err)
			assert.Contains(t, string(files[0].Content), want)
		})
	}
}

func TestGenerate(t *testing.T) {
	fields, err := ParseFields([]string{"title:str", "issued_on:date", "url", "is_active:bool"})
	require.NoError(t, err)
	files, err := Generate(Definition{Package: "internal/book_reviews", Model: "BookReview", Fields: fields})
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	if diff := cmp.Diff([]string{
		"internal/book_reviews/models.go",
		"internal/book_reviews/routes.go",
		"internal/book_reviews/models_test.go",
	}, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	models := string(files[0].Content)
	assert.True(t, strings.HasPrefix(models, "package bookreviews\n"))
	assert.Contains(t, models, `const Prefix = "/book-reviews"`)
	assert.Contains(t, models, `Name:        "book_review",`)
	assert.Contains(t, models, "type BookReviewModel struct{}")
	assert.Contains(t, models, "IssuedOn time.Time")
	assert.Contains(t, models, "URL      string")
	assert.Contains(t, models, "return x.Title")
	assert.Contains(t, models, `x.IsActive, _ = v["is_active"].(bool)`)

	routes := string(files[1].Content)
	assert.Contains(t, routes, "generic.NewListView(deps, generic.ListConfig[BookReview]{Options: opts, Store: s})")
	assert.Contains(t, routes, "generic.NewDeleteView(deps, generic.DeleteConfig[BookReview]{Options: opts, Store: s, Tx: tx})")
	assert.Contains(t, routes, `r.Handle("/{pk}/edit/", edit)`)

	tests := string(files[2].Content)
	assert.Contains(t, tests, "func TestBookReviewURLs(t *testing.T)")
	assert.Contains(t, tests, "func TestBookReviewMemoryStore(t *testing.T)")
}

func TestGenerateWithoutTimeFieldsSkipsTimeImport(t *testing.T) {
	files, err := Generate(Definition{Package: "foo", Model: "Foo", Fields: []Field{{Name: "note", Type: TypeText}}})
	require.NoError(t, err)
	models := string(files[0].Content)
	assert.NotContains(t, models, `"time"`)
	assert.Contains(t, models, `return fmt.Sprintf("Foo #%d", x.ID)`)
}

func TestValidate(t *testing.T) {
	ok := []Field{{Name: "name", Type: TypeStr}}
	cases := map[string]Definition{
		"absolute package": {Package: "/tmp/foo", Model: "Foo", Fields: ok},
		"escaping package": {Package: "../foo", Model: "Foo", Fields: ok},
		"bad package name": {Package: "internal/Foo", Model: "Foo", Fields: ok},
		"unexported model": {Package: "foo", Model: "foo", Fields: ok},
		"no fields":        {Package: "foo", Model: "Foo"},
		"reserved id":      {Package: "foo", Model: "Foo", Fields: []Field{{Name: "id", Type: TypeInt}}},
		"duplicate field":  {Package: "foo", Model: "Foo", Fields: []Field{ok[0], ok[0]}},
		"bad field name":   {Package: "foo", Model: "Foo", Fields: []Field{{Name: "Name", Type: TypeStr}}},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, d.Validate(), ErrInvalidDefinition)
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	src := `
- package: internal/magazines
  model: Magazine
  fields: [title:str, issued_on:date, url, created_at]
- package: internal/notes
  model: Note
  fields: [body:text]
`
	defs, err := LoadDefinitions(strings.NewReader(src))
	require.NoError(t, err)
	want := []Definition{
		{Package: "internal/magazines", Model: "Magazine", Fields: []Field{
			{Name: "title", Type: TypeStr},
			{Name: "issued_on", Type: TypeDate},
			{Name: "url", Type: TypeURL},
			{Name: "created_at", Type: TypeCreatedAt},
		}},
		{Package: "internal/notes", Model: "Note", Fields: []Field{{Name: "body", Type: TypeText}}},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Fatalf("definitions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefinitionsErrors(t *testing.T) {
	_, err := LoadDefinitions(strings.NewReader("- package: foo\n  model: Foo\n  fields: [price:money]\n"))
	assert.ErrorIs(t, err, ErrUnknownFieldType)

	_, err = LoadDefinitions(strings.NewReader("- package: foo\n  model: Foo\n  colour: red\n"))
	assert.Error(t, err, "unknown keys are rejected")

	defs, err := LoadDefinitions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestWrite(t *testing.T) {
	root := t.TempDir()
	files, err := Generate(Definition{Package: "internal/foo", Model: "Foo", Fields: []Field{{Name: "name", Type: TypeStr}}})
	require.NoError(t, err)

	require.NoError(t, Write(root, files, false))
	got, err := os.ReadFile(filepath.Join(root, "internal", "foo", "models.go"))
	require.NoError(t, err)
	assert.Equal(t, files[0].Content, got)

	assert.ErrorIs(t, Write(root, files, false), ErrExists)
	assert.NoError(t, Write(root, files, true))
}
