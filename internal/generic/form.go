package generic

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/store"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
	// maxFormsetForms bounds form-TOTAL_FORMS.
	maxFormsetForms = 1000
)

// OptionsFunc lists the selectable values of a foreign key field.
type OptionsFunc func(ctx context.Context) ([]model.Choice, error)

// CleanFunc validates a form as a whole. Returned errors are keyed by field name; the empty key
// holds form-wide errors.
type CleanFunc func(ctx context.Context, values store.Values) map[string]string

// FormSpec describes the fields a form edits.
type FormSpec struct {
	// Fields default to the model's editable fields.
	Fields  []model.Field
	Options map[string]OptionsFunc
	Clean   CleanFunc
}

func (s FormSpec) withModel(m model.Model) FormSpec {
	if len(s.Fields) == 0 && m != nil {
		s.Fields = m.Meta().FormFields()
	}
	return s
}

// Option is one entry of a select box.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// FormField is one rendered input.
type FormField struct {
	model.Field
	HTMLName string
	Value    string
	Checked  bool
	Options  []Option
	Error    string
}

// Form is a bound or unbound set of fields.
type Form struct {
	Prefix  string
	Fields  []*FormField
	Errors  []string
	bound   bool
	cleaned store.Values
}

// Valid reports whether the form was submitted without errors.
func (f *Form) Valid() bool {
	if f == nil || !f.bound || len(f.Errors) > 0 {
		return false
	}
	for _, fld := range f.Fields {
		if fld.Error != "" {
			return false
		}
	}
	return true
}

// Cleaned returns the typed values of a valid form.
func (f *Form) Cleaned() store.Values {
	out := make(store.Values, len(f.cleaned))
	for k, v := range f.cleaned {
		out[k] = v
	}
	return out
}

// Field looks up a field by name.
func (f *Form) Field(name string) *FormField {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld
		}
	}
	return nil
}

// empty reports whether nothing was typed into the form.
func (f *Form) empty() bool {
	for _, fld := range f.Fields {
		if fld.Value != "" || fld.Checked {
			return false
		}
	}
	return true
}

func htmlName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "-" + name
}

// formBuilder turns a FormSpec into forms for one request.
type formBuilder struct {
	spec     FormSpec
	validate *validator.Validate
	loc      *time.Location
}

func (fb formBuilder) options(ctx context.Context, f model.Field) ([]model.Choice, error) {
	if f.HasChoices() {
		return f.Choices, nil
	}
	if fn, ok := fb.spec.Options[f.Name]; ok {
		choices, err := fn(ctx)
		if err != nil {
			return nil, fmt.Errorf("generic: options for %s: %w", f.Name, err)
		}
		return choices, nil
	}
	return nil, nil
}

// unbound builds a form showing initial values.
func (fb formBuilder) unbound(ctx context.Context, prefix string, initial map[string]any) (*Form, error) {
	form := &Form{Prefix: prefix}
	for _, f := range fb.spec.Fields {
		fld := &FormField{Field: f, HTMLName: htmlName(prefix, f.Name)}
		if v, ok := initial[f.Name]; ok {
			fld.Value, fld.Checked = formatValue(v)
		}
		if err := fb.fillOptions(ctx, fld); err != nil {
			return nil, err
		}
		form.Fields = append(form.Fields, fld)
	}
	return form, nil
}

// bind parses and validates submitted values.
func (fb formBuilder) bind(ctx context.Context, prefix string, data url.Values) (*Form, error) {
	form := &Form{Prefix: prefix, bound: true, cleaned: store.Values{}}
	for _, f := range fb.spec.Fields {
		fld := &FormField{Field: f, HTMLName: htmlName(prefix, f.Name)}
		raw := strings.TrimSpace(data.Get(fld.HTMLName))
		if f.Kind == model.KindBoolean {
			fld.Checked = isChecked(raw)
		} else {
			fld.Value = raw
		}
		if err := fb.fillOptions(ctx, fld); err != nil {
			return nil, err
		}
		value, msg := fb.clean(fld, raw)
		if msg != "" {
			fld.Error = msg
		} else {
			form.cleaned[f.Name] = value
		}
		form.Fields = append(form.Fields, fld)
	}
	if fb.spec.Clean != nil && form.Valid() {
		for name, msg := range fb.spec.Clean(ctx, form.Cleaned()) {
			if fld := form.Field(name); fld != nil && name != "" {
				fld.Error = msg
				continue
			}
			form.Errors = append(form.Errors, msg)
		}
	}
	return form, nil
}

func (fb formBuilder) fillOptions(ctx context.Context, fld *FormField) error {
	choices, err := fb.options(ctx, fld.Field)
	if err != nil {
		return err
	}
	for _, c := range choices {
		v := fmt.Sprint(c.Value)
		fld.Options = append(fld.Options, Option{Value: v, Label: c.Label, Selected: v == fld.Value})
	}
	return nil
}

// clean converts raw into the field's type and validates it. A non-empty message is a user error.
func (fb formBuilder) clean(fld *FormField, raw string) (any, string) {
	f := fld.Field
	if f.Kind == model.KindBoolean {
		return fld.Checked, ""
	}
	if raw == "" {
		if f.Required {
			return nil, "この項目は必須です。"
		}
		if f.Kind == model.KindChar || f.Kind == model.KindText || f.Kind == model.KindURL {
			return "", ""
		}
		return nil, ""
	}

	if len(fld.Options) > 0 {
		for _, c := range fb.choicesOf(fld) {
			if fmt.Sprint(c.Value) == raw {
				return c.Value, ""
			}
		}
		return nil, "正しく選択してください。"
	}

	switch f.Kind {
	case model.KindInteger, model.KindForeignKey:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, "整数を入力してください。"
		}
		return n, fb.check(n, rules(f, false))
	case model.KindDecimal:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, "数値を入力してください。"
		}
		return n, fb.check(n, rules(f, false))
	case model.KindDate:
		t, err := time.ParseInLocation(dateLayout, raw, fb.loc)
		if err != nil {
			return nil, "日付を正しく入力してください。"
		}
		return t, ""
	case model.KindDateTime:
		t, err := time.ParseInLocation(dateTimeLayout, raw, fb.loc)
		if err != nil {
			return nil, "日時を正しく入力してください。"
		}
		return t, ""
	case model.KindURL:
		return raw, fb.check(raw, joinRules(rules(f, true), "url"))
	}
	return raw, fb.check(raw, rules(f, true))
}

func (fb formBuilder) choicesOf(fld *FormField) []model.Choice {
	if fld.HasChoices() {
		return fld.Choices
	}
	out := make([]model.Choice, len(fld.Options))
	for i, o := range fld.Options {
		out[i] = model.Choice{Value: o.Value, Label: o.Label}
		if n, err := strconv.ParseInt(o.Value, 10, 64); err == nil {
			out[i].Value = n
		}
	}
	return out
}

func rules(f model.Field, text bool) string {
	var tags []string
	if text && f.MaxLength > 0 {
		tags = append(tags, "max="+strconv.Itoa(f.MaxLength))
	}
	if f.Validate != "" {
		tags = append(tags, f.Validate)
	}
	return strings.Join(tags, ",")
}

func joinRules(a, b string) string {
	if a == "" {
		return b
	}
	return a + "," + b
}

func (fb formBuilder) check(value any, tag string) string {
	if tag == "" {
		return ""
	}
	err := fb.validate.Var(value, tag)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "入力値が正しくありません。"
	}
	return validationMessage(verrs[0])
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "この項目は必須です。"
	case "max":
		return fe.Param() + "文字以下で入力してください。"
	case "min":
		return fe.Param() + "文字以上で入力してください。"
	case "url":
		return "URLを正しく入力してください。"
	case "email":
		return "メールアドレスを正しく入力してください。"
	case "gte":
		return fe.Param() + "以上の値を入力してください。"
	case "lte":
		return fe.Param() + "以下の値を入力してください。"
	}
	return "入力値が正しくありません。"
}

func isChecked(raw string) bool {
	switch strings.ToLower(raw) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// formatValue renders an initial value as the text an input shows.
func formatValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case bool:
		return "", x
	case string:
		return x, false
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		return x.Format(dateLayout), false
	case model.Record:
		return strconv.FormatInt(x.PK(), 10), false
	}
	return fmt.Sprint(v), false
}

// Formset is a repeated form posted as form-N-<field> rows with form-TOTAL_FORMS.
type Formset struct {
	Prefix     string
	Forms      []*Form
	Empty      *Form
	TotalForms int
	Errors     []string
	bound      bool
}

// ManagementField names the hidden input carrying the number of rows.
func (fs *Formset) ManagementField() string {
	return fs.Prefix + "-TOTAL_FORMS"
}

// Valid reports whether every filled row is valid.
func (fs *Formset) Valid() bool {
	if fs == nil || !fs.bound || len(fs.Errors) > 0 {
		return false
	}
	for _, f := range fs.Forms {
		if !f.empty() && !f.Valid() {
			return false
		}
	}
	return true
}

// Filled returns the rows that carry input.
func (fs *Formset) Filled() []*Form {
	var out []*Form
	for _, f := range fs.Forms {
		if !f.empty() {
			out = append(out, f)
		}
	}
	return out
}

func (fb formBuilder) unboundFormset(ctx context.Context, prefix string, extra int) (*Formset, error) {
	fs := &Formset{Prefix: prefix, TotalForms: extra}
	for i := 0; i < extra; i++ {
		f, err := fb.unbound(ctx, fmt.Sprintf("%s-%d", prefix, i), nil)
		if err != nil {
			return nil, err
		}
		fs.Forms = append(fs.Forms, f)
	}
	empty, err := fb.unbound(ctx, prefix+"-__prefix__", nil)
	if err != nil {
		return nil, err
	}
	fs.Empty = empty
	return fs, nil
}

// bindFormset binds the posted rows. requireOne rejects a formset with no filled row.
func (fb formBuilder) bindFormset(ctx context.Context, prefix string, data url.Values, requireOne bool) (*Formset, error) {
	fs := &Formset{Prefix: prefix, bound: true}
	total, err := strconv.Atoi(data.Get(fs.ManagementField()))
	if err != nil || total < 0 {
		return nil, fmt.Errorf("generic: formset %s: %w", prefix, errBadManagementForm)
	}
	if total > maxFormsetForms {
		total = maxFormsetForms
	}
	fs.TotalForms = total
	for i := 0; i < total; i++ {
		f, err := fb.bind(ctx, fmt.Sprintf("%s-%d", prefix, i), data)
		if err != nil {
			return nil, err
		}
		if f.empty() {
			for _, fld := range f.Fields {
				fld.Error = ""
			}
			f.Errors = nil
		}
		fs.Forms = append(fs.Forms, f)
	}
	empty, err := fb.unbound(ctx, prefix+"-__prefix__", nil)
	if err != nil {
		return nil, err
	}
	fs.Empty = empty
	if requireOne && len(fs.Filled()) == 0 {
		fs.Errors = append(fs.Errors, "少なくとも1件入力してください。")
	}
	return fs, nil
}

var errBadManagementForm = errors.New("generic: malformed formset management form")

// Widget names the input the templates render for the field.
func (f *FormField) Widget() string {
	if len(f.Options) > 0 {
		return "select"
	}
	switch f.Kind {
	case model.KindText:
		return "textarea"
	case model.KindBoolean:
		return "checkbox"
	case model.KindInteger, model.KindForeignKey, model.KindDecimal:
		return "number"
	case model.KindDate:
		return "date"
	case model.KindDateTime:
		return "datetime-local"
	case model.KindURL:
		return "url"
	}
	return "text"
}
