package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"reflect"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/urls"
	"github.com/odyssey-erp/crudkit/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flashes     []shared.FlashMessage
	CurrentPath string
	// CurrentURL includes the query string; next-URL helpers read it.
	CurrentURL string
	Data       any
}

var printer = message.NewPrinter(language.Japanese)

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006/01/02")
		},
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006/01/02 15:04")
		},
		"intcomma":       intcomma,
		"naturalText":    naturalText,
		"fieldDisplay":   fieldDisplay,
		"total":          total,
		"concatNextURL":  urls.ConcatNextURL,
		"inheritNextURL": urls.InheritNextURL,
		"removeNextURL":  urls.RemoveNextURL,
		"startswith":     strings.HasPrefix,
		"rowActions":     actions.RowActions,
		"itemActions":    actions.InstanceActions,
		"add":            func(a, b int) int { return a + b },
		"rowsWith":       func(cols []model.Field, rows []model.Record) RowSet { return RowSet{Columns: cols, Rows: rows} },
		"hasDetail": func(v any) bool {
			_, ok := v.(actions.AbsoluteURLer)
			return ok
		},
		"detailURL": func(v any) string {
			if u, ok := v.(actions.AbsoluteURLer); ok {
				return u.AbsoluteURL()
			}
			return ""
		},
	}
}

// RowSet is the payload of the rows partial when it renders something other than a whole page.
type RowSet struct {
	Columns []model.Field
	Rows    []model.Record
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(Funcs()).ParseFS(web.Templates, web.TemplatePatterns...)
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes a named template and writes it with status. Nothing is written when
// execution fails, so callers can still answer with an error page.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("view: execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func intcomma(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float32, float64:
		return printer.Sprintf("%.2f", n)
	}
	rv := reflect.ValueOf(v)
	if rv.CanInt() {
		return printer.Sprintf("%d", rv.Int())
	}
	if rv.CanUint() {
		return printer.Sprintf("%d", rv.Uint())
	}
	return fmt.Sprint(v)
}

// naturalText renders a field value for humans: booleans as はい/いいえ, empty values as (なし),
// dates in the local format and linked records as anchors.
func naturalText(v any) any {
	switch x := v.(type) {
	case nil:
		return "(なし)"
	case bool:
		if x {
			return "はい"
		}
		return "いいえ"
	case string:
		if x == "" {
			return "(なし)"
		}
		return x
	case time.Time:
		if x.IsZero() {
			return "(なし)"
		}
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format("2006/01/02")
		}
		return x.Format("2006/01/02 15:04")
	case actions.AbsoluteURLer:
		return template.HTML(fmt.Sprintf(`<a href="%s">%s</a>`,
			template.HTMLEscapeString(x.AbsoluteURL()), template.HTMLEscapeString(fmt.Sprint(x))))
	case fmt.Stringer:
		return x.String()
	}
	return v
}

// fieldDisplay renders the value of a declared field, mapping choices to their labels.
func fieldDisplay(rec model.Record, f model.Field) any {
	if rec == nil {
		return naturalText(nil)
	}
	v := rec.FieldValue(f.Name)
	if f.HasChoices() {
		if label, ok := f.ChoiceLabel(v); ok {
			return label
		}
	}
	return naturalText(v)
}

// total sums a numeric field over rows.
func total(rows []model.Record, field string) any {
	var (
		ints   int64
		floats float64
		isFlt  bool
	)
	for _, r := range rows {
		rv := reflect.ValueOf(r.FieldValue(field))
		switch {
		case !rv.IsValid():
		case rv.CanInt():
			ints += rv.Int()
		case rv.CanUint():
			ints += int64(rv.Uint())
		case rv.CanFloat():
			floats += rv.Float()
			isFlt = true
		}
	}
	if isFlt {
		return floats + float64(ints)
	}
	return ints
}
