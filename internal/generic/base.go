// Package generic provides the reusable CRUD handlers: list, detail, add, edit, delete and their
// bulk, sort, filter and archive variants. Each view is built once by an eager constructor that
// rejects incomplete configuration, then serves requests as a plain http.Handler.
package generic

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/perspective"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/urls"
	"github.com/odyssey-erp/crudkit/internal/view"
)

// Renderer executes named page templates.
type Renderer interface {
	RenderStatus(w http.ResponseWriter, status int, name string, data view.TemplateData) error
}

// ModelTopURLer lets a model name the page every successful mutation returns to.
type ModelTopURLer interface{ ModelTopURL() string }

// Deps are the collaborators shared by every view of an application.
type Deps struct {
	Logger    *slog.Logger
	Templates Renderer
	CSRF      *shared.CSRFManager
	// Resolver decides whether a submitted success_url or next target is served by the application.
	Resolver urls.Resolver
	Validate *validator.Validate
	AdminURL string
	Location *time.Location
	PageSize int
	// Changes, when set, is told about every successful write.
	Changes ChangeRecorder
	// Now is overridden in tests.
	Now func() time.Time
}

// Write operations reported to a ChangeRecorder.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpReorder = "reorder"
)

// ChangeRecorder observes rows written through generic views.
type ChangeRecorder interface {
	RecordChange(model, op string, rows int)
}

func (d Deps) withDefaults() (Deps, error) {
	if d.Templates == nil {
		return d, fmt.Errorf("generic: templates are required: %w", shared.ErrImproperlyConfigured)
	}
	if d.CSRF == nil {
		return d, fmt.Errorf("generic: csrf manager is required: %w", shared.ErrImproperlyConfigured)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Validate == nil {
		d.Validate = validator.New()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.PageSize <= 0 {
		d.PageSize = shared.DefaultPerPage
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d, nil
}

// Options configure what a single view shows.
type Options struct {
	Model model.Model
	// Label overrides the display name derived from the model.
	Label  string
	Navbar menu.Navbar
	// Template overrides the default page template of the view kind.
	Template string
	// SuccessURL is where successful mutations redirect. It defaults to the model's top page,
	// then to its list page.
	SuccessURL string
	// ExtraButtons are shown next to the page title.
	ExtraButtons []actions.Action
}

// Page is the template payload of every generic page.
type Page struct {
	ObjectName   string
	Navbar       []menu.Item
	Perspectives *perspective.Selection
	ExtraButtons []actions.Action
	SubmitLabel  string
	// SuccessURL is echoed into forms from the next query parameter.
	SuccessURL string
	Meta       *model.Meta
	Columns    []model.Field
	Object     model.Record
	Rows       []model.Record
	// RelatedColumns describe Rows when they belong to another model.
	RelatedColumns []model.Field
	Groups         []perspective.Group[model.Record]
	Pagination     *shared.Pagination
	Summaries      []Summary
	Form           *Form
	Formset        *Formset
	Archive        *Archive
	Search         *Search
	// Extra carries view-specific values.
	Extra map[string]any
}

// Summary is a labelled total shown under a list.
type Summary struct {
	Label string
	Field string
}

type base struct {
	deps     Deps
	opts     Options
	kind     menu.ViewKind
	template string
	navbar   []menu.Item
}

func newBase(deps Deps, opts Options, kind menu.ViewKind, template string) (base, error) {
	d, err := deps.withDefaults()
	if err != nil {
		return base{}, err
	}
	items, err := opts.Navbar.Items(kind, d.AdminURL)
	if err != nil {
		return base{}, err
	}
	if opts.Template != "" {
		template = opts.Template
	}
	return base{deps: d, opts: opts, kind: kind, template: template, navbar: items}, nil
}

func (b *base) meta() *model.Meta {
	if b.opts.Model == nil {
		return nil
	}
	return b.opts.Model.Meta()
}

func (b *base) changed(op string, rows int) {
	b.changedRows(b.opts.Model, op, rows)
}

// changedRows reports rows written to m, which may differ from the view's own model.
func (b *base) changedRows(m model.Model, op string, rows int) {
	if b.deps.Changes == nil || rows <= 0 {
		return
	}
	name := ""
	if m != nil {
		if meta := m.Meta(); meta != nil {
			name = meta.Name
		}
	}
	b.deps.Changes.RecordChange(name, op, rows)
}

func (b *base) objectName() string {
	return model.ObjectName(b.opts.Label, b.opts.Model)
}

func (b *base) listName() string {
	return model.ObjectListName(b.opts.Label, b.opts.Model)
}

func (b *base) page(objectName string) *Page {
	return &Page{
		ObjectName:   objectName,
		Navbar:       b.navbar,
		ExtraButtons: b.opts.ExtraButtons,
		Meta:         b.meta(),
	}
}

// defaultSuccessURL resolves the redirect target of a successful mutation.
func defaultSuccessURL(opts Options) (func() string, error) {
	if opts.SuccessURL != "" {
		u := opts.SuccessURL
		return func() string { return u }, nil
	}
	if v, ok := opts.Model.(ModelTopURLer); ok {
		return v.ModelTopURL, nil
	}
	if v, ok := opts.Model.(menu.ListURLer); ok {
		return v.ListURL, nil
	}
	return nil, fmt.Errorf("generic: no redirect target; set SuccessURL or implement ListURL on %T: %w", opts.Model, shared.ErrImproperlyConfigured)
}

// requestedSuccessURL returns the posted success_url when the application can route it.
func (b *base) requestedSuccessURL(r *http.Request, fallback string) string {
	return urls.SafeRedirect(b.deps.Resolver, r.PostFormValue(urls.SuccessURLField), fallback)
}

func (b *base) render(w http.ResponseWriter, r *http.Request, status int, title string, page *Page) {
	sess := shared.SessionFromContext(r.Context())
	token, err := b.deps.CSRF.EnsureToken(sess)
	if err != nil && !errors.Is(err, shared.ErrCSRFTokenMissing) {
		b.deps.Logger.Warn("ensure csrf token", slog.Any("error", err))
	}
	data := view.TemplateData{
		Title:       title,
		CSRFToken:   token,
		Flashes:     shared.PopFlashes(r.Context()),
		CurrentPath: r.URL.Path,
		CurrentURL:  r.URL.RequestURI(),
		Data:        page,
	}
	if err := b.deps.Templates.RenderStatus(w, status, b.template, data); err != nil {
		b.deps.Logger.Error("render page", slog.String("template", b.template), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (b *base) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message, target string) {
	shared.AddFlash(r.Context(), kind, message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// fail answers a storage error: 404 for missing rows, 500 otherwise.
func (b *base) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	b.deps.Logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (b *base) badRequest(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}

// pathInt64 reads an integer route parameter.
func pathInt64(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func records[T model.Record](rows []T) []model.Record {
	out := make([]model.Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func requireStore(ok bool, what string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("generic: %s is required: %w", what, shared.ErrImproperlyConfigured)
}

func requireModel(opts Options) error {
	if opts.Model == nil || opts.Model.Meta() == nil {
		return fmt.Errorf("generic: model is required: %w", shared.ErrImproperlyConfigured)
	}
	return nil
}
