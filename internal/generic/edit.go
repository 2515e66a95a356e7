package generic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
	"github.com/odyssey-erp/crudkit/internal/urls"
)

// selfField names the copy source itself in a copy field map.
const selfField = "self"

// CopyConfig seeds an add form from an existing row.
type CopyConfig struct {
	// Source loads the row to copy from, usually another store's Get.
	Source func(ctx context.Context, pk int64) (model.Record, error)
	// Fields is either a []string of fields copied under the same name, or a map[string]string
	// from source field to form field. The source field "self" stands for the source row.
	Fields any
	// Param is the route parameter carrying the source id. It defaults to "src_id".
	Param string
}

// copyPlan maps form fields to the source field they are copied from.
type copyPlan map[string]string

func (c *CopyConfig) plan(form FormSpec) (copyPlan, error) {
	if c.Source == nil {
		return nil, fmt.Errorf("generic: copy needs a source loader: %w", shared.ErrImproperlyConfigured)
	}
	plan := copyPlan{}
	switch f := c.Fields.(type) {
	case []string:
		for _, name := range f {
			plan[name] = name
		}
	case map[string]string:
		for src, dst := range f {
			plan[dst] = src
		}
	default:
		return nil, fmt.Errorf("generic: copy fields must be a []string or map[string]string, got %T: %w", c.Fields, shared.ErrImproperlyConfigured)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("generic: copy fields are empty: %w", shared.ErrImproperlyConfigured)
	}
	for dst := range plan {
		if !hasField(form.Fields, dst) {
			return nil, fmt.Errorf("generic: copy target %q is not a form field: %w", dst, shared.ErrImproperlyConfigured)
		}
	}
	return plan, nil
}

func (p copyPlan) initial(src model.Record) map[string]any {
	out := make(map[string]any, len(p))
	for dst, field := range p {
		if field == selfField {
			out[dst] = src.PK()
			continue
		}
		out[dst] = src.FieldValue(field)
	}
	return out
}

func hasField(fields []model.Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// AddConfig configures an AddView.
type AddConfig[T model.Record] struct {
	Options
	Store store.Writer[T]
	Form  FormSpec
	// Copy turns the view into a copy view.
	Copy *CopyConfig
}

// AddView creates one row from a form.
type AddView[T model.Record] struct {
	base
	cfg     AddConfig[T]
	forms   formBuilder
	success func() string
	copy    copyPlan
}

// NewAddView builds an AddView.
func NewAddView[T model.Record](deps Deps, cfg AddConfig[T]) (*AddView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil, "add store"); err != nil {
		return nil, err
	}
	success, err := defaultSuccessURL(cfg.Options)
	if err != nil {
		return nil, err
	}
	b, err := newBase(deps, cfg.Options, menu.ViewAdd, "pages/generic/form.html")
	if err != nil {
		return nil, err
	}
	cfg.Form = cfg.Form.withModel(cfg.Model)
	var plan copyPlan
	if cfg.Copy != nil {
		c := *cfg.Copy
		if c.Param == "" {
			c.Param = "src_id"
		}
		if plan, err = c.plan(cfg.Form); err != nil {
			return nil, err
		}
		cfg.Copy = &c
	}
	return &AddView[T]{base: b, cfg: cfg, success: success, forms: b.formBuilder(cfg.Form), copy: plan}, nil
}

func (v *AddView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		initial, err := v.initial(r)
		if err != nil {
			v.fail(w, r, "add initial", err)
			return
		}
		form, err := v.forms.unbound(r.Context(), "", initial)
		if err != nil {
			v.fail(w, r, "add form", err)
			return
		}
		v.show(w, r, form)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			v.badRequest(w)
			return
		}
		form, err := v.forms.bind(r.Context(), "", r.PostForm)
		if err != nil {
			v.fail(w, r, "add form", err)
			return
		}
		if !form.Valid() {
			v.show(w, r, form)
			return
		}
		if _, err := v.cfg.Store.Create(r.Context(), form.Cleaned()); err != nil {
			v.fail(w, r, "create", err)
			return
		}
		v.deps.Logger.Info("record created", slog.String("model", v.meta().Name))
		v.changed(OpCreate, 1)
		v.redirectWithFlash(w, r, shared.FlashSuccess, v.objectName()+"を追加しました。", v.requestedSuccessURL(r, v.success()))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// initial collects query string values (except id) and, for copies, the source row's values.
func (v *AddView[T]) initial(r *http.Request) (map[string]any, error) {
	initial := map[string]any{}
	for key, values := range r.URL.Query() {
		if key == "id" || key == urls.NextParam || len(values) == 0 {
			continue
		}
		initial[key] = values[0]
	}
	if v.copy == nil {
		return initial, nil
	}
	pk, ok := pathInt64(r, v.cfg.Copy.Param)
	if !ok {
		return nil, fmt.Errorf("generic: copy source %q: %w", chi.URLParam(r, v.cfg.Copy.Param), shared.ErrNotFound)
	}
	src, err := v.cfg.Copy.Source(r.Context(), pk)
	if err != nil {
		return nil, err
	}
	for k, val := range v.copy.initial(src) {
		initial[k] = val
	}
	return initial, nil
}

func (v *AddView[T]) show(w http.ResponseWriter, r *http.Request, form *Form) {
	title := v.objectName() + "を追加"
	page := v.page(v.objectName())
	page.Form = form
	page.SubmitLabel = "追加"
	page.SuccessURL = successField(r)
	v.render(w, r, http.StatusOK, title, page)
}

// successField carries the next query parameter into the form's success_url input.
func successField(r *http.Request) string {
	if r.Method == http.MethodPost {
		return r.PostFormValue(urls.SuccessURLField)
	}
	return r.URL.Query().Get(urls.NextParam)
}

func (b *base) formBuilder(spec FormSpec) formBuilder {
	return formBuilder{spec: spec, validate: b.deps.Validate, loc: b.deps.Location}
}

// EditConfig configures an EditView.
type EditConfig[T model.Record] struct {
	Options
	Store   store.Store[T]
	Form    FormSpec
	PKParam string
}

// EditView updates one row from a form.
type EditView[T model.Record] struct {
	base
	cfg     EditConfig[T]
	forms   formBuilder
	success func() string
}

// NewEditView builds an EditView.
func NewEditView[T model.Record](deps Deps, cfg EditConfig[T]) (*EditView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil, "edit store"); err != nil {
		return nil, err
	}
	success, err := defaultSuccessURL(cfg.Options)
	if err != nil {
		return nil, err
	}
	if cfg.PKParam == "" {
		cfg.PKParam = "pk"
	}
	b, err := newBase(deps, cfg.Options, menu.ViewEdit, "pages/generic/form.html")
	if err != nil {
		return nil, err
	}
	cfg.Form = cfg.Form.withModel(cfg.Model)
	return &EditView[T]{base: b, cfg: cfg, success: success, forms: b.formBuilder(cfg.Form)}, nil
}

func (v *EditView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pk, ok := pathInt64(r, v.cfg.PKParam)
	if !ok {
		http.NotFound(w, r)
		return
	}
	obj, err := v.cfg.Store.Get(r.Context(), pk)
	if err != nil {
		v.fail(w, r, "load edit", err)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		initial := make(map[string]any, len(v.cfg.Form.Fields))
		for _, f := range v.cfg.Form.Fields {
			initial[f.Name] = obj.FieldValue(f.Name)
		}
		form, err := v.forms.unbound(r.Context(), "", initial)
		if err != nil {
			v.fail(w, r, "edit form", err)
			return
		}
		v.show(w, r, obj, form)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			v.badRequest(w)
			return
		}
		form, err := v.forms.bind(r.Context(), "", r.PostForm)
		if err != nil {
			v.fail(w, r, "edit form", err)
			return
		}
		if !form.Valid() {
			v.show(w, r, obj, form)
			return
		}
		if _, err := v.cfg.Store.Update(r.Context(), pk, form.Cleaned()); err != nil {
			v.fail(w, r, "update", err)
			return
		}
		v.changed(OpUpdate, 1)
		v.redirectWithFlash(w, r, shared.FlashSuccess, v.objectName()+"を更新しました。", v.requestedSuccessURL(r, v.success()))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (v *EditView[T]) show(w http.ResponseWriter, r *http.Request, obj T, form *Form) {
	page := v.page(v.objectName())
	page.Object = obj
	page.Form = form
	page.SubmitLabel = "更新"
	page.SuccessURL = successField(r)
	if ea, ok := any(obj).(actions.EditActioner); ok {
		page.ExtraButtons = append(append([]actions.Action{}, v.opts.ExtraButtons...), ea.EditActions()...)
	}
	v.render(w, r, http.StatusOK, v.objectName()+"を編集", page)
}

// DeleteConfig configures a DeleteView.
type DeleteConfig[T model.Record] struct {
	Options
	Store   store.Store[T]
	Tx      store.Transactor
	PKParam string
}

// DeleteView confirms and deletes one row. Deletes refused by dependent rows re-render the page
// with an error banner.
type DeleteView[T model.Record] struct {
	base
	cfg     DeleteConfig[T]
	success func() string
}

// NewDeleteView builds a DeleteView.
func NewDeleteView[T model.Record](deps Deps, cfg DeleteConfig[T]) (*DeleteView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil, "delete store"); err != nil {
		return nil, err
	}
	success, err := defaultSuccessURL(cfg.Options)
	if err != nil {
		return nil, err
	}
	if cfg.Tx == nil {
		cfg.Tx = store.NoTx
	}
	if cfg.PKParam == "" {
		cfg.PKParam = "pk"
	}
	b, err := newBase(deps, cfg.Options, menu.ViewDelete, "pages/generic/delete.html")
	if err != nil {
		return nil, err
	}
	return &DeleteView[T]{base: b, cfg: cfg, success: success}, nil
}

func (v *DeleteView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pk, ok := pathInt64(r, v.cfg.PKParam)
	if !ok {
		http.NotFound(w, r)
		return
	}
	obj, err := v.cfg.Store.Get(r.Context(), pk)
	if err != nil {
		v.fail(w, r, "load delete", err)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		v.show(w, r, obj)
	case http.MethodPost:
		err := v.cfg.Tx.InTx(r.Context(), func(ctx context.Context) error {
			return v.cfg.Store.Delete(ctx, pk)
		})
		if pe, ok := store.AsProtected(err); ok {
			shared.AddFlash(r.Context(), shared.FlashError, protectedMessage(pe, v.objectName()))
			v.show(w, r, obj)
			return
		}
		if err != nil {
			v.fail(w, r, "delete", err)
			return
		}
		v.changed(OpDelete, 1)
		v.redirectWithFlash(w, r, shared.FlashSuccess, v.objectName()+"を削除しました。", v.requestedSuccessURL(r, v.success()))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (v *DeleteView[T]) show(w http.ResponseWriter, r *http.Request, obj T) {
	page := v.page(v.objectName())
	page.Object = obj
	page.Columns = v.meta().FormFields()
	page.SuccessURL = successField(r)
	v.render(w, r, http.StatusOK, v.objectName()+"を削除", page)
}

func protectedMessage(pe *store.ProtectedError, name string) string {
	return fmt.Sprintf("削除できませんでした。『%s』にこの%sに依存するレコードがあります。", strings.Join(pe.SortedLabels(), "、"), name)
}

// DeleteListConfig configures a DeleteListView.
type DeleteListConfig[T model.Record] struct {
	Options
	Store interface {
		store.Reader[T]
		Delete(ctx context.Context, pk int64) error
	}
	Tx store.Transactor
	// Query selects the rows deleted together.
	Query func(r *http.Request) (store.Query, error)
}

// DeleteListView confirms and deletes a selection of rows at once.
type DeleteListView[T model.Record] struct {
	base
	cfg DeleteListConfig[T]
}

// NewDeleteListView builds a DeleteListView. SuccessURL is required.
func NewDeleteListView[T model.Record](deps Deps, cfg DeleteListConfig[T]) (*DeleteListView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil && cfg.Query != nil, "delete list store and query"); err != nil {
		return nil, err
	}
	if cfg.SuccessURL == "" {
		return nil, fmt.Errorf("generic: delete list view needs a success url: %w", shared.ErrImproperlyConfigured)
	}
	if cfg.Tx == nil {
		cfg.Tx = store.NoTx
	}
	b, err := newBase(deps, cfg.Options, menu.ViewDelete, "pages/generic/delete_list.html")
	if err != nil {
		return nil, err
	}
	return &DeleteListView[T]{base: b, cfg: cfg}, nil
}

func (v *DeleteListView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q, err := v.cfg.Query(r)
	if err != nil {
		v.fail(w, r, "delete list query", err)
		return
	}
	rows, err := v.cfg.Store.List(r.Context(), q)
	if err != nil {
		v.fail(w, r, "delete list rows", err)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		page := v.page(v.objectName())
		page.Rows = records(rows)
		page.Columns = v.meta().FormFields()
		v.render(w, r, http.StatusOK, v.objectName()+"を一括削除", page)
	case http.MethodPost:
		err := v.cfg.Tx.InTx(r.Context(), func(ctx context.Context) error {
			for _, row := range rows {
				if err := v.cfg.Store.Delete(ctx, row.PK()); err != nil && !errors.Is(err, shared.ErrNotFound) {
					return err
				}
			}
			return nil
		})
		if pe, ok := store.AsProtected(err); ok {
			shared.AddFlash(r.Context(), shared.FlashError, protectedMessage(pe, v.objectName()))
			http.Redirect(w, r, r.URL.RequestURI(), http.StatusSeeOther)
			return
		}
		if err != nil {
			v.fail(w, r, "delete list", err)
			return
		}
		v.changed(OpDelete, len(rows))
		v.redirectWithFlash(w, r, shared.FlashInfo, v.objectName()+"を一括削除しました。", v.cfg.SuccessURL)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// StatusConfig configures a StatusUpdateView.
type StatusConfig[T model.Record] struct {
	Store interface {
		Get(ctx context.Context, pk int64) (T, error)
		Update(ctx context.Context, pk int64, values store.Values) (T, error)
	}
	Model model.Model
	// Field is the status field; its choices are the allowed statuses.
	Field       string
	SuccessURL  string
	PKParam     string
	StatusParam string
}

// StatusUpdateView switches the status field of one row through POST {pk}/{status}.
type StatusUpdateView[T model.Record] struct {
	base
	cfg      StatusConfig[T]
	statuses map[string]model.Choice
	success  func() string
}

// NewStatusUpdateView builds a StatusUpdateView. The status field must declare choices.
func NewStatusUpdateView[T model.Record](deps Deps, cfg StatusConfig[T]) (*StatusUpdateView[T], error) {
	opts := Options{Model: cfg.Model, SuccessURL: cfg.SuccessURL}
	if err := requireModel(opts); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil, "status store"); err != nil {
		return nil, err
	}
	field, ok := cfg.Model.Meta().Field(cfg.Field)
	if !ok || !field.HasChoices() {
		return nil, fmt.Errorf("generic: status field %q must declare choices: %w", cfg.Field, shared.ErrImproperlyConfigured)
	}
	success, err := defaultSuccessURL(opts)
	if err != nil {
		return nil, err
	}
	if cfg.PKParam == "" {
		cfg.PKParam = "pk"
	}
	if cfg.StatusParam == "" {
		cfg.StatusParam = "status"
	}
	b, err := newBase(deps, opts, menu.ViewEdit, "")
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]model.Choice, len(field.Choices))
	for _, c := range field.Choices {
		statuses[fmt.Sprint(c.Value)] = c
	}
	return &StatusUpdateView[T]{base: b, cfg: cfg, statuses: statuses, success: success}, nil
}

func (v *StatusUpdateView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	status, ok := v.statuses[chi.URLParam(r, v.cfg.StatusParam)]
	if !ok {
		http.NotFound(w, r)
		return
	}
	pk, ok := pathInt64(r, v.cfg.PKParam)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, err := v.cfg.Store.Get(r.Context(), pk); err != nil {
		v.fail(w, r, "load status", err)
		return
	}
	if _, err := v.cfg.Store.Update(r.Context(), pk, store.Values{v.cfg.Field: status.Value}); err != nil {
		v.fail(w, r, "update status", err)
		return
	}
	v.changed(OpUpdate, 1)
	v.redirectWithFlash(w, r, shared.FlashSuccess, status.Label+"に変更しました。", v.requestedSuccessURL(r, v.success()))
}
