package generic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

const (
	formsetPrefix = "form"
	commonPrefix  = "common"
	defaultExtra  = 3
)

// BulkAddConfig configures a BulkAddView.
type BulkAddConfig[T model.Record] struct {
	Options
	Store store.Writer[T]
	Tx    store.Transactor
	// Form describes one row of the formset.
	Form FormSpec
	// Common fields are entered once and merged into every row. Nil disables the common form.
	Common *FormSpec
	// Extra is the number of blank rows offered on first display.
	Extra int
}

// BulkAddView creates many rows at once. Every filled row must validate before any is written.
type BulkAddView[T model.Record] struct {
	base
	cfg     BulkAddConfig[T]
	rows    formBuilder
	common  *formBuilder
	success func() string
}

// NewBulkAddView builds a BulkAddView.
func NewBulkAddView[T model.Record](deps Deps, cfg BulkAddConfig[T]) (*BulkAddView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil, "bulk add store"); err != nil {
		return nil, err
	}
	success, err := defaultSuccessURL(cfg.Options)
	if err != nil {
		return nil, err
	}
	if cfg.Tx == nil {
		cfg.Tx = store.NoTx
	}
	if cfg.Extra <= 0 {
		cfg.Extra = defaultExtra
	}
	if cfg.Common != nil && len(cfg.Common.Fields) == 0 {
		return nil, fmt.Errorf("generic: common form has no fields: %w", shared.ErrImproperlyConfigured)
	}
	kind, template := menu.ViewBulkAdd, "pages/generic/bulk_add.html"
	if cfg.Common != nil {
		kind = menu.ViewAdd
	}
	b, err := newBase(deps, cfg.Options, kind, template)
	if err != nil {
		return nil, err
	}
	v := &BulkAddView[T]{base: b, success: success}
	if cfg.Common != nil {
		fb := b.formBuilder(*cfg.Common)
		v.common = &fb
		if len(cfg.Form.Fields) == 0 {
			cfg.Form.Fields = excludeFields(cfg.Model.Meta().FormFields(), cfg.Common.Fields)
		}
	}
	cfg.Form = cfg.Form.withModel(cfg.Model)
	v.cfg = cfg
	v.rows = b.formBuilder(cfg.Form)
	return v, nil
}

func excludeFields(fields, drop []model.Field) []model.Field {
	out := make([]model.Field, 0, len(fields))
	for _, f := range fields {
		if !hasField(drop, f.Name) {
			out = append(out, f)
		}
	}
	return out
}

func (v *BulkAddView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		fs, err := v.rows.unboundFormset(ctx, formsetPrefix, v.cfg.Extra)
		if err != nil {
			v.fail(w, r, "bulk formset", err)
			return
		}
		var common *Form
		if v.common != nil {
			if common, err = v.common.unbound(ctx, commonPrefix, nil); err != nil {
				v.fail(w, r, "bulk common form", err)
				return
			}
		}
		v.show(w, r, common, fs)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			v.badRequest(w)
			return
		}
		fs, err := v.rows.bindFormset(ctx, formsetPrefix, r.PostForm, true)
		if errors.Is(err, errBadManagementForm) {
			v.badRequest(w)
			return
		}
		if err != nil {
			v.fail(w, r, "bulk formset", err)
			return
		}
		var common *Form
		valid := fs.Valid()
		if v.common != nil {
			if common, err = v.common.bind(ctx, commonPrefix, r.PostForm); err != nil {
				v.fail(w, r, "bulk common form", err)
				return
			}
			valid = common.Valid() && valid
		}
		if !valid {
			v.show(w, r, common, fs)
			return
		}
		n, err := v.save(ctx, common, fs)
		if err != nil {
			v.fail(w, r, "bulk create", err)
			return
		}
		v.deps.Logger.Info("records created", slog.String("model", v.meta().Name), slog.Int("count", n))
		v.changed(OpCreate, n)
		v.redirectWithFlash(w, r, shared.FlashSuccess, v.objectName()+"を一括追加しました。", v.requestedSuccessURL(r, v.success()))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (v *BulkAddView[T]) save(ctx context.Context, common *Form, fs *Formset) (int, error) {
	filled := fs.Filled()
	err := v.cfg.Tx.InTx(ctx, func(ctx context.Context) error {
		for i, f := range filled {
			values := f.Cleaned()
			if common != nil {
				for k, val := range common.Cleaned() {
					values[k] = val
				}
			}
			if _, err := v.cfg.Store.Create(ctx, values); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return nil
	})
	return len(filled), err
}

func (v *BulkAddView[T]) show(w http.ResponseWriter, r *http.Request, common *Form, fs *Formset) {
	page := v.page(v.objectName())
	page.Form = common
	page.Formset = fs
	page.SubmitLabel = "追加"
	page.SuccessURL = successField(r)
	v.render(w, r, http.StatusOK, v.objectName()+"を一括追加", page)
}

// FormsetConfig configures a FormsetView.
type FormsetConfig[P, C model.Record] struct {
	Options
	Parent   store.Writer[P]
	Children store.Writer[C]
	Tx       store.Transactor
	Form     FormSpec
	// ChildModel describes the formset rows.
	ChildModel model.Model
	ChildForm  FormSpec
	// ParentKey is the child field set to the new parent's id.
	ParentKey string
	Extra     int
}

// FormsetView creates a parent row and its children in one transaction.
type FormsetView[P, C model.Record] struct {
	base
	cfg      FormsetConfig[P, C]
	parent   formBuilder
	children formBuilder
	success  func() string
}

// NewFormsetView builds a FormsetView. The parent key is never shown in the child rows.
func NewFormsetView[P, C model.Record](deps Deps, cfg FormsetConfig[P, C]) (*FormsetView[P, C], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if cfg.ChildModel == nil || cfg.ChildModel.Meta() == nil || cfg.ParentKey == "" {
		return nil, fmt.Errorf("generic: formset needs a child model and parent key: %w", shared.ErrImproperlyConfigured)
	}
	if err := requireStore(cfg.Parent != nil && cfg.Children != nil, "parent and child stores"); err != nil {
		return nil, err
	}
	success, err := defaultSuccessURL(cfg.Options)
	if err != nil {
		return nil, err
	}
	if cfg.Tx == nil {
		cfg.Tx = store.NoTx
	}
	if cfg.Extra <= 0 {
		cfg.Extra = defaultExtra
	}
	b, err := newBase(deps, cfg.Options, menu.ViewFormset, "pages/generic/formset.html")
	if err != nil {
		return nil, err
	}
	cfg.Form = cfg.Form.withModel(cfg.Model)
	if len(cfg.ChildForm.Fields) == 0 {
		cfg.ChildForm.Fields = excludeFields(cfg.ChildModel.Meta().FormFields(), []model.Field{{Name: cfg.ParentKey}})
	}
	return &FormsetView[P, C]{
		base:     b,
		cfg:      cfg,
		parent:   b.formBuilder(cfg.Form),
		children: b.formBuilder(cfg.ChildForm),
		success:  success,
	}, nil
}

func (v *FormsetView[P, C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		form, err := v.parent.unbound(ctx, "", nil)
		if err != nil {
			v.fail(w, r, "formset parent", err)
			return
		}
		fs, err := v.children.unboundFormset(ctx, formsetPrefix, v.cfg.Extra)
		if err != nil {
			v.fail(w, r, "formset children", err)
			return
		}
		v.show(w, r, form, fs)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			v.badRequest(w)
			return
		}
		form, err := v.parent.bind(ctx, "", r.PostForm)
		if err != nil {
			v.fail(w, r, "formset parent", err)
			return
		}
		fs, err := v.children.bindFormset(ctx, formsetPrefix, r.PostForm, false)
		if errors.Is(err, errBadManagementForm) {
			v.badRequest(w)
			return
		}
		if err != nil {
			v.fail(w, r, "formset children", err)
			return
		}
		// Both are validated so every error shows at once.
		if !form.Valid() || !fs.Valid() {
			v.show(w, r, form, fs)
			return
		}
		children := fs.Filled()
		err = v.cfg.Tx.InTx(ctx, func(ctx context.Context) error {
			parent, err := v.cfg.Parent.Create(ctx, form.Cleaned())
			if err != nil {
				return err
			}
			for _, f := range children {
				values := f.Cleaned()
				values[v.cfg.ParentKey] = parent.PK()
				if _, err := v.cfg.Children.Create(ctx, values); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			v.fail(w, r, "formset create", err)
			return
		}
		v.changed(OpCreate, 1)
		v.changedRows(v.cfg.ChildModel, OpCreate, len(children))
		v.redirectWithFlash(w, r, shared.FlashSuccess, v.objectName()+"を追加しました。", v.requestedSuccessURL(r, v.success()))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (v *FormsetView[P, C]) show(w http.ResponseWriter, r *http.Request, form *Form, fs *Formset) {
	page := v.page(v.objectName())
	page.Form = form
	page.Formset = fs
	page.SubmitLabel = "追加"
	page.SuccessURL = successField(r)
	page.RelatedColumns = v.cfg.ChildForm.Fields
	v.render(w, r, http.StatusOK, v.objectName()+"を追加", page)
}
