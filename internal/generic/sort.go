package generic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/platform/httpx"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

// SortConfig configures a SortView.
type SortConfig[T model.Record] struct {
	Options
	Store   store.Reader[T]
	Reorder store.Reorderer
	Tx      store.Transactor
	// OrderBy is the current manual ordering shown on the page.
	OrderBy []string
}

// SortView shows every row and saves the order posted back as repeated id values, or as a JSON
// body {"ids": [...]}.
type SortView[T model.Record] struct {
	base
	cfg     SortConfig[T]
	success func() string
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

// NewSortView builds a SortView.
func NewSortView[T model.Record](deps Deps, cfg SortConfig[T]) (*SortView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return nil, err
	}
	if err := requireStore(cfg.Store != nil && cfg.Reorder != nil, "sort store"); err != nil {
		return nil, err
	}
	success, err := defaultSuccessURL(cfg.Options)
	if err != nil {
		return nil, err
	}
	if cfg.Tx == nil {
		cfg.Tx = store.NoTx
	}
	b, err := newBase(deps, cfg.Options, menu.ViewSort, "pages/generic/sort.html")
	if err != nil {
		return nil, err
	}
	return &SortView[T]{base: b, cfg: cfg, success: success}, nil
}

func (v *SortView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		rows, err := v.cfg.Store.List(r.Context(), store.Query{OrderBy: v.cfg.OrderBy})
		if err != nil {
			v.fail(w, r, "sort rows", err)
			return
		}
		page := v.page(v.objectName())
		page.Rows = records(rows)
		v.render(w, r, http.StatusOK, v.objectName()+"をソート", page)
	case http.MethodPost:
		if httpx.IsJSON(r) {
			v.reorderJSON(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			v.badRequest(w)
			return
		}
		ids, err := parseIDs(r.PostForm["id"])
		if err != nil {
			v.badRequest(w)
			return
		}
		if err := v.reorder(r.Context(), ids); err != nil {
			v.fail(w, r, "reorder", err)
			return
		}
		v.changed(OpReorder, len(ids))
		v.redirectWithFlash(w, r, shared.FlashSuccess, v.objectName()+"をソートしました。", v.success())
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (v *SortView[T]) reorderJSON(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if len(req.IDs) == 0 {
		httpx.RespondError(w, fmt.Errorf("generic: no ids: %w", httpx.ErrValidation))
		return
	}
	if err := v.reorder(r.Context(), req.IDs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	v.changed(OpReorder, len(req.IDs))
	shared.AddFlash(r.Context(), shared.FlashSuccess, v.objectName()+"をソートしました。")
	httpx.JSON(w, http.StatusOK, map[string]string{"redirect": v.success()})
}

func (v *SortView[T]) reorder(ctx context.Context, ids []int64) error {
	return v.cfg.Tx.InTx(ctx, func(ctx context.Context) error {
		return v.cfg.Reorder.Reorder(ctx, ids)
	})
}

func parseIDs(raw []string) ([]int64, error) {
	if len(raw) == 0 {
		return nil, errors.New("generic: no ids posted")
	}
	ids := make([]int64, len(raw))
	for i, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("generic: id %q: %w", s, err)
		}
		ids[i] = id
	}
	return ids, nil
}
