// Package store defines the storage contracts the generic views are written against.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/odyssey-erp/crudkit/internal/model"
)

// Values are cleaned form values keyed by field name.
type Values map[string]any

// Query selects rows of one model.
type Query struct {
	// OrderBy lists field names; a leading "-" sorts descending.
	OrderBy []string
	// Filters match by equality.
	Filters map[string]any
	// Search matches any of SearchFields case-insensitively.
	Search       string
	SearchFields []string
	// DateField restricts rows to [From, To) when set.
	DateField string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// Reader loads rows.
type Reader[T model.Record] interface {
	List(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int, error)
	// Get fails with shared.ErrNotFound when pk does not exist.
	Get(ctx context.Context, pk int64) (T, error)
}

// Writer mutates single rows.
type Writer[T model.Record] interface {
	Create(ctx context.Context, values Values) (T, error)
	Update(ctx context.Context, pk int64, values Values) (T, error)
	// Delete fails with *ProtectedError when dependent rows forbid it.
	Delete(ctx context.Context, pk int64) error
}

// Store is the full single-model contract.
type Store[T model.Record] interface {
	Reader[T]
	Writer[T]
}

// Reorderer persists a manual ordering.
type Reorderer interface {
	Reorder(ctx context.Context, ids []int64) error
}

// DateBounds reports the most recent date stored in a date field.
type DateBounds interface {
	LatestDate(ctx context.Context, field string) (time.Time, bool, error)
}

// Transactor runs fn atomically. Stores used inside fn join the transaction through ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactorFunc adapts a function to Transactor.
type TransactorFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// InTx calls f.
func (f TransactorFunc) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoTx runs fn directly. It suits stores without transactional support.
var NoTx Transactor = TransactorFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})

// ProtectedError reports a delete refused because other rows still depend on the target.
type ProtectedError struct {
	// Labels are the human names of the dependent models.
	Labels []string
	Err    error
}

func (e *ProtectedError) Error() string {
	return fmt.Sprintf("store: delete protected by %s", strings.Join(e.Labels, ", "))
}

func (e *ProtectedError) Unwrap() error { return e.Err }

// SortedLabels returns the distinct labels in a stable order.
func (e *ProtectedError) SortedLabels() []string {
	seen := make(map[string]struct{}, len(e.Labels))
	out := make([]string, 0, len(e.Labels))
	for _, l := range e.Labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// AsProtected unwraps a *ProtectedError from err.
func AsProtected(err error) (*ProtectedError, bool) {
	var pe *ProtectedError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
