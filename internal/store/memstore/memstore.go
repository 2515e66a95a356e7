// Package memstore keeps rows in process memory behind the store contracts. It backs tests and
// the demo server when no database is configured.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

// Config describes how rows are built and protected.
type Config[T model.Record] struct {
	// Make builds a row from its complete values.
	Make func(pk int64, values store.Values) (T, error)
	// Protect lists the labels of rows depending on pk; a non-empty result refuses the delete.
	Protect func(ctx context.Context, pk int64) []string
	// SortField receives the position written by Reorder.
	SortField string
}

// Store is a concurrency-safe in-memory table.
type Store[T model.Record] struct {
	mu     sync.RWMutex
	cfg    Config[T]
	nextPK int64
	values map[int64]store.Values
	rows   map[int64]T
}

var (
	_ store.Store[model.Record] = (*Store[model.Record])(nil)
	_ store.Reorderer           = (*Store[model.Record])(nil)
	_ store.DateBounds          = (*Store[model.Record])(nil)
)

// New builds an empty store.
func New[T model.Record](cfg Config[T]) *Store[T] {
	return &Store[T]{cfg: cfg, values: map[int64]store.Values{}, rows: map[int64]T{}}
}

// List returns rows matching q.
func (s *Store[T]) List(_ context.Context, q store.Query) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.match(q)
	sortRows(out, q.OrderBy, s.cfg.SortField)
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []T{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count returns the number of rows matching q.
func (s *Store[T]) Count(_ context.Context, q store.Query) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(q)), nil
}

// Get loads row pk.
func (s *Store[T]) Get(_ context.Context, pk int64) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[pk]
	if !ok {
		var zero T
		return zero, fmt.Errorf("memstore: %d: %w", pk, shared.ErrNotFound)
	}
	return row, nil
}

// Create stores a new row.
func (s *Store[T]) Create(_ context.Context, values store.Values) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPK++
	pk := s.nextPK
	merged := store.Values{}
	for k, v := range values {
		merged[k] = v
	}
	if s.cfg.SortField != "" {
		if _, ok := merged[s.cfg.SortField]; !ok {
			merged[s.cfg.SortField] = int(pk)
		}
	}
	row, err := s.cfg.Make(pk, merged)
	if err != nil {
		var zero T
		return zero, err
	}
	s.values[pk] = merged
	s.rows[pk] = row
	return row, nil
}

// Update merges values into row pk.
func (s *Store[T]) Update(_ context.Context, pk int64, values store.Values) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(pk, values)
}

func (s *Store[T]) update(pk int64, values store.Values) (T, error) {
	var zero T
	current, ok := s.values[pk]
	if !ok {
		return zero, fmt.Errorf("memstore: %d: %w", pk, shared.ErrNotFound)
	}
	merged := store.Values{}
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	row, err := s.cfg.Make(pk, merged)
	if err != nil {
		return zero, err
	}
	s.values[pk] = merged
	s.rows[pk] = row
	return row, nil
}

// Delete removes row pk unless Protect reports dependents.
func (s *Store[T]) Delete(ctx context.Context, pk int64) error {
	if s.cfg.Protect != nil {
		if labels := s.cfg.Protect(ctx, pk); len(labels) > 0 {
			return &store.ProtectedError{Labels: labels}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[pk]; !ok {
		return fmt.Errorf("memstore: %d: %w", pk, shared.ErrNotFound)
	}
	delete(s.rows, pk)
	delete(s.values, pk)
	return nil
}

// Reorder stores each id's index in ids as its position. An unknown id fails before any row
// is rewritten.
func (s *Store[T]) Reorder(_ context.Context, ids []int64) error {
	if s.cfg.SortField == "" {
		return fmt.Errorf("memstore: no sort field: %w", shared.ErrImproperlyConfigured)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.values[id]; !ok {
			return fmt.Errorf("memstore: %d: %w", id, shared.ErrNotFound)
		}
	}
	for i, id := range ids {
		if _, err := s.update(id, store.Values{s.cfg.SortField: i}); err != nil {
			return err
		}
	}
	return nil
}

// LatestDate returns the greatest time stored in field.
func (s *Store[T]) LatestDate(_ context.Context, field string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		latest time.Time
		found  bool
	)
	for _, row := range s.rows {
		v, ok := row.FieldValue(field).(time.Time)
		if !ok || v.IsZero() {
			continue
		}
		if !found || v.After(latest) {
			latest, found = v, true
		}
	}
	return latest, found, nil
}

func (s *Store[T]) match(q store.Query) []T {
	out := make([]T, 0, len(s.rows))
	needle := strings.ToLower(q.Search)
	for _, row := range s.rows {
		if !matchFilters(row, q.Filters) {
			continue
		}
		if needle != "" && len(q.SearchFields) > 0 && !matchSearch(row, q.SearchFields, needle) {
			continue
		}
		if q.DateField != "" && !matchRange(row.FieldValue(q.DateField), q.From, q.To) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// matchFilters compares by printed value. Linked records match by primary key.
func matchFilters(row model.Record, filters map[string]any) bool {
	for k, want := range filters {
		got := row.FieldValue(k)
		if ref, ok := got.(model.Record); ok {
			got = ref.PK()
		}
		if want == nil || got == nil {
			if want != got {
				return false
			}
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func matchSearch(row model.Record, fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(fmt.Sprint(row.FieldValue(f))), needle) {
			return true
		}
	}
	return false
}

func matchRange(v any, from, to time.Time) bool {
	t, ok := v.(time.Time)
	if !ok {
		return false
	}
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func sortRows[T model.Record](rows []T, orderBy []string, sortField string) {
	if len(orderBy) == 0 && sortField != "" {
		orderBy = []string{sortField}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, f := range orderBy {
			desc := strings.HasPrefix(f, "-")
			name := strings.TrimPrefix(f, "-")
			c := compare(rows[i].FieldValue(name), rows[j].FieldValue(name))
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return rows[i].PK() < rows[j].PK()
	})
}

func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.CanInt() && bv.CanInt() {
		switch {
		case av.Int() < bv.Int():
			return -1
		case av.Int() > bv.Int():
			return 1
		}
		return 0
	}
	if av.CanFloat() && bv.CanFloat() {
		switch {
		case av.Float() < bv.Float():
			return -1
		case av.Float() > bv.Float():
			return 1
		}
		return 0
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
