// Package pgstore implements the store contracts on PostgreSQL for any model described by a Meta.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/platform/db"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

const foreignKeyViolation = "23503"

// Dependent is a table whose rows reference this one through Column.
type Dependent struct {
	Table  string
	Column string
	Label  string
}

// Config describes one table.
type Config[T model.Record] struct {
	Table string
	Meta  *model.Meta
	// Columns are selected in this order and handed to Scan. The first must be the primary key.
	Columns []string
	Scan    func(row pgx.Row) (T, error)
	// DefaultOrder applies when a query has no OrderBy.
	DefaultOrder []string
	// SortColumn stores the manual ordering written by Reorder.
	SortColumn string
	Dependents []Dependent
}

// Table is a generic store over one PostgreSQL table.
type Table[T model.Record] struct {
	pool    *pgxpool.Pool
	cfg     Config[T]
	columns map[string]struct{}
	fields  map[string]struct{}
}

var (
	_ store.Store[model.Record] = (*Table[model.Record])(nil)
	_ store.Reorderer           = (*Table[model.Record])(nil)
	_ store.DateBounds          = (*Table[model.Record])(nil)
)

// New validates cfg and builds a Table.
func New[T model.Record](pool *pgxpool.Pool, cfg Config[T]) (*Table[T], error) {
	if cfg.Table == "" || cfg.Meta == nil || cfg.Scan == nil || len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("pgstore: table, meta, columns and scan are required: %w", shared.ErrImproperlyConfigured)
	}
	t := &Table[T]{
		pool:    pool,
		cfg:     cfg,
		columns: make(map[string]struct{}, len(cfg.Columns)),
		fields:  make(map[string]struct{}),
	}
	for _, c := range cfg.Columns {
		t.columns[c] = struct{}{}
	}
	for _, f := range cfg.Meta.FormFields() {
		if _, ok := t.columns[f.Name]; !ok {
			return nil, fmt.Errorf("pgstore: %s: form field %q is not a selected column: %w", cfg.Table, f.Name, shared.ErrImproperlyConfigured)
		}
		t.fields[f.Name] = struct{}{}
	}
	if cfg.SortColumn != "" {
		if _, ok := t.columns[cfg.SortColumn]; !ok {
			return nil, fmt.Errorf("pgstore: %s: sort column %q is not selected: %w", cfg.Table, cfg.SortColumn, shared.ErrImproperlyConfigured)
		}
	}
	return t, nil
}

func (t *Table[T]) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, t.pool)
}

func (t *Table[T]) selectList() string {
	cols := make([]string, len(t.cfg.Columns))
	for i, c := range t.cfg.Columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(cols, ", ")
}

func (t *Table[T]) name() string {
	return pgx.Identifier{t.cfg.Table}.Sanitize()
}

// List returns rows matching q.
func (t *Table[T]) List(ctx context.Context, q store.Query) ([]T, error) {
	where, args, err := t.where(q)
	if err != nil {
		return nil, err
	}
	order, err := t.orderBy(q.OrderBy)
	if err != nil {
		return nil, err
	}
	sql := "SELECT " + t.selectList() + " FROM " + t.name() + where + order
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := t.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: %s: list: %w", t.cfg.Table, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		return t.cfg.Scan(row)
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: %s: scan: %w", t.cfg.Table, err)
	}
	return out, nil
}

// Count returns the number of rows matching q, ignoring paging.
func (t *Table[T]) Count(ctx context.Context, q store.Query) (int, error) {
	where, args, err := t.where(q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := t.conn(ctx).QueryRow(ctx, "SELECT count(*) FROM "+t.name()+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore: %s: count: %w", t.cfg.Table, err)
	}
	return n, nil
}

// Get loads one row by primary key.
func (t *Table[T]) Get(ctx context.Context, pk int64) (T, error) {
	sql := "SELECT " + t.selectList() + " FROM " + t.name() + " WHERE " + t.pkColumn() + " = $1"
	row, err := t.cfg.Scan(t.conn(ctx).QueryRow(ctx, sql, pk))
	if err != nil {
		var zero T
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, fmt.Errorf("pgstore: %s %d: %w", t.cfg.Table, pk, shared.ErrNotFound)
		}
		return zero, fmt.Errorf("pgstore: %s: get: %w", t.cfg.Table, err)
	}
	return row, nil
}

// Create inserts a row from values and returns it as stored.
func (t *Table[T]) Create(ctx context.Context, values store.Values) (T, error) {
	var zero T
	cols, args, err := t.assignments(values)
	if err != nil {
		return zero, err
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := "INSERT INTO " + t.name() + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") RETURNING " + t.selectList()
	row, err := t.cfg.Scan(t.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		return zero, fmt.Errorf("pgstore: %s: insert: %w", t.cfg.Table, err)
	}
	return row, nil
}

// Update writes values onto row pk and returns it as stored.
func (t *Table[T]) Update(ctx context.Context, pk int64, values store.Values) (T, error) {
	var zero T
	cols, args, err := t.assignments(values)
	if err != nil {
		return zero, err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	args = append(args, pk)
	sql := "UPDATE " + t.name() + " SET " + strings.Join(sets, ", ") +
		fmt.Sprintf(" WHERE %s = $%d RETURNING ", t.pkColumn(), len(args)) + t.selectList()
	row, err := t.cfg.Scan(t.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, fmt.Errorf("pgstore: %s %d: %w", t.cfg.Table, pk, shared.ErrNotFound)
		}
		return zero, fmt.Errorf("pgstore: %s: update: %w", t.cfg.Table, err)
	}
	return row, nil
}

// Delete removes row pk. Rows still referenced by a dependent table are refused with
// *store.ProtectedError naming every blocking dependent.
func (t *Table[T]) Delete(ctx context.Context, pk int64) error {
	labels, err := t.blockingDependents(ctx, pk)
	if err != nil {
		return err
	}
	if len(labels) > 0 {
		return &store.ProtectedError{Labels: labels}
	}

	tag, err := t.conn(ctx).Exec(ctx, "DELETE FROM "+t.name()+" WHERE "+t.pkColumn()+" = $1", pk)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return &store.ProtectedError{Labels: []string{t.dependentLabel(pgErr.TableName)}, Err: err}
		}
		return fmt.Errorf("pgstore: %s: delete: %w", t.cfg.Table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pgstore: %s %d: %w", t.cfg.Table, pk, shared.ErrNotFound)
	}
	return nil
}

func (t *Table[T]) blockingDependents(ctx context.Context, pk int64) ([]string, error) {
	var labels []string
	for _, d := range t.cfg.Dependents {
		sql := "SELECT EXISTS (SELECT 1 FROM " + pgx.Identifier{d.Table}.Sanitize() +
			" WHERE " + pgx.Identifier{d.Column}.Sanitize() + " = $1)"
		var exists bool
		if err := t.conn(ctx).QueryRow(ctx, sql, pk).Scan(&exists); err != nil {
			return nil, fmt.Errorf("pgstore: %s: probe %s: %w", t.cfg.Table, d.Table, err)
		}
		if exists {
			labels = append(labels, d.Label)
		}
	}
	return labels, nil
}

func (t *Table[T]) dependentLabel(table string) string {
	for _, d := range t.cfg.Dependents {
		if d.Table == table {
			return d.Label
		}
	}
	return table
}

// Reorder writes the position of each id as its index in ids.
func (t *Table[T]) Reorder(ctx context.Context, ids []int64) error {
	if t.cfg.SortColumn == "" {
		return fmt.Errorf("pgstore: %s has no sort column: %w", t.cfg.Table, shared.ErrImproperlyConfigured)
	}
	sql := "UPDATE " + t.name() + " SET " + pgx.Identifier{t.cfg.SortColumn}.Sanitize() +
		" = $1 WHERE " + t.pkColumn() + " = $2"
	batch := &pgx.Batch{}
	for i, id := range ids {
		batch.Queue(sql, i, id)
	}
	results := t.conn(ctx).SendBatch(ctx, batch)
	for range ids {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("pgstore: %s: reorder: %w", t.cfg.Table, err)
		}
	}
	return results.Close()
}

// LatestDate returns the greatest value stored in a date column.
func (t *Table[T]) LatestDate(ctx context.Context, field string) (time.Time, bool, error) {
	if _, ok := t.columns[field]; !ok {
		return time.Time{}, false, fmt.Errorf("pgstore: %s: unknown date column %q: %w", t.cfg.Table, field, shared.ErrImproperlyConfigured)
	}
	var latest *time.Time
	sql := "SELECT max(" + pgx.Identifier{field}.Sanitize() + ") FROM " + t.name()
	if err := t.conn(ctx).QueryRow(ctx, sql).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("pgstore: %s: latest %s: %w", t.cfg.Table, field, err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

func (t *Table[T]) pkColumn() string {
	return pgx.Identifier{t.cfg.Columns[0]}.Sanitize()
}

// assignments keeps the editable fields of values in a stable column order.
func (t *Table[T]) assignments(values store.Values) ([]string, []any, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		if _, ok := t.fields[name]; !ok {
			return nil, nil, fmt.Errorf("pgstore: %s: %q is not an editable field: %w", t.cfg.Table, name, shared.ErrImproperlyConfigured)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("pgstore: %s: nothing to write: %w", t.cfg.Table, shared.ErrImproperlyConfigured)
	}
	sort.Strings(names)
	cols := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		cols[i] = pgx.Identifier{n}.Sanitize()
		args[i] = values[n]
	}
	return cols, args, nil
}
