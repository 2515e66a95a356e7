package pgstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

// where renders the WHERE clause of q. Every referenced column must be selected by the table.
func (t *Table[T]) where(q store.Query) (string, []any, error) {
	var (
		conds []string
		args  []any
	)

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		col, err := t.column(k)
		if err != nil {
			return "", nil, err
		}
		v := q.Filters[k]
		if v == nil {
			conds = append(conds, col+" IS NULL")
			continue
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if q.Search != "" && len(q.SearchFields) > 0 {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		ors := make([]string, 0, len(q.SearchFields))
		for _, f := range q.SearchFields {
			col, err := t.column(f)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, fmt.Sprintf("%s::text ILIKE $%d", col, len(args)))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if q.DateField != "" {
		col, err := t.column(q.DateField)
		if err != nil {
			return "", nil, err
		}
		if !q.From.IsZero() {
			args = append(args, q.From)
			conds = append(conds, fmt.Sprintf("%s >= $%d", col, len(args)))
		}
		if !q.To.IsZero() {
			args = append(args, q.To)
			conds = append(conds, fmt.Sprintf("%s < $%d", col, len(args)))
		}
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// orderBy renders ORDER BY, falling back to the table default and finally the primary key.
func (t *Table[T]) orderBy(fields []string) (string, error) {
	if len(fields) == 0 {
		fields = t.cfg.DefaultOrder
	}
	if len(fields) == 0 {
		return " ORDER BY " + t.pkColumn(), nil
	}
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		dir := "ASC"
		if strings.HasPrefix(f, "-") {
			dir = "DESC"
			f = f[1:]
		}
		col, err := t.column(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, t.pkColumn()+" ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func (t *Table[T]) column(name string) (string, error) {
	if _, ok := t.columns[name]; !ok {
		return "", fmt.Errorf("pgstore: %s: unknown column %q: %w", t.cfg.Table, name, shared.ErrImproperlyConfigured)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
