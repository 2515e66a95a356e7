package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/odyssey-erp/crudkit/internal/store"
)

// Table is a store the Transactor can snapshot and restore.
type Table interface {
	snapshot() (restore func())
}

type txKey struct{}

// Transactor gives a group of memory stores all-or-nothing callbacks: when fn fails or panics,
// every table is restored to its state before the call. Transactions run one at a time; writes
// made outside a transaction are not isolated from them.
type Transactor struct {
	mu     sync.Mutex
	tables []Table
}

var _ store.Transactor = (*Transactor)(nil)

// NewTransactor covers tables.
func NewTransactor(tables ...Table) *Transactor {
	return &Transactor{tables: tables}
}

// InTx runs fn. A callback started inside an existing transaction joins it.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	restores := make([]func(), len(t.tables))
	for i, tbl := range t.tables {
		restores[i] = tbl.snapshot()
	}
	done := false
	defer func() {
		if done && err == nil {
			return
		}
		for _, restore := range restores {
			restore()
		}
	}()
	err = fn(context.WithValue(ctx, txKey{}, t))
	done = true
	return err
}

func (s *Store[T]) snapshot() func() {
	s.mu.RLock()
	nextPK := s.nextPK
	values := maps.Clone(s.values)
	rows := maps.Clone(s.rows)
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.nextPK, s.values, s.rows = nextPK, values, rows
		s.mu.Unlock()
	}
}
