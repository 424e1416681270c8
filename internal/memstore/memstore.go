// Package memstore is an in-memory store.Session that keeps every derived
// table as a B-tree in clustering order. It applies batches atomically and
// records them, which makes it the test double for the store package.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

const btreeDegree = 16

var (
	// ErrUnknownTable is returned for statements and queries naming a table
	// the session was not built with.
	ErrUnknownTable = errors.New("memstore: unknown table")

	// ErrMissingKey is returned when a statement does not bind every
	// primary key column.
	ErrMissingKey = errors.New("memstore: missing primary key column")
)

// row is one stored row. key holds the primary key values in key order.
type row struct {
	key []store.Value
	rec store.Record
}

type table struct {
	def   schema.Table
	desc  []bool
	rows  *btree.BTreeG[*row]
	nkeys int
}

func newTable(def schema.Table) *table {
	t := &table{def: def, nkeys: len(def.KeyColumns())}
	t.desc = make([]bool, 0, t.nkeys)
	for range def.PartitionKey {
		t.desc = append(t.desc, false)
	}
	for _, c := range def.Clustering {
		t.desc = append(t.desc, c.Order == schema.Desc)
	}
	t.rows = btree.NewG[*row](btreeDegree, t.less)
	return t
}

// less orders rows by key in clustering direction. A key that is a prefix
// of another sorts first, so a partial key works as a scan pivot.
func (t *table) less(a, b *row) bool {
	n := min(len(a.key), len(b.key))
	for i := 0; i < n; i++ {
		c := a.key[i].Compare(b.key[i])
		if t.desc[i] {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return len(a.key) < len(b.key)
}

// Session is an in-memory store.Session. It is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	tables  map[string]*table
	batches [][]store.Statement
	queries []store.Query
}

// New creates a Session holding the given tables, initially empty.
func New(tables ...schema.Table) *Session {
	s := &Session{tables: make(map[string]*table, len(tables))}
	for _, t := range tables {
		s.tables[t.Name] = newTable(t)
	}
	return s
}

// ForEntities creates a Session holding every derived table of entities.
func ForEntities(entities ...*schema.Entity) *Session {
	var tables []schema.Table
	for _, e := range entities {
		tables = append(tables, schema.Tables(e)...)
	}
	return New(tables...)
}

// ExecuteBatch applies stmts in order. Either every statement is applied or
// none is.
func (s *Session) ExecuteBatch(ctx context.Context, stmts []store.Statement, c store.Consistency) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([][]store.Value, len(stmts))
	for i, st := range stmts {
		t, ok := s.tables[st.Table]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownTable, st.Table)
		}
		key, err := t.keyOf(st)
		if err != nil {
			return err
		}
		keys[i] = key
	}

	for i, st := range stmts {
		t := s.tables[st.Table]
		switch st.Op {
		case store.OpDelete:
			t.rows.Delete(&row{key: keys[i]})
		default:
			t.upsert(keys[i], st)
		}
	}

	s.batches = append(s.batches, append([]store.Statement(nil), stmts...))
	return nil
}

func (t *table) keyOf(st store.Statement) ([]store.Value, error) {
	key := make([]store.Value, 0, t.nkeys)
	for _, col := range t.def.KeyColumns() {
		v := st.Value(col)
		if v.IsNull() {
			return nil, fmt.Errorf("%w %q in %s on %s", ErrMissingKey, col, st.Op, st.Table)
		}
		key = append(key, v)
	}
	return key, nil
}

// upsert merges the bound columns into the row at key. Null values clear
// a column.
func (t *table) upsert(key []store.Value, st store.Statement) {
	r, ok := t.rows.Get(&row{key: key})
	if !ok {
		r = &row{key: key, rec: make(store.Record, len(st.Columns))}
	} else {
		r = &row{key: key, rec: clone(r.rec)}
	}
	for i, col := range st.Columns {
		if st.Values[i].IsNull() {
			delete(r.rec, col)
			continue
		}
		r.rec[col] = st.Values[i]
	}
	t.rows.ReplaceOrInsert(r)
}

// Query returns the rows of q.Table matching q.Where in clustering order.
func (s *Session) Query(ctx context.Context, q store.Query, c store.Consistency) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, q)
	t, ok := s.tables[q.Table]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, q.Table)
	}

	// Scan from the partition, then filter
	var pivot []store.Value
	for _, cond := range q.Where {
		if len(pivot) < len(t.def.PartitionKey) && cond.Op == store.Eq && cond.Column == t.def.PartitionKey[len(pivot)] {
			pivot = append(pivot, cond.Value)
		}
	}

	var out []store.Record
	t.rows.AscendGreaterOrEqual(&row{key: pivot}, func(r *row) bool {
		for i, v := range pivot {
			if !r.key[i].Equal(v) {
				return false
			}
		}
		if q.Matches(r.rec) {
			out = append(out, clone(r.rec))
		}
		return q.Limit <= 0 || len(out) < q.Limit
	})
	return out, nil
}

// Rows returns a copy of every row of a table in clustering order.
func (s *Session) Rows(table string) []store.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil
	}
	out := make([]store.Record, 0, t.rows.Len())
	t.rows.Ascend(func(r *row) bool {
		out = append(out, clone(r.rec))
		return true
	})
	return out
}

// Len returns the number of rows in a table.
func (s *Session) Len(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tables[table]; ok {
		return t.rows.Len()
	}
	return 0
}

// Batches returns the applied batches in order.
func (s *Session) Batches() [][]store.Statement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([][]store.Statement(nil), s.batches...)
}

// LastBatch returns the most recently applied batch, or nil.
func (s *Session) LastBatch() []store.Statement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.batches) == 0 {
		return nil
	}
	return s.batches[len(s.batches)-1]
}

// Queries returns the number of queries served.
func (s *Session) Queries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queries)
}

// Reset forgets recorded batches and queries. Stored rows are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = nil
	s.queries = nil
}

func clone(rec store.Record) store.Record {
	out := make(store.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
