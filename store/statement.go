package store

import (
	"context"
	"strings"

	"github.com/jacentio/tessera/schema"
)

// Session is the capability a store client must provide. Implementations
// must be safe for concurrent use.
type Session interface {
	// Query runs a read and returns the matching rows in clustering order.
	Query(ctx context.Context, q Query, c Consistency) ([]Record, error)

	// ExecuteBatch applies stmts in order as one atomic batch.
	ExecuteBatch(ctx context.Context, stmts []Statement, c Consistency) error
}

// BatchLimiter is implemented by sessions that cap the statements of one
// batch.
type BatchLimiter interface {
	MaxBatchStatements() int
}

// Op is a write statement type.
type Op int

const (
	// OpInsert upserts the listed columns of one row.
	OpInsert Op = iota

	// OpDelete removes one row addressed by its full primary key.
	OpDelete
)

func (o Op) String() string {
	if o == OpDelete {
		return "DELETE"
	}
	return "INSERT"
}

// Statement is one parameterized write. CQL holds the rendered text with
// positional markers; the structured fields carry the same write for
// backends that do not speak CQL.
type Statement struct {
	Op Op

	// Table is the unqualified table name.
	Table string

	// Kind is the access pattern the table serves.
	Kind schema.TableKind

	// Columns names the bound columns. For deletes these are the primary
	// key columns in key order.
	Columns []string

	// Values holds one value per column.
	Values []Value

	// CQL is the rendered statement.
	CQL string
}

// Value returns the value bound to column, or null.
func (s Statement) Value(column string) Value {
	for i, c := range s.Columns {
		if c == column {
			return s.Values[i]
		}
	}
	return Value{}
}

// CondOp is a query predicate operator.
type CondOp int

const (
	// Eq matches column = value.
	Eq CondOp = iota

	// Lt matches column < value.
	Lt

	// Prefix matches text columns starting with value.
	Prefix
)

// Cond is one key predicate.
type Cond struct {
	Column string
	Op     CondOp
	Value  Value
}

// Query is a parameterized read over one table. Where holds equality
// predicates on the partition key and a leading run of clustering columns,
// optionally followed by one Lt or Prefix predicate on the next clustering
// column.
type Query struct {
	Table string
	Kind  schema.TableKind
	Where []Cond

	// Limit caps the number of rows; zero means unlimited.
	Limit int

	CQL    string
	Values []Value
}

// Matches reports whether rec satisfies every predicate of q.
func (q Query) Matches(rec Record) bool {
	for _, c := range q.Where {
		v := rec[c.Column]
		switch c.Op {
		case Eq:
			if !v.Equal(c.Value) {
				return false
			}
		case Lt:
			if v.Kind() != c.Value.Kind() || v.Compare(c.Value) >= 0 {
				return false
			}
		case Prefix:
			if v.Kind() != KindText || !strings.HasPrefix(v.AsText(), c.Value.AsText()) {
				return false
			}
		}
	}
	return true
}
