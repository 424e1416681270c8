package store

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jacentio/tessera/schema"
)

// qualify prefixes a table name with the configured keyspace.
func (s *Store) qualify(table string) string {
	if s.config.Keyspace == "" {
		return table
	}
	return s.config.Keyspace + "." + table
}

// insertStmt builds an upsert of cols into t.
func (s *Store) insertStmt(t schema.Table, cols []string, vals []Value) Statement {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.qualify(t.Name))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(schema.Quote(c))
	}
	b.WriteString(") VALUES (")
	b.WriteString(placeholders(len(cols)))
	b.WriteByte(')')

	return Statement{
		Op:      OpInsert,
		Table:   t.Name,
		Kind:    t.Kind,
		Columns: cols,
		Values:  vals,
		CQL:     b.String(),
	}
}

// deleteStmt builds a row delete; key holds one value per t.KeyColumns().
func (s *Store) deleteStmt(t schema.Table, key []Value) Statement {
	cols := t.KeyColumns()

	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(s.qualify(t.Name))
	b.WriteString(" WHERE ")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(schema.Quote(c))
		b.WriteString(" = ?")
	}

	return Statement{
		Op:      OpDelete,
		Table:   t.Name,
		Kind:    t.Kind,
		Columns: cols,
		Values:  key,
		CQL:     b.String(),
	}
}

// query builds a SELECT over t.
func (s *Store) query(t schema.Table, where []Cond, limit int) Query {
	var b strings.Builder
	var vals []Value

	b.WriteString("SELECT * FROM ")
	b.WriteString(s.qualify(t.Name))
	for i, c := range where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		col := schema.Quote(c.Column)
		switch c.Op {
		case Eq:
			b.WriteString(col + " = ?")
			vals = append(vals, c.Value)
		case Lt:
			b.WriteString(col + " < ?")
			vals = append(vals, c.Value)
		case Prefix:
			b.WriteString(col + " >= ? AND " + col + " < ?")
			vals = append(vals, c.Value, Text(c.Value.AsText()+string(utf8.MaxRune)))
		}
	}
	if limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(limit))
	}

	return Query{
		Table:  t.Name,
		Kind:   t.Kind,
		Where:  where,
		Limit:  limit,
		CQL:    b.String(),
		Values: vals,
	}
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
