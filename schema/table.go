package schema

import (
	"strconv"
	"strings"
)

// GCGraceSeconds is the tombstone grace period of every generated table.
const GCGraceSeconds = 86400

// TableKind identifies which access pattern a derived table serves.
type TableKind int

const (
	KindPrimary TableKind = iota
	KindByField
	KindSubstring
	KindByEntity
	KindByMany
)

func (k TableKind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindByField:
		return "by_field"
	case KindSubstring:
		return "substring"
	case KindByEntity:
		return "by_entity"
	case KindByMany:
		return "by_many"
	}
	return "unknown"
}

// Column is a typed table column.
type Column struct {
	Name string
	Type FieldType
}

// KeyColumn is a clustering column with its direction.
type KeyColumn struct {
	Name  string
	Order Order
}

// Table describes one generated table.
type Table struct {
	// Name is the unqualified table name.
	Name string

	// Kind is the access pattern the table serves.
	Kind TableKind

	// Source is the field name for by-field and substring tables and the
	// relation name for by-entity and by-many tables.
	Source string

	// Columns lists every column in DDL order.
	Columns []Column

	// PartitionKey lists the partition key column names.
	PartitionKey []string

	// Clustering lists the clustering columns in key order.
	Clustering []KeyColumn
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// KeyColumns returns the partition key names followed by the clustering names.
func (t Table) KeyColumns() []string {
	keys := append([]string(nil), t.PartitionKey...)
	for _, c := range t.Clustering {
		keys = append(keys, c.Name)
	}
	return keys
}

// DDL renders the CREATE TABLE statement.
func (t Table) DDL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(t.Name)
	b.WriteString(" (")
	for _, c := range t.Columns {
		b.WriteString(Quote(c.Name))
		b.WriteByte(' ')
		b.WriteString(c.Type.CQLType())
		b.WriteString(", ")
	}
	b.WriteString("PRIMARY KEY (")
	b.WriteString(quoteAll(t.KeyColumns()))
	b.WriteString(")) WITH CLUSTERING ORDER BY (")
	for i, c := range t.Clustering {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(Quote(c.Name))
		b.WriteByte(' ')
		b.WriteString(c.Order.String())
	}
	b.WriteString(") AND gc_grace_seconds = ")
	b.WriteString(strconv.Itoa(GCGraceSeconds))
	return b.String()
}

// Quote returns name as a CQL identifier. Only the reserved word "group"
// needs quoting among the names this package accepts.
func Quote(name string) string {
	if name == ColGroup {
		return `"group"`
	}
	return name
}

func quoteAll(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = Quote(n)
	}
	return strings.Join(q, ", ")
}

// ByFieldTable returns the name of a field's by-field table.
func ByFieldTable(entity, field string) string { return entity + "_by_field_" + field }

// SubstringTable returns the name of a field's substring fan-out table.
func SubstringTable(entity, field string) string { return entity + "_" + field + "_substring" }

// ByEntityTable returns the name of a by-entity relation table.
func ByEntityTable(entity, relation string) string { return entity + "_by_entity_" + relation }

// ByManyTable returns the name of a by-many relation table.
func ByManyTable(entity, relation string) string { return entity + "_by_many_" + relation }
