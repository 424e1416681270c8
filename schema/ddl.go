package schema

// (group id) f1 f2 ... fn                    primary
// (group f id) f1 f2 ... fn                  by_field, per Value/Substring field
// (group substring value)                    substring, per Substring field
// (group entity id) f1 f2 ... fn             by_entity, per relation
// (group entity id row) f1 f2 ... fn         by_many, per relation

// Tables returns the table descriptors derived from e: field-derived tables
// in field order, then by-entity and by-many tables in list order, then the
// primary table.
func Tables(e *Entity) []Table {
	var tables []Table
	for _, f := range e.fields {
		if !f.Kind.Indexed() {
			continue
		}
		tables = append(tables, byFieldTable(e, f))
		if f.Kind == Substring {
			tables = append(tables, substringTable(e, f))
		}
	}
	for _, r := range e.byEntity {
		tables = append(tables, byEntityTable(e, r))
	}
	for _, r := range e.byMany {
		tables = append(tables, byManyTable(e, r))
	}
	return append(tables, PrimaryTable(e))
}

// DeriveSchema returns the CREATE TABLE statements for e, in the order of
// Tables. The output is deterministic.
func DeriveSchema(e *Entity) []string {
	tables := Tables(e)
	stmts := make([]string, len(tables))
	for i, t := range tables {
		stmts[i] = t.DDL()
	}
	return stmts
}

// TableFor returns the descriptor of the derived table with the given name.
func TableFor(e *Entity, name string) (Table, bool) {
	for _, t := range Tables(e) {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// PrimaryTable returns the descriptor of the table of record.
func PrimaryTable(e *Entity) Table {
	return Table{
		Name:         e.name,
		Kind:         KindPrimary,
		Columns:      rowColumns(e, Column{ColGroup, Bigint}, Column{ColID, Bigint}),
		PartitionKey: []string{ColGroup},
		Clustering:   []KeyColumn{{ColID, Desc}},
	}
}

func byFieldTable(e *Entity, f Field) Table {
	return Table{
		Name:         ByFieldTable(e.name, f.Name),
		Kind:         KindByField,
		Source:       f.Name,
		Columns:      rowColumns(e, Column{ColGroup, Bigint}, Column{ColID, Bigint}),
		PartitionKey: []string{ColGroup},
		Clustering:   []KeyColumn{{f.Name, f.Type.Order()}, {ColID, Desc}},
	}
}

func substringTable(e *Entity, f Field) Table {
	return Table{
		Name:   SubstringTable(e.name, f.Name),
		Kind:   KindSubstring,
		Source: f.Name,
		Columns: []Column{
			{ColGroup, Bigint},
			{ColSubstring, Text},
			{ColValue, Text},
		},
		PartitionKey: []string{ColGroup},
		Clustering:   []KeyColumn{{ColSubstring, Asc}, {ColValue, Asc}},
	}
}

func byEntityTable(e *Entity, relation string) Table {
	return Table{
		Name:         ByEntityTable(e.name, relation),
		Kind:         KindByEntity,
		Source:       relation,
		Columns:      rowColumns(e, Column{ColGroup, Bigint}, Column{ColEntity, Bigint}, Column{ColID, Bigint}),
		PartitionKey: []string{ColGroup},
		Clustering:   []KeyColumn{{ColEntity, Desc}, {ColID, Desc}},
	}
}

func byManyTable(e *Entity, relation string) Table {
	return Table{
		Name:         ByManyTable(e.name, relation),
		Kind:         KindByMany,
		Source:       relation,
		Columns:      rowColumns(e, Column{ColGroup, Bigint}, Column{ColEntity, Bigint}, Column{ColID, Bigint}, Column{ColRow, Bigint}),
		PartitionKey: []string{ColGroup},
		Clustering:   []KeyColumn{{ColEntity, Desc}, {ColID, Desc}, {ColRow, Desc}},
	}
}

// rowColumns lists the key columns, the system timestamps and every field.
func rowColumns(e *Entity, keys ...Column) []Column {
	cols := make([]Column, 0, len(keys)+2+len(e.fields))
	cols = append(cols, keys...)
	cols = append(cols, Column{ColCreatedAt, Timestamp}, Column{ColUpdatedAt, Timestamp})
	for _, f := range e.fields {
		cols = append(cols, Column{f.Name, f.Type})
	}
	return cols
}
