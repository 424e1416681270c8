// Package schema describes application entities and derives the tables a
// wide-row store needs to serve them.
//
// An [Entity] is built once at startup with [NewEntity] (or loaded from JSON
// with [LoadEntity]) and is immutable afterwards. Every field has a physical
// [FieldType] and a [QueryKind]:
//
//   - [Storaged] fields live in the primary table only.
//   - [Value] fields get a <entity>_by_field_<field> table holding a full copy
//     of the row, clustered by the field value, so a lookup by value returns
//     the whole row.
//   - [Substring] fields additionally get a <entity>_<field>_substring table
//     with one row per suffix of the value, for prefix and substring search.
//
// Relations declared with [WithByEntity] and [WithByMany] add
// <entity>_by_entity_<relation> and <entity>_by_many_<relation> tables keyed
// by the owning entity id.
//
// # Tables
//
// [Tables] returns structured descriptors and [DeriveSchema] renders them as
// CQL DDL. The order is fixed: field-derived tables in field order, then
// by-entity tables, then by-many tables, then the primary table:
//
//	e, err := schema.NewEntity("test", []schema.Field{
//	    {Name: "test1", Type: schema.Text, Kind: schema.Substring},
//	    {Name: "test2", Type: schema.Timestamp, Kind: schema.Value},
//	}, schema.WithByEntity("union"))
//	if err != nil {
//	    return err
//	}
//	for _, ddl := range schema.DeriveSchema(e) {
//	    fmt.Println(ddl)
//	}
//
// Every generated table is partitioned by "group" and carries a
// gc_grace_seconds of 86400.
package schema
