package schema_test

import (
	"testing"

	"gotest.tools/assert"

	"github.com/jacentio/tessera/schema"
)

func testEntity(t *testing.T) *schema.Entity {
	t.Helper()
	e, err := schema.NewEntity("test", []schema.Field{
		{Name: "test1", Type: schema.Text, Kind: schema.Substring},
		{Name: "test2", Type: schema.Timestamp, Kind: schema.Value},
		{Name: "test3", Type: schema.Text, Kind: schema.Storaged},
		{Name: "test4", Type: schema.Double, Kind: schema.Value},
	}, schema.WithByEntity("union"), schema.WithByMany("paper"))
	assert.NilError(t, err)
	return e
}

const rowCols = "created_at timestamp, updated_at timestamp, test1 text, test2 timestamp, test3 text, test4 double, "

func TestDeriveSchema_Golden(t *testing.T) {
	got := schema.DeriveSchema(testEntity(t))

	want := []string{
		`CREATE TABLE test_by_field_test1 ("group" bigint, id bigint, ` + rowCols +
			`PRIMARY KEY ("group", test1, id)) WITH CLUSTERING ORDER BY (test1 ASC, id DESC) AND gc_grace_seconds = 86400`,
		`CREATE TABLE test_test1_substring ("group" bigint, substring text, value text, ` +
			`PRIMARY KEY ("group", substring, value)) WITH CLUSTERING ORDER BY (substring ASC, value ASC) AND gc_grace_seconds = 86400`,
		`CREATE TABLE test_by_field_test2 ("group" bigint, id bigint, ` + rowCols +
			`PRIMARY KEY ("group", test2, id)) WITH CLUSTERING ORDER BY (test2 DESC, id DESC) AND gc_grace_seconds = 86400`,
		`CREATE TABLE test_by_field_test4 ("group" bigint, id bigint, ` + rowCols +
			`PRIMARY KEY ("group", test4, id)) WITH CLUSTERING ORDER BY (test4 ASC, id DESC) AND gc_grace_seconds = 86400`,
		`CREATE TABLE test_by_entity_union ("group" bigint, entity bigint, id bigint, ` + rowCols +
			`PRIMARY KEY ("group", entity, id)) WITH CLUSTERING ORDER BY (entity DESC, id DESC) AND gc_grace_seconds = 86400`,
		`CREATE TABLE test_by_many_paper ("group" bigint, entity bigint, id bigint, row bigint, ` + rowCols +
			`PRIMARY KEY ("group", entity, id, row)) WITH CLUSTERING ORDER BY (entity DESC, id DESC, row DESC) AND gc_grace_seconds = 86400`,
		`CREATE TABLE test ("group" bigint, id bigint, ` + rowCols +
			`PRIMARY KEY ("group", id)) WITH CLUSTERING ORDER BY (id DESC) AND gc_grace_seconds = 86400`,
	}

	assert.DeepEqual(t, got, want)
}

func TestDeriveSchema_Deterministic(t *testing.T) {
	e := testEntity(t)
	assert.DeepEqual(t, schema.DeriveSchema(e), schema.DeriveSchema(e))
}

func TestTables_Order(t *testing.T) {
	tables := schema.Tables(testEntity(t))

	want := []struct {
		name string
		kind schema.TableKind
	}{
		{"test_by_field_test1", schema.KindByField},
		{"test_test1_substring", schema.KindSubstring},
		{"test_by_field_test2", schema.KindByField},
		{"test_by_field_test4", schema.KindByField},
		{"test_by_entity_union", schema.KindByEntity},
		{"test_by_many_paper", schema.KindByMany},
		{"test", schema.KindPrimary},
	}

	assert.Equal(t, len(tables), len(want))
	for i, w := range want {
		assert.Equal(t, tables[i].Name, w.name)
		assert.Equal(t, tables[i].Kind, w.kind)
	}
}

func TestTables_StoragedOnly(t *testing.T) {
	e, err := schema.NewEntity("note", []schema.Field{
		{Name: "body", Type: schema.Text, Kind: schema.Storaged},
	})
	assert.NilError(t, err)

	tables := schema.Tables(e)
	assert.Equal(t, len(tables), 1)
	assert.Equal(t, tables[0].Name, "note")
	assert.DeepEqual(t, tables[0].KeyColumns(), []string{"group", "id"})
}

func TestTables_NoFields(t *testing.T) {
	e, err := schema.NewEntity("bare", nil)
	assert.NilError(t, err)

	ddl := schema.DeriveSchema(e)
	assert.DeepEqual(t, ddl, []string{
		`CREATE TABLE bare ("group" bigint, id bigint, created_at timestamp, updated_at timestamp, ` +
			`PRIMARY KEY ("group", id)) WITH CLUSTERING ORDER BY (id DESC) AND gc_grace_seconds = 86400`,
	})
}

func TestTableFor(t *testing.T) {
	e := testEntity(t)

	tbl, ok := schema.TableFor(e, "test_by_field_test2")
	assert.Assert(t, ok)
	assert.Equal(t, tbl.Source, "test2")
	assert.DeepEqual(t, tbl.Clustering, []schema.KeyColumn{
		{Name: "test2", Order: schema.Desc},
		{Name: "id", Order: schema.Desc},
	})

	col, ok := tbl.Column("test4")
	assert.Assert(t, ok)
	assert.Equal(t, col.Type, schema.Double)

	_, ok = schema.TableFor(e, "missing")
	assert.Assert(t, !ok)
}

func TestFieldType_Order(t *testing.T) {
	tests := []struct {
		typ  schema.FieldType
		want schema.Order
		cql  string
	}{
		{schema.Bigint, schema.Desc, "bigint"},
		{schema.Timestamp, schema.Desc, "timestamp"},
		{schema.Text, schema.Asc, "text"},
		{schema.Double, schema.Asc, "double"},
		{schema.Datetime, schema.Desc, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.typ.Order(), tt.want)
			assert.Equal(t, tt.typ.CQLType(), tt.cql)
		})
	}
}
