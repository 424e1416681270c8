package store

import (
	"time"

	"github.com/jacentio/tessera/schema"
)

// Row is a decoded row snapshot.
type Row struct {
	Group int64
	ID    int64

	// Owner is the owning entity id of by-entity and by-many rows.
	Owner int64

	// Seq is the sequence number of by-many rows.
	Seq int64

	// Values maps field names to their stored values. Null fields are absent.
	Values map[string]Value

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Get returns a field's value, or null.
func (r *Row) Get(field string) Value {
	if r == nil {
		return Value{}
	}
	return r.Values[field]
}

// decodeRow converts a raw record to a Row, keeping configured fields only.
func decodeRow(e *schema.Entity, rec Record) *Row {
	row := &Row{Values: make(map[string]Value, e.NumFields())}

	if v, ok := rec[schema.ColGroup]; ok && v.Kind() == KindInt {
		row.Group = v.AsInt()
	}
	if v, ok := rec[schema.ColID]; ok && v.Kind() == KindInt {
		row.ID = v.AsInt()
	}
	if v, ok := rec[schema.ColEntity]; ok && v.Kind() == KindInt {
		row.Owner = v.AsInt()
	}
	if v, ok := rec[schema.ColRow]; ok && v.Kind() == KindInt {
		row.Seq = v.AsInt()
	}
	if v, ok := rec[schema.ColCreatedAt]; ok && v.Kind() == KindTime {
		row.CreatedAt = v.AsTime()
	}
	if v, ok := rec[schema.ColUpdatedAt]; ok && v.Kind() == KindTime {
		row.UpdatedAt = v.AsTime()
	}

	for i := 0; i < e.NumFields(); i++ {
		name := e.FieldAt(i).Name
		if v, ok := rec[name]; ok && !v.IsNull() {
			row.Values[name] = v
		}
	}

	return row
}
