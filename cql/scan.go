package cql

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

// newDest returns a scan destination for one column. Known columns scan into
// a pointer to a nil-able pointer so nulls stay distinguishable from zero
// values. Columns the table does not describe scan into the driver's own type
// and are dropped.
func newDest(t schema.Table, col gocql.ColumnInfo) any {
	c, ok := t.Column(col.Name)
	if !ok {
		return col.TypeInfo.New()
	}
	switch c.Type {
	case schema.Bigint:
		return new(*int64)
	case schema.Timestamp:
		return new(*time.Time)
	case schema.Double:
		return new(*float64)
	default:
		return new(*string)
	}
}

// destValue converts a filled destination to a Value.
func destValue(dest any) (store.Value, error) {
	switch d := dest.(type) {
	case **int64:
		if *d == nil {
			return store.Value{}, nil
		}
		return store.Int(**d), nil
	case **time.Time:
		if *d == nil {
			return store.Value{}, nil
		}
		return store.Time(**d), nil
	case **float64:
		if *d == nil {
			return store.Value{}, nil
		}
		return store.Float(**d), nil
	case **string:
		if *d == nil {
			return store.Value{}, nil
		}
		return store.Text(**d), nil
	}
	return store.Value{}, fmt.Errorf("cql: unexpected scan destination %T", dest)
}

func decode(t schema.Table, cols []gocql.ColumnInfo, dest []any) (store.Record, error) {
	rec := make(store.Record, len(cols))
	for i, col := range cols {
		if _, ok := t.Column(col.Name); !ok {
			continue
		}
		v, err := destValue(dest[i])
		if err != nil {
			return nil, err
		}
		if !v.IsNull() {
			rec[col.Name] = v
		}
	}
	return rec, nil
}
