package store

import (
	"time"

	"github.com/jacentio/tessera/schema"
)

// PlanInput is the input of the write planner.
type PlanInput struct {
	Group int64
	ID    int64

	// Values are the fields to write.
	Values []FieldValue

	// Prior is the stored row, or nil on first insert.
	Prior *Row

	// Links are relation rows to write with the merged row.
	Links []Link

	// SharedOld marks Substring fields whose prior value is still held by
	// another row in the group. Their fan-out rows are not deleted.
	SharedOld map[string]bool

	// Now stamps updated_at, and created_at on first insert.
	Now time.Time
}

// Plan validates in and returns the ordered batch a write would submit,
// without contacting the store.
func (s *Store) Plan(in PlanInput) ([]Statement, error) {
	targeted, err := s.checkValues(in.Values)
	if err != nil {
		return nil, err
	}
	links, err := s.checkLinks(in.Links)
	if err != nil {
		return nil, err
	}
	return s.plan(in, targeted, links), nil
}

// stamps holds the system timestamps of a row write. Null stamps are omitted.
type stamps struct {
	created Value
	updated Value
}

func stampsOf(created, updated time.Time) stamps {
	var st stamps
	if !created.IsZero() {
		st.created = Time(created)
	}
	if !updated.IsZero() {
		st.updated = Time(updated)
	}
	return st
}

// plan builds the batch: per indexed field in declaration order, the stale
// delete (if the value changed) followed by the rewrite, then relation rows,
// then the primary upsert.
func (s *Store) plan(in PlanInput, targeted map[string]Value, links []Link) []Statement {
	created := in.Now
	if in.Prior != nil && !in.Prior.CreatedAt.IsZero() {
		created = in.Prior.CreatedAt
	}
	ts := stampsOf(created, in.Now)

	merged := make(map[string]Value, s.entity.NumFields())
	if in.Prior != nil {
		for k, v := range in.Prior.Values {
			merged[k] = v
		}
	}
	for k, v := range targeted {
		merged[k] = v
	}

	var batch []Statement
	for _, f := range s.entity.Indexed() {
		old := in.Prior.Get(f.Name)
		nv, ok := targeted[f.Name]
		if !ok {
			// Not written, but its copy of the row is now stale
			if !old.IsNull() {
				batch = append(batch, s.byFieldInsert(f, in.Group, in.ID, merged, ts))
			}
			continue
		}

		if !old.IsNull() && !old.Equal(nv) {
			batch = append(batch, s.byFieldDelete(f, in.Group, in.ID, old))
			if f.Kind == schema.Substring && !in.SharedOld[f.Name] {
				batch = append(batch, s.fanoutDeletes(f, in.Group, old)...)
			}
		}

		batch = append(batch, s.byFieldInsert(f, in.Group, in.ID, merged, ts))
		if f.Kind == schema.Substring {
			batch = append(batch, s.fanoutInserts(f, in.Group, nv)...)
		}
	}

	for _, l := range links {
		batch = append(batch, s.linkInsert(l, in.Group, in.ID, merged, ts))
	}

	return append(batch, s.primaryInsert(in.Group, in.ID, targeted, ts))
}

// primaryInsert upserts the targeted fields into the primary table.
func (s *Store) primaryInsert(group, id int64, targeted map[string]Value, ts stamps) Statement {
	cols := []string{schema.ColGroup, schema.ColID}
	vals := []Value{Int(group), Int(id)}
	cols, vals = appendStamps(cols, vals, ts)
	for i := 0; i < s.entity.NumFields(); i++ {
		name := s.entity.FieldAt(i).Name
		if v, ok := targeted[name]; ok {
			cols = append(cols, name)
			vals = append(vals, v)
		}
	}
	return s.insertStmt(s.primary, cols, vals)
}

func (s *Store) byFieldInsert(f schema.Field, group, id int64, merged map[string]Value, ts stamps) Statement {
	t := s.table(schema.ByFieldTable(s.entity.Name(), f.Name))
	return s.rowInsert(t, []string{schema.ColGroup, schema.ColID}, []Value{Int(group), Int(id)}, merged, ts)
}

func (s *Store) byFieldDelete(f schema.Field, group, id int64, old Value) Statement {
	t := s.table(schema.ByFieldTable(s.entity.Name(), f.Name))
	return s.deleteStmt(t, []Value{Int(group), old, Int(id)})
}

func (s *Store) fanoutInserts(f schema.Field, group int64, v Value) []Statement {
	t := s.table(schema.SubstringTable(s.entity.Name(), f.Name))
	cols := []string{schema.ColGroup, schema.ColSubstring, schema.ColValue}

	var stmts []Statement
	for _, sub := range fanout(v.AsText(), s.config.SubstringMaxRunes) {
		stmts = append(stmts, s.insertStmt(t, cols, []Value{Int(group), Text(sub), v}))
	}
	return stmts
}

func (s *Store) fanoutDeletes(f schema.Field, group int64, old Value) []Statement {
	t := s.table(schema.SubstringTable(s.entity.Name(), f.Name))

	var stmts []Statement
	for _, sub := range fanout(old.AsText(), s.config.SubstringMaxRunes) {
		stmts = append(stmts, s.deleteStmt(t, []Value{Int(group), Text(sub), old}))
	}
	return stmts
}

// rowInsert writes keys, the system timestamps and every non-null merged
// field into a full-row projection table.
func (s *Store) rowInsert(t schema.Table, cols []string, vals []Value, merged map[string]Value, ts stamps) Statement {
	cols, vals = appendStamps(cols, vals, ts)
	for i := 0; i < s.entity.NumFields(); i++ {
		name := s.entity.FieldAt(i).Name
		if v, ok := merged[name]; ok && !v.IsNull() {
			cols = append(cols, name)
			vals = append(vals, v)
		}
	}
	return s.insertStmt(t, cols, vals)
}

func appendStamps(cols []string, vals []Value, ts stamps) ([]string, []Value) {
	if !ts.created.IsNull() {
		cols = append(cols, schema.ColCreatedAt)
		vals = append(vals, ts.created)
	}
	if !ts.updated.IsNull() {
		cols = append(cols, schema.ColUpdatedAt)
		vals = append(vals, ts.updated)
	}
	return cols, vals
}
