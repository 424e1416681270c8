package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jacentio/tessera/schema"
)

// Delete removes the row at (group, id) from the primary table and every
// by-field table in one batch. Fan-out rows of Substring fields are removed
// unless another row in the group holds the same value. Relation rows are
// left in place; use Detach or DetachMany.
//
// Returns ErrNotFound if the row does not exist.
func (s *Store) Delete(ctx context.Context, group, id int64, c Consistency) error {
	prior, err := s.FirstByID(ctx, group, id)
	if err != nil {
		return err
	}

	var stmts []Statement
	for _, f := range s.entity.Indexed() {
		old := prior.Get(f.Name)
		if old.IsNull() {
			continue
		}
		stmts = append(stmts, s.byFieldDelete(f, group, id, old))
		if f.Kind != schema.Substring {
			continue
		}
		held, err := s.valueShared(ctx, f, group, id, old)
		if err != nil {
			return err
		}
		if !held {
			stmts = append(stmts, s.fanoutDeletes(f, group, old)...)
		}
	}
	stmts = append(stmts, s.deleteStmt(s.primary, []Value{Int(group), Int(id)}))

	return s.execute(ctx, "delete", stmts, c)
}

// RepairProjection removes the by-field row of field at a stale value,
// unless the current row still holds that value. It closes the window in
// which a concurrent write leaves a projection behind that no longer matches
// the primary table.
//
// Repairing a row that no longer exists removes the stale projection too.
func (s *Store) RepairProjection(ctx context.Context, group, id int64, field string, stale Value, c Consistency) error {
	f, ok := s.entity.Field(field)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, field)
	}
	if !f.Kind.Indexed() {
		return fmt.Errorf("%w: field %q is not indexed", ErrUnsupported, field)
	}
	if err := checkKind(f, stale); err != nil {
		return err
	}

	current, err := s.FirstByID(ctx, group, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if current.Get(f.Name).Equal(stale) {
		return nil
	}

	stmts := []Statement{s.byFieldDelete(f, group, id, stale)}
	if f.Kind == schema.Substring {
		held, err := s.valueShared(ctx, f, group, id, stale)
		if err != nil {
			return err
		}
		if !held {
			stmts = append(stmts, s.fanoutDeletes(f, group, stale)...)
		}
	}

	s.logger.InfoContext(ctx, "repairing stale projection",
		"group", group,
		"id", id,
		"field", f.Name,
	)
	return s.execute(ctx, "repair_projection", stmts, c)
}

// valueShared reports whether a row other than id in the group holds v in
// field f.
func (s *Store) valueShared(ctx context.Context, f schema.Field, group, id int64, v Value) (bool, error) {
	t := s.table(schema.ByFieldTable(s.entity.Name(), f.Name))
	q := s.query(t, []Cond{
		{Column: schema.ColGroup, Op: Eq, Value: Int(group)},
		{Column: f.Name, Op: Eq, Value: v},
	}, 2)

	recs, err := s.session.Query(ctx, q, s.config.ReadConsistency)
	if err != nil {
		return false, storeErr("value_shared", s.config.ReadConsistency, err)
	}
	for _, rec := range recs {
		if other := rec[schema.ColID]; other.Kind() == KindInt && other.AsInt() != id {
			return true, nil
		}
	}
	return false, nil
}
