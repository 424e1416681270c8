package store

import (
	"context"
	"fmt"

	"github.com/jacentio/tessera/schema"
)

// Link places a row in a relation table under an owning entity.
type Link struct {
	// Relation is a configured by-entity or by-many relation name.
	Relation string

	// Many selects the by-many table of Relation.
	Many bool

	// Owner is the owning entity id.
	Owner int64

	// Seq is the by-many sequence number. Ignored for by-entity links.
	Seq int64
}

// WriteOption configures a write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	links []Link
}

// WithEntity writes the merged row into the by-entity table of relation
// under owner, in the same batch as the write.
func WithEntity(relation string, owner int64) WriteOption {
	return func(o *writeOptions) {
		o.links = append(o.links, Link{Relation: relation, Owner: owner})
	}
}

// WithMany writes the merged row into the by-many table of relation under
// (owner, seq), in the same batch as the write.
func WithMany(relation string, owner, seq int64) WriteOption {
	return func(o *writeOptions) {
		o.links = append(o.links, Link{Relation: relation, Many: true, Owner: owner, Seq: seq})
	}
}

// checkLinks validates relation names and drops repeated links.
func (s *Store) checkLinks(links []Link) ([]Link, error) {
	if len(links) == 0 {
		return nil, nil
	}
	out := make([]Link, 0, len(links))
	seen := make(map[Link]bool, len(links))
	for _, l := range links {
		if l.Many && !s.entity.HasByMany(l.Relation) {
			return nil, fmt.Errorf("%w: by_many %q", ErrUnknownRelation, l.Relation)
		}
		if !l.Many && !s.entity.HasByEntity(l.Relation) {
			return nil, fmt.Errorf("%w: by_entity %q", ErrUnknownRelation, l.Relation)
		}
		if !l.Many {
			l.Seq = 0
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) linkTable(l Link) schema.Table {
	if l.Many {
		return s.table(schema.ByManyTable(s.entity.Name(), l.Relation))
	}
	return s.table(schema.ByEntityTable(s.entity.Name(), l.Relation))
}

func (s *Store) linkKey(l Link, group, id int64) ([]string, []Value) {
	if l.Many {
		return []string{schema.ColGroup, schema.ColEntity, schema.ColID, schema.ColRow},
			[]Value{Int(group), Int(l.Owner), Int(id), Int(l.Seq)}
	}
	return []string{schema.ColGroup, schema.ColEntity, schema.ColID},
		[]Value{Int(group), Int(l.Owner), Int(id)}
}

func (s *Store) linkInsert(l Link, group, id int64, merged map[string]Value, ts stamps) Statement {
	cols, vals := s.linkKey(l, group, id)
	return s.rowInsert(s.linkTable(l), cols, vals, merged, ts)
}

func (s *Store) linkDelete(l Link, group, id int64) Statement {
	_, vals := s.linkKey(l, group, id)
	return s.deleteStmt(s.linkTable(l), vals)
}

// Attach copies the current row at (group, id) into the by-entity table of
// relation under owner. It returns ErrNotFound if the row does not exist.
func (s *Store) Attach(ctx context.Context, relation string, group, owner, id int64, c Consistency) error {
	return s.attach(ctx, Link{Relation: relation, Owner: owner}, group, id, c)
}

// AttachMany copies the current row at (group, id) into the by-many table of
// relation under (owner, seq).
func (s *Store) AttachMany(ctx context.Context, relation string, group, owner, id, seq int64, c Consistency) error {
	return s.attach(ctx, Link{Relation: relation, Many: true, Owner: owner, Seq: seq}, group, id, c)
}

func (s *Store) attach(ctx context.Context, l Link, group, id int64, c Consistency) error {
	links, err := s.checkLinks([]Link{l})
	if err != nil {
		return err
	}
	row, err := s.FirstByID(ctx, group, id)
	if err != nil {
		return err
	}
	stmt := s.linkInsert(links[0], group, id, row.Values, stampsOf(row.CreatedAt, row.UpdatedAt))
	return s.execute(ctx, "attach", []Statement{stmt}, c)
}

// Detach removes the row at (group, id) from the by-entity table of relation
// under owner.
func (s *Store) Detach(ctx context.Context, relation string, group, owner, id int64, c Consistency) error {
	return s.detach(ctx, Link{Relation: relation, Owner: owner}, group, id, c)
}

// DetachMany removes the row at (group, id) from the by-many table of
// relation under (owner, seq).
func (s *Store) DetachMany(ctx context.Context, relation string, group, owner, id, seq int64, c Consistency) error {
	return s.detach(ctx, Link{Relation: relation, Many: true, Owner: owner, Seq: seq}, group, id, c)
}

func (s *Store) detach(ctx context.Context, l Link, group, id int64, c Consistency) error {
	links, err := s.checkLinks([]Link{l})
	if err != nil {
		return err
	}
	return s.execute(ctx, "detach", []Statement{s.linkDelete(links[0], group, id)}, c)
}

// ListByEntity lists rows attached to owner in a by-entity relation, id
// descending, strictly before the given id when before is non-nil.
func (s *Store) ListByEntity(ctx context.Context, relation string, group, owner int64, pageSize int, before *int64) ([]*Row, error) {
	return s.listLinked(ctx, Link{Relation: relation, Owner: owner}, group, pageSize, before)
}

// ListByMany lists rows attached to owner in a by-many relation, ordered by
// id then sequence number, both descending.
func (s *Store) ListByMany(ctx context.Context, relation string, group, owner int64, pageSize int, before *int64) ([]*Row, error) {
	return s.listLinked(ctx, Link{Relation: relation, Many: true, Owner: owner}, group, pageSize, before)
}

func (s *Store) listLinked(ctx context.Context, l Link, group int64, pageSize int, before *int64) ([]*Row, error) {
	if _, err := s.checkLinks([]Link{l}); err != nil {
		return nil, err
	}
	where := []Cond{
		{Column: schema.ColGroup, Op: Eq, Value: Int(group)},
		{Column: schema.ColEntity, Op: Eq, Value: Int(l.Owner)},
	}
	if before != nil {
		where = append(where, Cond{Column: schema.ColID, Op: Lt, Value: Int(*before)})
	}
	return s.list(ctx, "list_linked", s.query(s.linkTable(l), where, s.pageSize(pageSize)))
}
