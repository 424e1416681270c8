package store

import (
	"context"
	"fmt"

	"github.com/jacentio/tessera/schema"
)

// FirstByID returns the row at (group, id), or ErrNotFound.
func (s *Store) FirstByID(ctx context.Context, group, id int64) (*Row, error) {
	q := s.query(s.primary, []Cond{
		{Column: schema.ColGroup, Op: Eq, Value: Int(group)},
		{Column: schema.ColID, Op: Eq, Value: Int(id)},
	}, 1)
	return s.first(ctx, "first_by_id", q)
}

// FirstByField returns the row with the greatest id holding key in an
// indexed field. Storaged fields have no lookup table and return
// ErrUnsupported.
func (s *Store) FirstByField(ctx context.Context, field string, group int64, key Value) (*Row, error) {
	q, err := s.byFieldQuery(field, group, key, 1)
	if err != nil {
		return nil, err
	}
	return s.first(ctx, "first_by_field", q)
}

// ListByField returns the rows holding key in an indexed field, id
// descending, up to limit (<= 0 uses Config.PageSize).
func (s *Store) ListByField(ctx context.Context, field string, group int64, key Value, limit int) ([]*Row, error) {
	q, err := s.byFieldQuery(field, group, key, s.pageSize(limit))
	if err != nil {
		return nil, err
	}
	return s.list(ctx, "list_by_field", q)
}

// ListPage returns up to pageSize rows of a group, id descending. When before
// is non-nil only ids strictly below it are returned, so the last id of a
// page is the cursor of the next.
func (s *Store) ListPage(ctx context.Context, group int64, pageSize int, before *int64) ([]*Row, error) {
	where := []Cond{{Column: schema.ColGroup, Op: Eq, Value: Int(group)}}
	if before != nil {
		where = append(where, Cond{Column: schema.ColID, Op: Lt, Value: Int(*before)})
	}
	return s.list(ctx, "list_page", s.query(s.primary, where, s.pageSize(pageSize)))
}

func (s *Store) byFieldQuery(field string, group int64, key Value, limit int) (Query, error) {
	f, ok := s.entity.Field(field)
	if !ok {
		return Query{}, fmt.Errorf("%w %q", ErrUnknownField, field)
	}
	if !f.Kind.Indexed() {
		return Query{}, fmt.Errorf("%w: field %q is not indexed", ErrUnsupported, field)
	}
	if err := checkKind(f, key); err != nil {
		return Query{}, err
	}

	t := s.table(schema.ByFieldTable(s.entity.Name(), f.Name))
	return s.query(t, []Cond{
		{Column: schema.ColGroup, Op: Eq, Value: Int(group)},
		{Column: f.Name, Op: Eq, Value: key},
	}, limit), nil
}

func (s *Store) first(ctx context.Context, op string, q Query) (*Row, error) {
	rows, err := s.list(ctx, op, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) list(ctx context.Context, op string, q Query) ([]*Row, error) {
	c := s.config.ReadConsistency
	recs, err := s.session.Query(ctx, q, c)
	if err != nil {
		return nil, storeErr(op, c, err)
	}
	rows := make([]*Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, decodeRow(s.entity, rec))
	}
	return rows, nil
}

// pageSize applies the configured default and cap.
func (s *Store) pageSize(n int) int {
	if n <= 0 {
		n = s.config.PageSize
	}
	if n > s.config.MaxPageSize {
		n = s.config.MaxPageSize
	}
	return n
}
