package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jacentio/tessera/schema"
)

// Store maintains the primary table of one entity and its projections.
// It is safe for concurrent use.
type Store struct {
	session Session
	entity  *schema.Entity
	config  Config
	logger  *slog.Logger

	primary schema.Table
	tables  map[string]schema.Table
}

// New creates a new Store for entity backed by session. It returns
// ErrPlanTooLarge when a write of entity can exceed the batch limit of the
// config or the session.
func New(session Session, entity *schema.Entity, config Config) (*Store, error) {
	config.validate()
	if l, ok := session.(BatchLimiter); ok {
		if n := l.MaxBatchStatements(); n > 0 && (config.MaxBatchStatements == 0 || n < config.MaxBatchStatements) {
			config.MaxBatchStatements = n
		}
	}
	s := &Store{
		session: session,
		entity:  entity,
		config:  config,
		logger:  config.Logger.With("entity", entity.Name()),
		primary: schema.PrimaryTable(entity),
		tables:  make(map[string]schema.Table),
	}
	for _, t := range schema.Tables(entity) {
		s.tables[t.Name] = t
	}
	if limit := config.MaxBatchStatements; limit > 0 {
		if n := s.MaxPlanStatements(); n > limit {
			return nil, fmt.Errorf("%w: entity %q writes up to %d statements, limit is %d",
				ErrPlanTooLarge, entity.Name(), n, limit)
		}
	}
	return s, nil
}

// MaxPlanStatements returns the size of the largest batch a write can
// produce with at most one link per relation. Every indexed field changes
// value, and every Substring value fans out the full SubstringMaxRunes on
// both sides.
func (s *Store) MaxPlanStatements() int {
	n := 1 + len(s.entity.ByEntity()) + len(s.entity.ByMany())
	for _, f := range s.entity.Indexed() {
		n += 2
		if f.Kind == schema.Substring {
			n += 2 * s.config.SubstringMaxRunes
		}
	}
	return n
}

// Entity returns the entity configuration.
func (s *Store) Entity() *schema.Entity { return s.entity }

// Config returns the effective configuration.
func (s *Store) Config() Config { return s.config }

// InsertPartial writes the given fields of the row at (group, id). Fields
// not listed keep their stored values.
//
// The current row is read first. For each listed Value or Substring field
// whose stored value differs from the new one, the by-field row at the old
// value is deleted; every listed indexed field is then rewritten at its new
// value. Indexed fields that were not listed but hold a value are rewritten
// too, so every projection carries the merged row. The primary upsert is the
// last statement of the batch.
//
// The read is not atomic with the batch: a concurrent write to the same key
// between the two can leave a stale projection behind.
func (s *Store) InsertPartial(ctx context.Context, group, id int64, values []FieldValue, c Consistency, opts ...WriteOption) error {
	return s.write(ctx, "insert", group, id, values, c, opts)
}

// InsertFull replaces the row at (group, id). values must hold one value per
// configured field, in configuration order; otherwise ErrArityMismatch is
// returned before the store is contacted.
func (s *Store) InsertFull(ctx context.Context, group, id int64, values []Value, c Consistency, opts ...WriteOption) error {
	if len(values) != s.entity.NumFields() {
		return fmt.Errorf("%w: got %d values for %d fields", ErrArityMismatch, len(values), s.entity.NumFields())
	}

	fvs := make([]FieldValue, len(values))
	for i, v := range values {
		fvs[i] = FieldValue{Field: s.entity.FieldAt(i).Name, Value: v}
	}
	return s.write(ctx, "insert_full", group, id, fvs, c, opts)
}

func (s *Store) write(ctx context.Context, op string, group, id int64, values []FieldValue, c Consistency, opts []WriteOption) error {
	// 1. Validate before touching the store
	targeted, err := s.checkValues(values)
	if err != nil {
		return err
	}
	var wo writeOptions
	for _, opt := range opts {
		opt(&wo)
	}
	links, err := s.checkLinks(wo.links)
	if err != nil {
		return err
	}

	// 2. Read the current snapshot; absence is a first insert
	prior, err := s.FirstByID(ctx, group, id)
	if errors.Is(err, ErrNotFound) {
		prior = nil
	} else if err != nil {
		return err
	}

	// 3. Find substring fan-out still needed by other rows
	shared, err := s.sharedOld(ctx, group, id, prior, targeted)
	if err != nil {
		return err
	}

	// 4. Plan and submit as one batch
	stmts := s.plan(PlanInput{
		Group:     group,
		ID:        id,
		Prior:     prior,
		SharedOld: shared,
		Now:       s.config.Clock(),
	}, targeted, links)

	return s.execute(ctx, op, stmts, c)
}

// sharedOld reports, per changed Substring field, whether another row in the
// group still holds the old value.
func (s *Store) sharedOld(ctx context.Context, group, id int64, prior *Row, targeted map[string]Value) (map[string]bool, error) {
	if prior == nil {
		return nil, nil
	}
	var shared map[string]bool
	for _, f := range s.entity.Indexed() {
		if f.Kind != schema.Substring {
			continue
		}
		nv, ok := targeted[f.Name]
		old := prior.Get(f.Name)
		if !ok || old.IsNull() || old.Equal(nv) {
			continue
		}
		held, err := s.valueShared(ctx, f, group, id, old)
		if err != nil {
			return nil, err
		}
		if held {
			if shared == nil {
				shared = make(map[string]bool)
			}
			shared[f.Name] = true
		}
	}
	return shared, nil
}

// checkValues validates targeted fields and returns them by name.
func (s *Store) checkValues(values []FieldValue) (map[string]Value, error) {
	targeted := make(map[string]Value, len(values))
	for _, fv := range values {
		f, ok := s.entity.Field(fv.Field)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownField, fv.Field)
		}
		if _, dup := targeted[fv.Field]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, fv.Field)
		}
		if err := checkKind(f, fv.Value); err != nil {
			return nil, err
		}
		targeted[fv.Field] = fv.Value
	}
	return targeted, nil
}

func checkKind(f schema.Field, v Value) error {
	if want := KindOf(f.Type); v.Kind() != want {
		return fmt.Errorf("%w: field %q wants %s, got %s", ErrTypeMismatch, f.Name, want, v.Kind())
	}
	return nil
}

// execute submits one batch.
func (s *Store) execute(ctx context.Context, op string, stmts []Statement, c Consistency) error {
	if limit := s.config.MaxBatchStatements; limit > 0 && len(stmts) > limit {
		return fmt.Errorf("%w: %s needs %d statements, limit is %d", ErrPlanTooLarge, op, len(stmts), limit)
	}
	s.logger.DebugContext(ctx, "executing batch",
		"op", op,
		"statements", len(stmts),
		"consistency", c.String(),
	)
	return storeErr(op, c, s.session.ExecuteBatch(ctx, stmts, c))
}

// table returns a derived table by name. Names are computed from the
// validated configuration, so a miss is a programming error.
func (s *Store) table(name string) schema.Table {
	t, ok := s.tables[name]
	if !ok {
		panic("tessera: no derived table " + name)
	}
	return t
}
