package schema

import (
	"fmt"
	"regexp"
)

// System columns managed by the generated tables. Entity fields may not
// reuse these names.
const (
	ColGroup     = "group"
	ColID        = "id"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
	ColEntity    = "entity"
	ColRow       = "row"
	ColSubstring = "substring"
	ColValue     = "value"
)

var reservedColumns = map[string]bool{
	ColGroup:     true,
	ColID:        true,
	ColCreatedAt: true,
	ColUpdatedAt: true,
	ColEntity:    true,
	ColRow:       true,
	ColSubstring: true,
	ColValue:     true,
}

// maxNameLen keeps derived table names such as
// <entity>_by_entity_<relation> within Cassandra's 222 byte limit.
const maxNameLen = 48

var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Entity is an immutable entity configuration. It is safe for concurrent use.
type Entity struct {
	name     string
	fields   []Field
	byEntity []string
	byMany   []string
	index    map[string]int
}

// Option configures optional parts of an Entity.
type Option func(*Entity)

// WithByEntity requests a <entity>_by_entity_<name> table per relation.
func WithByEntity(names ...string) Option {
	return func(e *Entity) {
		e.byEntity = append(e.byEntity, names...)
	}
}

// WithByMany requests a <entity>_by_many_<name> table per relation.
func WithByMany(names ...string) Option {
	return func(e *Entity) {
		e.byMany = append(e.byMany, names...)
	}
}

// NewEntity validates and builds an entity configuration.
//
// All names must be lower-case identifiers. Field names must be unique and
// must not collide with the system columns, relation names must be unique
// within their list, and the Substring kind is only valid on Text fields.
func NewEntity(name string, fields []Field, opts ...Option) (*Entity, error) {
	e := &Entity{
		name:   name,
		fields: append([]Field(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// MustEntity is like NewEntity but panics on error. Intended for package
// level configuration built from constants.
func MustEntity(name string, fields []Field, opts ...Option) *Entity {
	e, err := NewEntity(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Entity) validate() error {
	if err := checkName("entity", e.name); err != nil {
		return err
	}

	for i, f := range e.fields {
		if err := checkName("field", f.Name); err != nil {
			return err
		}
		if reservedColumns[f.Name] {
			return fmt.Errorf("%w: field %q collides with a system column", ErrInvalidConfig, f.Name)
		}
		if _, dup := e.index[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidConfig, f.Name)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("%w: field %q has unknown type %d", ErrInvalidConfig, f.Name, int(f.Type))
		}
		if !f.Kind.Valid() {
			return fmt.Errorf("%w: field %q has unknown query kind %d", ErrInvalidConfig, f.Name, int(f.Kind))
		}
		if f.Kind == Substring && f.Type != Text {
			return fmt.Errorf("%w: substring field %q must be text, got %s", ErrInvalidConfig, f.Name, f.Type)
		}
		e.index[f.Name] = i
	}

	if err := checkRelations("by_entity", e.byEntity); err != nil {
		return err
	}
	return checkRelations("by_many", e.byMany)
}

func checkRelations(kind string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if err := checkName(kind+" relation", n); err != nil {
			return err
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate %s relation %q", ErrInvalidConfig, kind, n)
		}
		seen[n] = true
	}
	return nil
}

func checkName(what, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty %s name", ErrInvalidConfig, what)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: %s name %q longer than %d bytes", ErrInvalidConfig, what, name, maxNameLen)
	}
	if !identRe.MatchString(name) {
		return fmt.Errorf("%w: %s name %q is not a lower-case identifier", ErrInvalidConfig, what, name)
	}
	return nil
}

// Name returns the entity name, which is also the primary table name.
func (e *Entity) Name() string { return e.name }

// Fields returns a copy of the fields in declaration order.
func (e *Entity) Fields() []Field {
	return append([]Field(nil), e.fields...)
}

// NumFields returns the number of configured fields.
func (e *Entity) NumFields() int { return len(e.fields) }

// FieldAt returns the i-th field in declaration order.
func (e *Entity) FieldAt(i int) Field { return e.fields[i] }

// Field looks up a field by name.
func (e *Entity) Field(name string) (Field, bool) {
	i, ok := e.index[name]
	if !ok {
		return Field{}, false
	}
	return e.fields[i], true
}

// FieldIndex returns the declaration position of a field, or -1.
func (e *Entity) FieldIndex(name string) int {
	if i, ok := e.index[name]; ok {
		return i
	}
	return -1
}

// Indexed returns the Value and Substring fields in declaration order.
func (e *Entity) Indexed() []Field {
	var out []Field
	for _, f := range e.fields {
		if f.Kind.Indexed() {
			out = append(out, f)
		}
	}
	return out
}

// ByEntity returns a copy of the by-entity relation names.
func (e *Entity) ByEntity() []string { return append([]string(nil), e.byEntity...) }

// ByMany returns a copy of the by-many relation names.
func (e *Entity) ByMany() []string { return append([]string(nil), e.byMany...) }

// HasByEntity reports whether a by-entity relation is configured.
func (e *Entity) HasByEntity(relation string) bool { return contains(e.byEntity, relation) }

// HasByMany reports whether a by-many relation is configured.
func (e *Entity) HasByMany(relation string) bool { return contains(e.byMany, relation) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
