package schema

import (
	"fmt"
	"sort"
)

// Registry holds the entities of one keyspace. Derived table names must be
// unique across all registered entities.
type Registry struct {
	entities []*Entity
	byName   map[string]*Entity
	owners   map[string]string
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: []*Entity{},
		byName:   make(map[string]*Entity),
		owners:   make(map[string]string),
	}
}

// Register adds an entity. It fails with ErrInvalidConfig if the entity
// name is taken or one of its tables collides with a registered table.
func (r *Registry) Register(e *Entity) error {
	if _, ok := r.byName[e.Name()]; ok {
		return fmt.Errorf("%w: entity %q registered twice", ErrInvalidConfig, e.Name())
	}

	tables := Tables(e)
	for _, t := range tables {
		if owner, ok := r.owners[t.Name]; ok {
			return fmt.Errorf("%w: table %q of entity %q collides with entity %q",
				ErrInvalidConfig, t.Name, e.Name(), owner)
		}
	}

	for _, t := range tables {
		r.owners[t.Name] = e.Name()
	}
	r.entities = append(r.entities, e)
	r.byName[e.Name()] = e
	return nil
}

// Entity returns a registered entity by name.
func (r *Registry) Entity(name string) (*Entity, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Entities returns all registered entities in registration order.
func (r *Registry) Entities() []*Entity {
	return append([]*Entity(nil), r.entities...)
}

// Owner returns the entity name a derived table belongs to.
func (r *Registry) Owner(table string) (string, bool) {
	name, ok := r.owners[table]
	return name, ok
}

// Tables returns the names of all derived tables, sorted.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.owners))
	for name := range r.owners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeriveSchema returns the DDL of every registered entity, entity by entity
// in registration order.
func (r *Registry) DeriveSchema() []string {
	var stmts []string
	for _, e := range r.entities {
		stmts = append(stmts, DeriveSchema(e)...)
	}
	return stmts
}
