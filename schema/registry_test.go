package schema_test

import (
	"errors"
	"testing"

	"github.com/jacentio/tessera/schema"
)

func TestNewRegistry(t *testing.T) {
	r := schema.NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil Registry")
	}
	if len(r.Entities()) != 0 {
		t.Errorf("expected 0 entities, got %d", len(r.Entities()))
	}
}

func TestRegistry_Register(t *testing.T) {
	r := schema.NewRegistry()

	paper := schema.MustEntity("paper", []schema.Field{
		{Name: "title", Type: schema.Text, Kind: schema.Substring},
	})
	author := schema.MustEntity("author", []schema.Field{
		{Name: "email", Type: schema.Text, Kind: schema.Value},
	}, schema.WithByMany("paper"))

	if err := r.Register(paper); err != nil {
		t.Fatalf("register paper: %v", err)
	}
	if err := r.Register(author); err != nil {
		t.Fatalf("register author: %v", err)
	}

	entities := r.Entities()
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].Name() != "paper" || entities[1].Name() != "author" {
		t.Errorf("expected registration order, got %q, %q", entities[0].Name(), entities[1].Name())
	}

	e, ok := r.Entity("author")
	if !ok || e != author {
		t.Error("expected author to be found")
	}
	if _, ok := r.Entity("review"); ok {
		t.Error("expected review to be missing")
	}

	owner, ok := r.Owner("author_by_many_paper")
	if !ok || owner != "author" {
		t.Errorf("expected owner 'author', got %q", owner)
	}
}

func TestRegistry_Tables(t *testing.T) {
	r := schema.NewRegistry()
	_ = r.Register(schema.MustEntity("paper", []schema.Field{
		{Name: "title", Type: schema.Text, Kind: schema.Substring},
	}))

	expected := []string{"paper", "paper_by_field_title", "paper_title_substring"}
	got := r.Tables()
	if len(got) != len(expected) {
		t.Fatalf("expected %d tables, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("expected table %d to be %q, got %q", i, expected[i], got[i])
		}
	}
}

func TestRegistry_DuplicateEntity(t *testing.T) {
	r := schema.NewRegistry()
	_ = r.Register(schema.MustEntity("paper", nil))

	err := r.Register(schema.MustEntity("paper", nil))
	if !errors.Is(err, schema.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRegistry_TableCollision(t *testing.T) {
	r := schema.NewRegistry()

	// "a" with by_field table a_by_field_b, and an entity literally named so
	_ = r.Register(schema.MustEntity("a", []schema.Field{
		{Name: "b", Type: schema.Bigint, Kind: schema.Value},
	}))

	err := r.Register(schema.MustEntity("a_by_field_b", nil))
	if !errors.Is(err, schema.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, ok := r.Entity("a_by_field_b"); ok {
		t.Error("expected failed registration to leave the registry unchanged")
	}
}

func TestRegistry_DeriveSchema(t *testing.T) {
	r := schema.NewRegistry()
	paper := schema.MustEntity("paper", []schema.Field{
		{Name: "title", Type: schema.Text, Kind: schema.Storaged},
	})
	author := schema.MustEntity("author", nil)
	_ = r.Register(paper)
	_ = r.Register(author)

	stmts := r.DeriveSchema()
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if stmts[0] != schema.DeriveSchema(paper)[0] {
		t.Errorf("expected paper DDL first, got %q", stmts[0])
	}
	if stmts[1] != schema.DeriveSchema(author)[0] {
		t.Errorf("expected author DDL second, got %q", stmts[1])
	}
}
