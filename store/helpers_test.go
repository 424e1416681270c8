package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jacentio/tessera/internal/memstore"
	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

var errUnavailable = errors.New("unavailable")

// countingSession counts calls and optionally fails them.
type countingSession struct {
	mu        sync.Mutex
	next      store.Session
	queries   int
	batches   int
	failRead  bool
	failBatch bool
}

func (c *countingSession) Query(ctx context.Context, q store.Query, cl store.Consistency) ([]store.Record, error) {
	c.mu.Lock()
	c.queries++
	fail := c.failRead
	c.mu.Unlock()
	if fail {
		return nil, errUnavailable
	}
	return c.next.Query(ctx, q, cl)
}

func (c *countingSession) ExecuteBatch(ctx context.Context, stmts []store.Statement, cl store.Consistency) error {
	c.mu.Lock()
	c.batches++
	fail := c.failBatch
	c.mu.Unlock()
	if fail {
		return errUnavailable
	}
	return c.next.ExecuteBatch(ctx, stmts, cl)
}

func (c *countingSession) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries + c.batches
}

// fakeClock returns a clock that advances one second per call.
func fakeClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// testEntity is the entity used across store tests.
func testEntity() *schema.Entity {
	return schema.MustEntity("test", []schema.Field{
		{Name: "test1", Type: schema.Text, Kind: schema.Substring},
		{Name: "test2", Type: schema.Timestamp, Kind: schema.Value},
		{Name: "test3", Type: schema.Text, Kind: schema.Storaged},
		{Name: "test4", Type: schema.Double, Kind: schema.Value},
	}, schema.WithByEntity("union"), schema.WithByMany("paper"))
}

type fixture struct {
	store   *store.Store
	mem     *memstore.Session
	counter *countingSession
}

func newFixture(t *testing.T, e *schema.Entity) *fixture {
	t.Helper()
	mem := memstore.ForEntities(e)
	counter := &countingSession{next: mem}
	cfg := store.DefaultConfig()
	cfg.Clock = fakeClock()
	return &fixture{
		store:   mustNew(t, counter, e, cfg),
		mem:     mem,
		counter: counter,
	}
}

func mustNew(t *testing.T, session store.Session, e *schema.Entity, cfg store.Config) *store.Store {
	t.Helper()
	s, err := store.New(session, e, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func fullValues(title string, at time.Time, body string, score float64) []store.Value {
	return []store.Value{store.Text(title), store.Time(at), store.Text(body), store.Float(score)}
}

func countOps(stmts []store.Statement, op store.Op) int {
	n := 0
	for _, st := range stmts {
		if st.Op == op {
			n++
		}
	}
	return n
}

func ptr[T any](v T) *T { return &v }
