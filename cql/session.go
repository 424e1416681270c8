// Package cql runs store plans against Cassandra or ScyllaDB through gocql.
//
// Statements and queries carry their rendered CQL, so the session binds the
// values and submits them as they are. Write plans are sent as one logged
// batch.
package cql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocql/gocql"

	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

// ErrUnknownTable is returned for statements on tables the session does not
// serve.
var ErrUnknownTable = errors.New("cql: unknown table")

// Config holds connection settings.
type Config struct {
	// Hosts lists the contact points.
	// Default: ["127.0.0.1"]
	Hosts []string

	// Port is the native protocol port.
	// Default: 9042
	Port int

	// Keyspace is the session keyspace.
	// Default: "" (statements must be qualified)
	Keyspace string

	// Username and Password enable password authentication when Username is
	// set.
	Username string
	Password string

	// Timeout bounds each request.
	// Default: 10 seconds
	Timeout time.Duration

	// NumConns is the number of connections per host.
	// Default: 2
	NumConns int

	// Logger receives debug output.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Hosts:    []string{"127.0.0.1"},
		Port:     9042,
		Timeout:  10 * time.Second,
		NumConns: 2,
	}
}

func (c *Config) validate() {
	if len(c.Hosts) == 0 {
		c.Hosts = []string{"127.0.0.1"}
	}
	if c.Port <= 0 {
		c.Port = 9042
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.NumConns < 1 {
		c.NumConns = 2
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// NewCluster returns the gocql cluster configuration for config.
func NewCluster(config Config) *gocql.ClusterConfig {
	config.validate()
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Port = config.Port
	cluster.Keyspace = config.Keyspace
	cluster.Timeout = config.Timeout
	cluster.ConnectTimeout = config.Timeout
	cluster.NumConns = config.NumConns
	cluster.Consistency = gocql.Quorum
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	return cluster
}

// Session is a store.Session backed by a gocql session. It is safe for
// concurrent use.
type Session struct {
	session *gocql.Session
	config  Config
	tables  map[string]schema.Table
}

var _ store.Session = (*Session)(nil)

// Connect opens a gocql session and serves the derived tables of entities.
func Connect(config Config, entities ...*schema.Entity) (*Session, error) {
	session, err := NewCluster(config).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return New(session, config, entities...), nil
}

// New wraps an open gocql session.
func New(session *gocql.Session, config Config, entities ...*schema.Entity) *Session {
	config.validate()
	s := &Session{
		session: session,
		config:  config,
		tables:  make(map[string]schema.Table),
	}
	for _, e := range entities {
		for _, t := range schema.Tables(e) {
			s.tables[t.Name] = t
		}
	}
	return s
}

// Close closes the underlying gocql session.
func (s *Session) Close() {
	s.session.Close()
}

// ExecuteBatch applies stmts as one logged batch.
func (s *Session) ExecuteBatch(ctx context.Context, stmts []store.Statement, c store.Consistency) error {
	if len(stmts) == 0 {
		return nil
	}

	b := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, st := range stmts {
		if _, ok := s.tables[st.Table]; !ok {
			return fmt.Errorf("%w %q", ErrUnknownTable, st.Table)
		}
		b.Query(st.CQL, natives(st.Values)...)
	}
	b.SetConsistency(consistency(c))

	s.config.Logger.DebugContext(ctx, "logged batch",
		"statements", len(stmts),
		"consistency", c.String(),
	)
	return s.session.ExecuteBatch(b)
}

// Query runs q and decodes every returned row with the column types of
// q.Table.
func (s *Session) Query(ctx context.Context, q store.Query, c store.Consistency) ([]store.Record, error) {
	t, ok := s.tables[q.Table]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, q.Table)
	}

	iter := s.session.Query(q.CQL, natives(q.Values)...).
		WithContext(ctx).
		Consistency(consistency(c)).
		Iter()

	cols := iter.Columns()
	dest := make([]any, len(cols))
	var out []store.Record
	for {
		for i, col := range cols {
			dest[i] = newDest(t, col)
		}
		if !iter.Scan(dest...) {
			break
		}
		rec, err := decode(t, cols, dest)
		if err != nil {
			iter.Close()
			return nil, err
		}
		out = append(out, rec)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// consistency maps a store level to the driver's. Both follow the native
// protocol numbering.
func consistency(c store.Consistency) gocql.Consistency {
	switch c {
	case store.Any:
		return gocql.Any
	case store.One:
		return gocql.One
	case store.Two:
		return gocql.Two
	case store.Three:
		return gocql.Three
	case store.All:
		return gocql.All
	case store.LocalQuorum:
		return gocql.LocalQuorum
	case store.EachQuorum:
		return gocql.EachQuorum
	case store.LocalOne:
		return gocql.LocalOne
	}
	return gocql.Quorum
}

func natives(vals []store.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v.Native()
	}
	return out
}
