package cql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/gocql/gocql"
)

var keyspaceRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,47}$`)

// Keyspace describes the keyspace generated tables are created in.
type Keyspace struct {
	Name string

	// Replication is the replication map literal.
	// Default: SimpleStrategy with replication factor 1
	Replication string

	// Recreate drops the keyspace before creating it.
	Recreate bool
}

// SimpleReplication returns a SimpleStrategy replication map.
func SimpleReplication(factor int) string {
	return fmt.Sprintf("{'class': 'SimpleStrategy', 'replication_factor': %d}", factor)
}

// statements returns the keyspace statements to run before any DDL.
func (k Keyspace) statements() ([]string, error) {
	if !keyspaceRe.MatchString(k.Name) {
		return nil, fmt.Errorf("cql: invalid keyspace name %q", k.Name)
	}
	replication := k.Replication
	if replication == "" {
		replication = SimpleReplication(1)
	}

	var stmts []string
	if k.Recreate {
		stmts = append(stmts, "DROP KEYSPACE IF EXISTS "+k.Name)
	}
	return append(stmts, fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH replication = %s", k.Name, replication)), nil
}

// Provision creates ks and applies ddl inside it. Tables that already exist
// are left untouched. cluster is not modified.
func Provision(ctx context.Context, cluster *gocql.ClusterConfig, ks Keyspace, ddl []string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	pre, err := ks.statements()
	if err != nil {
		return err
	}

	admin := *cluster
	admin.Keyspace = ""
	if err := run(ctx, &admin, pre, logger); err != nil {
		return err
	}

	scoped := *cluster
	scoped.Keyspace = ks.Name
	return run(ctx, &scoped, ddl, logger)
}

func run(ctx context.Context, cluster *gocql.ClusterConfig, stmts []string, logger *slog.Logger) error {
	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer session.Close()

	for _, stmt := range stmts {
		err := session.Query(stmt).WithContext(ctx).Consistency(gocql.All).Exec()
		var exists *gocql.RequestErrAlreadyExists
		switch {
		case errors.As(err, &exists):
			logger.InfoContext(ctx, "already exists", "keyspace", exists.Keyspace, "table", exists.Table)
		case err != nil:
			return fmt.Errorf("apply %q: %w", stmt, err)
		default:
			logger.DebugContext(ctx, "applied", "statement", stmt)
		}
	}
	return nil
}
