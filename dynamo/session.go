// Package dynamo runs store plans against DynamoDB.
//
// Every derived table maps to one DynamoDB table with a numeric partition
// key pk holding the group and a binary sort key sk holding the clustering
// columns in an order-preserving encoding. Batches are submitted with
// TransactWriteItems, so a write plan is applied atomically.
package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/tessera/internal/keyenc"
	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

// MaxBatchSize is the TransactWriteItems item limit.
const MaxBatchSize = 100

// API is the subset of the DynamoDB client the session uses.
// *dynamodb.Client satisfies it.
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config holds configuration for the Session.
type Config struct {
	// TablePrefix is prepended to every table name, separated by a dot.
	// Default: "" (no prefix)
	TablePrefix string

	// Logger receives debug output.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{}
}

func (c *Config) validate() {
	c.TablePrefix = strings.TrimSuffix(c.TablePrefix, ".")
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is a store.Session backed by DynamoDB. It is safe for concurrent
// use.
type Session struct {
	client API
	config Config
	tables map[string]schema.Table
}

var (
	_ store.Session      = (*Session)(nil)
	_ store.BatchLimiter = (*Session)(nil)
)

// New creates a Session serving the derived tables of entities.
func New(client API, config Config, entities ...*schema.Entity) *Session {
	config.validate()
	s := &Session{
		client: client,
		config: config,
		tables: make(map[string]schema.Table),
	}
	for _, e := range entities {
		for _, t := range schema.Tables(e) {
			s.tables[t.Name] = t
		}
	}
	return s
}

// TableName returns the DynamoDB table name of a derived table.
func (s *Session) TableName(table string) string {
	return keyenc.TableName(s.config.TablePrefix, table)
}

// Table resolves a DynamoDB table name to its derived table.
func (s *Session) Table(name string) (schema.Table, bool) {
	if s.config.TablePrefix != "" {
		rest, ok := strings.CutPrefix(name, s.config.TablePrefix+".")
		if !ok {
			return schema.Table{}, false
		}
		name = rest
	}
	t, ok := s.tables[name]
	return t, ok
}

// sortedTables returns the served tables ordered by name.
func (s *Session) sortedTables() []schema.Table {
	tables := make([]schema.Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

func (s *Session) table(name string) (schema.Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return schema.Table{}, fmt.Errorf("%w %q", ErrUnknownTable, name)
	}
	return t, nil
}

// MaxBatchStatements reports the TransactWriteItems item limit, so stores
// reject entities whose writes cannot fit in one transaction.
func (s *Session) MaxBatchStatements() int { return MaxBatchSize }

// ExecuteBatch applies stmts in one TransactWriteItems call. Inserts become
// updates that set the bound columns, so partial rows merge like CQL upserts.
func (s *Session) ExecuteBatch(ctx context.Context, stmts []store.Statement, c store.Consistency) error {
	if len(stmts) == 0 {
		return nil
	}
	if len(stmts) > MaxBatchSize {
		return fmt.Errorf("%w: %d statements", ErrBatchTooLarge, len(stmts))
	}

	items := make([]types.TransactWriteItem, 0, len(stmts))
	for _, st := range stmts {
		item, err := s.writeItem(st)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	s.config.Logger.DebugContext(ctx, "transact write",
		"items", len(items),
		"consistency", c.String(),
	)

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return err
}

func (s *Session) writeItem(st store.Statement) (types.TransactWriteItem, error) {
	t, err := s.table(st.Table)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	key, err := itemKey(t, st.Value)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	name := aws.String(s.TableName(t.Name))

	if st.Op == store.OpDelete {
		return types.TransactWriteItem{
			Delete: &types.Delete{TableName: name, Key: key},
		}, nil
	}

	expr, err := updateExpression(st)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 name,
			Key:                       key,
			UpdateExpression:          aws.String(expr.expr),
			ExpressionAttributeNames:  expr.names,
			ExpressionAttributeValues: nilIfEmpty(expr.values),
		},
	}, nil
}

// Query runs q with the Query API, paging until q.Limit matching rows are
// read. Reads at a strong level are strongly consistent.
func (s *Session) Query(ctx context.Context, q store.Query, c store.Consistency) ([]store.Record, error) {
	t, err := s.table(q.Table)
	if err != nil {
		return nil, err
	}
	kc, err := buildKeyCondition(t, q.Where)
	if err != nil {
		return nil, err
	}
	if kc.empty {
		return nil, nil
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.TableName(t.Name)),
		KeyConditionExpression:    aws.String(kc.expr),
		ExpressionAttributeNames:  kc.names,
		ExpressionAttributeValues: kc.values,
		ConsistentRead:            aws.Bool(c.Strong()),
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}

	var out []store.Record
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			rec, err := DecodeItem(t, raw)
			if err != nil {
				return nil, err
			}
			if !q.Matches(rec) {
				continue
			}
			out = append(out, rec)
			if q.Limit > 0 && len(out) == q.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}
