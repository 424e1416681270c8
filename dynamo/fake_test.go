package dynamo_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/tessera/dynamo"
)

var errThrottled = errors.New("throttled")

type item = map[string]types.AttributeValue

// fakeDynamo is an in-memory DynamoDB that understands the expressions the
// session generates.
type fakeDynamo struct {
	mu       sync.Mutex
	tables   map[string]map[string]item
	queries  []*dynamodb.QueryInput
	writes   []*dynamodb.TransactWriteItemsInput
	created  []*dynamodb.CreateTableInput
	writeErr error
}

var _ dynamo.API = (*fakeDynamo)(nil)

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: make(map[string]map[string]item)}
}

func keyOf(key item) string {
	pk := key[dynamo.AttrPK].(*types.AttributeValueMemberN).Value
	sk := key[dynamo.AttrSK].(*types.AttributeValueMemberB).Value
	return pk + "\x00" + string(sk)
}

func sortKey(it item) []byte {
	return it[dynamo.AttrSK].(*types.AttributeValueMemberB).Value
}

func (f *fakeDynamo) table(name string) (map[string]item, error) {
	t, ok := f.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("no table " + name)}
	}
	return t, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("table exists")}
	}
	f.tables[name] = make(map[string]item)
	f.created = append(f.created, in)
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.table(aws.ToString(in.TableName)); err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, in)
	if f.writeErr != nil {
		return nil, f.writeErr
	}

	// Validate before applying so a failed transaction changes nothing.
	for _, w := range in.TransactItems {
		name := tableOf(w)
		if _, err := f.table(name); err != nil {
			return nil, err
		}
	}

	for _, w := range in.TransactItems {
		t := f.tables[tableOf(w)]
		if w.Delete != nil {
			delete(t, keyOf(w.Delete.Key))
			continue
		}
		u := w.Update
		k := keyOf(u.Key)
		cur, ok := t[k]
		if !ok {
			cur = item{dynamo.AttrPK: u.Key[dynamo.AttrPK], dynamo.AttrSK: u.Key[dynamo.AttrSK]}
		}
		if err := applyUpdate(cur, aws.ToString(u.UpdateExpression), u.ExpressionAttributeNames, u.ExpressionAttributeValues); err != nil {
			return nil, err
		}
		t[k] = cur
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func tableOf(w types.TransactWriteItem) string {
	if w.Delete != nil {
		return aws.ToString(w.Delete.TableName)
	}
	return aws.ToString(w.Update.TableName)
}

func applyUpdate(it item, expr string, names map[string]string, values item) error {
	set, remove, _ := strings.Cut(expr, "REMOVE ")
	set = strings.TrimSpace(strings.TrimPrefix(set, "SET "))
	if set != "" {
		for _, assign := range strings.Split(set, ", ") {
			name, value, ok := strings.Cut(assign, " = ")
			if !ok {
				return fmt.Errorf("bad assignment %q", assign)
			}
			it[names[name]] = values[value]
		}
	}
	if remove = strings.TrimSpace(remove); remove != "" {
		for _, name := range strings.Split(remove, ", ") {
			delete(it, names[name])
		}
	}
	return nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, in)
	t, err := f.table(aws.ToString(in.TableName))
	if err != nil {
		return nil, err
	}

	expr := aws.ToString(in.KeyConditionExpression)
	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberN).Value
	var rows []item
	for _, it := range t {
		if it[dynamo.AttrPK].(*types.AttributeValueMemberN).Value != pk {
			continue
		}
		if !satisfies(expr, in.ExpressionAttributeValues, sortKey(it)) {
			continue
		}
		rows = append(rows, it)
	}
	sort.Slice(rows, func(i, j int) bool { return bytes.Compare(sortKey(rows[i]), sortKey(rows[j])) < 0 })

	if in.ExclusiveStartKey != nil {
		start := sortKey(in.ExclusiveStartKey)
		i := sort.Search(len(rows), func(i int) bool { return bytes.Compare(sortKey(rows[i]), start) > 0 })
		rows = rows[i:]
	}

	out := &dynamodb.QueryOutput{}
	if in.Limit != nil && int(*in.Limit) < len(rows) {
		rows = rows[:*in.Limit]
		last := rows[len(rows)-1]
		out.LastEvaluatedKey = item{dynamo.AttrPK: last[dynamo.AttrPK], dynamo.AttrSK: last[dynamo.AttrSK]}
	}
	out.Items = rows
	out.Count = int32(len(rows))
	return out, nil
}

func satisfies(expr string, values item, sk []byte) bool {
	val := func(name string) []byte {
		return values[name].(*types.AttributeValueMemberB).Value
	}
	_, cond, found := strings.Cut(expr, " AND ")
	if !found {
		return true
	}
	switch cond {
	case "#sk = :sk":
		return bytes.Equal(sk, val(":sk"))
	case "begins_with(#sk, :sk)":
		return bytes.HasPrefix(sk, val(":sk"))
	case "#sk < :hi":
		return bytes.Compare(sk, val(":hi")) < 0
	case "#sk >= :lo":
		return bytes.Compare(sk, val(":lo")) >= 0
	case "#sk BETWEEN :lo AND :hi":
		return bytes.Compare(sk, val(":lo")) >= 0 && bytes.Compare(sk, val(":hi")) <= 0
	}
	panic("unexpected condition " + cond)
}

func (f *fakeDynamo) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}
