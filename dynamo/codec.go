package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/tessera/internal/keyenc"
	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

// Key attribute names of every table.
const (
	AttrPK = "pk"
	AttrSK = "sk"
)

// encodeValue returns the attribute of a non-null column value. Timestamps
// are stored as epoch milliseconds.
func encodeValue(v store.Value) (types.AttributeValue, error) {
	switch v.Kind() {
	case store.KindInt, store.KindTime:
		return attributevalue.Marshal(v.AsInt())
	case store.KindFloat:
		return attributevalue.Marshal(v.AsFloat())
	case store.KindText:
		return &types.AttributeValueMemberS{Value: v.AsText()}, nil
	}
	return nil, fmt.Errorf("%w: cannot encode %s", ErrInvalidValue, v.Kind())
}

// decodeValue converts an attribute back to a Value of the column's type.
func decodeValue(t schema.FieldType, av types.AttributeValue) (store.Value, error) {
	if _, ok := av.(*types.AttributeValueMemberNULL); ok {
		return store.Value{}, nil
	}
	switch store.KindOf(t) {
	case store.KindInt:
		var i int64
		if err := attributevalue.Unmarshal(av, &i); err != nil {
			return store.Value{}, err
		}
		return store.Int(i), nil
	case store.KindTime:
		var ms int64
		if err := attributevalue.Unmarshal(av, &ms); err != nil {
			return store.Value{}, err
		}
		return store.Millis(ms), nil
	case store.KindFloat:
		var f float64
		if err := attributevalue.Unmarshal(av, &f); err != nil {
			return store.Value{}, err
		}
		return store.Float(f), nil
	case store.KindText:
		var s string
		if err := attributevalue.Unmarshal(av, &s); err != nil {
			return store.Value{}, err
		}
		return store.Text(s), nil
	}
	return store.Value{}, fmt.Errorf("%w: column type %s", ErrInvalidValue, t)
}

// appendComponent appends the sort key encoding of one clustering value.
func appendComponent(b []byte, v store.Value, order schema.Order) ([]byte, error) {
	desc := order == schema.Desc
	switch v.Kind() {
	case store.KindInt, store.KindTime:
		return keyenc.AppendInt(b, v.AsInt(), desc), nil
	case store.KindFloat:
		return keyenc.AppendFloat(b, v.AsFloat(), desc), nil
	case store.KindText:
		return keyenc.AppendText(b, v.AsText(), desc), nil
	}
	return nil, fmt.Errorf("%w: null clustering value", ErrInvalidValue)
}

// itemKey builds the pk/sk key of a row from its column lookup.
func itemKey(t schema.Table, get func(string) store.Value) (map[string]types.AttributeValue, error) {
	group := get(schema.ColGroup)
	if group.Kind() != store.KindInt {
		return nil, fmt.Errorf("%w: %s needs a bigint group", ErrInvalidValue, t.Name)
	}
	pk, err := encodeValue(group)
	if err != nil {
		return nil, err
	}

	var sk []byte
	for _, c := range t.Clustering {
		v := get(c.Name)
		if v.IsNull() {
			return nil, fmt.Errorf("%w: missing key column %q of %s", ErrInvalidValue, c.Name, t.Name)
		}
		if sk, err = appendComponent(sk, v, c.Order); err != nil {
			return nil, err
		}
	}

	return map[string]types.AttributeValue{
		AttrPK: pk,
		AttrSK: &types.AttributeValueMemberB{Value: sk},
	}, nil
}

// EncodeItem returns the full item of a record: the pk/sk key plus one
// attribute per non-null column.
func EncodeItem(t schema.Table, rec store.Record) (map[string]types.AttributeValue, error) {
	item, err := itemKey(t, func(c string) store.Value { return rec[c] })
	if err != nil {
		return nil, err
	}
	for _, c := range t.Columns {
		v, ok := rec[c.Name]
		if !ok || v.IsNull() {
			continue
		}
		if item[c.Name], err = encodeValue(v); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// DecodeItem converts an item of table t back to a record. Attributes that
// are not columns of t are ignored.
func DecodeItem(t schema.Table, item map[string]types.AttributeValue) (store.Record, error) {
	rec := make(store.Record, len(item))
	for _, c := range t.Columns {
		av, ok := item[c.Name]
		if !ok {
			continue
		}
		v, err := decodeValue(c.Type, av)
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", t.Name, c.Name, err)
		}
		if !v.IsNull() {
			rec[c.Name] = v
		}
	}
	return rec, nil
}
