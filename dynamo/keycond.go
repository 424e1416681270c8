package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/tessera/internal/keyenc"
	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

// keyCondition is a translated query predicate.
type keyCondition struct {
	expr   string
	names  map[string]string
	values map[string]types.AttributeValue

	// empty is set when no key can satisfy the predicate.
	empty bool
}

// buildKeyCondition translates q.Where into a KeyConditionExpression over
// pk and the encoded sort key.
//
// Equality on group selects the partition. Equality on a leading run of
// clustering columns becomes a sort key prefix. The next clustering column
// may carry one Lt or Prefix predicate, which becomes a sort key range.
// Bounds are inclusive where DynamoDB offers no exclusive form, so callers
// filter the decoded rows with q.Matches.
func buildKeyCondition(t schema.Table, where []store.Cond) (keyCondition, error) {
	kc := keyCondition{
		names:  map[string]string{"#pk": AttrPK},
		values: map[string]types.AttributeValue{},
	}

	byColumn := make(map[string]store.Cond, len(where))
	for _, c := range where {
		if _, dup := byColumn[c.Column]; dup {
			return kc, fmt.Errorf("%w: two predicates on %q", ErrUnsupportedQuery, c.Column)
		}
		byColumn[c.Column] = c
	}

	group, ok := byColumn[schema.ColGroup]
	if !ok || group.Op != store.Eq {
		return kc, fmt.Errorf("%w: %s needs an equality on %q", ErrUnsupportedQuery, t.Name, schema.ColGroup)
	}
	pk, err := encodeValue(group.Value)
	if err != nil {
		return kc, err
	}
	kc.values[":pk"] = pk
	kc.expr = "#pk = :pk"
	used := 1

	var prefix []byte
	var rng *store.Cond
	var rngCol schema.KeyColumn
	eqs := 0
	for _, col := range t.Clustering {
		c, ok := byColumn[col.Name]
		if !ok {
			break
		}
		used++
		if c.Op != store.Eq {
			rng, rngCol = &c, col
			break
		}
		if prefix, err = appendComponent(prefix, c.Value, col.Order); err != nil {
			return kc, err
		}
		eqs++
	}
	if used != len(byColumn) {
		return kc, fmt.Errorf("%w: predicates on %s are not a clustering prefix", ErrUnsupportedQuery, t.Name)
	}

	if rng == nil {
		switch {
		case eqs == 0:
		case eqs == len(t.Clustering):
			kc.sk("#sk = :sk", ":sk", prefix)
		default:
			kc.sk("begins_with(#sk, :sk)", ":sk", prefix)
		}
		return kc, nil
	}

	switch rng.Op {
	case store.Prefix:
		if rng.Value.Kind() != store.KindText || rngCol.Order != schema.Asc {
			return kc, fmt.Errorf("%w: prefix on %q needs an ascending text column", ErrUnsupportedQuery, rngCol.Name)
		}
		kc.sk("begins_with(#sk, :sk)", ":sk", keyenc.AppendTextPrefix(clone(prefix), rng.Value.AsText()))

	case store.Lt:
		bound, err := appendComponent(clone(prefix), rng.Value, rngCol.Order)
		if err != nil {
			return kc, err
		}
		if rngCol.Order == schema.Asc {
			if len(prefix) == 0 {
				kc.sk("#sk < :hi", ":hi", bound)
				return kc, nil
			}
			kc.skRange(prefix, bound)
			return kc, nil
		}

		// Descending: smaller values encode to greater keys
		lo, ok := keyenc.Increment(bound)
		if !ok {
			kc.empty = true
			return kc, nil
		}
		hi, ok := keyenc.Increment(prefix)
		if len(prefix) == 0 || !ok {
			kc.sk("#sk >= :lo", ":lo", lo)
			return kc, nil
		}
		kc.skRange(lo, hi)
	}
	return kc, nil
}

func (kc *keyCondition) sk(cond, name string, b []byte) {
	kc.names["#sk"] = AttrSK
	kc.values[name] = &types.AttributeValueMemberB{Value: b}
	kc.expr += " AND " + cond
}

func (kc *keyCondition) skRange(lo, hi []byte) {
	kc.names["#sk"] = AttrSK
	kc.values[":lo"] = &types.AttributeValueMemberB{Value: lo}
	kc.values[":hi"] = &types.AttributeValueMemberB{Value: hi}
	kc.expr += " AND #sk BETWEEN :lo AND :hi"
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
