package dynamo

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/tessera/store"
)

type update struct {
	expr   string
	names  map[string]string
	values map[string]types.AttributeValue
}

// updateExpression builds "SET #a0 = :v0, ... REMOVE #a3" from the bound
// columns of an insert. Null values remove the attribute.
func updateExpression(st store.Statement) (update, error) {
	u := update{
		names:  make(map[string]string, len(st.Columns)),
		values: make(map[string]types.AttributeValue, len(st.Columns)),
	}

	var set, remove []string
	for i, col := range st.Columns {
		if col == AttrPK || col == AttrSK {
			return u, fmt.Errorf("%w: column %q collides with a key attribute", ErrInvalidValue, col)
		}
		nameKey := fmt.Sprintf("#a%d", i)
		u.names[nameKey] = col

		v := st.Values[i]
		if v.IsNull() {
			remove = append(remove, nameKey)
			continue
		}
		av, err := encodeValue(v)
		if err != nil {
			return u, err
		}
		valueKey := fmt.Sprintf(":v%d", i)
		u.values[valueKey] = av
		set = append(set, nameKey+" = "+valueKey)
	}

	var clauses []string
	if len(set) > 0 {
		clauses = append(clauses, "SET "+strings.Join(set, ", "))
	}
	if len(remove) > 0 {
		clauses = append(clauses, "REMOVE "+strings.Join(remove, ", "))
	}
	u.expr = strings.Join(clauses, " ")
	return u, nil
}

func nilIfEmpty(m map[string]types.AttributeValue) map[string]types.AttributeValue {
	if len(m) == 0 {
		return nil
	}
	return m
}
