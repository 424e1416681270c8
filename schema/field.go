package schema

import "fmt"

// FieldType is the physical type of an entity field.
type FieldType int

const (
	// Bigint is a 64-bit signed integer.
	Bigint FieldType = iota

	// Timestamp is a millisecond-precision instant.
	Timestamp

	// Text is a UTF-8 string.
	Text

	// Double is a 64-bit IEEE float.
	Double

	// Datetime is a datetime stored as text (e.g. RFC 3339).
	Datetime
)

var fieldTypeNames = [...]string{
	Bigint:    "bigint",
	Timestamp: "timestamp",
	Text:      "text",
	Double:    "double",
	Datetime:  "datetime",
}

// Valid reports whether t is one of the declared field types.
func (t FieldType) Valid() bool {
	return t >= Bigint && t <= Datetime
}

func (t FieldType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
	return fieldTypeNames[t]
}

// CQLType returns the column type used in generated DDL.
func (t FieldType) CQLType() string {
	switch t {
	case Bigint:
		return "bigint"
	case Timestamp:
		return "timestamp"
	case Double:
		return "double"
	default:
		return "text"
	}
}

// Order returns the clustering direction used when the field is part of a
// derived table's clustering key.
func (t FieldType) Order() Order {
	switch t {
	case Bigint, Timestamp, Datetime:
		return Desc
	default:
		return Asc
	}
}

// IsText reports whether values of this type are bound as text.
func (t FieldType) IsText() bool {
	return t == Text || t == Datetime
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown field type %d", ErrInvalidConfig, int(t))
	}
	return []byte(fieldTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(b []byte) error {
	for i, name := range fieldTypeNames {
		if name == string(b) {
			*t = FieldType(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown field type %q", ErrInvalidConfig, string(b))
}

// QueryKind declares how a field can be queried.
type QueryKind int

const (
	// Storaged fields live in the primary table only.
	Storaged QueryKind = iota

	// Value fields get a by-field table keyed by their value.
	Value

	// Substring fields get a by-field table and a substring fan-out table.
	Substring
)

var queryKindNames = [...]string{
	Storaged:  "storaged",
	Value:     "value",
	Substring: "substring",
}

// Valid reports whether k is one of the declared query kinds.
func (k QueryKind) Valid() bool {
	return k >= Storaged && k <= Substring
}

// Indexed reports whether the kind maintains a by-field table.
func (k QueryKind) Indexed() bool {
	return k == Value || k == Substring
}

func (k QueryKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("QueryKind(%d)", int(k))
	}
	return queryKindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k QueryKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: unknown query kind %d", ErrInvalidConfig, int(k))
	}
	return []byte(queryKindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *QueryKind) UnmarshalText(b []byte) error {
	for i, name := range queryKindNames {
		if name == string(b) {
			*k = QueryKind(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown query kind %q", ErrInvalidConfig, string(b))
}

// Field describes one entity field.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	Kind QueryKind `json:"kind"`
}

// Order is a clustering direction.
type Order int

const (
	Asc Order = iota
	Desc
)

func (o Order) String() string {
	if o == Desc {
		return "DESC"
	}
	return "ASC"
}
