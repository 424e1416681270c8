package dynamo

import "errors"

var (
	// ErrBatchTooLarge is returned when a batch exceeds the TransactWriteItems
	// limit of MaxBatchSize statements.
	ErrBatchTooLarge = errors.New("dynamo: batch exceeds transaction item limit")

	// ErrUnknownTable is returned for statements and queries naming a table
	// the session was not built with.
	ErrUnknownTable = errors.New("dynamo: unknown table")

	// ErrInvalidValue is returned when a value cannot be encoded, such as a
	// null clustering column.
	ErrInvalidValue = errors.New("dynamo: invalid value")

	// ErrUnsupportedQuery is returned for predicates a sort key condition
	// cannot express.
	ErrUnsupportedQuery = errors.New("dynamo: unsupported query")
)
