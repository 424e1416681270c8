package schema

import "errors"

// ErrInvalidConfig is returned when an entity configuration is malformed.
// The wrapping error names the offending entity, field or relation.
var ErrInvalidConfig = errors.New("tessera: invalid entity configuration")
