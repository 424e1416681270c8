// Package store maintains a wide-row entity and its denormalized projections.
//
// Every entity has a primary table keyed by (group, id) and, depending on its
// configuration, one projection per indexed field, one substring table per
// Substring field and one table per by-entity or by-many relation. A write
// reads the current row, deletes projection rows whose key value changed,
// rewrites every projection with the merged row and finally upserts the
// primary row, all in one batch.
//
// # Sessions
//
// The store talks to a backend through [Session]:
//
//	type Session interface {
//	    Query(ctx context.Context, q Query, c Consistency) ([]Record, error)
//	    ExecuteBatch(ctx context.Context, stmts []Statement, c Consistency) error
//	}
//
// Statements carry both rendered CQL and a structured form, so the same plan
// runs on Cassandra (package cql), DynamoDB (package dynamo) or in memory.
//
// # Configuration
//
// Use [DefaultConfig] and override what you need:
//
//	cfg := store.DefaultConfig()
//	cfg.Keyspace = "app"
//	cfg.ReadConsistency = store.LocalQuorum
//	s, err := store.New(session, entity, cfg)
//
// # Consistency
//
// The read before a write is not atomic with the batch. Two concurrent
// writers to the same row can leave a projection at a value the row no
// longer holds. [Store.RepairProjection] removes such rows; the stream
// package calls it from DynamoDB Streams.
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrNotFound] - no row at the requested key
//   - [ErrArityMismatch] - InsertFull value count differs from the field count
//   - [ErrUnsupported] - lookup on a field without a projection
//   - [ErrUnknownField] - field name not configured
//   - [ErrUnknownRelation] - relation name not configured
//   - [ErrDuplicateField] - field listed twice in one write
//   - [ErrTypeMismatch] - value kind does not match the field type
//
// Session failures are returned as [*StoreError].
package store
