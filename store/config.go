package store

import (
	"log/slog"
	"time"
)

// Config holds configuration for the Store.
type Config struct {
	// Keyspace qualifies table names in generated statements.
	// Default: "" (the session's keyspace)
	Keyspace string

	// ReadConsistency is used by every read, including the read-before-write
	// of the write planner.
	// Default: Quorum
	ReadConsistency Consistency

	// PageSize is used by list operations called with a page size <= 0.
	// Default: 10
	PageSize int

	// MaxPageSize caps the page size of list operations.
	// Default: 1000
	MaxPageSize int

	// SubstringMaxRunes limits how much of a Substring value is fanned out.
	// A value of n runes produces min(n, SubstringMaxRunes) rows.
	// Default: 32
	SubstringMaxRunes int

	// MaxBatchStatements caps the statements of one batch. A session
	// implementing BatchLimiter can lower it. New rejects entities whose
	// worst-case write exceeds it.
	// Default: 0 (no limit)
	MaxBatchStatements int

	// SearchScanLimit caps the substring rows read by one SearchSubstring.
	// Default: 500
	SearchScanLimit int

	// Logger receives debug output for every batch.
	// Default: slog.Default()
	Logger *slog.Logger

	// Clock supplies created_at and updated_at.
	// Default: time.Now
	Clock func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadConsistency:   Quorum,
		PageSize:          10,
		MaxPageSize:       1000,
		SubstringMaxRunes: 32,
		SearchScanLimit:   500,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	// ANY is write-only
	if c.ReadConsistency == Any {
		c.ReadConsistency = Quorum
	}
	if c.MaxPageSize < 1 {
		c.MaxPageSize = 1000
	}
	if c.PageSize < 1 {
		c.PageSize = 10
	}
	if c.PageSize > c.MaxPageSize {
		c.PageSize = c.MaxPageSize
	}
	if c.SubstringMaxRunes < 1 {
		c.SubstringMaxRunes = 32
	}
	if c.MaxBatchStatements < 0 {
		c.MaxBatchStatements = 0
	}
	if c.SearchScanLimit < 1 {
		c.SearchScanLimit = 500
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}
