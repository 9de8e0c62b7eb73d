// Package database implements the catalog store consulted by harvest
// runners (harvest.SQLHarvesterRunner): the table that a "CSV-drop" style
// harvester writes rows into, and that the store/harvest rollback path
// reads back from on compensating deletion. Grounded on the teacher's
// database.Database interface shape (method-per-operation, error-typed
// return), now addressing catalog rows instead of Bucket/Artifact/LogChunk.
package database

import (
	"time"
)

// CatalogRow is one harvested record: the row a harvester writes to
// represent a single published pipeline file, ported from
// original_source/aodncore/pipeline/steps/harvest.py's notion of a CSV row
// keyed by destination path.
type CatalogRow struct {
	Table       string
	DestPath    string
	Checksum    string
	Size        int64
	HarvestedAt time.Time
	Deleted     bool
}

// CatalogStore is the database-facing half of the harvest phase (spec.md
// §4.5): it records and removes rows representing published files. Grounded
// on the teacher's database.Database interface (method-per-operation,
// *pipelineerr.Error-returning signatures in place of *DatabaseError).
//
//go:generate mockery -name=CatalogStore -inpkg
type CatalogStore interface {
	// RegisterEntities maps table name -> Go type for every known
	// harvester target table, the generalization of the teacher's
	// RegisterEntities (which hardcodes Bucket/Artifact/LogChunk) to a
	// caller-supplied, per-harvester schema.
	RegisterEntities(table string, row interface{})

	// UpsertRows writes rows, replacing any existing row with the same
	// Table+DestPath. Used by harvest.SQLHarvesterRunner's addition phase.
	UpsertRows(rows []CatalogRow) error

	// DeleteRows removes the rows matching destPaths from table. Used by
	// harvest.SQLHarvesterRunner's deletion phase, and by the publisher's
	// compensating rollback when a store write fails after a successful
	// harvest (spec.md §4.5 atomicity rule).
	DeleteRows(table string, destPaths []string) error

	// RowExists reports whether a row for destPath is currently present in
	// table. No harvest or publish path in this module calls it.
	RowExists(table, destPath string) (bool, error)

	// WithTransaction runs fn inside a single database transaction,
	// committing on a nil return and rolling back otherwise — the Go shape
	// of "a group mixing additions and deletions submits both in one
	// harvester transaction where the harvester supports it" (spec.md
	// §4.5).
	WithTransaction(fn func(tx CatalogStore) error) error
}
