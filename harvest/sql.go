package harvest

import (
	"github.com/aodn/pipeline/common"
	"github.com/aodn/pipeline/database"
	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/pipelineerr"
)

// HarvesterRunner is the per-harvester contract the publisher drives once
// per matched group, the §6 "Harvester: {ingest(group of files), remove(group
// of files)}" boundary interface.
type HarvesterRunner interface {
	// Name identifies the harvester, used for diagnostics and harvest map
	// lookups.
	Name() string

	// Ingest uploads/ingests every file in files as catalog additions.
	Ingest(files *model.FileCollection) error

	// Remove removes every file in files from the catalog.
	Remove(files *model.FileCollection) error

	// SupportsDeletion reports whether Remove is meaningful for this
	// harvester. A harvester that does not support deletion makes the
	// publisher's store-failure rollback non-rollbackable (spec.md §9 Open
	// Question: "treat such harvesters as non-rollbackable and fail loudly
	// rather than silently leaving a stale catalog entry").
	SupportsDeletion() bool
}

// TransactionalRunner is implemented by harvesters that can submit a
// mixed addition+deletion group atomically. The publisher prefers this
// single call over the additions-then-deletions fallback whenever a group
// contains both (spec.md §4.5: "A group mixing additions and deletions
// submits both in one harvester transaction where the harvester supports
// it").
type TransactionalRunner interface {
	IngestAndRemove(additions, deletions *model.FileCollection) error
}

// SQLHarvesterRunner drives database.CatalogStore directly, the Go shape
// of original_source harvest.py's CsvHarvesterRunner ("calls the core
// DatabaseInteractions harvester class directly" rather than shelling out
// to an external process).
type SQLHarvesterRunner struct {
	HarvesterName string
	Table         string
	Store         database.CatalogStore

	// Clock stamps HarvestedAt on ingested rows; nil means wall-clock time.
	Clock common.Clock
}

func (r *SQLHarvesterRunner) clock() common.Clock {
	if r.Clock != nil {
		return r.Clock
	}
	return common.NewRealClock()
}

func (r *SQLHarvesterRunner) Name() string           { return r.HarvesterName }
func (r *SQLHarvesterRunner) SupportsDeletion() bool { return true }

func (r *SQLHarvesterRunner) Ingest(files *model.FileCollection) error {
	rows := make([]database.CatalogRow, 0, files.Count())
	for _, f := range files.All() {
		rows = append(rows, database.CatalogRow{
			Table:       r.Table,
			DestPath:    f.DestPath,
			Checksum:    f.Checksum,
			Size:        f.Size,
			HarvestedAt: r.clock().Now(),
		})
	}
	if err := r.Store.UpsertRows(rows); err != nil {
		return pipelineerr.WrapSinkTransient(err)
	}
	return nil
}

func (r *SQLHarvesterRunner) Remove(files *model.FileCollection) error {
	destPaths := make([]string, 0, files.Count())
	for _, f := range files.All() {
		destPaths = append(destPaths, f.DestPath)
	}
	if err := r.Store.DeleteRows(r.Table, destPaths); err != nil {
		return pipelineerr.WrapSinkTransient(err)
	}
	return nil
}

// IngestAndRemove submits additions and deletions in a single catalog
// transaction, so a mixed group commits or rolls back as one unit.
func (r *SQLHarvesterRunner) IngestAndRemove(additions, deletions *model.FileCollection) error {
	return r.Store.WithTransaction(func(tx database.CatalogStore) error {
		inner := &SQLHarvesterRunner{HarvesterName: r.HarvesterName, Table: r.Table, Store: tx, Clock: r.Clock}
		if additions.Count() > 0 {
			if err := inner.Ingest(additions); err != nil {
				return err
			}
		}
		if deletions.Count() > 0 {
			return inner.Remove(deletions)
		}
		return nil
	})
}

var _ HarvesterRunner = (*SQLHarvesterRunner)(nil)
var _ TransactionalRunner = (*SQLHarvesterRunner)(nil)
