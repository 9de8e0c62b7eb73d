package database

import (
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"
	"gopkg.in/gorp.v1"

	"github.com/aodn/pipeline/common/stats"
	"github.com/aodn/pipeline/pipelineerr"
)

// GorpCatalogStore implements CatalogStore over gopkg.in/gorp.v1 +
// github.com/lib/pq, adapted line-for-line in style from the teacher's
// GorpDatabase: a per-method stats.NewTimingStat timer, gorp.NonFatalError
// handling, and WrapInternalDatabaseError-equivalent wrapping — generalized
// from fixed Bucket/Artifact/LogChunk tables to an arbitrary harvester
// target table addressed by name.
//
// Every harvester target table is expected to expose the five columns
// dest_path, checksum, size, harvested_at, deleted — the minimal shape a
// catalog consumer (WFS endpoint, downstream index) needs to know a file
// was published, per spec.md §6's harvester.schema_base_dir convention.
type GorpCatalogStore struct {
	dbmap *gorp.DbMap
	exec  gorp.SqlExecutor
}

func NewGorpCatalogStore(dbmap *gorp.DbMap) *GorpCatalogStore {
	return &GorpCatalogStore{dbmap: dbmap, exec: dbmap}
}

// Table names are interpolated into SQL text (they cannot be bound as
// parameters), so they must match a plain identifier. Names come only from
// config.Harvester-derived registrations, never from file content.
var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validTable(table string) error {
	if !tableNamePattern.MatchString(table) {
		return pipelineerr.NewInvariantViolation("invalid catalog table name %q", table)
	}
	return nil
}

func (s *GorpCatalogStore) RegisterEntities(table string, row interface{}) {
	s.dbmap.AddTableWithName(row, table).SetKeys(false, "DestPath")
}

var upsertRowsTimer = stats.NewTimingStat("catalog_upsert_rows")

func (s *GorpCatalogStore) UpsertRows(rows []CatalogRow) error {
	defer upsertRowsTimer.AddTimeSince(time.Now())

	for _, row := range rows {
		if err := validTable(row.Table); err != nil {
			return err
		}

		query := fmt.Sprintf(`
			INSERT INTO %s (dest_path, checksum, size, harvested_at, deleted)
			VALUES (:dest_path, :checksum, :size, :harvested_at, false)
			ON CONFLICT (dest_path) DO UPDATE SET
				checksum = EXCLUDED.checksum,
				size = EXCLUDED.size,
				harvested_at = EXCLUDED.harvested_at,
				deleted = false`, row.Table)

		if _, err := s.exec.Exec(query, map[string]interface{}{
			"dest_path":    row.DestPath,
			"checksum":     row.Checksum,
			"size":         row.Size,
			"harvested_at": row.HarvestedAt,
		}); err != nil && !gorp.NonFatalError(err) {
			return pipelineerr.WrapSinkTransient(err)
		}
	}
	return nil
}

var deleteRowsTimer = stats.NewTimingStat("catalog_delete_rows")

func (s *GorpCatalogStore) DeleteRows(table string, destPaths []string) error {
	defer deleteRowsTimer.AddTimeSince(time.Now())

	if err := validTable(table); err != nil {
		return err
	}
	if len(destPaths) == 0 {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE dest_path = ANY(:dest_paths)", table)
	if _, err := s.exec.Exec(query, map[string]interface{}{"dest_paths": pq.Array(destPaths)}); err != nil && !gorp.NonFatalError(err) {
		return pipelineerr.WrapSinkTransient(err)
	}
	return nil
}

var rowExistsTimer = stats.NewTimingStat("catalog_row_exists")

func (s *GorpCatalogStore) RowExists(table, destPath string) (bool, error) {
	defer rowExistsTimer.AddTimeSince(time.Now())

	if err := validTable(table); err != nil {
		return false, err
	}

	count, err := s.exec.SelectInt(
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE dest_path = :dest_path AND NOT deleted", table),
		map[string]interface{}{"dest_path": destPath})
	if err != nil && !gorp.NonFatalError(err) {
		return false, pipelineerr.WrapSinkTransient(err)
	}
	return count > 0, nil
}

func (s *GorpCatalogStore) WithTransaction(fn func(tx CatalogStore) error) error {
	txn, err := s.dbmap.Begin()
	if err != nil {
		return pipelineerr.WrapSinkTransient(err)
	}

	txStore := &GorpCatalogStore{dbmap: s.dbmap, exec: txn}
	if err := fn(txStore); err != nil {
		if rollbackErr := txn.Rollback(); rollbackErr != nil {
			return pipelineerr.WrapSinkTransient(fmt.Errorf("rollback after %v: %w", err, rollbackErr))
		}
		return err
	}

	if err := txn.Commit(); err != nil {
		return pipelineerr.WrapSinkTransient(err)
	}
	return nil
}

// Ensure GorpCatalogStore implements CatalogStore.
var _ CatalogStore = (*GorpCatalogStore)(nil)
