// Package diskcache persists one IndexFile artifact per source file in
// a SQLite database, keyed by path, so a later run with unchanged
// compiler arguments and an unmodified source file can skip re-parsing.
//
// Grounded on store.go's sql.Open("sqlite", ...) connection string and
// initSchema pattern (modernc.org/sqlite, WAL + busy_timeout pragmas),
// and on pipeline.fileHash's xxh3-over-io.Copy pattern for the args
// hash used in the validity check.
package diskcache

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/zeebo/xxh3"
	_ "modernc.org/sqlite"

	"github.com/cindexd/cindex/internal/indexfile"
)

// Cache wraps a SQLite connection holding cached IndexFile artifacts.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at dbPath.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("diskcache: open db: %w", err)
	}
	c := &Cache{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("diskcache: init schema: %w", err)
	}
	return c, nil
}

func (c *Cache) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS artifacts (
		path TEXT PRIMARY KEY,
		args_hash TEXT NOT NULL,
		source_mtime_unix INTEGER NOT NULL,
		artifact_version INTEGER NOT NULL,
		payload BLOB NOT NULL
	);`
	_, err := c.db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// ArgsHash hashes a translation unit's compiler arguments into the key
// used to detect an args change between runs.
func ArgsHash(args []string) string {
	h := xxh3.New()
	for _, a := range args {
		h.WriteString(a)
		h.WriteString("\x00")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Lookup returns the cached IndexFile for path if it is still valid: the
// stored args hash matches argsHash, the source file's mtime has not
// advanced past the cached artifact's mtime, and the artifact was
// written by the current on-disk format version. Any mismatch is a
// cache miss, not an error.
func (c *Cache) Lookup(path string, argsHash string) (*indexfile.IndexFile, bool, error) {
	var storedHash string
	var artifactMtimeUnix int64
	var version int
	var payload []byte

	row := c.db.QueryRow(
		`SELECT args_hash, source_mtime_unix, artifact_version, payload FROM artifacts WHERE path = ?`,
		path)
	switch err := row.Scan(&storedHash, &artifactMtimeUnix, &version, &payload); {
	case err == sql.ErrNoRows:
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("diskcache: lookup %s: %w", path, err)
	}

	if storedHash != argsHash || version != indexfile.CurrentVersion {
		return nil, false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("diskcache: stat %s: %w", path, err)
	}
	if info.ModTime().Unix() > artifactMtimeUnix {
		return nil, false, nil
	}

	f, err := indexfile.Deserialize(payload)
	if err != nil {
		return nil, false, fmt.Errorf("diskcache: deserialize %s: %w", path, err)
	}
	return f, true, nil
}

// Store writes f to the cache under path, stamped with the current time
// as its artifact mtime (so the next Lookup can compare it against the
// source file's own mtime) and the current on-disk format version.
func (c *Cache) Store(path string, argsHash string, f *indexfile.IndexFile) error {
	payload, err := indexfile.Serialize(f)
	if err != nil {
		return fmt.Errorf("diskcache: serialize %s: %w", path, err)
	}
	_, err = c.db.Exec(
		`INSERT INTO artifacts (path, args_hash, source_mtime_unix, artifact_version, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			args_hash = excluded.args_hash,
			source_mtime_unix = excluded.source_mtime_unix,
			artifact_version = excluded.artifact_version,
			payload = excluded.payload`,
		path, argsHash, time.Now().Unix(), indexfile.CurrentVersion, payload)
	if err != nil {
		return fmt.Errorf("diskcache: store %s: %w", path, err)
	}
	return nil
}

// Invalidate removes any cached artifact for path.
func (c *Cache) Invalidate(path string) error {
	if _, err := c.db.Exec(`DELETE FROM artifacts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("diskcache: invalidate %s: %w", path, err)
	}
	return nil
}
