// Package sqlstore is the thin database/sql layer shared by the cache
// store and the promise store (§6 of spec.md). It owns schema creation and
// the insert-falls-back-to-update upsert pattern §4.2/§4.3 specify, with
// writes serialized behind a mutex per §9's open question (iii): "under
// heavy concurrency this could race; serialize DB writes."
//
// The SQL storage engine itself is an external collaborator per §1; this
// package registers modernc.org/sqlite (a pure-Go driver, named in
// SPEC_FULL.md §11 since no repo in the retrieved pack imports a SQL
// driver) under the database/sql driver name "sqlite".
package sqlstore

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SchemaVersion is carried, per §6, as a fixed constant; upgrade hooks are
// reserved no-ops.
const SchemaVersion = 1000

// DB wraps a *sql.DB with the write-serializing mutex every store shares.
type DB struct {
	mu   sync.Mutex
	conn *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path. Use
// ":memory:" for an ephemeral, test-only store.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // sqlite tolerates one writer; avoids driver-level lock contention
	return &DB{conn: conn}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error { return d.conn.Close() }

// EnsureCacheTable creates the cache table §6 specifies if absent.
func (d *DB) EnsureCacheTable() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			id VARCHAR(64) PRIMARY KEY,
			data TEXT NOT NULL,
			is_lru TINYINT NOT NULL,
			create_time VARCHAR(32) NOT NULL,
			duration INTEGER NULL
		)`)
	if err != nil {
		return fmt.Errorf("sqlstore: ensure cache table: %w", err)
	}
	return nil
}

// EnsurePromiseTable creates the promise table §6 specifies if absent.
func (d *DB) EnsurePromiseTable() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS promise (
			id VARCHAR(64) PRIMARY KEY,
			business_id VARCHAR(64) NOT NULL,
			path VARCHAR(128) NOT NULL,
			data TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("sqlstore: ensure promise table: %w", err)
	}
	return nil
}

// CacheRow mirrors the cache table's columns.
type CacheRow struct {
	ID         string
	Data       string
	IsLRU      bool
	CreateTime string
	Duration   *int64
}

// UpsertCache inserts a cache row, falling back to update on a
// unique-constraint conflict, per §4.2. Serialized behind DB's mutex.
func (d *DB) UpsertCache(row CacheRow) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	isLRU := 0
	if row.IsLRU {
		isLRU = 1
	}
	_, err := d.conn.Exec(
		`INSERT INTO cache (id, data, is_lru, create_time, duration) VALUES (?, ?, ?, ?, ?)`,
		row.ID, row.Data, isLRU, row.CreateTime, row.Duration,
	)
	if err == nil {
		return nil
	}
	// Fall back to update without re-checking the conflict, per §9(iii).
	_, updateErr := d.conn.Exec(
		`UPDATE cache SET data = ?, is_lru = ?, create_time = ?, duration = ? WHERE id = ?`,
		row.Data, isLRU, row.CreateTime, row.Duration, row.ID,
	)
	if updateErr != nil {
		return fmt.Errorf("sqlstore: upsert cache %s: insert=%v update=%w", row.ID, err, updateErr)
	}
	return nil
}

// DeleteCache removes a cache row by id.
func (d *DB) DeleteCache(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`DELETE FROM cache WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete cache %s: %w", id, err)
	}
	return nil
}

// ScanCache returns every cache row with the given is_lru flag.
func (d *DB) ScanCache(isLRU bool) ([]CacheRow, error) {
	flag := 0
	if isLRU {
		flag = 1
	}
	rows, err := d.conn.Query(`SELECT id, data, is_lru, create_time, duration FROM cache WHERE is_lru = ?`, flag)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: scan cache: %w", err)
	}
	defer rows.Close()

	var out []CacheRow
	for rows.Next() {
		var r CacheRow
		var isLRUInt int
		if err := rows.Scan(&r.ID, &r.Data, &isLRUInt, &r.CreateTime, &r.Duration); err != nil {
			return nil, fmt.Errorf("sqlstore: scan cache row: %w", err)
		}
		r.IsLRU = isLRUInt != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// TruncateCache removes every cache row.
func (d *DB) TruncateCache() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`DELETE FROM cache`)
	if err != nil {
		return fmt.Errorf("sqlstore: truncate cache: %w", err)
	}
	return nil
}

// PromiseRow mirrors the promise table's columns.
type PromiseRow struct {
	ID         string
	BusinessID string
	Path       string
	Data       string
}

// UpsertPromise inserts a promise row, falling back to update on conflict,
// per §4.3. Serialized behind DB's mutex.
func (d *DB) UpsertPromise(row PromiseRow) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.conn.Exec(
		`INSERT INTO promise (id, business_id, path, data) VALUES (?, ?, ?, ?)`,
		row.ID, row.BusinessID, row.Path, row.Data,
	)
	if err == nil {
		return nil
	}
	_, updateErr := d.conn.Exec(
		`UPDATE promise SET business_id = ?, path = ?, data = ? WHERE id = ?`,
		row.BusinessID, row.Path, row.Data, row.ID,
	)
	if updateErr != nil {
		return fmt.Errorf("sqlstore: upsert promise %s: insert=%v update=%w", row.ID, err, updateErr)
	}
	return nil
}

// DeletePromise removes a promise row by id.
func (d *DB) DeletePromise(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`DELETE FROM promise WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete promise %s: %w", id, err)
	}
	return nil
}

// ScanPromises returns every persisted promise row.
func (d *DB) ScanPromises() ([]PromiseRow, error) {
	rows, err := d.conn.Query(`SELECT id, business_id, path, data FROM promise ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: scan promises: %w", err)
	}
	defer rows.Close()

	var out []PromiseRow
	for rows.Next() {
		var r PromiseRow
		if err := rows.Scan(&r.ID, &r.BusinessID, &r.Path, &r.Data); err != nil {
			return nil, fmt.Errorf("sqlstore: scan promise row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TruncatePromises removes every promise row.
func (d *DB) TruncatePromises() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.Exec(`DELETE FROM promise`)
	if err != nil {
		return fmt.Errorf("sqlstore: truncate promise: %w", err)
	}
	return nil
}
