// Package sqlite implements the ports.BaselineStore interface on SQLite.
// A baseline is one search_result row with child host rows and grandchild
// port rows. Foreign keys cascade, so deleting the search_result row removes
// its hosts and ports. Replace-on-write runs delete + insert in one
// transaction; a failed insert rolls back to the previous baseline.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/corey/shodiff/internal/ports"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_result (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    term       TEXT    NOT NULL UNIQUE,
    created_at TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS host (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    search_result_id INTEGER NOT NULL REFERENCES search_result(id) ON DELETE CASCADE,
    ip               TEXT    NOT NULL,
    hostname         TEXT    NOT NULL DEFAULT '',
    UNIQUE (search_result_id, ip)
);
CREATE TABLE IF NOT EXISTS port (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    host_id INTEGER NOT NULL REFERENCES host(id) ON DELETE CASCADE,
    number  INTEGER NOT NULL,
    UNIQUE (host_id, number)
);
`

const (
	sqlDeleteResult = `DELETE FROM search_result WHERE term = ?`
	sqlInsertResult = `INSERT INTO search_result (term, created_at) VALUES (?, ?)`
	sqlInsertHost   = `INSERT INTO host (search_result_id, ip, hostname) VALUES (?, ?, ?)`
	sqlInsertPort   = `INSERT INTO port (host_id, number) VALUES (?, ?)`
	sqlSelectResult = `SELECT id, created_at FROM search_result WHERE term = ?`
	sqlSelectHosts  = `SELECT h.ip, h.hostname, p.number
FROM host h LEFT JOIN port p ON p.host_id = h.id
WHERE h.search_result_id = ?
ORDER BY h.ip, p.number`
	sqlSelectTerms = `SELECT term FROM search_result ORDER BY term`
)

var errEmptyTerm = errors.New("empty search term")

// Store implements ports.BaselineStore backed by database/sql + go-sqlite3.
type Store struct {
	db *sql.DB
}

var _ ports.BaselineStore = (*Store)(nil)

// Open opens (or creates) the SQLite file at path with foreign keys enabled
// and ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=1000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// One connection keeps PRAGMA state and avoids SQLITE_BUSY between pooled conns.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return NewStore(db), nil
}

// NewStore wraps an already-open database. The schema must exist.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put replaces the baseline for result.Term in a single transaction.
func (s *Store) Put(result *ports.SearchResult) error {
	if result == nil {
		return fmt.Errorf("nil search result")
	}
	if result.Term == "" {
		return errEmptyTerm
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := replace(tx, result); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// replace deletes the prior record for result.Term and inserts result with
// its hosts and ports. Runs inside the caller's transaction.
func replace(tx *sql.Tx, result *ports.SearchResult) error {
	if _, err := tx.Exec(sqlDeleteResult, result.Term); err != nil {
		return fmt.Errorf("delete baseline %q: %w", result.Term, err)
	}

	res, err := tx.Exec(sqlInsertResult, result.Term, result.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert baseline %q: %w", result.Term, err)
	}
	resultID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert baseline %q: %w", result.Term, err)
	}

	for _, h := range result.Hosts {
		res, err := tx.Exec(sqlInsertHost, resultID, h.IP, h.Hostname)
		if err != nil {
			return fmt.Errorf("insert host %s: %w", h.IP, err)
		}
		hostID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert host %s: %w", h.IP, err)
		}
		for _, n := range h.PortNumbers() {
			if _, err := tx.Exec(sqlInsertPort, hostID, n); err != nil {
				return fmt.Errorf("insert port %s/%d: %w", h.IP, n, err)
			}
		}
	}
	return nil
}

// Lookup retrieves the baseline for term.
// Returns nil, nil if no baseline exists.
func (s *Store) Lookup(term string) (*ports.SearchResult, error) {
	if term == "" {
		return nil, errEmptyTerm
	}

	var (
		id      int64
		created string
	)
	err := s.db.QueryRow(sqlSelectResult, term).Scan(&id, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select baseline %q: %w", term, err)
	}

	rows, err := s.db.Query(sqlSelectHosts, id)
	if err != nil {
		return nil, fmt.Errorf("select hosts %q: %w", term, err)
	}
	defer rows.Close()

	var hosts []ports.Host
	for rows.Next() {
		var (
			ip, hostname string
			number       sql.NullInt64
		)
		if err := rows.Scan(&ip, &hostname, &number); err != nil {
			return nil, fmt.Errorf("scan host: %w", err)
		}
		if len(hosts) == 0 || hosts[len(hosts)-1].IP != ip {
			hosts = append(hosts, ports.Host{IP: ip, Hostname: hostname})
		}
		if number.Valid {
			last := &hosts[len(hosts)-1]
			last.Ports = append(last.Ports, ports.Port{Number: int(number.Int64)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hosts: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", created, err)
	}
	return ports.NewSearchResult(term, ts, hosts), nil
}

// Delete removes the baseline for term; hosts and ports cascade.
// Idempotent: deleting a nonexistent term is not an error.
func (s *Store) Delete(term string) error {
	if term == "" {
		return errEmptyTerm
	}
	if _, err := s.db.Exec(sqlDeleteResult, term); err != nil {
		return fmt.Errorf("delete baseline %q: %w", term, err)
	}
	return nil
}

// Terms lists every cached term, sorted.
func (s *Store) Terms() ([]string, error) {
	rows, err := s.db.Query(sqlSelectTerms)
	if err != nil {
		return nil, fmt.Errorf("select terms: %w", err)
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}
