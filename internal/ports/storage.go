// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// BaselineStore persists at most one baseline SearchResult per search term.
// The backing store (bbolt or sqlite) is a single local file. Single-writer
// usage is assumed; no cross-process locking beyond the file lock is offered.
//
// Crash safety: Put must be transactional. A crash or failed insert mid-write
// must leave either the previous record or the new one, never both and never
// neither.
type BaselineStore interface {
	// Lookup retrieves the baseline for term.
	// Returns nil, nil if no baseline exists.
	Lookup(term string) (*SearchResult, error)

	// Put stores result as the baseline for result.Term, replacing any prior
	// record for that term in the same transaction.
	Put(result *SearchResult) error

	// Delete removes the baseline for term together with its hosts and ports.
	// Idempotent: deleting a nonexistent term is not an error.
	Delete(term string) error

	// Terms lists every term that currently has a baseline, sorted.
	Terms() ([]string, error)

	// Close releases the underlying file.
	Close() error
}
