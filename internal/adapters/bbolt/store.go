// Package bbolt implements the ports.BaselineStore interface using bbolt
// (embedded B+ tree). Every baseline lives under the "baselines" bucket keyed
// by its term. Writes are transactional: a crash mid-write cannot corrupt
// previously committed data or leave two records for one term.
package bbolt

import (
	"errors"
	"fmt"
	"time"

	"github.com/corey/shodiff/internal/ports"
	bolt "go.etcd.io/bbolt"
)

var bucketBaselines = []byte("baselines")

// errEmptyTerm is returned for operations on an empty term; bbolt rejects
// zero-length keys.
var errEmptyTerm = errors.New("empty search term")

// Store implements ports.BaselineStore backed by bbolt.
type Store struct {
	db *bolt.DB
}

var _ ports.BaselineStore = (*Store)(nil)

// NewStore opens (or creates) a bbolt database at the given path.
// The file lock is held until Close; a second opener times out after 1s.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores result as the baseline for its term. The previous record, if
// any, is deleted and the new one inserted in the same transaction.
func (s *Store) Put(result *ports.SearchResult) error {
	if result == nil {
		return fmt.Errorf("nil search result")
	}
	if result.Term == "" {
		return errEmptyTerm
	}

	data, err := encodeRecord(result)
	if err != nil {
		return fmt.Errorf("encode baseline %q: %w", result.Term, err)
	}

	key := []byte(result.Term)
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketBaselines)
		if err != nil {
			return err
		}
		if err := b.Delete(key); err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// Lookup retrieves the baseline for term.
// Returns nil, nil if no baseline exists.
func (s *Store) Lookup(term string) (*ports.SearchResult, error) {
	if term == "" {
		return nil, errEmptyTerm
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBaselines)
		if b == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := b.Get([]byte(term)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	r, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("decode baseline %q: %w", term, err)
	}
	return r, nil
}

// Delete removes the baseline for term.
// Idempotent: deleting a nonexistent term is not an error.
func (s *Store) Delete(term string) error {
	if term == "" {
		return errEmptyTerm
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBaselines)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(term))
	})
}

// Terms lists every cached term in key order (bytewise sorted).
func (s *Store) Terms() ([]string, error) {
	var terms []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBaselines)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			terms = append(terms, string(k))
			return nil
		})
	})
	return terms, err
}
