// pkg/store/store.go
// Package store offers an ordered, log-like facade over the B+ tree,
// keyed by uint64 timestamps. Callers never handle byte keys; the store
// encodes the timestamp into a fixed 8-byte key before reaching the tree.
package store

import (
	"encoding/binary"
	"fmt"

	"acorn/pkg/btree"
)

// KeyEncoding selects how a uint64 timestamp maps onto the tree's
// byte-lexicographic key order.
type KeyEncoding int

const (
	// KeyLittleEndian is the historical encoding. It does not preserve
	// numeric order under byte-lexicographic comparison: 256 sorts before
	// 1. Callers who iterate expect insertion of monotonically encoded
	// keys or accept the quirk.
	KeyLittleEndian KeyEncoding = iota

	// KeyBigEndian preserves numeric order and is what new files should
	// use.
	KeyBigEndian
)

// Store wraps a tree handle with uint64 keys.
type Store struct {
	tree     *btree.BTree
	encoding KeyEncoding
}

// Open opens or creates the store at path for writing, with default
// engine options and little-endian keys.
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, btree.DefaultOptions(), KeyLittleEndian)
}

// OpenReadOnly opens an existing store for reading only.
func OpenReadOnly(path string) (*Store, error) {
	tree, err := btree.OpenReader(path, btree.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return &Store{tree: tree}, nil
}

// OpenWithOptions opens the store with explicit engine options and key
// encoding.
func OpenWithOptions(path string, opts btree.Options, enc KeyEncoding) (*Store, error) {
	tree, err := btree.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &Store{tree: tree, encoding: enc}, nil
}

// OpenReadOnlyWithOptions opens an existing store for reading with
// explicit engine options and key encoding.
func OpenReadOnlyWithOptions(path string, opts btree.Options, enc KeyEncoding) (*Store, error) {
	tree, err := btree.OpenReader(path, opts)
	if err != nil {
		return nil, err
	}
	return &Store{tree: tree, encoding: enc}, nil
}

// Close flushes pending state (writers) and releases the handle.
func (s *Store) Close() error {
	return s.tree.Close()
}

// Tree exposes the underlying handle for inspection tooling.
func (s *Store) Tree() *btree.BTree {
	return s.tree
}

// Append inserts value under ts, overwriting any previous value.
func (s *Store) Append(ts uint64, value []byte) error {
	return s.tree.Insert(s.key(ts), value)
}

// Get returns the value stored exactly at ts.
func (s *Store) Get(ts uint64) ([]byte, error) {
	return s.tree.Find(s.key(ts))
}

// Search returns the value with the largest key not greater than ts.
func (s *Store) Search(ts uint64) ([]byte, error) {
	kv, err := s.tree.FuzzyFind(s.key(ts))
	if err != nil {
		return nil, err
	}
	return kv.Value, nil
}

// Delete removes the entry at ts.
func (s *Store) Delete(ts uint64) error {
	return s.tree.Delete(s.key(ts))
}

// RangeQuery returns a lazy iterator over up to limit values starting at
// the entry responsible for startTs. The sequence restarts only by
// reconstruction.
func (s *Store) RangeQuery(startTs uint64, limit int) (*Iterator, error) {
	it, err := s.tree.Range(s.key(startTs), limit)
	if err != nil {
		return nil, err
	}
	return &Iterator{inner: it, enc: s.encoding}, nil
}

func (s *Store) key(ts uint64) []byte {
	key := make([]byte, 8)
	switch s.encoding {
	case KeyBigEndian:
		binary.BigEndian.PutUint64(key, ts)
	default:
		binary.LittleEndian.PutUint64(key, ts)
	}
	return key
}

// Iterator yields stored values in ascending key order.
type Iterator struct {
	inner *btree.RangeIterator
	enc   KeyEncoding
}

// Next advances the iterator; it returns false at the end of the range.
func (it *Iterator) Next() bool {
	return it.inner.Next()
}

// Value returns the current value.
func (it *Iterator) Value() []byte {
	return it.inner.Value()
}

// Timestamp returns the current entry's key decoded back to a uint64.
func (it *Iterator) Timestamp() (uint64, error) {
	key := it.inner.Key()
	if len(key) != 8 {
		return 0, fmt.Errorf("key is %d bytes, want 8", len(key))
	}
	if it.enc == KeyBigEndian {
		return binary.BigEndian.Uint64(key), nil
	}
	return binary.LittleEndian.Uint64(key), nil
}

// Err returns the first error the iterator hit, if any.
func (it *Iterator) Err() error {
	return it.inner.Err()
}
