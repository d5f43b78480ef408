// pkg/store/store_test.go
package store

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"acorn/pkg/btree"
)

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "store.db")
}

func TestEmptyReopen(t *testing.T) {
	path := testPath(t)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenReadOnly(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	it, err := s.RangeQuery(0, 10)
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	if it.Next() {
		t.Error("range over an empty store must yield nothing")
	}
}

func TestBasicAppendAndRange(t *testing.T) {
	path := testPath(t)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Append(10, []byte("a"))
	s.Append(20, []byte("b"))
	s.Append(30, []byte("c"))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenReadOnly(path)
	if err != nil {
		t.Fatalf("reopen read-only: %v", err)
	}
	defer s.Close()

	// 15 is absent but not before every key, so the scan opens at the
	// immediately preceding entry
	it, err := s.RangeQuery(15, 10)
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	var values []string
	for it.Next() {
		values = append(values, string(it.Value()))
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(values) != len(want) {
		t.Fatalf("got %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, values[i], want[i])
		}
	}
}

func TestOverwrite(t *testing.T) {
	s, err := Open(testPath(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	s.Append(10, []byte("x"))
	s.Append(10, []byte("y"))

	value, err := s.Search(10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if string(value) != "y" {
		t.Errorf("expected overwrite to win: got %q", value)
	}
}

func TestGetExactAndMissing(t *testing.T) {
	s, err := Open(testPath(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	s.Append(10, []byte("a"))
	value, err := s.Get(10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != "a" {
		t.Errorf("got %q, want a", value)
	}

	if _, err := s.Get(11); !errors.Is(err, btree.ErrKeyNotFound) {
		t.Errorf("missing key: expected ErrKeyNotFound, got %v", err)
	}
}

func TestSearchClosestNotGreater(t *testing.T) {
	s, err := Open(testPath(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	s.Append(10, []byte("a"))
	s.Append(20, []byte("b"))

	value, err := s.Search(15)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if string(value) != "a" {
		t.Errorf("search(15): got %q, want a", value)
	}

	if _, err := s.Search(5); !errors.Is(err, btree.ErrKeyNotFound) {
		t.Errorf("search before first key: expected ErrKeyNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s, err := Open(testPath(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	s.Append(10, []byte("a"))
	if err := s.Delete(10); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(10); !errors.Is(err, btree.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
	}
	if err := s.Delete(10); !errors.Is(err, btree.ErrKeyNotFound) {
		t.Errorf("double delete: expected ErrKeyNotFound, got %v", err)
	}
}

func TestReadOnlyRejectsAppend(t *testing.T) {
	path := testPath(t)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Append(10, []byte("a"))
	s.Close()

	r, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("open read-only: %v", err)
	}
	defer r.Close()
	if err := r.Append(20, []byte("b")); !errors.Is(err, btree.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

// Little-endian keys do not sort numerically once timestamps span byte
// boundaries; big-endian keys do.
func TestBigEndianKeysPreserveNumericOrder(t *testing.T) {
	path := testPath(t)
	s, err := OpenWithOptions(path, btree.DefaultOptions(), KeyBigEndian)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	for _, ts := range []uint64{65536, 1, 256, 2} {
		if err := s.Append(ts, []byte(fmt.Sprintf("v%d", ts))); err != nil {
			t.Fatalf("append %d: %v", ts, err)
		}
	}

	it, err := s.RangeQuery(1, 10)
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	var order []uint64
	for it.Next() {
		ts, err := it.Timestamp()
		if err != nil {
			t.Fatalf("timestamp: %v", err)
		}
		order = append(order, ts)
	}
	want := []uint64{1, 2, 256, 65536}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %d, want %d", i, order[i], want[i])
		}
	}
}

func TestRangeQueryLazyAcrossSplits(t *testing.T) {
	path := testPath(t)
	opts := btree.Options{PageSize: 256, HighWatermarkRatio: 0.90, LowWatermarkRatio: 0.25}
	s, err := OpenWithOptions(path, opts, KeyBigEndian)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	payload := bytes.Repeat([]byte("p"), 10)
	for ts := uint64(1); ts <= 40; ts++ {
		if err := s.Append(ts, payload); err != nil {
			t.Fatalf("append %d: %v", ts, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, err := OpenReadOnlyWithOptions(path, opts, KeyBigEndian)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r.Close()
	if err := r.Tree().Check(); err != nil {
		t.Fatalf("check after reopen: %v", err)
	}

	it, err := r.RangeQuery(1, 1000)
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	count := 0
	var last uint64
	for it.Next() {
		ts, err := it.Timestamp()
		if err != nil {
			t.Fatalf("timestamp: %v", err)
		}
		if ts <= last {
			t.Fatalf("timestamps out of order: %d after %d", ts, last)
		}
		last = ts
		count++
	}
	if count != 40 {
		t.Errorf("expected 40 entries, got %d", count)
	}
}
