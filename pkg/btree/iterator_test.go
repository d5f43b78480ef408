// pkg/btree/iterator_test.go
package btree

import (
	"bytes"
	"fmt"
	"testing"
)

func collect(t *testing.T, it *RangeIterator) []string {
	t.Helper()
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	return keys
}

func TestRangeEmptyTree(t *testing.T) {
	tr, _ := openTestTree(t, smallOptions())

	it, err := tr.Range([]byte("10"), 10)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if keys := collect(t, it); len(keys) != 0 {
		t.Errorf("expected empty iteration, got %v", keys)
	}
}

func TestRangeFromExactKey(t *testing.T) {
	tr, _ := openTestTree(t, smallOptions())
	insertRange(t, tr, 10, 14)

	it, err := tr.Range([]byte("12"), 10)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	keys := collect(t, it)
	want := []string{"12", "13", "14"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, keys[i], want[i])
		}
	}
}

// A start key falling between two stored keys includes the immediately
// preceding entry.
func TestRangeBetweenKeysIncludesPredecessor(t *testing.T) {
	tr, _ := openTestTree(t, smallOptions())
	insertRange(t, tr, 10, 14)

	it, err := tr.Range([]byte("125"), 10)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	keys := collect(t, it)
	if len(keys) == 0 || keys[0] != "12" {
		t.Fatalf("expected the scan to open at the preceding key 12, got %v", keys)
	}
}

func TestRangeBeforeAllKeysIsEmpty(t *testing.T) {
	tr, _ := openTestTree(t, smallOptions())
	insertRange(t, tr, 10, 14)

	it, err := tr.Range([]byte("00"), 10)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if keys := collect(t, it); len(keys) != 0 {
		t.Errorf("expected empty iteration before the first key, got %v", keys)
	}
}

func TestRangeHonoursLimit(t *testing.T) {
	tr, _ := openTestTree(t, smallOptions())
	insertRange(t, tr, 10, 20)

	it, err := tr.Range([]byte("10"), 4)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	keys := collect(t, it)
	if len(keys) != 4 {
		t.Fatalf("limit 4: got %d keys %v", len(keys), keys)
	}
	if keys[3] != "13" {
		t.Errorf("expected the scan to stop at 13, got %s", keys[3])
	}
}

// The scan crosses leaf boundaries by following next pointers and stops
// at the sentinel.
func TestRangeWalksLeafChain(t *testing.T) {
	tr, _ := openTestTree(t, smallOptions())
	insertRange(t, tr, 10, 22) // split: {10,11} and {12..22}

	it, err := tr.Range([]byte("10"), 100)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	keys := collect(t, it)
	if len(keys) != 13 {
		t.Fatalf("expected all 13 keys, got %d: %v", len(keys), keys)
	}
	for i := range keys {
		want := fmt.Sprintf("%02d", 10+i)
		if keys[i] != want {
			t.Errorf("position %d: got %s, want %s", i, keys[i], want)
		}
	}
}

func TestRangeValuesMatchKeys(t *testing.T) {
	tr, _ := openTestTree(t, smallOptions())
	insertRange(t, tr, 10, 22)

	it, err := tr.Range([]byte("10"), 100)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	for it.Next() {
		if !bytes.Equal(it.Value(), testValue(string(it.Key()))) {
			t.Errorf("key %s paired with value %q", it.Key(), it.Value())
		}
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
}

func TestRangeZeroLimit(t *testing.T) {
	tr, _ := openTestTree(t, smallOptions())
	insertRange(t, tr, 10, 12)

	it, err := tr.Range([]byte("10"), 0)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if it.Next() {
		t.Error("zero limit must not yield")
	}
}
