// pkg/btree/iterator.go
package btree

import "fmt"

// RangeIterator yields entries in ascending key order, walking forward
// through the starting leaf and then following next pointers until the
// sentinel 0 or the configured limit. It holds no pages open between
// calls beyond the current leaf snapshot.
type RangeIterator struct {
	tree      *BTree
	leaf      *Node
	index     int
	remaining int
	current   KeyValue
	err       error
	done      bool
}

// Range returns an iterator positioned at the entry responsible for
// startKey. If startKey is absent but falls after some stored key, the
// immediately preceding entry is included; if it precedes every stored
// key, the iterator is empty. limit bounds the number of yields.
func (t *BTree) Range(startKey []byte, limit int) (*RangeIterator, error) {
	if t.closed {
		return nil, ErrClosed
	}
	it := &RangeIterator{tree: t, remaining: limit}
	if t.meta.Root == 0 || limit <= 0 {
		it.done = true
		return it, nil
	}

	frames, idx, found, err := t.findPath(startKey)
	if err != nil {
		return nil, err
	}
	leaf := frames[len(frames)-1].node
	if !found && idx == 0 && leaf.prev != leaf.pageNum && leaf.prev != 0 {
		// a separator left behind by a deleted first key can route startKey
		// past its predecessor, which then ends the previous leaf
		prev, err := t.getNode(leaf.prev)
		if err != nil {
			return nil, err
		}
		leaf, idx = prev, len(prev.items)
	}
	if !found && idx == 0 {
		it.done = true
		return it, nil
	}
	if !found {
		idx--
	}
	it.leaf = leaf
	it.index = idx
	return it, nil
}

// Next advances to the next entry. It returns false when the limit is
// reached, the chain ends, or an error occurred (check Err).
func (it *RangeIterator) Next() bool {
	if it.done || it.remaining == 0 || it.leaf == nil {
		return false
	}
	for it.index >= len(it.leaf.items) {
		if it.leaf.next == 0 {
			it.done = true
			return false
		}
		node, err := it.tree.getNode(it.leaf.next)
		if err != nil {
			it.err = err
			it.done = true
			return false
		}
		if !node.leaf {
			it.err = fmt.Errorf("%w: page %d", ErrInvalidNode, node.pageNum)
			it.done = true
			return false
		}
		it.leaf = node
		it.index = 0
	}
	it.current = it.leaf.items[it.index]
	it.index++
	it.remaining--
	return true
}

// Key returns the current entry's key.
func (it *RangeIterator) Key() []byte {
	return cloneBytes(it.current.Key)
}

// Value returns the current entry's value.
func (it *RangeIterator) Value() []byte {
	return cloneBytes(it.current.Value)
}

// Err returns the first error the iterator hit, if any.
func (it *RangeIterator) Err() error {
	return it.err
}
