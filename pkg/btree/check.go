// pkg/btree/check.go
package btree

import (
	"bytes"
	"fmt"
)

// Stats summarises the on-disk tree.
type Stats struct {
	Depth         int
	Keys          int
	LeafNodes     int
	InternalNodes int
	FreePages     int
	MaxPage       uint64
}

// Stat walks the tree and reports its shape.
func (t *BTree) Stat() (Stats, error) {
	if t.closed {
		return Stats{}, ErrClosed
	}
	stats := Stats{
		FreePages: t.freelist.FreeCount(),
		MaxPage:   t.freelist.MaxPage(),
	}
	if t.meta.Root == 0 {
		return stats, nil
	}
	if err := t.statNode(t.meta.Root, 1, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (t *BTree) statNode(pageNum uint64, depth int, stats *Stats) error {
	node, err := t.getNode(pageNum)
	if err != nil {
		return err
	}
	if depth > stats.Depth {
		stats.Depth = depth
	}
	if node.leaf {
		stats.LeafNodes++
		stats.Keys += len(node.items)
		return nil
	}
	stats.InternalNodes++
	for _, child := range node.children {
		if err := t.statNode(child, depth+1, stats); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies the structural invariants of the on-disk tree: internal
// fanout (children == keys+1), strictly ascending keys within and across
// nodes, serialised sizes within the page body, a well-formed doubly
// linked leaf chain covering every leaf exactly once, and disjointness of
// the freelist from live pages. It returns the first violation found.
func (t *BTree) Check() error {
	if t.closed {
		return ErrClosed
	}
	live := map[uint64]bool{}
	var leaves []*Node

	if t.meta.Root != 0 {
		if err := t.checkNode(t.meta.Root, live, &leaves); err != nil {
			return err
		}
		if err := t.checkLeafChain(leaves); err != nil {
			return err
		}
	}

	for _, pn := range t.freelist.released {
		if pn == metaPageNum || pn == t.meta.FreelistPage {
			return fmt.Errorf("check: reserved page %d on freelist", pn)
		}
		if live[pn] {
			return fmt.Errorf("check: page %d both live and on freelist", pn)
		}
	}
	return nil
}

// checkNode validates one node and recurses, appending leaves in key
// order.
func (t *BTree) checkNode(pageNum uint64, live map[uint64]bool, leaves *[]*Node) error {
	if live[pageNum] {
		return fmt.Errorf("check: page %d referenced twice", pageNum)
	}
	live[pageNum] = true

	node, err := t.getNode(pageNum)
	if err != nil {
		return err
	}
	if node.size() > t.opts.PageSize {
		return fmt.Errorf("check: node at page %d exceeds page body (%d bytes)", pageNum, node.size())
	}

	if node.leaf {
		for i := 1; i < len(node.items); i++ {
			if bytes.Compare(node.items[i-1].Key, node.items[i].Key) >= 0 {
				return fmt.Errorf("check: keys out of order in leaf %d", pageNum)
			}
		}
		*leaves = append(*leaves, node)
		return nil
	}

	if len(node.children) != len(node.keys)+1 {
		return fmt.Errorf("check: internal node %d has %d keys but %d children",
			pageNum, len(node.keys), len(node.children))
	}
	for i := 1; i < len(node.keys); i++ {
		if bytes.Compare(node.keys[i-1], node.keys[i]) >= 0 {
			return fmt.Errorf("check: keys out of order in internal node %d", pageNum)
		}
	}
	for _, child := range node.children {
		if err := t.checkNode(child, live, leaves); err != nil {
			return err
		}
	}
	return nil
}

// checkLeafChain verifies that following next from the lowest leaf visits
// every leaf exactly once in ascending key order, with back links intact,
// prev of the lowest leaf pointing at itself and next of the highest
// being the sentinel 0.
func (t *BTree) checkLeafChain(leaves []*Node) error {
	if len(leaves) == 0 {
		return nil
	}
	if leaves[0].prev != leaves[0].pageNum {
		return fmt.Errorf("check: lowest leaf %d has prev %d, want itself",
			leaves[0].pageNum, leaves[0].prev)
	}
	if last := leaves[len(leaves)-1]; last.next != 0 {
		return fmt.Errorf("check: highest leaf %d has next %d, want sentinel 0",
			last.pageNum, last.next)
	}
	var prevKey []byte
	for i, leaf := range leaves {
		if i > 0 {
			if leaves[i-1].next != leaf.pageNum {
				return fmt.Errorf("check: leaf %d has next %d, want %d",
					leaves[i-1].pageNum, leaves[i-1].next, leaf.pageNum)
			}
			if leaf.prev != leaves[i-1].pageNum {
				return fmt.Errorf("check: leaf %d has prev %d, want %d",
					leaf.pageNum, leaf.prev, leaves[i-1].pageNum)
			}
		}
		for _, kv := range leaf.items {
			if prevKey != nil && bytes.Compare(prevKey, kv.Key) >= 0 {
				return fmt.Errorf("check: leaf ranges overlap at page %d", leaf.pageNum)
			}
			prevKey = kv.Key
		}
	}
	return nil
}
