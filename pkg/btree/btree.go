// pkg/btree/btree.go
// Package btree implements an embedded, disk-backed B+ tree key/value
// store with a paged file format, an in-place freelist, and a streaming
// range iterator. Keys and values are opaque byte sequences; keys compare
// byte-lexicographically. The engine is single-threaded: a handle must not
// be shared across goroutines without external mutual exclusion.
package btree

import (
	"errors"
	"fmt"
	"os"

	"acorn/pkg/pager"
)

var (
	ErrEmptyTree      = errors.New("empty tree")
	ErrKeyNotFound    = errors.New("key not found")
	ErrReadOnly       = errors.New("tree opened read-only")
	ErrTooLarge       = errors.New("key/value too large for page")
	ErrDatabaseLocked = errors.New("database is locked")
	ErrClosed         = errors.New("tree is closed")
	ErrPageLoad       = errors.New("referenced page could not be loaded")
)

// BTree is an open tree handle. Writer handles hold an exclusive advisory
// lock on the backing file and flush Meta and the freelist on Close;
// reader handles hold a shared lock and never write.
type BTree struct {
	file     *os.File
	pager    *pager.Pager
	meta     Meta
	freelist *Freelist
	opts     Options
	readOnly bool
	closed   bool
}

// pathFrame is one level of a root-to-leaf descent. childIndex is the
// index of the child taken from this node to reach the next frame; it is
// unused on the leaf frame.
type pathFrame struct {
	node       *Node
	childIndex int
}

// Open opens path for writing, creating and initialising the file if it
// does not exist.
func Open(path string, opts Options) (*BTree, error) {
	return open(path, opts, false)
}

// OpenReader opens path read-only. The file must exist.
func OpenReader(path string, opts Options) (*BTree, error) {
	return open(path, opts, true)
}

func open(path string, opts Options, readOnly bool) (*BTree, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("open tree: %w", err)
	}
	if err := flock(file, !readOnly); err != nil {
		file.Close()
		return nil, err
	}

	t := &BTree{
		file:     file,
		pager:    pager.New(file, opts.PageSize),
		freelist: newFreelist(opts.PageSize),
		opts:     opts,
		readOnly: readOnly,
	}

	info, err := file.Stat()
	if err != nil {
		t.release()
		return nil, fmt.Errorf("open tree: %w", err)
	}
	if info.Size() == 0 {
		if readOnly {
			t.release()
			return nil, errors.New("open tree: file is empty")
		}
		// fresh file: reserve page 0 for Meta, claim the freelist page,
		// and commit both before any inserts
		t.meta.FreelistPage = t.freelist.NextPage()
		if err := t.flush(); err != nil {
			t.release()
			return nil, err
		}
		return t, nil
	}

	if err := t.load(); err != nil {
		t.release()
		return nil, err
	}
	return t, nil
}

func (t *BTree) load() error {
	metaPage, err := t.pager.Read(metaPageNum)
	if err != nil {
		return fmt.Errorf("load meta: %w", err)
	}
	t.meta.deserialize(metaPage.Data)

	if t.meta.FreelistPage == 0 {
		// never initialised; derive the allocation high-water mark from
		// the file length so fresh pages do not collide with live ones
		info, err := t.file.Stat()
		if err != nil {
			return fmt.Errorf("load freelist: %w", err)
		}
		pages := uint64(info.Size()) / uint64(t.opts.PageSize)
		if pages > 0 {
			t.freelist.maxPage = pages - 1
		}
		if !t.readOnly {
			t.meta.FreelistPage = t.freelist.NextPage()
		}
		return nil
	}

	flsPage, err := t.pager.Read(t.meta.FreelistPage)
	if err != nil {
		return fmt.Errorf("load freelist: %w", err)
	}
	t.freelist.deserialize(flsPage.Data)
	return nil
}

// Close flushes (writers only) and releases the handle. It is idempotent.
func (t *BTree) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	var firstErr error
	if !t.readOnly {
		if err := t.flush(); err != nil {
			firstErr = err
		}
		if err := t.pager.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := t.release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (t *BTree) release() error {
	funlock(t.file)
	return t.file.Close()
}

// ReadOnly reports whether the handle was opened as a reader.
func (t *BTree) ReadOnly() bool {
	return t.readOnly
}

// getNode loads and deserialises the node at pageNum. A page the pager
// cannot produce means a dangling reference and surfaces as ErrPageLoad.
func (t *BTree) getNode(pageNum uint64) (*Node, error) {
	page, err := t.pager.Read(pageNum)
	if err != nil {
		if errors.Is(err, pager.ErrPageNotFound) {
			return nil, fmt.Errorf("%w: page %d", ErrPageLoad, pageNum)
		}
		return nil, err
	}
	node := &Node{}
	if err := node.deserialize(page.Data); err != nil {
		return nil, fmt.Errorf("%w: page %d", err, pageNum)
	}
	node.pageNum = pageNum
	return node, nil
}

// writeNode serialises the node into a fresh page buffer and writes it,
// lazily assigning a page number from the freelist if it has none.
func (t *BTree) writeNode(n *Node) error {
	if n.pageNum == 0 {
		n.pageNum = t.freelist.NextPage()
	}
	page := t.pager.Allocate(n.pageNum)
	if err := n.serialize(page.Data); err != nil {
		return fmt.Errorf("%w: page %d", err, n.pageNum)
	}
	return t.pager.Write(page)
}

// deleteNode zeroes the node's page and recycles its number.
func (t *BTree) deleteNode(pageNum uint64) error {
	if err := t.pager.Write(t.pager.Allocate(pageNum)); err != nil {
		return err
	}
	t.freelist.Release(pageNum)
	return nil
}

// flush rewrites Meta and the freelist page. It is the only committing
// operation: on-disk state is consistent with the last successful flush.
func (t *BTree) flush() error {
	metaPage := t.pager.Allocate(metaPageNum)
	t.meta.serialize(metaPage.Data)
	if err := t.pager.Write(metaPage); err != nil {
		return err
	}

	if t.meta.FreelistPage == 0 {
		return nil
	}
	flsPage := t.pager.Allocate(t.meta.FreelistPage)
	t.freelist.serialize(flsPage.Data)
	return t.pager.Write(flsPage)
}

// findPath descends from the root to the leaf responsible for key,
// recording the child index taken at every internal level. It returns the
// frames root-first, the key's slot (or insertion position) in the leaf,
// and whether the key was found.
func (t *BTree) findPath(key []byte) ([]pathFrame, int, bool, error) {
	var frames []pathFrame
	pageNum := t.meta.Root
	for {
		node, err := t.getNode(pageNum)
		if err != nil {
			return nil, 0, false, err
		}
		if node.IsLeaf() {
			found, idx := node.findKeyInLeaf(key)
			frames = append(frames, pathFrame{node: node})
			return frames, idx, found, nil
		}
		ci := node.findKeyInInternal(key)
		if ci >= len(node.children) {
			return nil, 0, false, fmt.Errorf("%w: page %d", ErrInvalidNode, pageNum)
		}
		frames = append(frames, pathFrame{node: node, childIndex: ci})
		pageNum = node.children[ci]
	}
}

// Find returns the value stored under key.
func (t *BTree) Find(key []byte) ([]byte, error) {
	if t.closed {
		return nil, ErrClosed
	}
	if t.meta.Root == 0 {
		return nil, ErrEmptyTree
	}
	frames, idx, found, err := t.findPath(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrKeyNotFound
	}
	leaf := frames[len(frames)-1].node
	value := make([]byte, len(leaf.items[idx].Value))
	copy(value, leaf.items[idx].Value)
	return value, nil
}

// FuzzyFind returns the entry with the largest key not greater than key.
func (t *BTree) FuzzyFind(key []byte) (KeyValue, error) {
	if t.closed {
		return KeyValue{}, ErrClosed
	}
	if t.meta.Root == 0 {
		return KeyValue{}, ErrEmptyTree
	}
	frames, idx, found, err := t.findPath(key)
	if err != nil {
		return KeyValue{}, err
	}
	leaf := frames[len(frames)-1].node
	if !found && idx == 0 && leaf.prev != leaf.pageNum && leaf.prev != 0 {
		// a separator left behind by a deleted first key can route key past
		// its predecessor, which then ends the previous leaf
		prev, err := t.getNode(leaf.prev)
		if err != nil {
			return KeyValue{}, err
		}
		leaf, idx = prev, len(prev.items)
	}
	if !found {
		if idx == 0 {
			return KeyValue{}, ErrKeyNotFound
		}
		idx--
	}
	kv := KeyValue{
		Key:   make([]byte, len(leaf.items[idx].Key)),
		Value: make([]byte, len(leaf.items[idx].Value)),
	}
	copy(kv.Key, leaf.items[idx].Key)
	copy(kv.Value, leaf.items[idx].Value)
	return kv, nil
}

// Insert stores value under key, overwriting any previous value. Nodes
// pushed past the high watermark are split on the way back up; a root
// split installs a new internal root. The operation commits with a final
// Meta and freelist flush.
func (t *BTree) Insert(key, value []byte) error {
	if t.closed {
		return ErrClosed
	}
	if t.readOnly {
		return ErrReadOnly
	}
	if len(key) > maxUint16 || len(value) > maxUint16 ||
		leafHeaderSize+leafItemOverhead+len(key)+len(value) > t.opts.highThreshold() {
		return ErrTooLarge
	}

	if t.meta.Root == 0 {
		root := newLeaf(t.freelist.NextPage())
		// the lowest leaf points prev at itself; next stays the sentinel
		root.prev = root.pageNum
		root.items = append(root.items, KeyValue{Key: cloneBytes(key), Value: cloneBytes(value)})
		if err := t.writeNode(root); err != nil {
			return err
		}
		t.meta.Root = root.pageNum
		return t.flush()
	}

	frames, idx, found, err := t.findPath(key)
	if err != nil {
		return err
	}

	leaf := frames[len(frames)-1].node
	if found {
		leaf.items[idx].Value = cloneBytes(value)
	} else {
		kv := KeyValue{Key: cloneBytes(key), Value: cloneBytes(value)}
		leaf.items = append(leaf.items, KeyValue{})
		copy(leaf.items[idx+1:], leaf.items[idx:])
		leaf.items[idx] = kv
	}

	for i := len(frames) - 1; i > 0; i-- {
		child := frames[i].node
		parent := frames[i-1].node
		ci := frames[i-1].childIndex
		if child.isOverflow(t.opts) {
			if err := t.splitChild(parent, child, ci); err != nil {
				return err
			}
		} else if err := t.writeNode(child); err != nil {
			return err
		}
	}

	root := frames[0].node
	if root.isOverflow(t.opts) {
		if err := t.splitRoot(root); err != nil {
			return err
		}
	} else if err := t.writeNode(root); err != nil {
		return err
	}
	return t.flush()
}

// splitChild splits an over-size child and installs the separator and the
// new sibling into parent at child position ci. The parent itself is
// persisted by the caller's walk one level up.
func (t *BTree) splitChild(parent, child *Node, ci int) error {
	sep, sibling, err := child.split(t.opts, t.freelist.NextPage())
	if err != nil {
		return err
	}

	parent.keys = append(parent.keys, nil)
	copy(parent.keys[ci+1:], parent.keys[ci:])
	parent.keys[ci] = sep

	parent.children = append(parent.children, 0)
	copy(parent.children[ci+2:], parent.children[ci+1:])
	parent.children[ci+1] = sibling.pageNum

	if err := t.writeNode(child); err != nil {
		return err
	}
	if err := t.writeNode(sibling); err != nil {
		return err
	}
	return t.repointPrev(sibling)
}

// splitRoot splits an over-size root and installs a fresh internal root
// above both halves.
func (t *BTree) splitRoot(root *Node) error {
	sep, sibling, err := root.split(t.opts, t.freelist.NextPage())
	if err != nil {
		return err
	}

	newRoot := newInternal(t.freelist.NextPage())
	newRoot.keys = append(newRoot.keys, sep)
	newRoot.children = append(newRoot.children, root.pageNum, sibling.pageNum)

	if err := t.writeNode(root); err != nil {
		return err
	}
	if err := t.writeNode(sibling); err != nil {
		return err
	}
	if err := t.repointPrev(sibling); err != nil {
		return err
	}
	if err := t.writeNode(newRoot); err != nil {
		return err
	}
	t.meta.Root = newRoot.pageNum
	return nil
}

// repointPrev fixes the back link of the leaf following n after n took
// over a slot in the chain.
func (t *BTree) repointPrev(n *Node) error {
	if !n.leaf || n.next == 0 {
		return nil
	}
	neighbor, err := t.getNode(n.next)
	if err != nil {
		return err
	}
	if !neighbor.leaf {
		return fmt.Errorf("%w: page %d", ErrInvalidNode, n.next)
	}
	neighbor.prev = n.pageNum
	return t.writeNode(neighbor)
}

// Delete removes key from the tree. Nodes dropping below the low
// watermark are cured by rotation or merge on the way back up; an
// internal root left with a single child is demoted.
func (t *BTree) Delete(key []byte) error {
	if t.closed {
		return ErrClosed
	}
	if t.readOnly {
		return ErrReadOnly
	}
	if t.meta.Root == 0 {
		return ErrEmptyTree
	}

	frames, idx, found, err := t.findPath(key)
	if err != nil {
		return err
	}
	if !found {
		return ErrKeyNotFound
	}

	leaf := frames[len(frames)-1].node
	leaf.items = append(leaf.items[:idx], leaf.items[idx+1:]...)

	for i := len(frames) - 1; i > 0; i-- {
		child := frames[i].node
		parent := frames[i-1].node
		ci := frames[i-1].childIndex
		if child.isUnderflow(t.opts) {
			if child.leaf {
				err = t.rebalanceLeaf(parent, child, ci)
			} else {
				err = t.rebalanceInternal(parent, child, ci)
			}
		} else {
			err = t.writeNode(child)
		}
		if err != nil {
			return err
		}
	}

	root := frames[0].node
	if !root.leaf && len(root.keys) == 0 && len(root.children) == 1 {
		t.meta.Root = root.children[0]
		if err := t.deleteNode(root.pageNum); err != nil {
			return err
		}
	} else if err := t.writeNode(root); err != nil {
		return err
	}
	return t.flush()
}

// rebalanceLeaf cures an under-size leaf at child position ci. Rotation
// prefers the left sibling; merge prefers the right sibling when the
// deficient leaf is the leftmost child.
func (t *BTree) rebalanceLeaf(parent, def *Node, ci int) error {
	if ci > 0 {
		left, err := t.siblingLeaf(parent, ci-1)
		if err != nil {
			return err
		}
		last := len(left.items) - 1
		if last >= 0 && left.canSpare(t.opts, leafItemOverhead+len(left.items[last].Key)+len(left.items[last].Value)) {
			item := left.items[last]
			left.items = left.items[:last]

			def.items = append(def.items, KeyValue{})
			copy(def.items[1:], def.items)
			def.items[0] = item

			// the separator is the deficient leaf's new first key, so the
			// rotated entry stays reachable
			parent.keys[ci-1] = item.Key

			if err := t.writeNode(left); err != nil {
				return err
			}
			return t.writeNode(def)
		}
	}

	if ci < len(parent.children)-1 {
		right, err := t.siblingLeaf(parent, ci+1)
		if err != nil {
			return err
		}
		if len(right.items) > 0 && right.canSpare(t.opts, leafItemOverhead+len(right.items[0].Key)+len(right.items[0].Value)) {
			item := right.items[0]
			right.items = right.items[1:]

			def.items = append(def.items, item)
			parent.keys[ci] = right.items[0].Key

			if err := t.writeNode(right); err != nil {
				return err
			}
			return t.writeNode(def)
		}
	}

	if ci == 0 {
		if len(parent.children) < 2 {
			return t.writeNode(def)
		}
		right, err := t.siblingLeaf(parent, 1)
		if err != nil {
			return err
		}
		if def.size()+right.size()-leafHeaderSize > t.opts.highThreshold() {
			return t.writeNode(def)
		}
		def.items = append(def.items, right.items...)
		parent.keys = append(parent.keys[:0], parent.keys[1:]...)
		parent.children = append(parent.children[:1], parent.children[2:]...)

		def.next = right.next
		if err := t.writeNode(def); err != nil {
			return err
		}
		if err := t.repointPrev(def); err != nil {
			return err
		}
		return t.deleteNode(right.pageNum)
	}

	left, err := t.siblingLeaf(parent, ci-1)
	if err != nil {
		return err
	}
	if left.size()+def.size()-leafHeaderSize > t.opts.highThreshold() {
		return t.writeNode(def)
	}
	left.items = append(left.items, def.items...)
	parent.keys = append(parent.keys[:ci-1], parent.keys[ci:]...)
	parent.children = append(parent.children[:ci], parent.children[ci+1:]...)

	left.next = def.next
	if err := t.writeNode(left); err != nil {
		return err
	}
	if err := t.repointPrev(left); err != nil {
		return err
	}
	return t.deleteNode(def.pageNum)
}

// rebalanceInternal cures an under-size internal node at child position
// ci, with the same sibling policy as rebalanceLeaf. Rotations move one
// key and one child pointer through the parent's separator; merges absorb
// the separator into the surviving node.
func (t *BTree) rebalanceInternal(parent, def *Node, ci int) error {
	if ci > 0 {
		left, err := t.siblingInternal(parent, ci-1)
		if err != nil {
			return err
		}
		last := len(left.keys) - 1
		if last >= 0 && left.canSpare(t.opts, internalItemOverhead+len(left.keys[last])) {
			sep := parent.keys[ci-1]

			def.keys = append(def.keys, nil)
			copy(def.keys[1:], def.keys)
			def.keys[0] = sep

			def.children = append(def.children, 0)
			copy(def.children[1:], def.children)
			def.children[0] = left.children[len(left.children)-1]

			parent.keys[ci-1] = left.keys[last]
			left.keys = left.keys[:last]
			left.children = left.children[:len(left.children)-1]

			if err := t.writeNode(left); err != nil {
				return err
			}
			return t.writeNode(def)
		}
	}

	if ci < len(parent.children)-1 {
		right, err := t.siblingInternal(parent, ci+1)
		if err != nil {
			return err
		}
		if len(right.keys) > 0 && right.canSpare(t.opts, internalItemOverhead+len(right.keys[0])) {
			sep := parent.keys[ci]

			def.keys = append(def.keys, sep)
			def.children = append(def.children, right.children[0])

			parent.keys[ci] = right.keys[0]
			right.keys = right.keys[1:]
			right.children = right.children[1:]

			if err := t.writeNode(right); err != nil {
				return err
			}
			return t.writeNode(def)
		}
	}

	if ci == 0 {
		if len(parent.children) < 2 {
			return t.writeNode(def)
		}
		right, err := t.siblingInternal(parent, 1)
		if err != nil {
			return err
		}
		merged := def.size() + right.size() - internalHeaderSize + 2 + len(parent.keys[0])
		if merged > t.opts.highThreshold() {
			return t.writeNode(def)
		}
		def.keys = append(def.keys, parent.keys[0])
		def.keys = append(def.keys, right.keys...)
		def.children = append(def.children, right.children...)

		parent.keys = append(parent.keys[:0], parent.keys[1:]...)
		parent.children = append(parent.children[:1], parent.children[2:]...)

		if err := t.writeNode(def); err != nil {
			return err
		}
		return t.deleteNode(right.pageNum)
	}

	left, err := t.siblingInternal(parent, ci-1)
	if err != nil {
		return err
	}
	merged := left.size() + def.size() - internalHeaderSize + 2 + len(parent.keys[ci-1])
	if merged > t.opts.highThreshold() {
		return t.writeNode(def)
	}
	left.keys = append(left.keys, parent.keys[ci-1])
	left.keys = append(left.keys, def.keys...)
	left.children = append(left.children, def.children...)

	parent.keys = append(parent.keys[:ci-1], parent.keys[ci:]...)
	parent.children = append(parent.children[:ci], parent.children[ci+1:]...)

	if err := t.writeNode(left); err != nil {
		return err
	}
	return t.deleteNode(def.pageNum)
}

func (t *BTree) siblingLeaf(parent *Node, idx int) (*Node, error) {
	n, err := t.getNode(parent.children[idx])
	if err != nil {
		return nil, err
	}
	if !n.leaf {
		return nil, fmt.Errorf("%w: page %d", ErrInvalidNode, n.pageNum)
	}
	return n, nil
}

func (t *BTree) siblingInternal(parent *Node, idx int) (*Node, error) {
	n, err := t.getNode(parent.children[idx])
	if err != nil {
		return nil, err
	}
	if n.leaf {
		return nil, fmt.Errorf("%w: page %d", ErrInvalidNode, n.pageNum)
	}
	return n, nil
}

const maxUint16 = 1<<16 - 1

func cloneBytes(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
