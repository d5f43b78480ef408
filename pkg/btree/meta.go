// pkg/btree/meta.go
package btree

import "encoding/binary"

// Meta is the persistent pointer to the root node and the freelist page.
// It lives at the start of page 0; the remaining bytes of that page are
// reserved. Root == 0 signals an empty tree.
type Meta struct {
	Root         uint64
	FreelistPage uint64
}

func (m *Meta) serialize(buf []byte) {
	offset := 0
	binary.LittleEndian.PutUint64(buf[offset:], m.Root)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], m.FreelistPage)
}

func (m *Meta) deserialize(buf []byte) {
	offset := 0
	m.Root = binary.LittleEndian.Uint64(buf[offset:])
	offset += 8
	m.FreelistPage = binary.LittleEndian.Uint64(buf[offset:])
}
