// pkg/btree/constants.go
package btree

// Serialised node header sizes.
const (
	// 1B node type
	// 8B pointer to prev leaf
	// 8B pointer to next leaf
	// 8B key count
	leafHeaderSize = 1 + 8 + 8 + 8

	// 1B node type
	// 8B key count
	// 8B child count
	internalHeaderSize = 1 + 8 + 8
)

// Per-element serialisation overhead beyond the raw bytes.
const (
	// u16 key length + u16 value length
	leafItemOverhead = 2 + 2

	// u16 key length for the key, u64 for the child page it separates
	internalItemOverhead = 2 + 8
)

const (
	// metaPageNum is reserved for the Meta record. Page 0 is never a
	// node, which frees 0 as the leaf-chain sentinel.
	metaPageNum = 0
)
