// internal/encoding/bytes.go
package encoding

// Length-prefixed framing for byte sequences: varint(len) ++ raw bytes.
// Strings are UTF-8 byte sequences under the same framing.

// PutBytes writes p into buf with a varint length prefix and returns the
// number of bytes written.
func PutBytes(buf, p []byte) int {
	n := PutUvarint(buf, uint64(len(p)))
	copy(buf[n:], p)
	return n + len(p)
}

// GetBytes reads a length-prefixed byte sequence from buf. It returns the
// payload and the number of bytes consumed; n == 0 means buf was too short
// for the prefix or the announced payload.
func GetBytes(buf []byte) ([]byte, int) {
	size, n := GetUvarint(buf)
	if n == 0 || uint64(len(buf)-n) < size {
		return nil, 0
	}
	return buf[n : n+int(size)], n + int(size)
}

// BytesLen returns the number of bytes PutBytes uses for p.
func BytesLen(p []byte) int {
	return UvarintLen(uint64(len(p))) + len(p)
}

// PutString writes s under the same framing as PutBytes.
func PutString(buf []byte, s string) int {
	n := PutUvarint(buf, uint64(len(s)))
	copy(buf[n:], s)
	return n + len(s)
}

// GetString reads a length-prefixed string from buf.
func GetString(buf []byte) (string, int) {
	p, n := GetBytes(buf)
	if n == 0 {
		return "", 0
	}
	return string(p), n
}

// StringLen returns the number of bytes PutString uses for s.
func StringLen(s string) int {
	return UvarintLen(uint64(len(s))) + len(s)
}
