// internal/encoding/bytes_test.go
package encoding

import (
	"bytes"
	"testing"
)

func TestBytesRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		{},
		[]byte("a"),
		[]byte("hello world"),
		bytes.Repeat([]byte{0xab}, 200),
	}
	for _, p := range payloads {
		buf := make([]byte, BytesLen(p))
		n := PutBytes(buf, p)
		if n != len(buf) {
			t.Errorf("PutBytes(%d bytes): wrote %d, BytesLen said %d", len(p), n, len(buf))
		}
		got, m := GetBytes(buf)
		if m != n {
			t.Errorf("GetBytes consumed %d, expected %d", m, n)
		}
		if !bytes.Equal(got, p) {
			t.Errorf("roundtrip mismatch: got %v, want %v", got, p)
		}
	}
}

func TestGetBytesShortBuffer(t *testing.T) {
	buf := make([]byte, BytesLen([]byte("hello")))
	PutBytes(buf, []byte("hello"))

	// every truncation of a valid frame must be rejected
	for i := 0; i < len(buf); i++ {
		if _, n := GetBytes(buf[:i]); n != 0 {
			t.Errorf("GetBytes on %d-byte prefix: expected n=0, got %d", i, n)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	values := []string{"", "x", "metric/cpu", "日本語"}
	for _, s := range values {
		buf := make([]byte, StringLen(s))
		n := PutString(buf, s)
		got, m := GetString(buf)
		if m != n || got != s {
			t.Errorf("string roundtrip failed for %q: got %q (%d vs %d bytes)", s, got, m, n)
		}
	}
}
