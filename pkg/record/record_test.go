// pkg/record/record_test.go
package record

import (
	"errors"
	"testing"
)

func TestSampleRoundTrip(t *testing.T) {
	samples := []Sample{
		{},
		{Timestamp: 1, Source: "host-a", Metric: "cpu", Value: 42},
		{Timestamp: 1<<40 + 7, Source: "node-17.internal", Metric: "proc/io/read_bytes", Value: 1 << 33},
	}
	for _, s := range samples {
		buf := s.Encode()
		if len(buf) != s.EncodedLen() {
			t.Errorf("EncodedLen %d, Encode produced %d bytes", s.EncodedLen(), len(buf))
		}
		got, err := Decode(buf)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if got != s {
			t.Errorf("roundtrip mismatch: got %+v, want %+v", got, s)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	s := Sample{Timestamp: 99, Source: "host", Metric: "mem", Value: 7}
	buf := s.Encode()

	for i := 0; i < len(buf); i++ {
		if _, err := Decode(buf[:i]); !errors.Is(err, ErrTruncated) {
			t.Errorf("prefix of %d bytes: expected ErrTruncated, got %v", i, err)
		}
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	s := Sample{Timestamp: 5, Source: "h", Metric: "m", Value: 1}
	buf := append(s.Encode(), 0xde, 0xad)

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != s {
		t.Errorf("got %+v, want %+v", got, s)
	}
}
