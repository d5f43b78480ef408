// pkg/record/record.go
// Package record defines the payload convention for stored samples: a
// compact framing of varints and length-prefixed UTF-8 strings. The
// engine itself treats values as opaque bytes; this codec is what the
// collecting side uses before appending.
package record

import (
	"errors"

	"acorn/internal/encoding"
)

var ErrTruncated = errors.New("record: truncated input")

// Sample is one observation: where it came from, which metric, when, and
// the observed value.
type Sample struct {
	Timestamp uint64
	Source    string
	Metric    string
	Value     uint64
}

// EncodedLen returns the number of bytes Encode produces.
func (s *Sample) EncodedLen() int {
	return encoding.UvarintLen(s.Timestamp) +
		encoding.StringLen(s.Source) +
		encoding.StringLen(s.Metric) +
		encoding.UvarintLen(s.Value)
}

// Encode serialises the sample.
func (s *Sample) Encode() []byte {
	buf := make([]byte, s.EncodedLen())
	offset := encoding.PutUvarint(buf, s.Timestamp)
	offset += encoding.PutString(buf[offset:], s.Source)
	offset += encoding.PutString(buf[offset:], s.Metric)
	encoding.PutUvarint(buf[offset:], s.Value)
	return buf
}

// Decode parses a sample from buf. Trailing bytes beyond the sample are
// ignored; truncated input fails with ErrTruncated.
func Decode(buf []byte) (Sample, error) {
	var s Sample
	offset := 0

	ts, n := encoding.GetUvarint(buf[offset:])
	if n == 0 {
		return Sample{}, ErrTruncated
	}
	s.Timestamp = ts
	offset += n

	source, n := encoding.GetString(buf[offset:])
	if n == 0 {
		return Sample{}, ErrTruncated
	}
	s.Source = source
	offset += n

	metric, n := encoding.GetString(buf[offset:])
	if n == 0 {
		return Sample{}, ErrTruncated
	}
	s.Metric = metric
	offset += n

	value, n := encoding.GetUvarint(buf[offset:])
	if n == 0 {
		return Sample{}, ErrTruncated
	}
	s.Value = value
	return s, nil
}
