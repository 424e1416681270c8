// Package keyenc provides order-preserving binary key encodings for stores
// that only offer a single byte-ordered sort key.
//
// Encoded components compare with bytes.Compare in the same order as the
// values they encode. Descending components are the bitwise complement of the
// ascending encoding. Text components are escaped and terminated, so no
// encoded component is a prefix of another and components can be
// concatenated into a composite key.
package keyenc

import (
	"encoding/binary"
	"math"
)

const (
	escape     = 0x00
	escapedNul = 0xFF
	terminator = 0x01
)

// AppendInt appends the encoding of v.
func AppendInt(b []byte, v int64, desc bool) []byte {
	return appendUint(b, uint64(v)^(1<<63), desc)
}

// AppendFloat appends the encoding of f. NaN sorts after +Inf.
func AppendFloat(b []byte, f float64, desc bool) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return appendUint(b, bits, desc)
}

func appendUint(b []byte, u uint64, desc bool) []byte {
	if desc {
		u = ^u
	}
	return binary.BigEndian.AppendUint64(b, u)
}

// AppendText appends the escaped, terminated encoding of s.
func AppendText(b []byte, s string, desc bool) []byte {
	start := len(b)
	b = appendEscaped(b, s)
	b = append(b, escape, terminator)
	if desc {
		for i := start; i < len(b); i++ {
			b[i] = ^b[i]
		}
	}
	return b
}

// AppendTextPrefix appends the ascending encoding of s without its
// terminator. The result is a byte prefix of the encoding of every string
// that starts with s.
func AppendTextPrefix(b []byte, s string) []byte {
	return appendEscaped(b, s)
}

func appendEscaped(b []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		if s[i] == escape {
			b = append(b, escape, escapedNul)
			continue
		}
		b = append(b, s[i])
	}
	return b
}

// Increment returns the smallest key of the same length greater than b,
// treating b as a big-endian number. It reports false when b is all 0xFF.
func Increment(b []byte) ([]byte, bool) {
	out := append([]byte(nil), b...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out, true
		}
		out[i] = 0
	}
	return nil, false
}

// DecodeInt decodes an 8-byte component produced by AppendInt.
func DecodeInt(b []byte, desc bool) int64 {
	u := binary.BigEndian.Uint64(b)
	if desc {
		u = ^u
	}
	return int64(u ^ (1 << 63))
}

// TableName joins an optional prefix and a table name.
func TableName(prefix, table string) string {
	if prefix == "" {
		return table
	}
	return prefix + "." + table
}
