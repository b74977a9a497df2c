package proto

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNonCanonical is returned for payloads that decode to a valid value but
	// are not the single canonical encoding of it.
	ErrNonCanonical = errors.New("non-canonical encoding")

	errVarintOverflow  = errors.New("varint overflow")
	errVarintTruncated = errors.New("truncated varint")
)

// EncodeTag encodes protobuf tag for field with given number and type.
func EncodeTag(num uint64, typ FieldType) uint64 {
	return num<<3 | uint64(typ)&7
}

// SizeTag returns size of protobuf tag for field with given number.
func SizeTag(num uint64) int {
	return SizeVarint(num << 3)
}

// SizeLEN returns length of nested [FieldTypeLEN] field.
func SizeLEN(ln int) int {
	return SizeVarint(uint64(ln)) + ln
}

// SizeVarint returns length of [FieldTypeVARINT] field.
func SizeVarint(x uint64) int {
	i := 0
	for x >= 0x80 {
		x >>= 7
		i++
	}
	return i + 1
}

// AppendUvarint appends x to buf in the minimal varint form.
func AppendUvarint(buf []byte, x uint64) []byte {
	for x >= 0x80 {
		buf = append(buf, byte(x)|0x80)
		x >>= 7
	}
	return append(buf, byte(x))
}

// ReadTag reads tag of protobuf field from b. Returns field number, type and
// number of bytes read.
func ReadTag(b []byte) (int, FieldType, int, error) {
	n, r, err := uvarint(b)
	if err != nil {
		return 0, 0, 0, err
	}

	num := n >> 3
	if num == 0 || num > MaxFieldNumber {
		return 0, 0, 0, fmt.Errorf("invalid/unsupported protobuf field num %d", num)
	}

	typ := FieldType(n & 7)
	if typ >= firstUnknownFieldType {
		return 0, 0, 0, fmt.Errorf("invalid/unsupported protobuf field type %d", typ)
	}

	return int(num), typ, r, nil
}

// ReadSizeLEN reads length of nested [FieldTypeLEN] field from b. Returns
// resulting length and number of bytes read.
func ReadSizeLEN(b []byte) (int, int, error) {
	n, r, err := uvarint(b)
	if err != nil {
		return 0, 0, err
	}

	if full := uint64(len(b)); n > full || n > full-uint64(r) {
		return 0, 0, fmt.Errorf("too big field len %d, full %d", n, len(b))
	}

	return int(n), r, nil
}

// ReadUint32 reads protobuf field of uint32 type. Returns field value and
// number of bytes read.
func ReadUint32(b []byte) (uint32, int, error) {
	n, r, err := uvarint(b)
	if err != nil {
		return 0, 0, err
	}

	if n > math.MaxUint32 {
		return 0, 0, fmt.Errorf("%d overflows uint32", n)
	}

	return uint32(n), r, nil
}

// uvarint is binary.Uvarint that additionally rejects padded encodings.
func uvarint(buf []byte) (uint64, int, error) {
	const maxVarintLen = 10
	var x uint64
	var s uint
	for i, b := range buf {
		if i == maxVarintLen {
			// Catch byte reads past maxVarintLen.
			// See issue https://golang.org/issues/41185
			return 0, 0, errVarintOverflow
		}
		if b < 0x80 {
			if i == maxVarintLen-1 && b > 1 {
				return 0, 0, errVarintOverflow
			}
			if i > 0 && b == 0 {
				return 0, 0, fmt.Errorf("%w: padded varint", ErrNonCanonical)
			}
			return x | uint64(b)<<s, i + 1, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0, errVarintTruncated
}
