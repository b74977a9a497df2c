package proto

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"
)

// Encoder builds canonical messages: fields are numbered from 1 and written in
// ascending order, each exactly once, zero values included.
type Encoder struct {
	buf []byte
}

// Uvarint writes unsigned integer field.
func (x *Encoder) Uvarint(num int, v uint64) {
	x.buf = slices.Grow(x.buf, SizeTag(uint64(num))+SizeVarint(v))
	x.buf = AppendUvarint(x.buf, EncodeTag(uint64(num), FieldTypeVARINT))
	x.buf = AppendUvarint(x.buf, v)
}

// Bytes writes binary field.
func (x *Encoder) Bytes(num int, b []byte) {
	x.buf = slices.Grow(x.buf, SizeTag(uint64(num))+SizeLEN(len(b)))
	x.buf = AppendUvarint(x.buf, EncodeTag(uint64(num), FieldTypeLEN))
	x.buf = AppendUvarint(x.buf, uint64(len(b)))
	x.buf = append(x.buf, b...)
}

// String writes text field.
func (x *Encoder) String(num int, s string) {
	x.Bytes(num, []byte(s))
}

// Message writes nested message field filled by f.
func (x *Encoder) Message(num int, f func(*Encoder)) {
	var sub Encoder
	f(&sub)
	x.Bytes(num, sub.buf)
}

// Encoded returns accumulated message.
func (x *Encoder) Encoded() []byte {
	return x.buf
}

var errUnexpectedEnd = errors.New("unexpected end of message")

// Decoder reads messages produced by Encoder and rejects any other encoding of
// the same value. Fields are read sequentially in the order they are declared.
type Decoder struct {
	b    []byte
	next int
}

// NewDecoder returns Decoder reading message from b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{b: b, next: 1}
}

// Oneof reads the only field of a tagged variant message and returns the field
// number along with the decoder of the nested message.
func (x *Decoder) Oneof() (int, *Decoder, error) {
	if len(x.b) == 0 {
		return 0, nil, errUnexpectedEnd
	}

	num, typ, n, err := ReadTag(x.b)
	if err != nil {
		return 0, nil, fmt.Errorf("read variant tag: %w", err)
	}

	if err = CheckFieldType(num, typ, FieldTypeLEN); err != nil {
		return 0, nil, err
	}

	x.b = x.b[n:]

	body, err := x.readLEN()
	if err != nil {
		return 0, nil, fmt.Errorf("read variant #%d: %w", num, err)
	}

	if err = x.Close(); err != nil {
		return 0, nil, err
	}

	return num, NewDecoder(body), nil
}

// Uint32 reads next field as uint32.
func (x *Decoder) Uint32() (uint32, error) {
	num, err := x.field(FieldTypeVARINT)
	if err != nil {
		return 0, err
	}

	v, n, err := ReadUint32(x.b)
	if err != nil {
		return 0, fmt.Errorf("field #%d: %w", num, err)
	}

	x.b = x.b[n:]

	return v, nil
}

// Uint64 reads next field as uint64.
func (x *Decoder) Uint64() (uint64, error) {
	num, err := x.field(FieldTypeVARINT)
	if err != nil {
		return 0, err
	}

	v, n, err := uvarint(x.b)
	if err != nil {
		return 0, fmt.Errorf("field #%d: %w", num, err)
	}

	x.b = x.b[n:]

	return v, nil
}

// Bytes reads next field as binary.
func (x *Decoder) Bytes() ([]byte, error) {
	num, err := x.field(FieldTypeLEN)
	if err != nil {
		return nil, err
	}

	b, err := x.readLEN()
	if err != nil {
		return nil, fmt.Errorf("field #%d: %w", num, err)
	}

	return bytes.Clone(b), nil
}

// String reads next field as UTF-8 text.
func (x *Decoder) String() (string, error) {
	num, err := x.field(FieldTypeLEN)
	if err != nil {
		return "", err
	}

	b, err := x.readLEN()
	if err != nil {
		return "", fmt.Errorf("field #%d: %w", num, err)
	}

	if !utf8.Valid(b) {
		return "", fmt.Errorf("field #%d: invalid UTF-8", num)
	}

	return string(b), nil
}

// Message reads next field as nested message.
func (x *Decoder) Message() (*Decoder, error) {
	num, err := x.field(FieldTypeLEN)
	if err != nil {
		return nil, err
	}

	b, err := x.readLEN()
	if err != nil {
		return nil, fmt.Errorf("field #%d: %w", num, err)
	}

	return NewDecoder(b), nil
}

// Close checks that the message has been read completely.
func (x *Decoder) Close() error {
	if len(x.b) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrNonCanonical, len(x.b))
	}

	return nil
}

func (x *Decoder) field(typ FieldType) (int, error) {
	if len(x.b) == 0 {
		return 0, fmt.Errorf("field #%d: %w", x.next, errUnexpectedEnd)
	}

	num, t, n, err := ReadTag(x.b)
	if err != nil {
		return 0, fmt.Errorf("read tag of field #%d: %w", x.next, err)
	}

	if err = CheckFieldNumber(num, x.next); err != nil {
		return 0, err
	}

	if err = CheckFieldType(num, t, typ); err != nil {
		return 0, err
	}

	x.b = x.b[n:]
	x.next++

	return num, nil
}

func (x *Decoder) readLEN() ([]byte, error) {
	ln, n, err := ReadSizeLEN(x.b)
	if err != nil {
		return nil, err
	}

	b := x.b[n : n+ln]
	x.b = x.b[n+ln:]

	return b, nil
}
