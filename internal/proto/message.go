package proto

import "strconv"

// MaxFieldNumber is a maximum field number according to
// https://protobuf.dev/programming-guides/proto3/#assigning.
const MaxFieldNumber = 1<<29 - 1

// FieldType is a wire type of the field, see
// https://protobuf.dev/programming-guides/encoding/#structure. Canonical
// messages consist of VARINT and LEN fields only.
type FieldType uint8

// All wire types known to protobuf.
const (
	FieldTypeVARINT FieldType = iota
	FieldTypeI64
	FieldTypeLEN
	FieldTypeSGROUP
	FieldTypeEGROUP
	FieldTypeI32
	firstUnknownFieldType
)

var fieldTypeNames = [firstUnknownFieldType]string{"VARINT", "I64", "LEN", "SGROUP", "EGROUP", "I32"}

// String implements fmt.Stringer.
func (x FieldType) String() string {
	if x < firstUnknownFieldType {
		return fieldTypeNames[x]
	}
	return "UNKNOWN#" + strconv.Itoa(int(x))
}
