package proto

import "fmt"

// CheckFieldType checks whether field with given number has expected type and
// returns an error if not.
func CheckFieldType(num int, got, exp FieldType) error {
	if got != exp {
		return fmt.Errorf("%w: wrong type of field #%d: expected %s, got %s",
			ErrNonCanonical, num, exp, got)
	}

	return nil
}

// CheckFieldNumber checks whether the next field has expected number. Fields
// of canonical messages follow in ascending order with no gaps, so any other
// number means a missing, duplicated or unknown field.
func CheckFieldNumber(got, exp int) error {
	if got != exp {
		return fmt.Errorf("%w: unexpected field #%d, expected #%d", ErrNonCanonical, got, exp)
	}

	return nil
}
