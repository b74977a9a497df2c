package common

import (
	"errors"
	"fmt"
)

// Error kinds of the identity contracts. Every failure aborts only the action
// being executed and leaves the contract state untouched.
var (
	// ErrInvalidAccountFormat is returned when the acting account does not
	// carry the contract name suffix or does not match the action.
	ErrInvalidAccountFormat = errors.New("invalid account format")
	// ErrAlreadyRegistered is returned on repeated registration.
	ErrAlreadyRegistered = errors.New("identity already exists")
	// ErrNotFound is returned when the account is not registered.
	ErrNotFound = errors.New("identity not found")
	// ErrInvalidNonce is returned when the presented nonce differs from the
	// stored one.
	ErrInvalidNonce = errors.New("invalid nonce")
	// ErrInvalidSignature is returned when a well-formed signature does not
	// verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidToken is returned when an identity token is rejected for a
	// reason other than its signature or claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMalformedToken is returned for tokens not split into header, payload
	// and signature.
	ErrMalformedToken = errors.New("malformed token")
	// ErrClaimMismatch is returned when verified claims do not match the
	// expected context.
	ErrClaimMismatch = errors.New("claim mismatch")
	// ErrClaimsDecode is returned for token payloads that are not valid claims.
	ErrClaimsDecode = errors.New("claims decode error")
	// ErrTokenExpired is returned when the token expires before the attested
	// time of the action.
	ErrTokenExpired = errors.New("token expired")
	// ErrDecode is returned for malformed hex, key or signature encodings.
	ErrDecode = errors.New("decode error")
	// ErrCorruptState is returned when the state digest cannot be decoded.
	ErrCorruptState = errors.New("corrupt state")
	// ErrInvalidAction is returned when the action payload or its carrier
	// transaction cannot be interpreted.
	ErrInvalidAction = errors.New("invalid action")
)

// OpError is an error of a particular contract operation. Kind is one of the
// error kinds declared above and can be checked with errors.Is.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// NewError returns OpError of the given kind with formatted message.
func NewError(op string, kind error, format string, args ...any) error {
	return OpError{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns OpError of the given kind caused by err. Both kind and err can
// be matched with errors.Is.
func Wrap(op string, kind error, err error) error {
	if errors.Is(err, kind) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %w", OpError{Op: op, Kind: kind}, err)
}
