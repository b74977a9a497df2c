package oidcid

import (
	"fmt"

	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/identity-contracts/internal/proto"
)

// Proof is an identity token issued by the provider along with the context
// it is checked in.
type Proof struct {
	Context OpenIdContext
	Key     JwkPublicKey
	// Attested Unix time the token must be valid at. Zero disables expiry
	// check.
	ValidAt uint64
	// Compact JWT taken from the private input.
	Token string
}

// RegisterAction binds the token subject to the account.
type RegisterAction struct {
	Account string
	Context OpenIdContext
	Key     JwkPublicKey
	ValidAt uint64
}

// Bytes returns canonical encoding of the action.
func (x RegisterAction) Bytes() []byte {
	var e proto.Encoder
	e.Message(int(common.ActionRegister), func(e *proto.Encoder) {
		e.String(1, x.Account)
		encodeContext(e, 2, x.Context)
		encodeKey(e, 3, x.Key)
		e.Uvarint(4, x.ValidAt)
	})
	return e.Encoded()
}

// VerifyAction proves possession of a token for the registered subject.
type VerifyAction struct {
	Account string
	Nonce   uint32
	Context OpenIdContext
	Key     JwkPublicKey
	ValidAt uint64
}

// Bytes returns canonical encoding of the action.
func (x VerifyAction) Bytes() []byte {
	var e proto.Encoder
	e.Message(int(common.ActionVerify), func(e *proto.Encoder) {
		e.String(1, x.Account)
		e.Uvarint(2, uint64(x.Nonce))
		encodeContext(e, 3, x.Context)
		encodeKey(e, 4, x.Key)
		e.Uvarint(5, x.ValidAt)
	})
	return e.Encoded()
}

// InfoAction requests the record of any registered account.
type InfoAction struct {
	Account string
}

// Bytes returns canonical encoding of the action.
func (x InfoAction) Bytes() []byte {
	var e proto.Encoder
	e.Message(int(common.ActionInfo), func(e *proto.Encoder) {
		e.String(1, x.Account)
	})
	return e.Encoded()
}

func encodeContext(e *proto.Encoder, num int, c OpenIdContext) {
	e.Message(num, func(e *proto.Encoder) {
		e.String(1, c.Issuer)
		e.String(2, c.Audience)
	})
}

func encodeKey(e *proto.Encoder, num int, k JwkPublicKey) {
	e.Message(num, func(e *proto.Encoder) {
		e.String(1, k.N)
		e.String(2, k.E)
	})
}

// DecodeAction decodes action of the OIDC identity contract executed within
// the given call. Token is taken from the private input of the call.
func DecodeAction(data []byte, call common.Call) (common.Action[Proof], error) {
	act, err := decodeAction(data)
	if err != nil {
		return act, common.Wrap("decode OIDC identity action", common.ErrInvalidAction, err)
	}

	act.Proof.Token = string(call.PrivateInput)

	return act, nil
}

func decodeAction(data []byte) (common.Action[Proof], error) {
	var act common.Action[Proof]

	num, d, err := proto.NewDecoder(data).Oneof()
	if err != nil {
		return act, err
	}

	act.Kind = common.ActionKind(num)

	if act.Account, err = d.String(); err != nil {
		return act, fmt.Errorf("account: %w", err)
	}

	switch act.Kind {
	case common.ActionInfo:
		return act, d.Close()
	case common.ActionRegister:
	case common.ActionVerify:
		if act.Nonce, err = d.Uint32(); err != nil {
			return act, fmt.Errorf("nonce: %w", err)
		}
	default:
		return act, fmt.Errorf("unsupported action #%d", num)
	}

	if act.Proof.Context, err = decodeContext(d); err != nil {
		return act, fmt.Errorf("context: %w", err)
	}

	if act.Proof.Key, err = decodeKey(d); err != nil {
		return act, fmt.Errorf("JWK: %w", err)
	}

	if act.Proof.ValidAt, err = d.Uint64(); err != nil {
		return act, fmt.Errorf("valid at: %w", err)
	}

	return act, d.Close()
}

func decodeContext(d *proto.Decoder) (OpenIdContext, error) {
	var c OpenIdContext

	m, err := d.Message()
	if err != nil {
		return c, err
	}

	if c.Issuer, err = m.String(); err != nil {
		return c, fmt.Errorf("issuer: %w", err)
	}

	if c.Audience, err = m.String(); err != nil {
		return c, fmt.Errorf("audience: %w", err)
	}

	return c, m.Close()
}

func decodeKey(d *proto.Decoder) (JwkPublicKey, error) {
	var k JwkPublicKey

	m, err := d.Message()
	if err != nil {
		return k, err
	}

	if k.N, err = m.String(); err != nil {
		return k, fmt.Errorf("modulus: %w", err)
	}

	if k.E, err = m.String(); err != nil {
		return k, fmt.Errorf("exponent: %w", err)
	}

	return k, m.Close()
}
