package ecdsaid

import (
	"fmt"

	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/identity-contracts/internal/proto"
)

// Proof is a signature-based proof of the key possession.
type Proof struct {
	// Hex-encoded SEC1 public key. Empty means the account key itself.
	PublicKey string
	// Hex-encoded DER signature.
	Signature string
	// Transaction context the verification message is built from.
	Call common.Call
}

// RegisterAction binds the public key to the account.
type RegisterAction struct {
	Account   string
	PublicKey string
	Signature string
}

// Bytes returns canonical encoding of the action.
func (x RegisterAction) Bytes() []byte {
	var e proto.Encoder
	e.Message(int(common.ActionRegister), func(e *proto.Encoder) {
		e.String(1, x.Account)
		e.String(2, x.PublicKey)
		e.String(3, x.Signature)
	})
	return e.Encoded()
}

// VerifyAction proves control of the registered key.
type VerifyAction struct {
	Account   string
	Nonce     uint32
	PublicKey string
	Signature string
}

// Bytes returns canonical encoding of the action.
func (x VerifyAction) Bytes() []byte {
	var e proto.Encoder
	e.Message(int(common.ActionVerify), func(e *proto.Encoder) {
		e.String(1, x.Account)
		e.Uvarint(2, uint64(x.Nonce))
		e.String(3, x.PublicKey)
		e.String(4, x.Signature)
	})
	return e.Encoded()
}

// DecodeAction decodes action of the ECDSA identity contract executed within
// the given call.
func DecodeAction(data []byte, call common.Call) (common.Action[Proof], error) {
	act, err := decodeAction(data)
	if err != nil {
		return act, common.Wrap("decode ECDSA identity action", common.ErrInvalidAction, err)
	}

	act.Proof.Call = call

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
	case common.ActionRegister:
	case common.ActionVerify:
		if act.Nonce, err = d.Uint32(); err != nil {
			return act, fmt.Errorf("nonce: %w", err)
		}
	default:
		return act, fmt.Errorf("unsupported action #%d", num)
	}

	if act.Proof.PublicKey, err = d.String(); err != nil {
		return act, fmt.Errorf("public key: %w", err)
	}

	if act.Proof.Signature, err = d.String(); err != nil {
		return act, fmt.Errorf("signature: %w", err)
	}

	return act, d.Close()
}
