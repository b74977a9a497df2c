package webauthnid

import (
	"fmt"

	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/identity-contracts/internal/proto"
)

// Proof is an authenticator assertion over the contract challenge.
type Proof struct {
	CredentialID []byte
	// SEC1-encoded P-256 public key of the credential.
	PublicKey []byte
	Assertion Assertion
	// Transaction context the verification message is built from.
	Call common.Call
}

// RegisterAction binds the WebAuthn credential to the account.
type RegisterAction struct {
	Account      string
	CredentialID []byte
	PublicKey    []byte
	Assertion    Assertion
}

// Bytes returns canonical encoding of the action.
func (x RegisterAction) Bytes() []byte {
	var e proto.Encoder
	e.Message(int(common.ActionRegister), func(e *proto.Encoder) {
		e.String(1, x.Account)
		e.Bytes(2, x.CredentialID)
		e.Bytes(3, x.PublicKey)
		encodeAssertion(e, 4, x.Assertion)
	})
	return e.Encoded()
}

// VerifyAction proves possession of the registered credential.
type VerifyAction struct {
	Account      string
	Nonce        uint32
	CredentialID []byte
	PublicKey    []byte
	Assertion    Assertion
}

// Bytes returns canonical encoding of the action.
func (x VerifyAction) Bytes() []byte {
	var e proto.Encoder
	e.Message(int(common.ActionVerify), func(e *proto.Encoder) {
		e.String(1, x.Account)
		e.Uvarint(2, uint64(x.Nonce))
		e.Bytes(3, x.CredentialID)
		e.Bytes(4, x.PublicKey)
		encodeAssertion(e, 5, x.Assertion)
	})
	return e.Encoded()
}

func encodeAssertion(e *proto.Encoder, num int, a Assertion) {
	e.Message(num, func(e *proto.Encoder) {
		e.Bytes(1, a.AuthenticatorData)
		e.Bytes(2, a.ClientDataJSON)
		e.Bytes(3, a.Signature)
	})
}

// DecodeAction decodes action of the WebAuthn identity contract executed
// within the given call.
func DecodeAction(data []byte, call common.Call) (common.Action[Proof], error) {
	act, err := decodeAction(data)
	if err != nil {
		return act, common.Wrap("decode WebAuthn identity action", common.ErrInvalidAction, err)
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

	if act.Proof.CredentialID, err = d.Bytes(); err != nil {
		return act, fmt.Errorf("credential ID: %w", err)
	}

	if act.Proof.PublicKey, err = d.Bytes(); err != nil {
		return act, fmt.Errorf("public key: %w", err)
	}

	m, err := d.Message()
	if err != nil {
		return act, fmt.Errorf("assertion: %w", err)
	}

	a := &act.Proof.Assertion

	if a.AuthenticatorData, err = m.Bytes(); err != nil {
		return act, fmt.Errorf("authenticator data: %w", err)
	}

	if a.ClientDataJSON, err = m.Bytes(); err != nil {
		return act, fmt.Errorf("client data: %w", err)
	}

	if a.Signature, err = m.Bytes(); err != nil {
		return act, fmt.Errorf("signature: %w", err)
	}

	if err = m.Close(); err != nil {
		return act, fmt.Errorf("assertion: %w", err)
	}

	return act, d.Close()
}
