package webauthnid

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
)

// Client data types of WebAuthn ceremonies.
const (
	TypeCreate = "webauthn.create"
	TypeGet    = "webauthn.get"
)

const (
	minAuthDataLen = 32 + 1 + 4

	flagUserPresent = 0x01
)

// Assertion is a signed response of the authenticator.
type Assertion struct {
	// Raw authenticator data: RP ID hash, flags, signature counter and
	// optional extensions.
	AuthenticatorData []byte
	// Client data JSON exactly as signed.
	ClientDataJSON []byte
	// DER-encoded ECDSA signature of the authenticator data concatenated with
	// SHA-256 of the client data.
	Signature []byte
}

// RelyingParty groups optional checks of the relying party. Empty fields are
// not checked.
type RelyingParty struct {
	ID     string
	Origin string
}

type clientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// Challenge returns WebAuthn challenge for the message:
// base64url-encoded SHA-256 of it without padding.
func Challenge(msg []byte) string {
	return base64.RawURLEncoding.EncodeToString(hash.Sha256(msg).BytesBE())
}

// DecodePublicKey decodes SEC1-encoded P-256 public key.
func DecodePublicKey(b []byte) (*keys.PublicKey, error) {
	pub, err := keys.NewPublicKeyFromBytes(b, elliptic.P256())
	if err != nil {
		return nil, common.Wrap("decode public key", common.ErrDecode, err)
	}
	return pub, nil
}

// CredentialReference returns canonical form of the credential:
// '<hex credential ID>:<hex compressed key>'.
func CredentialReference(credID []byte, pub *keys.PublicKey) string {
	return hex.EncodeToString(credID) + ":" + hex.EncodeToString(pub.Bytes())
}

// VerifyAssertion checks that the assertion is made by the key within the
// ceremony of the given type for the message.
func VerifyAssertion(pub *keys.PublicKey, a Assertion, typ string, msg []byte, rp RelyingParty) error {
	const op = "verify assertion"

	if len(a.AuthenticatorData) < minAuthDataLen {
		return common.NewError(op, common.ErrDecode, "authenticator data of %d bytes", len(a.AuthenticatorData))
	}

	if rp.ID != "" && !bytes.Equal(a.AuthenticatorData[:32], hash.Sha256([]byte(rp.ID)).BytesBE()) {
		return common.NewError(op, common.ErrClaimMismatch, "RP ID hash differs from '%s'", rp.ID)
	}

	if a.AuthenticatorData[32]&flagUserPresent == 0 {
		return common.NewError(op, common.ErrClaimMismatch, "user not present")
	}

	var cd clientData
	if err := json.Unmarshal(a.ClientDataJSON, &cd); err != nil {
		return common.Wrap(op, common.ErrDecode, err)
	}

	if cd.Type != typ {
		return common.NewError(op, common.ErrClaimMismatch, "client data type '%s' instead of '%s'", cd.Type, typ)
	}

	if strings.TrimRight(cd.Challenge, "=") != Challenge(msg) {
		return common.NewError(op, common.ErrClaimMismatch, "challenge of another message")
	}

	if rp.Origin != "" && cd.Origin != rp.Origin {
		return common.NewError(op, common.ErrClaimMismatch, "origin '%s' instead of '%s'", cd.Origin, rp.Origin)
	}

	signed := make([]byte, 0, len(a.AuthenticatorData)+32)
	signed = append(signed, a.AuthenticatorData...)
	signed = append(signed, hash.Sha256(a.ClientDataJSON).BytesBE()...)

	if !ecdsa.VerifyASN1((*ecdsa.PublicKey)(pub), hash.Sha256(signed).BytesBE(), a.Signature) {
		return common.NewError(op, common.ErrInvalidSignature, "assertion signature")
	}

	return nil
}
