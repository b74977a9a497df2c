package ecdsaid

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha512"
	"encoding/hex"
	"math/big"

	"github.com/nspcc-dev/identity-contracts/common"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const (
	compressedKeyLen   = 1 + 48
	uncompressedKeyLen = 1 + 2*48
)

// VerifySignature checks DER-encoded ECDSA signature of the message against
// SEC1-encoded P-384 public key. Both are hex-encoded. Malformed inputs are
// reported as common.ErrDecode, signature mismatch as false.
func VerifySignature(pubHex, sigHex string, msg []byte) (bool, error) {
	pub, err := DecodePublicKey(pubHex)
	if err != nil {
		return false, err
	}

	return verify(pub, sigHex, msg)
}

func verify(pub *ecdsa.PublicKey, sigHex string, msg []byte) (bool, error) {
	r, s, err := decodeSignature(sigHex)
	if err != nil {
		return false, err
	}

	digest := sha512.Sum384(msg)

	return ecdsa.Verify(pub, digest[:], r, s), nil
}

// DecodePublicKey decodes hex-encoded SEC1 P-384 public key.
func DecodePublicKey(pubHex string) (*ecdsa.PublicKey, error) {
	const op = "decode public key"

	b, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, common.Wrap(op, common.ErrDecode, err)
	}

	curve := elliptic.P384()

	var x, y *big.Int
	switch {
	case len(b) == compressedKeyLen && (b[0] == 2 || b[0] == 3):
		x, y = elliptic.UnmarshalCompressed(curve, b)
	case len(b) == uncompressedKeyLen && b[0] == 4:
		x, y = elliptic.Unmarshal(curve, b) //nolint:staticcheck // SA1019: no non-deprecated way to get big.Int coordinates
	}

	if x == nil {
		return nil, common.NewError(op, common.ErrDecode, "invalid SEC1 P-384 point of %d bytes", len(b))
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// CredentialReference returns canonical form of the public key: hex-encoded
// compressed SEC1 point.
func CredentialReference(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(elliptic.MarshalCompressed(pub.Curve, pub.X, pub.Y))
}

func decodeSignature(sigHex string) (*big.Int, *big.Int, error) {
	const op = "decode signature"

	if sigHex == "" {
		return nil, nil, common.NewError(op, common.ErrDecode, "missing signature")
	}

	b, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, nil, common.Wrap(op, common.ErrDecode, err)
	}

	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
		input = cryptobyte.String(b)
	)

	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, common.NewError(op, common.ErrDecode, "invalid DER signature")
	}

	if r.Sign() <= 0 || s.Sign() <= 0 {
		return nil, nil, common.NewError(op, common.ErrDecode, "non-positive signature component")
	}

	return r, s, nil
}
