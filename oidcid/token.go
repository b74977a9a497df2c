package oidcid

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nspcc-dev/identity-contracts/common"
)

// OpenIdContext is the expected token issuer and audience.
type OpenIdContext struct {
	Issuer   string
	Audience string
}

// JwkPublicKey is an RSA public key of the identity provider in JWK form:
// base64-encoded big-endian modulus and exponent.
type JwkPublicKey struct {
	N string
	E string
}

// PublicKey decodes RSA public key. Both standard and URL alphabets are
// accepted, padding is optional.
func (x JwkPublicKey) PublicKey() (*rsa.PublicKey, error) {
	const op = "decode JWK"

	n, err := decodeSegment(x.N)
	if err != nil {
		return nil, common.Wrap(op, common.ErrDecode, fmt.Errorf("modulus: %w", err))
	}

	e, err := decodeSegment(x.E)
	if err != nil {
		return nil, common.Wrap(op, common.ErrDecode, fmt.Errorf("exponent: %w", err))
	}

	if len(n) == 0 {
		return nil, common.NewError(op, common.ErrDecode, "empty modulus")
	}

	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 2 || exp.Int64() > 1<<31-1 {
		return nil, common.NewError(op, common.ErrDecode, "invalid exponent")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// Claims are the token claims the contract relies on.
type Claims struct {
	Subject  string           `json:"sub"`
	Issuer   string           `json:"iss"`
	Audience jwt.ClaimStrings `json:"aud"`
	Expiry   *ExpiryTime      `json:"exp,omitempty"`
	Email    string           `json:"email,omitempty"`
}

// ExpiryTime is the 'exp' claim: Unix time in whole seconds. Unlike
// jwt.NumericDate it is decoded without floating point, fractional, negative
// and out-of-range values are rejected.
type ExpiryTime uint64

// UnmarshalJSON implements json.Unmarshaler.
func (x *ExpiryTime) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("exp claim: %w", err)
	}

	*x = ExpiryTime(v)

	return nil
}

// CredentialReference returns canonical identity of the token holder:
// '<sub>:<iss>'.
func (x Claims) CredentialReference() string {
	return x.Subject + ":" + x.Issuer
}

type header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid,omitempty"`
}

// VerifyToken checks RS256 signature of the compact JWT with the key and
// matches its issuer and audience against the context. Token expiry is not
// checked here, see CheckExpiry.
func VerifyToken(token string, jwk JwkPublicKey, ctx OpenIdContext) (Claims, error) {
	const op = "verify token"

	var claims Claims

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return claims, common.NewError(op, common.ErrMalformedToken, "%d segments instead of 3", len(parts))
	}

	hdr, err := decodeHeader(parts[0])
	if err != nil {
		return claims, common.Wrap(op, common.ErrMalformedToken, err)
	}

	if hdr.Alg != jwt.SigningMethodRS256.Alg() {
		return claims, common.NewError(op, common.ErrInvalidToken, "unsupported algorithm '%s'", hdr.Alg)
	}

	sig, err := decodeSegment(parts[2])
	if err != nil {
		return claims, common.Wrap(op, common.ErrMalformedToken, fmt.Errorf("signature: %w", err))
	}

	pub, err := jwk.PublicKey()
	if err != nil {
		return claims, err
	}

	err = jwt.SigningMethodRS256.Verify(parts[0]+"."+parts[1], sig, pub)
	if err != nil {
		return claims, common.Wrap(op, common.ErrInvalidSignature, err)
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return claims, common.Wrap(op, common.ErrClaimsDecode, err)
	}

	if err = json.Unmarshal(payload, &claims); err != nil {
		return claims, common.Wrap(op, common.ErrClaimsDecode, err)
	}

	if claims.Subject == "" {
		return claims, common.NewError(op, common.ErrClaimsDecode, "missing subject")
	}

	if claims.Issuer != ctx.Issuer {
		return claims, common.NewError(op, common.ErrClaimMismatch, "issuer '%s' instead of '%s'", claims.Issuer, ctx.Issuer)
	}

	if !slices.Contains(claims.Audience, ctx.Audience) {
		return claims, common.NewError(op, common.ErrClaimMismatch, "audience '%s' not in %v", ctx.Audience, []string(claims.Audience))
	}

	return claims, nil
}

// CheckExpiry checks that the token is valid at the given Unix time. Zero
// time disables the check.
func CheckExpiry(c Claims, validAt uint64) error {
	if validAt == 0 {
		return nil
	}

	if c.Expiry == nil {
		return common.NewError("check token expiry", common.ErrTokenExpired, "no expiration time")
	}

	if exp := uint64(*c.Expiry); exp <= validAt {
		return common.NewError("check token expiry", common.ErrTokenExpired, "expired at %d, required valid at %d", exp, validAt)
	}

	return nil
}

func decodeHeader(seg string) (header, error) {
	var h header

	b, err := decodeSegment(seg)
	if err != nil {
		return h, fmt.Errorf("header: %w", err)
	}

	if err = json.Unmarshal(b, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}

	return h, nil
}

func decodeSegment(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
