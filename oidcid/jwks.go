package oidcid

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nspcc-dev/identity-contracts/common"
)

type jwks struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// KeyFromJWKS selects RSA key the token is signed with from the JSON Web Key
// Set document of the identity provider. Key is matched by the 'kid' header of
// the token. Token without 'kid' is accepted if the set holds the only RSA
// signing key.
func KeyFromJWKS(doc []byte, token string) (JwkPublicKey, error) {
	const op = "select JWK"

	var set jwks
	if err := json.Unmarshal(doc, &set); err != nil {
		return JwkPublicKey{}, common.Wrap(op, common.ErrDecode, fmt.Errorf("JWKS: %w", err))
	}

	seg, _, _ := strings.Cut(token, ".")

	hdr, err := decodeHeader(seg)
	if err != nil {
		return JwkPublicKey{}, common.Wrap(op, common.ErrMalformedToken, err)
	}

	var res []JwkPublicKey
	for i := range set.Keys {
		k := set.Keys[i]
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}

		if hdr.Kid == "" || k.Kid == hdr.Kid {
			res = append(res, JwkPublicKey{N: k.N, E: k.E})
		}
	}

	switch {
	case len(res) == 1:
		return res[0], nil
	case hdr.Kid != "" && len(res) == 0:
		return JwkPublicKey{}, common.NewError(op, common.ErrNotFound, "no RSA key '%s' in JWKS", hdr.Kid)
	case hdr.Kid != "":
		return JwkPublicKey{}, common.NewError(op, common.ErrInvalidToken, "%d RSA keys with id '%s' in JWKS", len(res), hdr.Kid)
	default:
		return JwkPublicKey{}, common.NewError(op, common.ErrInvalidToken, "token has no key id, JWKS holds %d RSA keys", len(res))
	}
}
